package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"investment-ledger/internal/domain"
)

// AccountCache keeps read-side account snapshots in Redis. It is strictly an
// optimization: a nil *AccountCache is a valid no-op, and cache failures are
// logged and swallowed so the database stays authoritative.
type AccountCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *AccountCache {
	if client == nil {
		return nil
	}
	return &AccountCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func accountKey(id int64) string {
	return fmt.Sprintf("account:%d", id)
}

// GetAccount returns the cached snapshot or nil on miss.
func (c *AccountCache) GetAccount(ctx context.Context, id int64) *domain.Account {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Account cache read failed", "account_id", id, "error", err)
		}
		return nil
	}

	var account domain.Account
	if err := json.Unmarshal(data, &account); err != nil {
		c.logger.Warn("Account cache entry corrupt, dropping", "account_id", id, "error", err)
		c.Invalidate(ctx, id)
		return nil
	}

	return &account
}

func (c *AccountCache) SetAccount(ctx context.Context, account *domain.Account) {
	if c == nil {
		return
	}

	data, err := json.Marshal(account)
	if err != nil {
		c.logger.Warn("Failed to marshal account for cache", "account_id", account.ID, "error", err)
		return
	}

	if err := c.client.Set(ctx, accountKey(account.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Account cache write failed", "account_id", account.ID, "error", err)
	}
}

// Invalidate drops the snapshot. Called by every write path after commit.
func (c *AccountCache) Invalidate(ctx context.Context, id int64) {
	if c == nil {
		return
	}

	if err := c.client.Del(ctx, accountKey(id)).Err(); err != nil {
		c.logger.Warn("Account cache invalidation failed", "account_id", id, "error", err)
	}
}
