package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"investment-ledger/internal/cache"
	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/repository"
)

// Engine is the single authority for turning a transaction request into a
// committed balance change. Every mutation runs as one unit of work: the
// account row is locked, invariants are re-checked against the freshly read
// balance, and the balance update and transaction record commit together or
// not at all.
//
// Locking is per account and each operation takes exactly one account lock,
// so operations on different accounts never block each other and no lock
// ordering is needed.
type Engine struct {
	store  *repository.Store
	cache  *cache.AccountCache
	logger *slog.Logger
}

func NewEngine(store *repository.Store, accountCache *cache.AccountCache, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		cache:  accountCache,
		logger: logger,
	}
}

// ApplyRequest is a proposed (account, amount, type) triple. The optional
// idempotency key makes retried submissions safe: a key that was already
// committed returns the original transaction without mutating anything.
type ApplyRequest struct {
	AccountID      int64
	Amount         decimal.Decimal
	Type           domain.TransactionType
	IdempotencyKey *uuid.UUID
}

// Apply validates and applies a single transaction against one account.
//
// The sufficiency check and the mutation happen under the same row lock as
// one critical section. Checking the balance before taking the lock would
// let two concurrent debits both observe sufficient funds and overdraw the
// account, so the balance used for validation is always the one read under
// the lock.
func (e *Engine) Apply(ctx context.Context, req *ApplyRequest) (*domain.Transaction, error) {
	if !req.Type.Valid() {
		return nil, errors.NewAppError(errors.InvalidInput, "transaction type must be debit or credit")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var committed *domain.Transaction

	err := e.store.WithTransaction(func(s *repository.Store) error {
		if req.IdempotencyKey != nil {
			existing, err := s.Transactions().GetTransactionByIdempotencyKey(*req.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				e.logger.Info("Returning existing transaction for idempotency key",
					"idempotency_key", req.IdempotencyKey,
					"transaction_id", existing.ID)
				committed = existing
				return nil
			}
		}

		account, err := s.Accounts().GetAccountForUpdate(req.AccountID)
		if err != nil {
			return err
		}

		newBalance, err := applyDelta(account.Balance, req.Amount, req.Type)
		if err != nil {
			return err
		}

		if err := s.Accounts().UpdateAccountBalance(account.ID, newBalance); err != nil {
			return err
		}

		transaction := &domain.Transaction{
			AccountID:      account.ID,
			Amount:         req.Amount,
			Type:           req.Type,
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := s.Transactions().CreateTransaction(transaction); err != nil {
			return err
		}

		committed = transaction
		return nil
	})

	if err != nil {
		// Losing a concurrent same-key race surfaces as a unique index
		// violation after the winner commits. Replay the winner's row.
		if err == errors.ErrDuplicateTransaction && req.IdempotencyKey != nil {
			existing, lookupErr := e.store.Transactions().GetTransactionByIdempotencyKey(*req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				e.logger.Info("Returning existing transaction for idempotency key",
					"idempotency_key", req.IdempotencyKey,
					"transaction_id", existing.ID)
				return existing, nil
			}
		}
		e.logger.Warn("Transaction rejected",
			"account_id", req.AccountID,
			"transaction_type", req.Type,
			"amount", req.Amount,
			"error", err)
		return nil, err
	}

	e.cache.Invalidate(ctx, req.AccountID)

	e.logger.Info("Transaction applied",
		"transaction_id", committed.ID,
		"account_id", committed.AccountID,
		"transaction_type", committed.Type,
		"amount", committed.Amount)
	return committed, nil
}

// Get returns a committed transaction.
func (e *Engine) Get(transactionID int64) (*domain.Transaction, error) {
	return e.store.Transactions().GetTransaction(transactionID)
}

// Update corrects a committed transaction. The owning account's balance is
// recomputed as part of the correction: the old transaction's effect is
// reversed and the new one applied, under the same lock discipline as Apply.
// The transaction row itself is locked before the account row, so concurrent
// corrections of the same transaction serialize and each one reverses the
// effect the previous correction actually committed. A correction that would
// drive the balance negative is rejected, which keeps the balance consistent
// with the transaction history at all times.
func (e *Engine) Update(ctx context.Context, transactionID int64, newAmount decimal.Decimal, newType domain.TransactionType) (*domain.Transaction, error) {
	if !newType.Valid() {
		return nil, errors.NewAppError(errors.InvalidInput, "transaction type must be debit or credit")
	}
	if !newAmount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var updated *domain.Transaction
	var accountID int64

	err := e.store.WithTransaction(func(s *repository.Store) error {
		old, err := s.Transactions().GetTransactionForUpdate(transactionID)
		if err != nil {
			return err
		}
		accountID = old.AccountID

		account, err := s.Accounts().GetAccountForUpdate(old.AccountID)
		if err != nil {
			return err
		}

		// Reverse the old effect, then apply the new one. The intermediate
		// value may legitimately dip below zero (reversing a large credit);
		// only the final balance has to satisfy the invariant.
		rebalanced := account.Balance.Sub(old.Type.SignedAmount(old.Amount)).
			Add(newType.SignedAmount(newAmount))
		if rebalanced.IsNegative() {
			return errors.ErrInsufficientFunds
		}

		if err := s.Accounts().UpdateAccountBalance(account.ID, rebalanced); err != nil {
			return err
		}

		if err := s.Transactions().UpdateTransaction(transactionID, newAmount, newType); err != nil {
			return err
		}

		updated = &domain.Transaction{
			ID:             old.ID,
			AccountID:      old.AccountID,
			Amount:         newAmount,
			Type:           newType,
			IdempotencyKey: old.IdempotencyKey,
			CreatedAt:      old.CreatedAt,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	e.cache.Invalidate(ctx, accountID)

	e.logger.Info("Transaction corrected",
		"transaction_id", transactionID,
		"account_id", accountID,
		"transaction_type", newType,
		"amount", newAmount)
	return updated, nil
}

// Delete removes a committed transaction and reverses its effect on the
// owning account's balance, atomically. The transaction row is locked first,
// with the same ordering as Update. Deleting a credit whose funds were
// already spent is rejected rather than leaving a negative balance.
func (e *Engine) Delete(ctx context.Context, transactionID int64) error {
	var accountID int64

	err := e.store.WithTransaction(func(s *repository.Store) error {
		old, err := s.Transactions().GetTransactionForUpdate(transactionID)
		if err != nil {
			return err
		}
		accountID = old.AccountID

		account, err := s.Accounts().GetAccountForUpdate(old.AccountID)
		if err != nil {
			return err
		}

		reversed := account.Balance.Sub(old.Type.SignedAmount(old.Amount))
		if reversed.IsNegative() {
			return errors.ErrInsufficientFunds
		}

		if err := s.Accounts().UpdateAccountBalance(account.ID, reversed); err != nil {
			return err
		}

		return s.Transactions().DeleteTransaction(transactionID)
	})

	if err != nil {
		return err
	}

	e.cache.Invalidate(ctx, accountID)

	e.logger.Info("Transaction removed", "transaction_id", transactionID, "account_id", accountID)
	return nil
}

// applyDelta computes the post-transaction balance with exact decimal
// arithmetic. The insufficient-funds check runs against the balance read
// under the row lock, at the instant of commit.
func applyDelta(balance, amount decimal.Decimal, txType domain.TransactionType) (decimal.Decimal, error) {
	if txType == domain.Debit {
		if balance.LessThan(amount) {
			return decimal.Zero, errors.ErrInsufficientFunds
		}
		return balance.Sub(amount), nil
	}
	return balance.Add(amount), nil
}
