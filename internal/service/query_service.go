package service

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QueryService is the read side of the ledger. Transactions are immutable
// after commit, so no locking is involved here.
type QueryService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewQueryService(store *repository.Store, logger *slog.Logger) *QueryService {
	return &QueryService{
		store:  store,
		logger: logger,
	}
}

// ListTransactions pages through an account's history newest first.
func (s *QueryService) ListTransactions(accountID int64, page, pageSize int) ([]*domain.Transaction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	offset := (page - 1) * pageSize
	return s.store.Transactions().ListByAccount(accountID, pageSize, offset)
}

// Statement is a user's transactions across all accounts over a date range,
// with the signed net total (credits positive, debits negative).
type Statement struct {
	Transactions []*domain.Transaction `json:"transactions"`
	TotalBalance decimal.Decimal       `json:"total_balance"`
}

// UserStatement builds the admin report for one user over [start, end].
// End-of-day semantics: the end date is inclusive.
func (s *QueryService) UserStatement(userID int64, start, end time.Time) (*Statement, error) {
	if start.After(end) {
		return nil, errors.NewAppError(errors.InvalidInput, "start date must be before end date")
	}

	if _, err := s.store.Users().GetUser(userID); err != nil {
		return nil, err
	}

	transactions, err := s.store.Transactions().ListByUserInRange(userID, start, end)
	if err != nil {
		return nil, err
	}

	total, err := s.store.Transactions().SumByUserInRange(userID, start, end)
	if err != nil {
		return nil, err
	}

	return &Statement{
		Transactions: transactions,
		TotalBalance: total,
	}, nil
}
