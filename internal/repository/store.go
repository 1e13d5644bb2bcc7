package repository

import (
	"database/sql"
	"log/slog"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
)

// SQLExecutor is the query surface the repositories run on. *sql.DB satisfies
// it directly; inside a unit of work the executor is the transaction instead,
// so every repository call joins the same database transaction.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var _ SQLExecutor = (*sql.DB)(nil)

// txExecutor adapts sql.Tx to SQLExecutor for the lifetime of one unit of
// work.
type txExecutor struct {
	tx *sql.Tx
}

func (t *txExecutor) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.Exec(query, args...)
}

func (t *txExecutor) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.Query(query, args...)
}

func (t *txExecutor) QueryRow(query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRow(query, args...)
}

// Store provides unified access to all repositories with transaction support.
// Repositories obtained inside WithTransaction share one database
// transaction, which is the unit of work the ledger engine commits balance
// updates and transaction records in.
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Accounts returns an AccountRepository using the current executor
func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// AccountTypes returns an AccountTypeRepository using the current executor
func (s *Store) AccountTypes() domain.AccountTypeRepository {
	return NewAccountTypeRepository(s.executor, s.logger)
}

// Transactions returns a TransactionRepository using the current executor
func (s *Store) Transactions() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// Users returns a UserRepository using the current executor
func (s *Store) Users() domain.UserRepository {
	return NewUserRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. Any error or
// panic rolls back; row locks taken inside fn are released either way.
func (s *Store) WithTransaction(fn func(*Store) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	txStore := &Store{
		executor: &txExecutor{tx: tx},
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
