package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTransaction appends the record. The generated ID and the commit
// timestamp come back from the database, so IDs are monotonic in creation
// order and CreatedAt reflects commit time, not request time.
func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (account_id, amount, transaction_type, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	var idempotencyKey interface{}
	if tx.IdempotencyKey != nil {
		idempotencyKey = *tx.IdempotencyKey
	}

	err := r.db.QueryRow(
		query,
		tx.AccountID,
		tx.Amount.String(),
		tx.Type,
		idempotencyKey,
	).Scan(&tx.ID, &tx.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.logger.Warn("Duplicate idempotency key", "idempotency_key", tx.IdempotencyKey)
			return errors.ErrDuplicateTransaction
		}
		r.logger.Error("Failed to create transaction",
			"account_id", tx.AccountID,
			"amount", tx.Amount,
			"transaction_type", tx.Type,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	r.logger.Info("Transaction created successfully",
		"transaction_id", tx.ID, "account_id", tx.AccountID, "transaction_type", tx.Type)
	return nil
}

func (r *transactionRepository) GetTransaction(id int64) (*domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, transaction_type, idempotency_key, created_at
		FROM transactions WHERE id = $1
	`

	return r.scanTransaction(r.db.QueryRow(query, id))
}

// GetTransactionForUpdate reads the transaction under an exclusive row lock.
// Must be called inside a Store.WithTransaction unit of work; the lock is
// released at commit or rollback.
func (r *transactionRepository) GetTransactionForUpdate(id int64) (*domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, transaction_type, idempotency_key, created_at
		FROM transactions WHERE id = $1 FOR UPDATE
	`

	return r.scanTransaction(r.db.QueryRow(query, id))
}

func (r *transactionRepository) GetTransactionByIdempotencyKey(key uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, transaction_type, idempotency_key, created_at
		FROM transactions WHERE idempotency_key = $1
	`

	tx, err := r.scanTransaction(r.db.QueryRow(query, key))
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}

func (r *transactionRepository) scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var amountStr string
	var idempotencyKey sql.NullString

	err := row.Scan(
		&transaction.ID,
		&transaction.AccountID,
		&amountStr,
		&transaction.Type,
		&idempotencyKey,
		&transaction.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transaction").WithDetails(err.Error())
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
	}
	transaction.Amount = amount

	if idempotencyKey.Valid {
		key, err := uuid.Parse(idempotencyKey.String)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse idempotency key").WithDetails(err.Error())
		}
		transaction.IdempotencyKey = &key
	}

	return &transaction, nil
}

// ListByAccount returns the account's history newest first. The secondary
// sort on id keeps ordering stable when timestamps collide.
func (r *transactionRepository) ListByAccount(accountID int64, limit, offset int) ([]*domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, transaction_type, idempotency_key, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

func (r *transactionRepository) ListByUserInRange(userID int64, start, end time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.amount, t.transaction_type, t.idempotency_key, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1 AND t.created_at BETWEEN $2 AND $3
		ORDER BY t.created_at DESC, t.id DESC
	`

	rows, err := r.db.Query(query, userID, start, end)
	if err != nil {
		r.logger.Error("Failed to list transactions for user",
			"user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	return r.collectTransactions(rows)
}

// SumByUserInRange nets debits as negative and credits as positive over the
// range. COALESCE covers the empty range.
func (r *transactionRepository) SumByUserInRange(userID int64, start, end time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE WHEN t.transaction_type = 'debit' THEN -t.amount ELSE t.amount END
		), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1 AND t.created_at BETWEEN $2 AND $3
	`

	var sumStr string
	if err := r.db.QueryRow(query, userID, start, end).Scan(&sumStr); err != nil {
		r.logger.Error("Failed to sum transactions for user", "user_id", userID, "error", err)
		return decimal.Zero, errors.NewAppError(errors.InternalError, "failed to sum transactions").WithDetails(err.Error())
	}

	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InternalError, "failed to parse sum").WithDetails(err.Error())
	}

	return sum, nil
}

func (r *transactionRepository) collectTransactions(rows *sql.Rows) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction

	for rows.Next() {
		var transaction domain.Transaction
		var amountStr string
		var idempotencyKey sql.NullString

		if err := rows.Scan(
			&transaction.ID,
			&transaction.AccountID,
			&amountStr,
			&transaction.Type,
			&idempotencyKey,
			&transaction.CreatedAt,
		); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan transaction").WithDetails(err.Error())
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
		}
		transaction.Amount = amount

		if idempotencyKey.Valid {
			key, err := uuid.Parse(idempotencyKey.String)
			if err != nil {
				return nil, errors.NewAppError(errors.InternalError, "failed to parse idempotency key").WithDetails(err.Error())
			}
			transaction.IdempotencyKey = &key
		}

		transactions = append(transactions, &transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to read transactions").WithDetails(err.Error())
	}

	return transactions, nil
}

func (r *transactionRepository) UpdateTransaction(id int64, amount decimal.Decimal, txType domain.TransactionType) error {
	query := `
		UPDATE transactions
		SET amount = $1, transaction_type = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, amount.String(), txType, id)
	if err != nil {
		r.logger.Error("Failed to update transaction", "transaction_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update transaction").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}

	r.logger.Info("Transaction updated", "transaction_id", id, "amount", amount, "transaction_type", txType)
	return nil
}

func (r *transactionRepository) DeleteTransaction(id int64) error {
	result, err := r.db.Exec(`DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "transaction_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete transaction").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}

	r.logger.Info("Transaction deleted", "transaction_id", id)
	return nil
}
