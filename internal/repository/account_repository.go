package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
)

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAccount opens a new account for (user, type). The account number is
// derived from a per-(user, type) sequence advanced atomically, so concurrent
// first-account creation for the same pair cannot produce colliding numbers.
// The unique constraint on (user_id, account_type_id) rejects the loser of a
// concurrent duplicate-create race.
func (r *accountRepository) CreateAccount(userID, accountTypeID int64) (*domain.Account, error) {
	seqQuery := `
		INSERT INTO account_sequences (user_id, account_type_id, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, account_type_id)
		DO UPDATE SET last_seq = account_sequences.last_seq + 1
		RETURNING last_seq
	`

	var seq int
	if err := r.db.QueryRow(seqQuery, userID, accountTypeID).Scan(&seq); err != nil {
		r.logger.Error("Failed to advance account sequence",
			"user_id", userID, "account_type_id", accountTypeID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to generate account number").WithDetails(err.Error())
	}

	now := time.Now()
	account := &domain.Account{
		UserID:        userID,
		AccountTypeID: accountTypeID,
		AccountNumber: domain.FormatAccountNumber(userID, accountTypeID, now.Year(), seq),
		Balance:       decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	insertQuery := `
		INSERT INTO accounts (user_id, account_type_id, account_number, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(
		insertQuery,
		account.UserID,
		account.AccountTypeID,
		account.AccountNumber,
		account.Balance.String(),
		now,
		now,
	).Scan(&account.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				r.logger.Warn("Duplicate account creation attempt",
					"user_id", userID, "account_type_id", accountTypeID)
				return nil, errors.ErrDuplicateAccount
			}
			if pqErr.Code == "23503" { // foreign_key_violation
				return nil, errors.ErrAccountNotFound.WithDetails(pqErr.Message)
			}
		}
		r.logger.Error("Failed to create account",
			"user_id", userID, "account_type_id", accountTypeID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	r.logger.Info("Account created successfully",
		"account_id", account.ID, "account_number", account.AccountNumber)
	return account, nil
}

func (r *accountRepository) GetAccount(id int64) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_type_id, account_number, balance, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	return r.scanAccount(query, id)
}

// GetAccountForUpdate reads the account under an exclusive row lock. Must be
// called inside a Store.WithTransaction unit of work; the lock is released at
// commit or rollback.
func (r *accountRepository) GetAccountForUpdate(id int64) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_type_id, account_number, balance, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`

	return r.scanAccount(query, id)
}

func (r *accountRepository) scanAccount(query string, id int64) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.AccountTypeID,
		&account.AccountNumber,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_id", id, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}

	account.Balance = balance
	return &account, nil
}

func (r *accountRepository) ListAccountsByUser(userID int64) ([]*domain.Account, error) {
	query := `
		SELECT id, user_id, account_type_id, account_number, balance, created_at, updated_at
		FROM accounts WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		var balanceStr string

		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.AccountTypeID,
			&account.AccountNumber,
			&balanceStr,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account").WithDetails(err.Error())
		}

		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
		}
		account.Balance = balance

		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}

	return accounts, nil
}

func (r *accountRepository) UpdateAccountBalance(id int64, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, newBalance.String(), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account balance").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		r.logger.Warn("No account found to update", "account_id", id)
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account balance updated", "account_id", id, "new_balance", newBalance)
	return nil
}

// DeleteAccount hard-deletes the account; owned transactions go with it via
// the ON DELETE CASCADE constraint.
func (r *accountRepository) DeleteAccount(id int64) error {
	result, err := r.db.Exec(`DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account deleted", "account_id", id)
	return nil
}
