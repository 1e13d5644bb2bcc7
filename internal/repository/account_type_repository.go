package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
)

type accountTypeRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountTypeRepository(db SQLExecutor, logger *slog.Logger) domain.AccountTypeRepository {
	return &accountTypeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountTypeRepository) CreateAccountType(at *domain.AccountType) error {
	query := `
		INSERT INTO account_types (name, description, permission_tier, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(query, at.Name, at.Description, at.PermissionTier, now).Scan(&at.ID)
	if err != nil {
		r.logger.Error("Failed to create account type", "name", at.Name, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account type").WithDetails(err.Error())
	}

	at.CreatedAt = now
	r.logger.Info("Account type created", "account_type_id", at.ID, "name", at.Name)
	return nil
}

func (r *accountTypeRepository) GetAccountType(id int64) (*domain.AccountType, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), permission_tier, created_at
		FROM account_types WHERE id = $1
	`

	var at domain.AccountType
	err := r.db.QueryRow(query, id).Scan(
		&at.ID,
		&at.Name,
		&at.Description,
		&at.PermissionTier,
		&at.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewAppError(errors.NotFound, "account type not found")
		}
		r.logger.Error("Failed to get account type", "account_type_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account type").WithDetails(err.Error())
	}

	return &at, nil
}

func (r *accountTypeRepository) ListAccountTypes() ([]*domain.AccountType, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), permission_tier, created_at
		FROM account_types
		ORDER BY id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list account types", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list account types").WithDetails(err.Error())
	}
	defer rows.Close()

	var types []*domain.AccountType
	for rows.Next() {
		var at domain.AccountType
		if err := rows.Scan(&at.ID, &at.Name, &at.Description, &at.PermissionTier, &at.CreatedAt); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account type").WithDetails(err.Error())
		}
		types = append(types, &at)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list account types").WithDetails(err.Error())
	}

	return types, nil
}
