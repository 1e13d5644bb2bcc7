package handler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/repository"
	"investment-ledger/internal/service"
)

func newGuard(t *testing.T) (*Guard, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGuard(repository.NewStore(db, logger), logger), mock
}

func expectAccount(mock sqlmock.Sqlmock, accountID, userID, typeID int64) {
	now := time.Now()
	mock.ExpectQuery("FROM accounts WHERE id = \\$1").
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "account_type_id", "account_number", "balance", "created_at", "updated_at",
		}).AddRow(accountID, userID, typeID, "7320240001", "100.00", now, now))
}

func expectAccountType(mock sqlmock.Sqlmock, typeID int64, tier domain.PermissionTier) {
	mock.ExpectQuery("FROM account_types WHERE id = \\$1").
		WithArgs(typeID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "coalesce", "permission_tier", "created_at",
		}).AddRow(typeID, "Brokerage", "", string(tier), time.Now()))
}

func TestAuthorizeAccountOwnerWithCapability(t *testing.T) {
	guard, mock := newGuard(t)

	expectAccount(mock, 1, 7, 3)
	expectAccountType(mock, 3, domain.PostOnly)

	account, appErr := guard.AuthorizeAccount(&service.Claims{UserID: 7}, 1, domain.OpPost)

	require.Nil(t, appErr)
	assert.Equal(t, int64(1), account.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeAccountTierDeniesOperation(t *testing.T) {
	guard, mock := newGuard(t)

	// post_only accounts never accept correction operations.
	expectAccount(mock, 1, 7, 3)
	expectAccountType(mock, 3, domain.PostOnly)

	account, appErr := guard.AuthorizeAccount(&service.Claims{UserID: 7}, 1, domain.OpManage)

	assert.Nil(t, account)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.Forbidden, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeAccountNonOwnerSeesNotFound(t *testing.T) {
	guard, mock := newGuard(t)

	expectAccount(mock, 1, 7, 3)

	account, appErr := guard.AuthorizeAccount(&service.Claims{UserID: 8}, 1, domain.OpView)

	assert.Nil(t, account)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.NotFound, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeAccountAdminBypassesOwnership(t *testing.T) {
	guard, mock := newGuard(t)

	expectAccount(mock, 1, 7, 3)
	expectAccountType(mock, 3, domain.FullAccess)

	account, appErr := guard.AuthorizeAccount(&service.Claims{UserID: 99, IsAdmin: true}, 1, domain.OpView)

	require.Nil(t, appErr)
	assert.Equal(t, int64(7), account.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeTransactionResolvesAccount(t *testing.T) {
	guard, mock := newGuard(t)

	mock.ExpectQuery("FROM transactions WHERE id = \\$1").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "amount", "transaction_type", "idempotency_key", "created_at",
		}).AddRow(int64(10), int64(1), "50.00", "credit", nil, time.Now()))
	expectAccount(mock, 1, 7, 3)
	expectAccountType(mock, 3, domain.ViewOnly)

	tx, appErr := guard.AuthorizeTransaction(&service.Claims{UserID: 7}, 10, domain.OpView)

	require.Nil(t, appErr)
	assert.Equal(t, int64(10), tx.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
