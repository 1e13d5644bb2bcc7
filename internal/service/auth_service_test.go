package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"investment-ledger/internal/errors"
	"investment-ledger/internal/repository"
)

func newAuthService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db, logger)
	return NewAuthService(store, "test-secret", time.Hour, logger), mock
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	user, err := svc.Register("alice", "alice@example.com", "s3cretpw")

	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.NotEqual(t, "s3cretpw", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cretpw")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	user, err := svc.Register("alice", "alice@example.com", "s3cretpw")

	assert.Nil(t, user)
	assert.Equal(t, errors.ErrDuplicateUser, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	user, err := svc.Register("alice", "alice@example.com", "short")

	assert.Nil(t, user)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.InvalidInput, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func userRow(t *testing.T, id int64, username, password string, isAdmin bool) *sqlmock.Rows {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "is_admin", "created_at",
	}).AddRow(id, username, username+"@example.com", string(hash), isAdmin, time.Now())
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("alice").
		WillReturnRows(userRow(t, 7, "alice", "s3cretpw", true))

	token, user, err := svc.Login("alice", "s3cretpw")

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.True(t, claims.IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("alice").
		WillReturnRows(userRow(t, 7, "alice", "s3cretpw", false))

	token, user, err := svc.Login("alice", "wrong")

	assert.Empty(t, token)
	assert.Nil(t, user)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.Unauthorized, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownUser(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("mallory").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "is_admin", "created_at",
		}))

	_, _, err := svc.Login("mallory", "whatever")

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	// Indistinguishable from a wrong password.
	assert.Equal(t, errors.Unauthorized, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db, logger)
	svc := NewAuthService(store, "test-secret", -time.Hour, logger)

	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("alice").
		WillReturnRows(userRow(t, 7, "alice", "s3cretpw", false))

	token, _, err := svc.Login("alice", "s3cretpw")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
