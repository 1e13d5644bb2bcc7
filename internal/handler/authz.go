package handler

import (
	"context"
	"log/slog"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/repository"
	"investment-ledger/internal/service"
)

type contextKey string

// ClaimsContextKey holds the authenticated caller's claims, set by the auth
// middleware.
const ClaimsContextKey contextKey = "claims"

// CallerFromContext returns the authenticated caller, or an unauthorized
// error when the middleware did not run.
func CallerFromContext(ctx context.Context) (*service.Claims, *errors.AppError) {
	claims, ok := ctx.Value(ClaimsContextKey).(*service.Claims)
	if !ok || claims == nil {
		return nil, errors.ErrUnauthorized
	}
	return claims, nil
}

// Guard enforces ownership and the (tier, operation) capability table before
// a request reaches the ledger engine. The engine itself assumes the caller
// already holds the right to act.
type Guard struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewGuard(store *repository.Store, logger *slog.Logger) *Guard {
	return &Guard{
		store:  store,
		logger: logger,
	}
}

// AuthorizeAccount checks that the caller owns the account (admins bypass
// ownership) and that the account's permission tier admits the operation
// class. Returns the account so handlers don't load it twice.
func (g *Guard) AuthorizeAccount(claims *service.Claims, accountID int64, op domain.Operation) (*domain.Account, *errors.AppError) {
	account, err := g.store.Accounts().GetAccount(accountID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, errors.NewAppError(errors.InternalError, "failed to load account")
	}

	if account.UserID != claims.UserID && !claims.IsAdmin {
		// Not the owner: report not-found rather than leaking existence.
		return nil, errors.ErrAccountNotFound
	}

	accountType, err := g.store.AccountTypes().GetAccountType(account.AccountTypeID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, errors.NewAppError(errors.InternalError, "failed to load account type")
	}

	if !accountType.PermissionTier.Allows(op) {
		g.logger.Warn("Operation not permitted by account tier",
			"account_id", accountID,
			"permission_tier", accountType.PermissionTier,
			"operation", op)
		return nil, errors.ErrForbidden
	}

	return account, nil
}

// AuthorizeTransaction resolves a transaction's owning account and applies
// the same checks.
func (g *Guard) AuthorizeTransaction(claims *service.Claims, transactionID int64, op domain.Operation) (*domain.Transaction, *errors.AppError) {
	transaction, err := g.store.Transactions().GetTransaction(transactionID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, errors.NewAppError(errors.InternalError, "failed to load transaction")
	}

	if _, appErr := g.AuthorizeAccount(claims, transaction.AccountID, op); appErr != nil {
		return nil, appErr
	}

	return transaction, nil
}
