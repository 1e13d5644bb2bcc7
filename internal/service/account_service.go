package service

import (
	"context"
	"log/slog"

	"investment-ledger/internal/cache"
	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/repository"
)

type AccountService struct {
	store  *repository.Store
	cache  *cache.AccountCache
	logger *slog.Logger
}

func NewAccountService(store *repository.Store, accountCache *cache.AccountCache, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		cache:  accountCache,
		logger: logger,
	}
}

func (s *AccountService) CreateAccountType(name, description string, tier domain.PermissionTier) (*domain.AccountType, error) {
	if name == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "account type name is required")
	}
	if !tier.Valid() {
		return nil, errors.NewAppError(errors.InvalidInput, "permission tier must be view_only, full_access or post_only")
	}

	at := &domain.AccountType{
		Name:           name,
		Description:    description,
		PermissionTier: tier,
	}
	if err := s.store.AccountTypes().CreateAccountType(at); err != nil {
		return nil, err
	}

	return at, nil
}

func (s *AccountService) ListAccountTypes() ([]*domain.AccountType, error) {
	return s.store.AccountTypes().ListAccountTypes()
}

// OpenAccount creates the user's account for the given type. Number
// generation and the insert run in one unit of work so concurrent creation
// for the same (user, type) pair yields exactly one account.
func (s *AccountService) OpenAccount(userID, accountTypeID int64) (*domain.Account, error) {
	s.logger.Info("Opening account", "user_id", userID, "account_type_id", accountTypeID)

	if _, err := s.store.AccountTypes().GetAccountType(accountTypeID); err != nil {
		return nil, err
	}

	var account *domain.Account
	err := s.store.WithTransaction(func(txStore *repository.Store) error {
		var err error
		account, err = txStore.Accounts().CreateAccount(userID, accountTypeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount serves reads through the snapshot cache when one is configured.
func (s *AccountService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if cached := s.cache.GetAccount(ctx, accountID); cached != nil {
		return cached, nil
	}

	account, err := s.store.Accounts().GetAccount(accountID)
	if err != nil {
		return nil, err
	}

	s.cache.SetAccount(ctx, account)
	return account, nil
}

func (s *AccountService) ListAccounts(userID int64) ([]*domain.Account, error) {
	return s.store.Accounts().ListAccountsByUser(userID)
}

// CloseAccount hard-deletes the account and, through the schema's cascade,
// every transaction it owns.
func (s *AccountService) CloseAccount(ctx context.Context, accountID int64) error {
	if err := s.store.Accounts().DeleteAccount(accountID); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, accountID)
	s.logger.Info("Account closed", "account_id", accountID)
	return nil
}
