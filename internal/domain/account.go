package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies investment accounts. Every account opened under a
// type inherits the type's permission tier.
type AccountType struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	PermissionTier PermissionTier `json:"permission_tier"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Account is a user's holding under one investment account type. The balance
// is mutated only by the ledger engine, inside a single database transaction
// that also appends the transaction record.
type Account struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	AccountTypeID int64           `json:"account_type_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// FormatAccountNumber derives the account number from the owning user, the
// account type, the creation year and the per-(user, type) sequence number.
// The sequence is read under lock at creation time, which keeps numbers
// collision-free and reconstructable.
func FormatAccountNumber(userID, accountTypeID int64, year int, seq int) string {
	return fmt.Sprintf("%d%d%d%04d", userID, accountTypeID, year, seq)
}

type AccountRepository interface {
	CreateAccount(userID, accountTypeID int64) (*Account, error)
	GetAccount(id int64) (*Account, error)
	// GetAccountForUpdate blocks until an exclusive row lock on the account
	// is granted. Only valid inside a unit of work; the lock is released at
	// commit or rollback.
	GetAccountForUpdate(id int64) (*Account, error)
	ListAccountsByUser(userID int64) ([]*Account, error)
	UpdateAccountBalance(id int64, newBalance decimal.Decimal) error
	DeleteAccount(id int64) error
}

type AccountTypeRepository interface {
	CreateAccountType(at *AccountType) error
	GetAccountType(id int64) (*AccountType, error)
	ListAccountTypes() ([]*AccountType, error)
}
