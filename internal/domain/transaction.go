package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

// Valid reports whether t is one of exactly debit or credit.
func (t TransactionType) Valid() bool {
	return t == Debit || t == Credit
}

// SignedAmount nets the amount by type: credits positive, debits negative.
// All aggregate reporting uses this convention.
func (t TransactionType) SignedAmount(amount decimal.Decimal) decimal.Decimal {
	if t == Debit {
		return amount.Neg()
	}
	return amount
}

// Transaction is an immutable balance-change record. IDs are assigned from a
// database sequence, so creation order is monotonic. CreatedAt is set at
// commit time.
type Transaction struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Type           TransactionType `json:"transaction_type"`
	IdempotencyKey *uuid.UUID      `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type TransactionRepository interface {
	// CreateTransaction appends the record and fills in the generated ID and
	// commit timestamp. Called only from within the ledger engine's unit of
	// work.
	CreateTransaction(tx *Transaction) error
	GetTransaction(id int64) (*Transaction, error)
	// GetTransactionForUpdate blocks until an exclusive row lock on the
	// transaction is granted, so concurrent corrections of the same
	// transaction serialize on it. Only valid inside a unit of work.
	GetTransactionForUpdate(id int64) (*Transaction, error)
	GetTransactionByIdempotencyKey(key uuid.UUID) (*Transaction, error)
	ListByAccount(accountID int64, limit, offset int) ([]*Transaction, error)
	ListByUserInRange(userID int64, start, end time.Time) ([]*Transaction, error)
	// SumByUserInRange returns the signed net over the range: credits
	// positive, debits negative.
	SumByUserInRange(userID int64, start, end time.Time) (decimal.Decimal, error)
	UpdateTransaction(id int64, amount decimal.Decimal, txType TransactionType) error
	DeleteTransaction(id int64) error
}
