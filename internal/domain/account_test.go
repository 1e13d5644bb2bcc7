package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAccountNumber(t *testing.T) {
	// First account for (user 7, type 3) in 2024, then the next sequence.
	assert.Equal(t, "7320240001", FormatAccountNumber(7, 3, 2024, 1))
	assert.Equal(t, "7320240002", FormatAccountNumber(7, 3, 2024, 2))

	// Sequence numbers stay zero-padded to four digits until they overflow.
	assert.Equal(t, "12420250042", FormatAccountNumber(12, 4, 2025, 42))
	assert.Equal(t, "11202510000", FormatAccountNumber(1, 1, 2025, 10000))
}

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, Debit.Valid())
	assert.True(t, Credit.Valid())
	assert.False(t, TransactionType("transfer").Valid())
	assert.False(t, TransactionType("").Valid())
}

func TestSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("250.50")

	assert.True(t, Credit.SignedAmount(amount).Equal(amount))
	assert.True(t, Debit.SignedAmount(amount).Equal(amount.Neg()))
}
