package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput         ErrorCode = "invalid_input"
	InvalidAmount        ErrorCode = "invalid_amount"
	InsufficientFunds    ErrorCode = "insufficient_funds"
	DuplicateAccount     ErrorCode = "duplicate_account"
	DuplicateTransaction ErrorCode = "duplicate_transaction"
	DuplicateUser        ErrorCode = "duplicate_user"
	NotFound             ErrorCode = "not_found"
	Unauthorized         ErrorCode = "unauthorized"
	Forbidden            ErrorCode = "forbidden"
	ConcurrencyConflict  ErrorCode = "concurrency_conflict"
	InternalError        ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so the predefined errors stay untouched.
func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps an error code to the status the request layer responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount:
		return http.StatusBadRequest
	case InsufficientFunds:
		return http.StatusUnprocessableEntity
	case DuplicateAccount, DuplicateTransaction, DuplicateUser, ConcurrencyConflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrInvalidAmount          = NewAppError(InvalidAmount, "transaction amount must be positive")
	ErrInsufficientFunds      = NewAppError(InsufficientFunds, "insufficient funds: this transaction would result in a negative balance")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "user already has an account of this type")
	ErrDuplicateTransaction   = NewAppError(DuplicateTransaction, "transaction already processed")
	ErrDuplicateUser          = NewAppError(DuplicateUser, "username or email already taken")
	ErrAccountNotFound        = NewAppError(NotFound, "account not found")
	ErrTransactionNotFound    = NewAppError(NotFound, "transaction not found")
	ErrUserNotFound           = NewAppError(NotFound, "user not found")
	ErrUnauthorized           = NewAppError(Unauthorized, "authentication required")
	ErrForbidden              = NewAppError(Forbidden, "operation not permitted on this account")
	ErrCannotBeginTransaction = NewAppError(InternalError, "cannot begin transaction on non-database executor")
)
