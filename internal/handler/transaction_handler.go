package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/ledger"
	"investment-ledger/internal/service"
)

type TransactionHandler struct {
	engine       *ledger.Engine
	queryService *service.QueryService
	guard        *Guard
}

func NewTransactionHandler(engine *ledger.Engine, queryService *service.QueryService, guard *Guard) *TransactionHandler {
	return &TransactionHandler{
		engine:       engine,
		queryService: queryService,
		guard:        guard,
	}
}

type CreateTransactionRequest struct {
	AccountID       int64  `json:"account_id" validate:"required,gt=0"`
	Amount          string `json:"amount" validate:"required"`
	TransactionType string `json:"transaction_type" validate:"required,oneof=debit credit"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

type TransactionResponse struct {
	ID              int64  `json:"id"`
	AccountID       int64  `json:"account_id"`
	Amount          string `json:"amount"`
	TransactionType string `json:"transaction_type"`
	CreatedAt       string `json:"created_at"`
}

func transactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID,
		AccountID:       tx.AccountID,
		Amount:          tx.Amount.StringFixed(2),
		TransactionType: string(tx.Type),
		CreatedAt:       tx.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create applies a new transaction. Amounts arrive as decimal strings; binary
// floats never touch the ledger.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req CreateTransactionRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	var idempotencyKey *uuid.UUID
	if req.IdempotencyKey != "" {
		key, err := uuid.Parse(req.IdempotencyKey)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidInput, "invalid idempotency_key format").WithDetails(err.Error()))
			return
		}
		idempotencyKey = &key
	}

	if _, appErr := h.guard.AuthorizeAccount(claims, req.AccountID, domain.OpPost); appErr != nil {
		writeError(w, appErr)
		return
	}

	transaction, err := h.engine.Apply(r.Context(), &ledger.ApplyRequest{
		AccountID:      req.AccountID,
		Amount:         amount,
		Type:           domain.TransactionType(req.TransactionType),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transactionResponse(transaction))
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transactionID, appErr := pathID(r, "transaction_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transaction, appErr := h.guard.AuthorizeTransaction(claims, transactionID, domain.OpView)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, transactionResponse(transaction))
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	rawAccountID := r.URL.Query().Get("account_id")
	if rawAccountID == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "account_id is required"))
		return
	}
	accountID, err := strconv.ParseInt(rawAccountID, 10, 64)
	if err != nil || accountID <= 0 {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account_id"))
		return
	}

	if _, appErr := h.guard.AuthorizeAccount(claims, accountID, domain.OpView); appErr != nil {
		writeError(w, appErr)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	transactions, err := h.queryService.ListTransactions(accountID, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, transactionResponse(tx))
	}

	writeJSON(w, http.StatusOK, responses)
}

type UpdateTransactionRequest struct {
	Amount          string `json:"amount" validate:"required"`
	TransactionType string `json:"transaction_type" validate:"required,oneof=debit credit"`
}

// Update is the administrative correction path. The engine recomputes the
// owning account's balance as part of the correction.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transactionID, appErr := pathID(r, "transaction_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req UpdateTransactionRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	if _, appErr := h.guard.AuthorizeTransaction(claims, transactionID, domain.OpManage); appErr != nil {
		writeError(w, appErr)
		return
	}

	transaction, err := h.engine.Update(r.Context(), transactionID, amount, domain.TransactionType(req.TransactionType))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionResponse(transaction))
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transactionID, appErr := pathID(r, "transaction_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if _, appErr := h.guard.AuthorizeTransaction(claims, transactionID, domain.OpManage); appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.engine.Delete(r.Context(), transactionID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
