package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	guard          *Guard
}

func NewAccountHandler(accountService *service.AccountService, guard *Guard) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		guard:          guard,
	}
}

type CreateAccountTypeRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Description    string `json:"description"`
	PermissionTier string `json:"permission_tier" validate:"required,oneof=view_only full_access post_only"`
}

func (h *AccountHandler) CreateAccountType(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	if !claims.IsAdmin {
		writeError(w, errors.ErrForbidden)
		return
	}

	var req CreateAccountTypeRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	at, err := h.accountService.CreateAccountType(req.Name, req.Description, domain.PermissionTier(req.PermissionTier))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, at)
}

func (h *AccountHandler) ListAccountTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.accountService.ListAccountTypes()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types)
}

type OpenAccountRequest struct {
	AccountTypeID int64 `json:"account_type_id" validate:"required,gt=0"`
}

type AccountResponse struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	AccountTypeID int64  `json:"account_type_id"`
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
}

func accountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            account.ID,
		UserID:        account.UserID,
		AccountTypeID: account.AccountTypeID,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance.StringFixed(2),
	}
}

func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req OpenAccountRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.OpenAccount(claims.UserID, req.AccountTypeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accounts, err := h.accountService.ListAccounts(claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, accountResponse(account))
	}

	writeJSON(w, http.StatusOK, responses)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accountID, appErr := pathID(r, "account_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if account.UserID != claims.UserID && !claims.IsAdmin {
		writeError(w, errors.ErrAccountNotFound)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse(account))
}

func (h *AccountHandler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accountID, appErr := pathID(r, "account_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if account.UserID != claims.UserID && !claims.IsAdmin {
		writeError(w, errors.ErrAccountNotFound)
		return
	}

	if err := h.accountService.CloseAccount(r.Context(), accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, name string) (int64, *errors.AppError) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewAppError(errors.InvalidInput, "invalid "+name)
	}
	return id, nil
}
