package handler

import (
	"net/http"
	"strconv"
	"time"

	"investment-ledger/internal/errors"
	"investment-ledger/internal/service"
)

type ReportHandler struct {
	queryService *service.QueryService
}

func NewReportHandler(queryService *service.QueryService) *ReportHandler {
	return &ReportHandler{
		queryService: queryService,
	}
}

type StatementResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalBalance string                `json:"total_balance"`
}

// UserStatement serves the admin date-range report. Dates are YYYY-MM-DD;
// the end date is inclusive (end of day).
func (h *ReportHandler) UserStatement(w http.ResponseWriter, r *http.Request) {
	claims, appErr := CallerFromContext(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	if !claims.IsAdmin {
		writeError(w, errors.ErrForbidden)
		return
	}

	query := r.URL.Query()

	rawUserID := query.Get("user_id")
	if rawUserID == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "user_id is required"))
		return
	}
	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid user_id"))
		return
	}

	rawStart := query.Get("start_date")
	rawEnd := query.Get("end_date")
	if rawStart == "" || rawEnd == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "both start_date and end_date are required"))
		return
	}

	start, err := time.Parse("2006-01-02", rawStart)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "dates must be in the format YYYY-MM-DD"))
		return
	}
	end, err := time.Parse("2006-01-02", rawEnd)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "dates must be in the format YYYY-MM-DD"))
		return
	}
	end = end.Add(24*time.Hour - time.Nanosecond)

	statement, err := h.queryService.UserStatement(userID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(statement.Transactions))
	for _, tx := range statement.Transactions {
		responses = append(responses, transactionResponse(tx))
	}

	writeJSON(w, http.StatusOK, StatementResponse{
		Transactions: responses,
		TotalBalance: statement.TotalBalance.StringFixed(2),
	})
}
