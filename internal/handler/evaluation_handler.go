package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vitrixLab/aml-api/internal/domain"
	"github.com/vitrixLab/aml-api/internal/errors"
	"github.com/vitrixLab/aml-api/internal/service"
)

// IdempotencyKeyHeader carries the client-supplied deduplication token.
const IdempotencyKeyHeader = "Idempotency-Key"

type EvaluationHandler struct {
	evaluationService *service.EvaluationService
}

func NewEvaluationHandler(evaluationService *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{
		evaluationService: evaluationService,
	}
}

type EvaluateRequest struct {
	ID        string          `json:"id,omitempty"`
	AccountID string          `json:"account_id"`
	Amount    json.RawMessage `json:"amount"` // tolerant of non-numeric payloads
	Country   string          `json:"country"`
}

func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	evalReq := &service.EvaluationRequest{
		Input: domain.TransactionInput{
			ID:        req.ID,
			AccountID: req.AccountID,
			Amount:    parseAmount(req.Amount),
			Country:   req.Country,
		},
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	}

	body, err := h.evaluationService.Evaluate(evalReq)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			writeError(w, appErr)
		} else {
			writeError(w, errors.NewAppError(errors.InternalError, "evaluation failed"))
		}
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

// parseAmount normalizes the amount field: bare or quoted numeric values
// parse as-is, anything missing or malformed evaluates as zero. Negative
// values pass through unchanged.
func parseAmount(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
