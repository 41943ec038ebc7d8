package service

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vitrixLab/aml-api/internal/domain"
	"github.com/vitrixLab/aml-api/internal/errors"
	"github.com/vitrixLab/aml-api/internal/rules"
	"github.com/vitrixLab/aml-api/pkg/metrics"
)

// EvaluationService orchestrates one evaluation: idempotent replay, rule
// evaluation, atomic persistence of the transaction plus the idempotency
// record, response return. It owns the only write path into both stores and
// is the single boundary converting lower-layer failures into caller-facing
// errors.
type EvaluationService struct {
	store     domain.Store
	engine    *rules.Engine
	collector *metrics.Collector
	logger    *slog.Logger
}

func NewEvaluationService(
	store domain.Store,
	engine *rules.Engine,
	collector *metrics.Collector,
	logger *slog.Logger,
) *EvaluationService {
	return &EvaluationService{
		store:     store,
		engine:    engine,
		collector: collector,
		logger:    logger,
	}
}

type EvaluationRequest struct {
	Input          domain.TransactionInput
	IdempotencyKey string
}

// EvaluationResponse is the caller-facing shape. For keyed requests its
// serialized form is persisted verbatim as the idempotent response, so
// replays are byte-identical to the first answer.
type EvaluationResponse struct {
	TransactionID  string          `json:"transaction_id"`
	Score          int             `json:"score"`
	Decision       domain.Decision `json:"decision"`
	TriggeredRules []string        `json:"triggered_rules"`
	Rationale      []string        `json:"rationale"`
}

// Evaluate processes one transaction. Replays of an already-recorded
// idempotency key return the stored response without touching the rule
// engine or the stores. The transaction insert and the idempotency insert
// share one database transaction, so at most one evaluation per key ever
// reaches the transactions table: a caller losing the concurrent same-key
// race rolls back its row and receives the winner's stored bytes.
func (s *EvaluationService) Evaluate(req *EvaluationRequest) (json.RawMessage, error) {
	start := time.Now()

	if req.IdempotencyKey != "" {
		rec, err := s.store.Idempotency().GetRecordByKey(req.IdempotencyKey)
		if err != nil {
			return nil, s.internalError("Idempotency lookup failed", err)
		}
		if rec != nil {
			s.logger.Info("Returning stored response for idempotency key",
				"idempotency_key", req.IdempotencyKey)
			s.collector.RecordReplay()
			return rec.Response, nil
		}
	}

	result := s.engine.Evaluate(req.Input)

	transactionID := req.Input.ID
	if transactionID == "" {
		transactionID = uuid.NewString()
	}

	response := &EvaluationResponse{
		TransactionID:  transactionID,
		Score:          result.Score,
		Decision:       result.Decision,
		TriggeredRules: result.TriggeredRules,
		Rationale:      result.Rationale,
	}

	body, err := json.Marshal(response)
	if err != nil {
		return nil, s.internalError("Failed to serialize response", err)
	}

	transaction := &domain.Transaction{
		ID:        transactionID,
		AccountID: req.Input.AccountID,
		Amount:    req.Input.Amount,
		Country:   req.Input.Country,
		RiskScore: result.Score,
		Decision:  result.Decision,
		Result:    result,
	}

	err = s.store.WithTransaction(func(store domain.Store) error {
		if err := store.Transaction().CreateTransaction(transaction); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			return store.Idempotency().CreateRecord(&domain.IdempotencyRecord{
				Key:      req.IdempotencyKey,
				Response: body,
			})
		}
		return nil
	})

	switch err {
	case nil:
	case errors.ErrDuplicateIdempotencyKey:
		// A concurrent caller won the race for this key. Our row was rolled
		// back; hand back the winner's stored response.
		rec, lookupErr := s.store.Idempotency().GetRecordByKey(req.IdempotencyKey)
		if lookupErr != nil {
			return nil, s.internalError("Failed to read winning idempotency record", lookupErr)
		}
		if rec == nil {
			return nil, s.internalError("Winning idempotency record disappeared", err)
		}
		s.logger.Warn("Lost idempotency race, returning winner's response",
			"idempotency_key", req.IdempotencyKey)
		s.collector.RecordReplay()
		return rec.Response, nil
	case errors.ErrDuplicateTransaction:
		s.logger.Warn("Transaction id collision", "transaction_id", transactionID)
		s.collector.RecordFailure()
		return nil, err
	default:
		return nil, s.internalError("Failed to persist evaluation", err)
	}

	s.collector.RecordEvaluation(time.Since(start), result.Score, string(result.Decision))
	s.logger.Info("Transaction evaluated",
		"transaction_id", transactionID,
		"account_id", req.Input.AccountID,
		"risk_score", result.Score,
		"decision", result.Decision)
	return body, nil
}

// internalError logs the underlying cause and returns the generic
// caller-facing error. Internals never cross this boundary.
func (s *EvaluationService) internalError(msg string, err error) *errors.AppError {
	s.logger.Error(msg, "error", err)
	s.collector.RecordFailure()
	return errors.NewAppError(errors.InternalError, "evaluation failed")
}
