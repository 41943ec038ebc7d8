package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrixLab/aml-api/internal/domain"
	"github.com/vitrixLab/aml-api/internal/errors"
	"github.com/vitrixLab/aml-api/internal/repository/memory"
	"github.com/vitrixLab/aml-api/internal/rules"
	"github.com/vitrixLab/aml-api/pkg/metrics"
)

func newTestService(store domain.Store) *EvaluationService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEvaluationService(store, rules.NewEngine(rules.DefaultConfig()), metrics.NewCollector(), logger)
}

func evalRequest(amount int64, country, key string) *EvaluationRequest {
	return &EvaluationRequest{
		Input: domain.TransactionInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(amount),
			Country:   country,
		},
		IdempotencyKey: key,
	}
}

func decodeResponse(t *testing.T, body json.RawMessage) EvaluationResponse {
	t.Helper()
	var resp EvaluationResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestEvaluate_PersistsTransactionAndReturnsResponse(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	body, err := svc.Evaluate(evalRequest(20000, "SYRIA", ""))
	require.NoError(t, err)

	resp := decodeResponse(t, body)
	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, 80, resp.Score)
	assert.Equal(t, domain.DecisionBlock, resp.Decision)
	assert.Equal(t, []string{rules.RuleAmountThreshold, rules.RuleCountryRisk}, resp.TriggeredRules)

	saved, err := store.Transaction().GetTransactionByID(resp.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "acc-1", saved.AccountID)
	assert.Equal(t, 80, saved.RiskScore)
	assert.Equal(t, domain.DecisionBlock, saved.Decision)
	assert.Equal(t, 80, saved.Result.Score)
}

func TestEvaluate_IdempotentReplayIsByteIdentical(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	first, err := svc.Evaluate(evalRequest(15000, "FRANCE", "key-1"))
	require.NoError(t, err)

	// Different input, same key: the stored response wins and nothing new
	// is evaluated or persisted.
	second, err := svc.Evaluate(evalRequest(500, "IRAN", "key-1"))
	require.NoError(t, err)

	assert.Equal(t, []byte(first), []byte(second))
	assert.Equal(t, 1, store.TransactionCount())
}

func TestEvaluate_WithoutKeyEveryCallIsFresh(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	first, err := svc.Evaluate(evalRequest(5000, "FRANCE", ""))
	require.NoError(t, err)
	second, err := svc.Evaluate(evalRequest(5000, "FRANCE", ""))
	require.NoError(t, err)

	firstResp := decodeResponse(t, first)
	secondResp := decodeResponse(t, second)
	assert.NotEqual(t, firstResp.TransactionID, secondResp.TransactionID)
	assert.Equal(t, 2, store.TransactionCount())
}

func TestEvaluate_CallerSuppliedIDIsUsed(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	req := evalRequest(100, "FRANCE", "")
	req.Input.ID = "tx-42"

	body, err := svc.Evaluate(req)
	require.NoError(t, err)
	assert.Equal(t, "tx-42", decodeResponse(t, body).TransactionID)
}

func TestEvaluate_DuplicateTransactionIDFailsRequest(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store)

	req := evalRequest(100, "FRANCE", "")
	req.Input.ID = "tx-42"
	_, err := svc.Evaluate(req)
	require.NoError(t, err)

	again := evalRequest(200, "BRAZIL", "")
	again.Input.ID = "tx-42"
	_, err = svc.Evaluate(again)

	assert.Equal(t, errors.ErrDuplicateTransaction, err)
	assert.Equal(t, 1, store.TransactionCount())
}

// raceStore simulates losing the concurrent same-key race: the initial lookup
// sees no record, the insert collides, and the re-read finds the winner.
type raceStore struct {
	*memory.Store
	winner  *domain.IdempotencyRecord
	lookups int
}

func (r *raceStore) Idempotency() domain.IdempotencyRepository {
	return &raceIdempotencyRepo{store: r}
}

func (r *raceStore) WithTransaction(fn func(domain.Store) error) error {
	return r.Store.WithTransaction(func(domain.Store) error {
		return fn(r)
	})
}

type raceIdempotencyRepo struct {
	store *raceStore
}

func (r *raceIdempotencyRepo) GetRecordByKey(key string) (*domain.IdempotencyRecord, error) {
	r.store.lookups++
	if r.store.lookups == 1 {
		return nil, nil
	}
	return r.store.winner, nil
}

func (r *raceIdempotencyRepo) CreateRecord(rec *domain.IdempotencyRecord) error {
	return errors.ErrDuplicateIdempotencyKey
}

func TestEvaluate_RaceLoserReturnsWinnersResponse(t *testing.T) {
	winnerBody := []byte(`{"transaction_id":"winner","score":10,"decision":"APPROVE","triggered_rules":[],"rationale":[]}`)
	store := &raceStore{
		Store:  memory.NewStore(),
		winner: &domain.IdempotencyRecord{Key: "key-1", Response: winnerBody},
	}
	svc := newTestService(store)

	body, err := svc.Evaluate(evalRequest(5000, "FRANCE", "key-1"))
	require.NoError(t, err)

	assert.Equal(t, winnerBody, []byte(body))
	// The loser's transaction row was rolled back with the failed insert.
	assert.Equal(t, 0, store.TransactionCount())
}

// failingStore reports a storage failure on every transaction insert.
type failingStore struct {
	*memory.Store
}

func (f *failingStore) Transaction() domain.TransactionRepository {
	return &failingTransactionRepo{}
}

func (f *failingStore) WithTransaction(fn func(domain.Store) error) error {
	return f.Store.WithTransaction(func(domain.Store) error {
		return fn(f)
	})
}

type failingTransactionRepo struct{}

func (r *failingTransactionRepo) CreateTransaction(tx *domain.Transaction) error {
	return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails("connection refused")
}

func (r *failingTransactionRepo) GetTransactionByID(id string) (*domain.Transaction, error) {
	return nil, nil
}

func TestEvaluate_StorageFailureSurfacesGenericError(t *testing.T) {
	store := &failingStore{Store: memory.NewStore()}
	svc := newTestService(store)

	_, err := svc.Evaluate(evalRequest(5000, "FRANCE", ""))

	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.InternalError, appErr.Code)
	assert.Equal(t, "evaluation failed", appErr.Message)
	// The underlying cause stays in the logs, never in the caller-facing error.
	assert.Empty(t, appErr.Details)
}
