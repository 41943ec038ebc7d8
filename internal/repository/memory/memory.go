// Package memory provides in-memory implementations of the domain
// repositories for tests. Duplicate-key semantics match the Postgres
// implementations, and WithTransaction rolls state back on error so the
// orchestrator's race handling can be exercised without a database.
package memory

import (
	"maps"
	"sync"
	"time"

	"github.com/vitrixLab/aml-api/internal/domain"
	"github.com/vitrixLab/aml-api/internal/errors"
)

var _ domain.Store = (*Store)(nil)

type Store struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction
	idempotency  map[string]*domain.IdempotencyRecord
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[string]*domain.Transaction),
		idempotency:  make(map[string]*domain.IdempotencyRecord),
	}
}

func (s *Store) Transaction() domain.TransactionRepository {
	return &transactionRepository{store: s}
}

func (s *Store) Idempotency() domain.IdempotencyRepository {
	return &idempotencyRepository{store: s}
}

// WithTransaction snapshots both maps and restores them when fn fails,
// mirroring a database rollback.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	s.mu.Lock()
	txSnapshot := maps.Clone(s.transactions)
	idemSnapshot := maps.Clone(s.idempotency)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.transactions = txSnapshot
		s.idempotency = idemSnapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// TransactionCount reports the number of persisted transactions.
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.transactions[tx.ID]; exists {
		return errors.ErrDuplicateTransaction
	}

	tx.CreatedAt = time.Now().UTC()
	stored := *tx
	r.store.transactions[tx.ID] = &stored
	return nil
}

func (r *transactionRepository) GetTransactionByID(id string) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, exists := r.store.transactions[id]
	if !exists {
		return nil, nil
	}
	found := *tx
	return &found, nil
}

type idempotencyRepository struct {
	store *Store
}

func (r *idempotencyRepository) CreateRecord(rec *domain.IdempotencyRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.idempotency[rec.Key]; exists {
		return errors.ErrDuplicateIdempotencyKey
	}

	rec.CreatedAt = time.Now().UTC()
	stored := domain.IdempotencyRecord{
		Key:       rec.Key,
		Response:  append([]byte(nil), rec.Response...),
		CreatedAt: rec.CreatedAt,
	}
	r.store.idempotency[rec.Key] = &stored
	return nil
}

func (r *idempotencyRepository) GetRecordByKey(key string) (*domain.IdempotencyRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, exists := r.store.idempotency[key]
	if !exists {
		return nil, nil
	}
	found := domain.IdempotencyRecord{
		Key:       rec.Key,
		Response:  append([]byte(nil), rec.Response...),
		CreatedAt: rec.CreatedAt,
	}
	return &found, nil
}
