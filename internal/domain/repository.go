package domain

import "time"

// IdempotencyRecord pins the exact response bytes first written for a
// client-supplied key. Records are never overwritten: every later read for
// the same key returns the bytes stored here.
type IdempotencyRecord struct {
	Key       string    `json:"key"`
	Response  []byte    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionRepository interface {
	CreateTransaction(tx *Transaction) error
	GetTransactionByID(id string) (*Transaction, error)
}

type IdempotencyRepository interface {
	CreateRecord(rec *IdempotencyRecord) error
	GetRecordByKey(key string) (*IdempotencyRecord, error)
}

// Store groups the repositories and provides transactional execution. The
// Store passed to the WithTransaction callback binds both repositories to a
// single database transaction; an error from the callback rolls it back.
type Store interface {
	Transaction() TransactionRepository
	Idempotency() IdempotencyRepository
	WithTransaction(fn func(Store) error) error
}
