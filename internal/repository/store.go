package repository

import (
	"database/sql"
	"log/slog"

	"github.com/vitrixLab/aml-api/internal/domain"
	"github.com/vitrixLab/aml-api/internal/errors"
)

// SQLExecutor abstracts over *sql.DB and *sql.Tx so the repositories run the
// same queries inside and outside a database transaction.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var (
	_ SQLExecutor = (*sql.DB)(nil)
	_ SQLExecutor = (*sql.Tx)(nil)
)

// Store bundles the repositories over a shared executor and implements
// domain.Store.
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

func (s *Store) Idempotency() domain.IdempotencyRepository {
	return NewIdempotencyRepository(s.executor, s.logger)
}

// WithTransaction executes fn with a Store bound to a single database
// transaction. An error from fn rolls everything back and is returned
// unchanged.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
