package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/vitrixLab/aml-api/internal/domain"
	"github.com/vitrixLab/aml-api/internal/errors"
)

type idempotencyRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewIdempotencyRepository(db SQLExecutor, logger *slog.Logger) domain.IdempotencyRepository {
	return &idempotencyRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRecord inserts the record, relying on the primary key to enforce
// first-writer-wins. A colliding key comes back as
// errors.ErrDuplicateIdempotencyKey and leaves the prior record untouched.
func (r *idempotencyRepository) CreateRecord(rec *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency (key, response, created_at) VALUES ($1, $2, $3)`

	now := time.Now().UTC()

	_, err := r.db.Exec(query, rec.Key, string(rec.Response), now)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			r.logger.Warn("Duplicate idempotency key", "idempotency_key", rec.Key)
			return errors.ErrDuplicateIdempotencyKey
		}
		r.logger.Error("Failed to create idempotency record", "idempotency_key", rec.Key, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create idempotency record").WithDetails(err.Error())
	}

	rec.CreatedAt = now
	return nil
}

func (r *idempotencyRepository) GetRecordByKey(key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, response, created_at FROM idempotency WHERE key = $1`

	var (
		rec      domain.IdempotencyRecord
		response string
	)

	err := r.db.QueryRow(query, key).Scan(&rec.Key, &response, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get idempotency record", "idempotency_key", key, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get idempotency record").WithDetails(err.Error())
	}

	rec.Response = []byte(response)
	return &rec, nil
}
