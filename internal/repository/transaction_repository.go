package repository

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vitrixLab/aml-api/internal/domain"
	"github.com/vitrixLab/aml-api/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, account_id, amount, country, risk_score, decision, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	result, err := json.Marshal(tx.Result)
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to serialize evaluation result").WithDetails(err.Error())
	}

	now := time.Now().UTC()

	_, err = r.db.Exec(
		query,
		tx.ID,
		tx.AccountID,
		tx.Amount.String(),
		tx.Country,
		tx.RiskScore,
		string(tx.Decision),
		result,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			r.logger.Warn("Duplicate transaction id", "transaction_id", tx.ID)
			return errors.ErrDuplicateTransaction
		}
		r.logger.Error("Failed to create transaction",
			"transaction_id", tx.ID,
			"account_id", tx.AccountID,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	tx.CreatedAt = now
	r.logger.Info("Transaction created",
		"transaction_id", tx.ID,
		"risk_score", tx.RiskScore,
		"decision", tx.Decision)
	return nil
}

func (r *transactionRepository) GetTransactionByID(id string) (*domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, country, risk_score, decision, result, created_at
		FROM transactions WHERE id = $1
	`

	var (
		transaction domain.Transaction
		amountStr   string
		decision    string
		resultRaw   []byte
	)

	err := r.db.QueryRow(query, id).Scan(
		&transaction.ID,
		&transaction.AccountID,
		&amountStr,
		&transaction.Country,
		&transaction.RiskScore,
		&decision,
		&resultRaw,
		&transaction.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transaction").WithDetails(err.Error())
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
	}
	transaction.Amount = amount
	transaction.Decision = domain.Decision(decision)

	if err := json.Unmarshal(resultRaw, &transaction.Result); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse evaluation result").WithDetails(err.Error())
	}

	return &transaction, nil
}
