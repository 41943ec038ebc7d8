package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision is the caller-facing outcome of an evaluation.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReview  Decision = "REVIEW"
	DecisionBlock   Decision = "BLOCK"
)

// TransactionInput carries the caller-provided attributes of a transaction
// submitted for evaluation. ID is optional; an identifier is generated when
// it is absent.
type TransactionInput struct {
	ID        string
	AccountID string
	Amount    decimal.Decimal
	Country   string
}

// EvaluationResult is the outcome of running the rule set over one input.
// TriggeredRules and Rationale are index-aligned: Rationale[i] explains why
// TriggeredRules[i] fired.
type EvaluationResult struct {
	Score          int      `json:"score"`
	Decision       Decision `json:"decision"`
	TriggeredRules []string `json:"triggered_rules"`
	Rationale      []string `json:"rationale"`
}

// Transaction is the persisted audit record of one evaluation. Rows are
// append-only and never mutated after creation.
type Transaction struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account_id"`
	Amount    decimal.Decimal  `json:"amount"`
	Country   string           `json:"country"`
	RiskScore int              `json:"risk_score"`
	Decision  Decision         `json:"decision"`
	Result    EvaluationResult `json:"result"`
	CreatedAt time.Time        `json:"created_at"`
}
