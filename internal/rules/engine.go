package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vitrixLab/aml-api/internal/domain"
)

// Rule identifiers reported in EvaluationResult.TriggeredRules.
const (
	RuleAmountThreshold = "AMOUNT_THRESHOLD"
	RuleCountryRisk     = "COUNTRY_RISK"
)

// Config holds the rule constants and decision bands. A Config is fixed at
// engine construction; tests can supply alternate thresholds.
type Config struct {
	BaseScore            int
	AmountThreshold      decimal.Decimal
	HighAmountScore      int
	HighRiskCountries    []string
	HighRiskCountryScore int
	BlockThreshold       int
	ReviewThreshold      int
}

// DefaultConfig returns the production rule set.
func DefaultConfig() Config {
	return Config{
		BaseScore:            10,
		AmountThreshold:      decimal.NewFromInt(10_000),
		HighAmountScore:      30,
		HighRiskCountries:    []string{"IRAN", "NORTH_KOREA", "SYRIA"},
		HighRiskCountryScore: 40,
		BlockThreshold:       70,
		ReviewThreshold:      40,
	}
}

// Engine evaluates transactions against the configured AML rules. Evaluate is
// deterministic, side-effect free and total: it never fails, whatever the
// input looks like.
type Engine struct {
	cfg      Config
	highRisk map[string]struct{}
}

func NewEngine(cfg Config) *Engine {
	highRisk := make(map[string]struct{}, len(cfg.HighRiskCountries))
	for _, c := range cfg.HighRiskCountries {
		highRisk[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &Engine{cfg: cfg, highRisk: highRisk}
}

// Evaluate runs the rules in fixed order (amount check before country check)
// and maps the cumulative score onto a decision band. TriggeredRules and
// Rationale preserve the evaluation order.
func (e *Engine) Evaluate(input domain.TransactionInput) domain.EvaluationResult {
	score := e.cfg.BaseScore
	triggered := []string{}
	rationale := []string{}

	if input.Amount.GreaterThanOrEqual(e.cfg.AmountThreshold) {
		score += e.cfg.HighAmountScore
		triggered = append(triggered, RuleAmountThreshold)
		rationale = append(rationale, fmt.Sprintf("Amount %s >= %s", input.Amount, e.cfg.AmountThreshold))
	}

	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if _, ok := e.highRisk[country]; ok {
		score += e.cfg.HighRiskCountryScore
		triggered = append(triggered, RuleCountryRisk)
		rationale = append(rationale, fmt.Sprintf("Country %s is high-risk", country))
	}

	return domain.EvaluationResult{
		Score:          score,
		Decision:       e.decide(score),
		TriggeredRules: triggered,
		Rationale:      rationale,
	}
}

// decide maps a final score onto a decision, checking the highest band first.
func (e *Engine) decide(score int) domain.Decision {
	switch {
	case score >= e.cfg.BlockThreshold:
		return domain.DecisionBlock
	case score >= e.cfg.ReviewThreshold:
		return domain.DecisionReview
	default:
		return domain.DecisionApprove
	}
}
