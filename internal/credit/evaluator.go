// Package credit decides whether a customer may be granted a loan.
package credit

import (
	"context"
	"strconv"

	customError "github.com/frbb/loan-engine/pkg/errors"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// MaxScore is the exclusive upper bound of credit scores.
const MaxScore = 1000

// Evaluator is the admission gate for loan origination.
type Evaluator interface {
	// Evaluate returns true when the loan may be approved.
	Evaluate(ctx context.Context, customerID int64, requestedAmount decimal.Decimal) (bool, error)
}

// ScoreSource yields a credit score in [0, MaxScore) for a customer.
type ScoreSource interface {
	Score(ctx context.Context, customerID int64) (int, error)
}

// Policy holds the admission thresholds.
type Policy struct {
	MinScore  int
	MaxAmount decimal.Decimal // zero means unlimited
}

// ScoreEvaluator admits a request when the customer's score reaches the
// policy minimum and the amount does not exceed the policy maximum.
type ScoreEvaluator struct {
	source ScoreSource
	policy Policy
}

func NewScoreEvaluator(source ScoreSource, policy Policy) *ScoreEvaluator {
	if source == nil {
		source = HashScoreSource{}
	}
	return &ScoreEvaluator{source: source, policy: policy}
}

func (e *ScoreEvaluator) Evaluate(ctx context.Context, customerID int64, requestedAmount decimal.Decimal) (bool, error) {
	if !requestedAmount.IsPositive() {
		return false, customError.WrapMalformedRequest("amount", "must be greater than zero")
	}

	if e.policy.MaxAmount.IsPositive() && requestedAmount.GreaterThan(e.policy.MaxAmount) {
		return false, nil
	}

	score, err := e.source.Score(ctx, customerID)
	if err != nil {
		return false, err
	}

	return score >= e.policy.MinScore, nil
}

// HashScoreSource derives a stable pseudo-score from the customer id.
// It stands in for a credit bureau until one is integrated.
type HashScoreSource struct{}

func (HashScoreSource) Score(_ context.Context, customerID int64) (int, error) {
	sum := xxhash.Sum64String(strconv.FormatInt(customerID, 10))
	return int(sum % MaxScore), nil
}

// StaticScoreSource returns the same score for every customer.
type StaticScoreSource int

func (s StaticScoreSource) Score(_ context.Context, _ int64) (int, error) {
	return int(s), nil
}
