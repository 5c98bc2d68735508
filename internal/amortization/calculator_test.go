package amortization

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/frbb/loan-engine/internal/domain"
	customError "github.com/frbb/loan-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_ThousandOverTwelve(t *testing.T) {
	plan, err := BuildSchedule(decimal.NewFromInt(1000), 12)
	require.NoError(t, err)
	require.Len(t, plan, 12)

	for i := 0; i < 11; i++ {
		assert.Equal(t, i+1, plan[i].Number)
		assert.True(t, plan[i].Amount.Equal(decimal.RequireFromString("83.33")),
			"installment %d: got %s", plan[i].Number, plan[i].Amount)
	}
	assert.Equal(t, 12, plan[11].Number)
	assert.True(t, plan[11].Amount.Equal(decimal.RequireFromString("83.37")), "got %s", plan[11].Amount)
	assert.True(t, Total(plan).Equal(decimal.NewFromInt(1000)))
}

func TestBuildSchedule(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		term      int
		base      string
		last      string
	}{
		{name: "single installment", principal: "500.55", term: 1, base: "500.55", last: "500.55"},
		{name: "even split", principal: "1200", term: 12, base: "100", last: "100"},
		{name: "rounded up base", principal: "2", term: 3, base: "0.67", last: "0.66"},
		{name: "rounding up would empty the last installment", principal: "0.10", term: 6, base: "0.01", last: "0.05"},
		{name: "rounding up would overdraw the last installment", principal: "0.17", term: 10, base: "0.01", last: "0.08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal := decimal.RequireFromString(tt.principal)
			plan, err := BuildSchedule(principal, tt.term)
			require.NoError(t, err)
			require.Len(t, plan, tt.term)

			assert.True(t, plan[0].Amount.Equal(decimal.RequireFromString(tt.base)), "base: got %s", plan[0].Amount)
			assert.True(t, plan[tt.term-1].Amount.Equal(decimal.RequireFromString(tt.last)), "last: got %s", plan[tt.term-1].Amount)
			assert.True(t, Total(plan).Equal(principal))
		})
	}
}

func TestBuildSchedule_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		term      int
	}{
		{name: "zero principal", principal: decimal.Zero, term: 12},
		{name: "negative principal", principal: decimal.NewFromInt(-10), term: 12},
		{name: "zero term", principal: decimal.NewFromInt(1000), term: 0},
		{name: "negative term", principal: decimal.NewFromInt(1000), term: -3},
		{name: "less than a cent per installment", principal: decimal.RequireFromString("0.05"), term: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildSchedule(tt.principal, tt.term)
			assert.Nil(t, plan)
			require.Error(t, err)
			assert.True(t, errors.Is(err, customError.ErrMalformedRequest))
		})
	}
}

func TestBuildSchedule_SumProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		cents := rng.Int63n(10_000_000) + 1
		term := rng.Intn(120) + 1
		principal := decimal.New(cents, -2)

		plan, err := BuildSchedule(principal, term)
		if principal.LessThan(decimal.New(int64(term), -2)) {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err, "principal %s term %d", principal, term)
		require.Len(t, plan, term)
		assert.True(t, Total(plan).Equal(principal), "principal %s term %d sums to %s", principal, term, Total(plan))
		assert.True(t, ValidatePlan(plan, principal, term))
		for _, inst := range plan {
			assert.True(t, inst.Amount.IsPositive(), "principal %s term %d installment %d is %s", principal, term, inst.Number, inst.Amount)
		}
	}
}

func TestFinancedAmount(t *testing.T) {
	amount, err := FinancedAmount(decimal.NewFromInt(1000), decimal.RequireFromString("0.12"), 12)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(1120)))

	_, err = FinancedAmount(decimal.NewFromInt(1000), decimal.RequireFromString("-0.01"), 12)
	assert.ErrorIs(t, err, customError.ErrMalformedRequest)

	_, err = FinancedAmount(decimal.Zero, decimal.RequireFromString("0.12"), 12)
	assert.ErrorIs(t, err, customError.ErrMalformedRequest)
}

func TestValidatePlan(t *testing.T) {
	plan := []domain.Installment{
		{Number: 1, Amount: decimal.NewFromInt(50)},
		{Number: 2, Amount: decimal.NewFromInt(50)},
	}
	assert.True(t, ValidatePlan(plan, decimal.NewFromInt(100), 2))
	assert.False(t, ValidatePlan(plan, decimal.NewFromInt(101), 2))
	assert.False(t, ValidatePlan(plan, decimal.NewFromInt(100), 3))

	gap := []domain.Installment{
		{Number: 1, Amount: decimal.NewFromInt(50)},
		{Number: 3, Amount: decimal.NewFromInt(50)},
	}
	assert.False(t, ValidatePlan(gap, decimal.NewFromInt(100), 2))
}

func TestInstallmentDue(t *testing.T) {
	plan, err := BuildSchedule(decimal.NewFromInt(1000), 12)
	require.NoError(t, err)

	first, ok := InstallmentDue(plan, 0)
	require.True(t, ok)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "83.33", first.Amount.StringFixed(2))

	last, ok := InstallmentDue(plan, 11)
	require.True(t, ok)
	assert.Equal(t, 12, last.Number)
	assert.Equal(t, "83.37", last.Amount.StringFixed(2))

	_, ok = InstallmentDue(plan, 12)
	assert.False(t, ok)

	_, ok = InstallmentDue(nil, 0)
	assert.False(t, ok)
}

func TestCoversMinimumInstallment(t *testing.T) {
	assert.True(t, CoversMinimumInstallment(decimal.RequireFromString("0.12"), 12))
	assert.False(t, CoversMinimumInstallment(decimal.RequireFromString("0.11"), 12))
	assert.True(t, CoversMinimumInstallment(decimal.RequireFromString("0.01"), 1))
	assert.False(t, CoversMinimumInstallment(decimal.RequireFromString("1000"), 0))
}
