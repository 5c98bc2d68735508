// Package amortization builds equal-installment repayment plans.
//
// Every function here is pure: the same inputs always produce the same plan.
package amortization

import (
	"github.com/frbb/loan-engine/internal/domain"
	customError "github.com/frbb/loan-engine/pkg/errors"
	"github.com/frbb/loan-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

var minInstallment = decimal.New(1, -utils.CurrencyPlaces)

// CoversMinimumInstallment reports whether amount leaves at least one cent for
// each of termMonths installments.
func CoversMinimumInstallment(amount decimal.Decimal, termMonths int) bool {
	if termMonths <= 0 {
		return false
	}
	return !amount.LessThan(minInstallment.Mul(decimal.NewFromInt(int64(termMonths))))
}

// BuildSchedule splits financedPrincipal into termMonths flat installments.
//
// Each installment is financedPrincipal/termMonths rounded half-up to the
// cent, and the last one absorbs the residual so that the plan sums to
// financedPrincipal exactly. When rounding up would leave nothing for the last
// installment, the base amount is truncated to the cent instead.
func BuildSchedule(financedPrincipal decimal.Decimal, termMonths int) ([]domain.Installment, error) {
	if !financedPrincipal.IsPositive() {
		return nil, customError.WrapMalformedRequest("amount", "must be greater than zero")
	}
	if termMonths <= 0 {
		return nil, customError.WrapMalformedRequest("term_months", "must be greater than zero")
	}

	if !CoversMinimumInstallment(financedPrincipal, termMonths) {
		return nil, customError.WrapMalformedRequest("amount", "too small to cover one cent per installment")
	}

	base := utils.CalculateInstallment(financedPrincipal, termMonths)
	head := base.Mul(decimal.NewFromInt(int64(termMonths - 1)))
	if !head.LessThan(financedPrincipal) {
		base = utils.TruncateCurrency(financedPrincipal.Div(decimal.NewFromInt(int64(termMonths))))
		head = base.Mul(decimal.NewFromInt(int64(termMonths - 1)))
	}
	last := financedPrincipal.Sub(head)

	plan := make([]domain.Installment, 0, termMonths)
	for number := 1; number < termMonths; number++ {
		plan = append(plan, domain.Installment{Number: number, Amount: base})
	}
	plan = append(plan, domain.Installment{Number: termMonths, Amount: last})

	return plan, nil
}

// Total sums the amounts of a plan.
func Total(plan []domain.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range plan {
		total = total.Add(inst.Amount)
	}
	return total
}

// FinancedAmount returns the requested principal plus interest for the full
// term at the given nominal annual rate.
func FinancedAmount(requested decimal.Decimal, annualRate decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if !requested.IsPositive() {
		return decimal.Zero, customError.WrapMalformedRequest("amount", "must be greater than zero")
	}
	if termMonths <= 0 {
		return decimal.Zero, customError.WrapMalformedRequest("term_months", "must be greater than zero")
	}
	if annualRate.IsNegative() {
		return decimal.Zero, customError.WrapMalformedRequest("interest_rate", "must not be negative")
	}
	return utils.CalculateFinancedAmount(requested, annualRate, termMonths), nil
}

// ValidatePlan checks that a stored plan is contiguous from 1 and sums to amount.
func ValidatePlan(plan []domain.Installment, amount decimal.Decimal, termMonths int) bool {
	if len(plan) != termMonths {
		return false
	}
	for i, inst := range plan {
		if inst.Number != i+1 || inst.Amount.IsNegative() {
			return false
		}
	}
	return Total(plan).Equal(amount)
}

// InstallmentDue returns the installment with sequence number paymentsMade+1.
// The second result is false once every installment has been paid.
func InstallmentDue(plan []domain.Installment, paymentsMade int) (domain.Installment, bool) {
	next := paymentsMade + 1
	if next < 1 || next > len(plan) {
		return domain.Installment{}, false
	}
	if plan[next-1].Number == next {
		return plan[next-1], true
	}
	for _, inst := range plan {
		if inst.Number == next {
			return inst, true
		}
	}
	return domain.Installment{}, false
}
