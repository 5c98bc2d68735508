package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places of the smallest currency unit.
const CurrencyPlaces = 2

var monthsPerYear = decimal.NewFromInt(12)

// RoundCurrency rounds half-up to the smallest currency unit.
// Amounts are never negative here, so half-away-from-zero is half-up.
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}

// TruncateCurrency drops anything below the smallest currency unit.
func TruncateCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Truncate(CurrencyPlaces)
}

// CalculateFinancedAmount adds simple nominal interest for the full term
// Formula: Principal * (1 + AnnualRate * Months / 12)
func CalculateFinancedAmount(principal decimal.Decimal, annualRate decimal.Decimal, months int) decimal.Decimal {
	termYears := decimal.NewFromInt(int64(months)).Div(monthsPerYear)
	interest := principal.Mul(annualRate).Mul(termYears)
	return RoundCurrency(principal.Add(interest))
}

// CalculateInstallment calculates the flat installment amount
// Formula: Total / Months
func CalculateInstallment(total decimal.Decimal, months int) decimal.Decimal {
	return RoundCurrency(total.Div(decimal.NewFromInt(int64(months))))
}

// CalculateDueDate calculates the due date for a specific installment
// Installment 1 is due one month after the start, installment 2 two months after, etc.
func CalculateDueDate(loanStartDate time.Time, installmentNumber int) time.Time {
	return loanStartDate.AddDate(0, installmentNumber, 0)
}

// HasAtMostCents reports whether amount has no precision below the currency unit.
func HasAtMostCents(amount decimal.Decimal) bool {
	return amount.Equal(TruncateCurrency(amount))
}
