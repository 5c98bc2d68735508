package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan represents a loan entity
type Loan struct {
	ID               int64           `json:"id" db:"id"`
	CustomerID       int64           `json:"customer_id" db:"customer_id"`
	RequestedAmount  decimal.Decimal `json:"requested_amount" db:"requested_amount"`
	Amount           decimal.Decimal `json:"amount" db:"amount"` // requested amount plus full-term interest
	Currency         Currency        `json:"currency" db:"currency"`
	TermMonths       int             `json:"term_months" db:"term_months"`
	Status           LoanStatus      `json:"status" db:"status"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	PaymentsMade     int             `json:"payments_made" db:"payments_made"`
	Plan             []Installment   `json:"plan" db:"-"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Summary projects the loan into the fields returned to customers.
func (l *Loan) Summary() LoanSummary {
	return LoanSummary{
		LoanID:           l.ID,
		Status:           l.Status,
		Amount:           l.Amount,
		TermMonths:       l.TermMonths,
		PaymentsMade:     l.PaymentsMade,
		RemainingBalance: l.RemainingBalance,
	}
}

// Clone returns a deep copy so callers never share a stored record.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	cp := *l
	if l.Plan != nil {
		cp.Plan = make([]Installment, len(l.Plan))
		copy(cp.Plan, l.Plan)
	}
	return &cp
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Currency   string          `json:"currency" validate:"required"`
	TermMonths int             `json:"term_months" validate:"gt=0"`
}

// LoanDetail is the outcome of an origination request.
type LoanDetail struct {
	LoanID  int64         `json:"loan_id"`
	Status  LoanStatus    `json:"status"`
	Message string        `json:"message"`
	Plan    []Installment `json:"plan"`
}

// LoanSummary is a read-only projection of a loan.
type LoanSummary struct {
	LoanID           int64           `json:"loan_id"`
	Status           LoanStatus      `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	TermMonths       int             `json:"term_months"`
	PaymentsMade     int             `json:"payments_made"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// LoanAggregate holds the summaries of every loan owned by a customer.
type LoanAggregate struct {
	CustomerID int64         `json:"customer_id"`
	Loans      []LoanSummary `json:"loans"`
}

// Origination messages
const (
	MessageLoanApproved = "The loan was approved."
	MessageLoanRejected = "The loan was rejected due to an insufficient credit score."
)
