package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one fixed payment of a loan's plan.
type Installment struct {
	Number int             `json:"number" db:"number"`
	Amount decimal.Decimal `json:"amount" db:"amount"`
}

// ScheduledInstallment is an installment rendered with its due date and payment state.
type ScheduledInstallment struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
	Paid    bool            `json:"paid"`
}

type ScheduleResponse struct {
	LoanID           int64                  `json:"loan_id"`
	Status           LoanStatus             `json:"status"`
	RemainingBalance decimal.Decimal        `json:"remaining_balance"`
	Schedule         []ScheduledInstallment `json:"schedule"`
}
