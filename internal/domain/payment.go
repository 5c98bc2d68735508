package domain

import "github.com/shopspring/decimal"

// PaymentRequest asks to pay the next installment of a loan.
//
// CustomerID, when set, must own the loan. Amount, when present, must be
// positive and equal the due installment exactly.
type PaymentRequest struct {
	CustomerID int64            `json:"customer_id" validate:"gte=0"`
	Amount     *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,decimal_gt=0"`
}
