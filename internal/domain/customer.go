package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Person types
const (
	PersonTypeNatural = "F"
	PersonTypeLegal   = "J"
)

// Customer represents a bank customer identified by DNI.
type Customer struct {
	ID         int64     `json:"dni" db:"id"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	BirthDate  time.Time `json:"birth_date" db:"birth_date"`
	PersonType string    `json:"person_type" db:"person_type"`
	Bank       string    `json:"bank" db:"bank"`
	Phone      string    `json:"phone" db:"phone"`
	Email      string    `json:"email" db:"email"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// AgeAt returns the customer's age in whole years at the given instant.
func (c *Customer) AgeAt(now time.Time) int {
	age := now.Year() - c.BirthDate.Year()
	if now.Month() < c.BirthDate.Month() ||
		(now.Month() == c.BirthDate.Month() && now.Day() < c.BirthDate.Day()) {
		age--
	}
	return age
}

// AccountType is the kind of bank account.
type AccountType string

const (
	AccountTypeSavings  AccountType = "CAJA_AHORRO"
	AccountTypeChecking AccountType = "CUENTA_CORRIENTE"
)

var accountTypeTokens = map[AccountType]string{
	AccountTypeSavings:  "A",
	AccountTypeChecking: "C",
}

// ParseAccountType accepts either the type name or its short token (A, C).
func ParseAccountType(s string) (AccountType, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for accountType, token := range accountTypeTokens {
		if upper == string(accountType) || upper == token {
			return accountType, nil
		}
	}
	return "", fmt.Errorf("unsupported account type: %q", s)
}

func (t *AccountType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAccountType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer
func (t AccountType) Value() (driver.Value, error) {
	token, ok := accountTypeTokens[t]
	if !ok {
		return nil, fmt.Errorf("unsupported account type: %q", string(t))
	}
	return token, nil
}

// Scan implements sql.Scanner
func (t *AccountType) Scan(src interface{}) error {
	var token string
	switch v := src.(type) {
	case string:
		token = v
	case []byte:
		token = string(v)
	default:
		return fmt.Errorf("cannot scan %T into AccountType", src)
	}
	for accountType, tok := range accountTypeTokens {
		if tok == strings.TrimSpace(token) {
			*t = accountType
			return nil
		}
	}
	return fmt.Errorf("invalid account type token: %q", token)
}

// Account represents a customer's bank account.
type Account struct {
	ID         int64           `json:"id" db:"id"`
	CustomerID int64           `json:"customer_id" db:"customer_id"`
	Type       AccountType     `json:"type" db:"type"`
	Currency   Currency        `json:"currency" db:"currency"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	Active     bool            `json:"active" db:"active"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type CreateCustomerRequest struct {
	DNI        int64  `json:"dni" validate:"required,gt=0"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	BirthDate  string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	PersonType string `json:"person_type" validate:"required,oneof=F J"`
	Bank       string `json:"bank" validate:"required"`
	Phone      string `json:"phone"`
	Email      string `json:"email" validate:"omitempty,email"`
}

type CreateAccountRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	Type       string `json:"type" validate:"required"`
	Currency   string `json:"currency" validate:"required"`
}
