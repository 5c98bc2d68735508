package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Currency is the closed set of currencies loans and accounts can be held in.
type Currency string

const (
	CurrencyPesos   Currency = "PESOS"
	CurrencyDolares Currency = "DOLARES"
)

var currencyTokens = map[Currency]string{
	CurrencyPesos:   "P",
	CurrencyDolares: "D",
}

// SupportedCurrencies lists every accepted currency.
func SupportedCurrencies() []Currency {
	return []Currency{CurrencyPesos, CurrencyDolares}
}

// ParseCurrency accepts either the currency name or its short token (P, D).
func ParseCurrency(s string) (Currency, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for currency, token := range currencyTokens {
		if upper == string(currency) || upper == token {
			return currency, nil
		}
	}
	return "", fmt.Errorf("unsupported currency: %q", s)
}

// Token returns the storage token of the currency.
func (c Currency) Token() (string, error) {
	token, ok := currencyTokens[c]
	if !ok {
		return "", fmt.Errorf("unsupported currency: %q", string(c))
	}
	return token, nil
}

func (c *Currency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer
func (c Currency) Value() (driver.Value, error) {
	return c.Token()
}

// Scan implements sql.Scanner
func (c *Currency) Scan(src interface{}) error {
	var token string
	switch v := src.(type) {
	case string:
		token = v
	case []byte:
		token = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Currency", src)
	}
	token = strings.TrimSpace(token)
	for currency, t := range currencyTokens {
		if t == token {
			*c = currency
			return nil
		}
	}
	return fmt.Errorf("invalid currency token: %q", token)
}
