package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// LoanStatus is the lifecycle state of a loan.
//
// Pending only exists while an origination request is being evaluated and is
// never persisted.
type LoanStatus int

const (
	LoanStatusPending LoanStatus = iota
	LoanStatusApproved
	LoanStatusRejected
	LoanStatusClosed
)

var loanStatusNames = map[LoanStatus]string{
	LoanStatusPending:  "PENDING",
	LoanStatusApproved: "APPROVED",
	LoanStatusRejected: "REJECTED",
	LoanStatusClosed:   "CLOSED",
}

// persisted tokens; Pending has none on purpose
var loanStatusTokens = map[LoanStatus]string{
	LoanStatusApproved: "A",
	LoanStatusRejected: "R",
	LoanStatusClosed:   "C",
}

func (s LoanStatus) String() string {
	if name, ok := loanStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("LoanStatus(%d)", int(s))
}

// IsTerminal reports whether no further transition is allowed.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusRejected || s == LoanStatusClosed
}

// Token returns the storage token of the status.
func (s LoanStatus) Token() (string, error) {
	token, ok := loanStatusTokens[s]
	if !ok {
		return "", fmt.Errorf("loan status %s cannot be persisted", s)
	}
	return token, nil
}

// ParseLoanStatusToken maps a storage token back to its status.
func ParseLoanStatusToken(token string) (LoanStatus, error) {
	for status, t := range loanStatusTokens {
		if t == token {
			return status, nil
		}
	}
	return LoanStatusPending, fmt.Errorf("invalid loan status token: %q", token)
}

// ParseLoanStatus maps a status name (APPROVED, REJECTED, CLOSED) to its status.
func ParseLoanStatus(name string) (LoanStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for status, n := range loanStatusNames {
		if n == upper && status != LoanStatusPending {
			return status, nil
		}
	}
	return LoanStatusPending, fmt.Errorf("invalid loan status: %q", name)
}

func (s LoanStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *LoanStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	status, err := ParseLoanStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value implements driver.Valuer
func (s LoanStatus) Value() (driver.Value, error) {
	return s.Token()
}

// Scan implements sql.Scanner
func (s *LoanStatus) Scan(src interface{}) error {
	var token string
	switch v := src.(type) {
	case string:
		token = v
	case []byte:
		token = string(v)
	default:
		return fmt.Errorf("cannot scan %T into LoanStatus", src)
	}
	status, err := ParseLoanStatusToken(strings.TrimSpace(token))
	if err != nil {
		return err
	}
	*s = status
	return nil
}
