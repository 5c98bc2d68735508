package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrMalformedRequest       = errors.New("malformed request")
	ErrUnknownCustomer        = errors.New("unknown customer")
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNoLoansForCustomer     = errors.New("customer has no loans")
	ErrPaymentAmountMismatch  = errors.New("payment amount must match the due installment exactly")
	ErrCustomerAlreadyExists  = errors.New("customer already exists")
	ErrCustomerUnderage       = errors.New("customer is under the minimum age")
	ErrAccountTypeExists      = errors.New("account type already exists for currency")
	ErrAccountNotFound        = errors.New("account not found")
	ErrCustomerInactive       = errors.New("customer is inactive")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeMalformedRequest       = "MALFORMED_REQUEST"
	ErrCodeUnknownCustomer        = "UNKNOWN_CUSTOMER"
	ErrCodeLoanNotFound           = "LOAN_NOT_FOUND"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeNoLoansForCustomer     = "NO_LOANS_FOR_CUSTOMER"
	ErrCodePaymentAmountMismatch  = "PAYMENT_AMOUNT_MISMATCH"
	ErrCodeCustomerAlreadyExists  = "CUSTOMER_ALREADY_EXISTS"
	ErrCodeCustomerUnderage       = "CUSTOMER_UNDERAGE"
	ErrCodeAccountTypeExists      = "ACCOUNT_TYPE_EXISTS"
	ErrCodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	ErrCodeCustomerInactive       = "CUSTOMER_INACTIVE"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
)

// Code returns the business code carried by err, or "" when err is not a BusinessError.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context
func WrapMalformedRequest(field, message string) *BusinessError {
	return NewBusinessError(
		ErrCodeMalformedRequest,
		fmt.Sprintf("%s: %s", field, message),
		ErrMalformedRequest,
	)
}

func WrapUnknownCustomer(customerID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeUnknownCustomer,
		fmt.Sprintf("Customer %d does not exist", customerID),
		ErrUnknownCustomer,
	)
}

func WrapLoanNotFound(loanID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %d not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInvalidStateTransition(loanID int64, status, operation string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Loan with ID %d is %s and cannot be %s", loanID, status, operation),
		ErrInvalidStateTransition,
	)
}

func WrapNoLoansForCustomer(customerID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeNoLoansForCustomer,
		fmt.Sprintf("Customer %d has no loans", customerID),
		ErrNoLoansForCustomer,
	)
}

func WrapPaymentAmountMismatch(expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentAmountMismatch,
		fmt.Sprintf("Payment amount %s does not match the due installment %s", actual, expected),
		ErrPaymentAmountMismatch,
	)
}

func WrapCustomerAlreadyExists(customerID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerAlreadyExists,
		fmt.Sprintf("A customer with DNI %d already exists", customerID),
		ErrCustomerAlreadyExists,
	)
}

func WrapCustomerUnderage(minAge int) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerUnderage,
		fmt.Sprintf("Customer must be at least %d years old", minAge),
		ErrCustomerUnderage,
	)
}

func WrapAccountTypeExists(accountType, currency string) *BusinessError {
	return NewBusinessError(
		ErrCodeAccountTypeExists,
		fmt.Sprintf("Customer already has a %s account in %s", accountType, currency),
		ErrAccountTypeExists,
	)
}

func WrapAccountNotFound(accountID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeAccountNotFound,
		fmt.Sprintf("Account with ID %d not found", accountID),
		ErrAccountNotFound,
	)
}

func WrapCustomerInactive(customerID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerInactive,
		fmt.Sprintf("Customer %d is inactive", customerID),
		ErrCustomerInactive,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
