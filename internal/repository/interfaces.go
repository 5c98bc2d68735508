package repository

import (
	"context"
	"errors"

	"github.com/frbb/loan-engine/internal/domain"
)

var (
	// ErrNotFound is returned by lookups when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned by writes that would break a uniqueness rule.
	ErrDuplicate = errors.New("record already exists")
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Save inserts or replaces a loan by id, assigning an id when it is zero.
	// The installment plan is written only when the loan is first stored.
	Save(ctx context.Context, loan *domain.Loan) error

	// FindByID retrieves a loan with its plan, or ErrNotFound
	FindByID(ctx context.Context, id int64) (*domain.Loan, error)

	// FindAllByCustomer retrieves every loan owned by a customer
	FindAllByCustomer(ctx context.Context, customerID int64) ([]*domain.Loan, error)

	// FindAll retrieves every loan
	FindAll(ctx context.Context) ([]*domain.Loan, error)
}

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	// Create creates a new customer, or returns ErrDuplicate when the DNI is taken
	Create(ctx context.Context, customer *domain.Customer) error

	// FindByID retrieves a customer by DNI, or ErrNotFound
	FindByID(ctx context.Context, id int64) (*domain.Customer, error)

	// FindAll retrieves every customer
	FindAll(ctx context.Context) ([]*domain.Customer, error)

	// Update updates a customer's mutable fields
	Update(ctx context.Context, customer *domain.Customer) error

	// Exists reports whether a customer with the DNI is registered, active or not
	Exists(ctx context.Context, id int64) (bool, error)
}

// AccountRepository defines the interface for account data operations
type AccountRepository interface {
	// Create creates a new account, assigning its id. It returns ErrDuplicate
	// when the customer already holds an account of the same type and currency.
	Create(ctx context.Context, account *domain.Account) error

	// FindByID retrieves an account, or ErrNotFound
	FindByID(ctx context.Context, id int64) (*domain.Account, error)

	// FindAll retrieves every account
	FindAll(ctx context.Context) ([]*domain.Account, error)

	// FindByCustomer retrieves every account of a customer
	FindByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error)

	// Update updates an account's mutable fields, or returns ErrNotFound
	Update(ctx context.Context, account *domain.Account) error
}
