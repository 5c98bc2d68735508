package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/frbb/loan-engine/internal/domain"
)

// MemoryCustomerRepository is an in-memory implementation of CustomerRepository.
type MemoryCustomerRepository struct {
	mu   sync.RWMutex
	data map[int64]domain.Customer
}

func NewMemoryCustomerRepository() *MemoryCustomerRepository {
	return &MemoryCustomerRepository{
		data: make(map[int64]domain.Customer),
	}
}

func (r *MemoryCustomerRepository) Create(_ context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[customer.ID]; ok {
		return ErrDuplicate
	}
	r.data[customer.ID] = *customer
	return nil
}

func (r *MemoryCustomerRepository) FindByID(_ context.Context, id int64) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &customer, nil
}

func (r *MemoryCustomerRepository) FindAll(_ context.Context) ([]*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customers := make([]*domain.Customer, 0, len(r.data))
	for _, customer := range r.data {
		c := customer
		customers = append(customers, &c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })
	return customers, nil
}

func (r *MemoryCustomerRepository) Update(_ context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[customer.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Phone = customer.Phone
	existing.Email = customer.Email
	existing.Active = customer.Active
	r.data[customer.ID] = existing
	return nil
}

func (r *MemoryCustomerRepository) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.data[id]
	return ok, nil
}

// MemoryAccountRepository is an in-memory implementation of AccountRepository.
// Create enforces one account per customer, type and currency.
type MemoryAccountRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   []domain.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{}
}

func (r *MemoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.data {
		if existing.CustomerID == account.CustomerID &&
			existing.Type == account.Type &&
			existing.Currency == account.Currency {
			return ErrDuplicate
		}
	}

	r.nextID++
	account.ID = r.nextID
	r.data = append(r.data, *account)
	return nil
}

func (r *MemoryAccountRepository) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.data {
		if account.ID == id {
			a := account
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAccountRepository) FindAll(_ context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(r.data))
	for _, account := range r.data {
		a := account
		accounts = append(accounts, &a)
	}
	return accounts, nil
}

func (r *MemoryAccountRepository) FindByCustomer(_ context.Context, customerID int64) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var accounts []*domain.Account
	for _, account := range r.data {
		if account.CustomerID == customerID {
			a := account
			accounts = append(accounts, &a)
		}
	}
	return accounts, nil
}

func (r *MemoryAccountRepository) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.data {
		if r.data[i].ID == account.ID {
			r.data[i].Active = account.Active
			return nil
		}
	}
	return ErrNotFound
}
