package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/frbb/loan-engine/internal/domain"
)

// MemoryLoanRepository is an in-memory implementation of LoanRepository.
// Records are copied on the way in and out so callers never share them.
type MemoryLoanRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.Loan
}

// NewMemoryLoanRepository creates a new in-memory loan repository.
func NewMemoryLoanRepository() *MemoryLoanRepository {
	return &MemoryLoanRepository{
		data: make(map[int64]*domain.Loan),
	}
}

func (r *MemoryLoanRepository) Save(_ context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if loan.ID == 0 {
		r.nextID++
		loan.ID = r.nextID
	} else if loan.ID > r.nextID {
		r.nextID = loan.ID
	}

	stored := loan.Clone()
	if existing, ok := r.data[loan.ID]; ok {
		// plans are written once
		stored.Plan = existing.Plan
	}
	r.data[loan.ID] = stored

	return nil
}

func (r *MemoryLoanRepository) FindByID(_ context.Context, id int64) (*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loan, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return loan.Clone(), nil
}

func (r *MemoryLoanRepository) FindAllByCustomer(_ context.Context, customerID int64) ([]*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var loans []*domain.Loan
	for _, loan := range r.data {
		if loan.CustomerID == customerID {
			loans = append(loans, loan.Clone())
		}
	}
	sortByID(loans)
	return loans, nil
}

func (r *MemoryLoanRepository) FindAll(_ context.Context) ([]*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loans := make([]*domain.Loan, 0, len(r.data))
	for _, loan := range r.data {
		loans = append(loans, loan.Clone())
	}
	sortByID(loans)
	return loans, nil
}

func sortByID(loans []*domain.Loan) {
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
}
