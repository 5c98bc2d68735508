package repository

import (
	"context"
	"testing"

	"github.com/frbb/loan-engine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLoanRepository_SaveAssignsIDs(t *testing.T) {
	repo := NewMemoryLoanRepository()
	ctx := context.Background()

	first := newApprovedLoan()
	second := newApprovedLoan()

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestMemoryLoanRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryLoanRepository()
	ctx := context.Background()

	loan := newApprovedLoan()
	require.NoError(t, repo.Save(ctx, loan))

	loan.RemainingBalance = decimal.Zero
	loan.Plan[0].Amount = decimal.Zero

	stored, err := repo.FindByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stored.Plan[0].Amount.Equal(decimal.NewFromInt(500)))

	stored.PaymentsMade = 2
	again, err := repo.FindByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.PaymentsMade)
}

func TestMemoryLoanRepository_PlanWrittenOnce(t *testing.T) {
	repo := NewMemoryLoanRepository()
	ctx := context.Background()

	loan := newApprovedLoan()
	require.NoError(t, repo.Save(ctx, loan))

	loan.Plan = nil
	loan.PaymentsMade = 1
	require.NoError(t, repo.Save(ctx, loan))

	stored, err := repo.FindByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Plan, 2)
	assert.Equal(t, 1, stored.PaymentsMade)
}

func TestMemoryLoanRepository_Finders(t *testing.T) {
	repo := NewMemoryLoanRepository()
	ctx := context.Background()

	for _, customerID := range []int64{10, 20, 10} {
		loan := newApprovedLoan()
		loan.CustomerID = customerID
		require.NoError(t, repo.Save(ctx, loan))
	}

	_, err := repo.FindByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	owned, err := repo.FindAllByCustomer(ctx, 10)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, int64(1), owned[0].ID)
	assert.Equal(t, int64(3), owned[1].ID)

	none, err := repo.FindAllByCustomer(ctx, 30)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryLoanRepository_ExplicitIDAdvancesSequence(t *testing.T) {
	repo := NewMemoryLoanRepository()
	ctx := context.Background()

	imported := newApprovedLoan()
	imported.ID = 50
	require.NoError(t, repo.Save(ctx, imported))

	fresh := newApprovedLoan()
	require.NoError(t, repo.Save(ctx, fresh))
	assert.Equal(t, int64(51), fresh.ID)
	assert.Equal(t, domain.LoanStatusApproved, fresh.Status)
}
