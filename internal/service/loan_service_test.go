package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/frbb/loan-engine/internal/amortization"
	"github.com/frbb/loan-engine/internal/credit"
	"github.com/frbb/loan-engine/internal/domain"
	"github.com/frbb/loan-engine/internal/mocks"
	"github.com/frbb/loan-engine/internal/repository"
	customError "github.com/frbb/loan-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCustomerID int64 = 40860006

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testRates() map[domain.Currency]decimal.Decimal {
	return map[domain.Currency]decimal.Decimal{
		domain.CurrencyPesos:   decimal.Zero,
		domain.CurrencyDolares: decimal.RequireFromString("0.07"),
	}
}

func newTestLoanService(t *testing.T, score int) (*LoanService, *repository.MemoryLoanRepository) {
	t.Helper()
	loans := repository.NewMemoryLoanRepository()
	customers := repository.NewMemoryCustomerRepository()
	require.NoError(t, customers.Create(context.Background(), &domain.Customer{ID: testCustomerID, Active: true}))

	evaluator := credit.NewScoreEvaluator(credit.StaticScoreSource(score), credit.Policy{MinScore: 500})
	service := NewLoanService(loans, customers, evaluator, testRates(), nil)
	service.now = func() time.Time { return fixedNow }
	return service, loans
}

func originate(t *testing.T, service *LoanService, amount string, currency string, term int) *domain.LoanDetail {
	t.Helper()
	detail, err := service.Originate(context.Background(), &domain.CreateLoanRequest{
		CustomerID: testCustomerID,
		Amount:     decimal.RequireFromString(amount),
		Currency:   currency,
		TermMonths: term,
	})
	require.NoError(t, err)
	return detail
}

func amountOf(value string) *decimal.Decimal {
	amount := decimal.RequireFromString(value)
	return &amount
}

func TestOriginate_Approved(t *testing.T) {
	service, loans := newTestLoanService(t, 800)

	detail := originate(t, service, "1000", "PESOS", 12)

	assert.Equal(t, domain.LoanStatusApproved, detail.Status)
	assert.Equal(t, domain.MessageLoanApproved, detail.Message)
	require.Len(t, detail.Plan, 12)
	for _, inst := range detail.Plan[:11] {
		assert.Equal(t, "83.33", inst.Amount.StringFixed(2))
	}
	assert.Equal(t, "83.37", detail.Plan[11].Amount.StringFixed(2))

	stored, err := loans.FindByID(context.Background(), detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusApproved, stored.Status)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stored.RemainingBalance.Equal(stored.Amount))
	assert.Equal(t, 0, stored.PaymentsMade)
	assert.True(t, amortization.Total(stored.Plan).Equal(stored.Amount))
	assert.Equal(t, fixedNow, stored.CreatedAt)
}

func TestOriginate_AppliesCurrencyRate(t *testing.T) {
	service, loans := newTestLoanService(t, 800)

	detail := originate(t, service, "333.33", "D", 7)

	stored, err := loans.FindByID(context.Background(), detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyDolares, stored.Currency)
	assert.True(t, stored.RequestedAmount.Equal(decimal.RequireFromString("333.33")))
	assert.Equal(t, "346.94", stored.Amount.StringFixed(2))
	assert.True(t, amortization.Total(detail.Plan).Equal(stored.Amount))
}

func TestOriginate_RejectedIsRecorded(t *testing.T) {
	service, loans := newTestLoanService(t, 100)

	detail := originate(t, service, "1000", "PESOS", 12)

	assert.Equal(t, domain.LoanStatusRejected, detail.Status)
	assert.Equal(t, domain.MessageLoanRejected, detail.Message)
	assert.Empty(t, detail.Plan)
	assert.NotZero(t, detail.LoanID)

	stored, err := loans.FindByID(context.Background(), detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRejected, stored.Status)
	assert.True(t, stored.RemainingBalance.IsZero())
	assert.Empty(t, stored.Plan)
}

func TestOriginate_MalformedRequests(t *testing.T) {
	tests := []struct {
		name    string
		request *domain.CreateLoanRequest
	}{
		{"nil request", nil},
		{"zero term", &domain.CreateLoanRequest{CustomerID: testCustomerID, Amount: decimal.NewFromInt(1000), Currency: "PESOS", TermMonths: 0}},
		{"negative amount", &domain.CreateLoanRequest{CustomerID: testCustomerID, Amount: decimal.NewFromInt(-5), Currency: "PESOS", TermMonths: 3}},
		{"zero amount", &domain.CreateLoanRequest{CustomerID: testCustomerID, Amount: decimal.Zero, Currency: "PESOS", TermMonths: 3}},
		{"unknown currency", &domain.CreateLoanRequest{CustomerID: testCustomerID, Amount: decimal.NewFromInt(1000), Currency: "EUROS", TermMonths: 3}},
		{"missing customer", &domain.CreateLoanRequest{Amount: decimal.NewFromInt(1000), Currency: "PESOS", TermMonths: 3}},
		{"sub-cent amount", &domain.CreateLoanRequest{CustomerID: testCustomerID, Amount: decimal.RequireFromString("100.0049"), Currency: "PESOS", TermMonths: 3}},
		{"less than a cent per installment", &domain.CreateLoanRequest{CustomerID: testCustomerID, Amount: decimal.RequireFromString("0.05"), Currency: "PESOS", TermMonths: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loanRepo := &mocks.MockLoanRepository{}
			customerRepo := &mocks.MockCustomerRepository{}
			evaluator := &mocks.MockEvaluator{}
			service := NewLoanService(loanRepo, customerRepo, evaluator, testRates(), nil)

			detail, err := service.Originate(context.Background(), tt.request)

			assert.Nil(t, detail)
			assert.ErrorIs(t, err, customError.ErrMalformedRequest)
			assert.Equal(t, customError.ErrCodeMalformedRequest, customError.Code(err))
			evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
			loanRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestOriginate_UnknownCustomer(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	customerRepo := &mocks.MockCustomerRepository{}
	evaluator := &mocks.MockEvaluator{}
	service := NewLoanService(loanRepo, customerRepo, evaluator, testRates(), nil)

	customerRepo.On("FindByID", mock.Anything, int64(99)).Return(nil, repository.ErrNotFound)

	detail, err := service.Originate(context.Background(), &domain.CreateLoanRequest{
		CustomerID: 99,
		Amount:     decimal.NewFromInt(1000),
		Currency:   "PESOS",
		TermMonths: 12,
	})

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, customError.ErrUnknownCustomer)
	evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
	loanRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	customerRepo.AssertExpectations(t)
}

func TestOriginate_TinyAmountIsMalformedRegardlessOfScore(t *testing.T) {
	for _, score := range []int{100, 800} {
		service, loans := newTestLoanService(t, score)

		detail, err := service.Originate(context.Background(), &domain.CreateLoanRequest{
			CustomerID: testCustomerID,
			Amount:     decimal.RequireFromString("0.05"),
			Currency:   "PESOS",
			TermMonths: 12,
		})

		assert.Nil(t, detail, "score %d", score)
		assert.Equal(t, customError.ErrCodeMalformedRequest, customError.Code(err), "score %d", score)

		stored, err := loans.FindAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, stored, "score %d", score)
	}
}

func TestOriginate_InactiveCustomer(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	customerRepo := &mocks.MockCustomerRepository{}
	evaluator := &mocks.MockEvaluator{}
	service := NewLoanService(loanRepo, customerRepo, evaluator, testRates(), nil)

	customerRepo.On("FindByID", mock.Anything, testCustomerID).Return(&domain.Customer{ID: testCustomerID, Active: false}, nil)

	detail, err := service.Originate(context.Background(), &domain.CreateLoanRequest{
		CustomerID: testCustomerID,
		Amount:     decimal.NewFromInt(1000),
		Currency:   "PESOS",
		TermMonths: 12,
	})

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, customError.ErrCustomerInactive)
	evaluator.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
	loanRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOriginate_SaveFailure(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	customerRepo := &mocks.MockCustomerRepository{}
	evaluator := &mocks.MockEvaluator{}
	service := NewLoanService(loanRepo, customerRepo, evaluator, testRates(), nil)

	customerRepo.On("FindByID", mock.Anything, testCustomerID).Return(&domain.Customer{ID: testCustomerID, Active: true}, nil)
	evaluator.On("Evaluate", mock.Anything, testCustomerID, mock.AnythingOfType("decimal.Decimal")).Return(true, nil)
	loanRepo.On("Save", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.Status == domain.LoanStatusApproved && len(loan.Plan) == 3
	})).Return(errors.New("connection reset"))

	detail, err := service.Originate(context.Background(), &domain.CreateLoanRequest{
		CustomerID: testCustomerID,
		Amount:     decimal.NewFromInt(300),
		Currency:   "PESOS",
		TermMonths: 3,
	})

	assert.Nil(t, detail)
	assert.Equal(t, customError.ErrCodeDatabaseError, customError.Code(err))
	loanRepo.AssertExpectations(t)
	evaluator.AssertExpectations(t)
}

func TestPayInstallment_FullRepayment(t *testing.T) {
	service, loans := newTestLoanService(t, 800)
	ctx := context.Background()
	detail := originate(t, service, "1000", "PESOS", 12)

	previous := decimal.NewFromInt(1000)
	var aggregate *domain.LoanAggregate
	for i := 1; i <= 12; i++ {
		var err error
		aggregate, err = service.PayInstallment(ctx, detail.LoanID, &domain.PaymentRequest{})
		require.NoError(t, err)

		stored, err := loans.FindByID(ctx, detail.LoanID)
		require.NoError(t, err)
		assert.Equal(t, i, stored.PaymentsMade)
		assert.True(t, stored.RemainingBalance.LessThan(previous))
		previous = stored.RemainingBalance
	}

	require.Len(t, aggregate.Loans, 1)
	summary := aggregate.Loans[0]
	assert.Equal(t, testCustomerID, aggregate.CustomerID)
	assert.Equal(t, domain.LoanStatusClosed, summary.Status)
	assert.Equal(t, 12, summary.PaymentsMade)
	assert.True(t, summary.RemainingBalance.IsZero())

	_, err := service.PayInstallment(ctx, detail.LoanID, nil)
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

	stored, err := loans.FindByID(ctx, detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, 12, stored.PaymentsMade)
}

func TestPayInstallment_UnknownLoan(t *testing.T) {
	service, _ := newTestLoanService(t, 800)

	aggregate, err := service.PayInstallment(context.Background(), 999, &domain.PaymentRequest{})

	assert.Nil(t, aggregate)
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestPayInstallment_ValidatesAmountAndOwner(t *testing.T) {
	service, loans := newTestLoanService(t, 800)
	ctx := context.Background()
	detail := originate(t, service, "1000", "PESOS", 12)

	_, err := service.PayInstallment(ctx, detail.LoanID, &domain.PaymentRequest{Amount: amountOf("83.00")})
	assert.ErrorIs(t, err, customError.ErrPaymentAmountMismatch)

	_, err = service.PayInstallment(ctx, detail.LoanID, &domain.PaymentRequest{Amount: amountOf("0")})
	assert.ErrorIs(t, err, customError.ErrMalformedRequest)

	_, err = service.PayInstallment(ctx, detail.LoanID, &domain.PaymentRequest{CustomerID: 12345})
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)

	stored, err := loans.FindByID(ctx, detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.PaymentsMade)

	aggregate, err := service.PayInstallment(ctx, detail.LoanID, &domain.PaymentRequest{
		CustomerID: testCustomerID,
		Amount:     amountOf("83.33"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, aggregate.Loans[0].PaymentsMade)
	assert.Equal(t, "916.67", aggregate.Loans[0].RemainingBalance.StringFixed(2))
}

func TestPayInstallment_RejectedLoan(t *testing.T) {
	service, loans := newTestLoanService(t, 100)
	ctx := context.Background()
	detail := originate(t, service, "1000", "PESOS", 12)

	before, err := loans.FindByID(ctx, detail.LoanID)
	require.NoError(t, err)

	service.now = func() time.Time { return fixedNow.Add(time.Hour) }
	_, err = service.PayInstallment(ctx, detail.LoanID, nil)

	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
	assert.Equal(t, customError.ErrCodeInvalidStateTransition, customError.Code(err))

	after, err := loans.FindByID(ctx, detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPayInstallment_ConcurrentPaymentsNeverDoubleApply(t *testing.T) {
	service, loans := newTestLoanService(t, 800)
	ctx := context.Background()
	detail := originate(t, service, "1000", "PESOS", 12)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.PayInstallment(ctx, detail.LoanID, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, customError.ErrInvalidStateTransition) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 12, succeeded)
	assert.Equal(t, attempts-12, refused)

	stored, err := loans.FindByID(ctx, detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, 12, stored.PaymentsMade)
	assert.True(t, stored.RemainingBalance.IsZero())
	assert.Equal(t, domain.LoanStatusClosed, stored.Status)
	assert.Equal(t, 0, service.locks.size())
}

func TestClose(t *testing.T) {
	service, loans := newTestLoanService(t, 800)
	ctx := context.Background()
	detail := originate(t, service, "1000", "PESOS", 12)

	_, err := service.PayInstallment(ctx, detail.LoanID, nil)
	require.NoError(t, err)

	closed, err := service.Close(ctx, detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusClosed, closed.Status)
	assert.True(t, closed.RemainingBalance.IsZero())
	assert.Equal(t, 1, closed.PaymentsMade)

	again, err := service.Close(ctx, detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, closed.Status, again.Status)
	assert.Equal(t, closed.PaymentsMade, again.PaymentsMade)
	assert.True(t, closed.RemainingBalance.Equal(again.RemainingBalance))

	stored, err := loans.FindByID(ctx, detail.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusClosed, stored.Status)

	_, err = service.PayInstallment(ctx, detail.LoanID, nil)
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
}

func TestClose_RejectedAndMissing(t *testing.T) {
	service, _ := newTestLoanService(t, 100)
	ctx := context.Background()
	detail := originate(t, service, "1000", "PESOS", 12)

	_, err := service.Close(ctx, detail.LoanID)
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

	_, err = service.Close(ctx, 404)
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestListByCustomer(t *testing.T) {
	service, _ := newTestLoanService(t, 800)
	ctx := context.Background()

	_, err := service.ListByCustomer(ctx, 1)
	assert.ErrorIs(t, err, customError.ErrUnknownCustomer)

	_, err = service.ListByCustomer(ctx, testCustomerID)
	assert.ErrorIs(t, err, customError.ErrNoLoansForCustomer)

	originate(t, service, "1000", "PESOS", 12)
	originate(t, service, "500", "DOLARES", 6)

	aggregate, err := service.ListByCustomer(ctx, testCustomerID)
	require.NoError(t, err)
	require.Len(t, aggregate.Loans, 2)
	assert.Equal(t, 12, aggregate.Loans[0].TermMonths)
	assert.Equal(t, 6, aggregate.Loans[1].TermMonths)
}

func TestList(t *testing.T) {
	service, _ := newTestLoanService(t, 800)
	ctx := context.Background()

	loans, err := service.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, loans)
	assert.Empty(t, loans)

	originate(t, service, "1000", "PESOS", 12)
	loans, err = service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestGetByID_DatabaseError(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	service := NewLoanService(loanRepo, &mocks.MockCustomerRepository{}, &mocks.MockEvaluator{}, testRates(), nil)

	loanRepo.On("FindByID", mock.Anything, int64(5)).Return(nil, errors.New("timeout"))

	loan, err := service.GetByID(context.Background(), 5)

	assert.Nil(t, loan)
	assert.Equal(t, customError.ErrCodeDatabaseError, customError.Code(err))
	loanRepo.AssertExpectations(t)
}

func TestGetSchedule(t *testing.T) {
	service, _ := newTestLoanService(t, 800)
	ctx := context.Background()
	detail := originate(t, service, "1000", "PESOS", 12)

	_, err := service.PayInstallment(ctx, detail.LoanID, nil)
	require.NoError(t, err)

	schedule, err := service.GetSchedule(ctx, detail.LoanID)
	require.NoError(t, err)

	require.Len(t, schedule.Schedule, 12)
	assert.Equal(t, detail.LoanID, schedule.LoanID)
	assert.True(t, schedule.Schedule[0].Paid)
	assert.False(t, schedule.Schedule[1].Paid)
	assert.Equal(t, time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC), schedule.Schedule[0].DueDate)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), schedule.Schedule[11].DueDate)
	assert.Equal(t, "916.67", schedule.RemainingBalance.StringFixed(2))
}
