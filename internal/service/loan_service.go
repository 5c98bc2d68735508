package service

import (
	"context"
	"errors"
	"time"

	"github.com/frbb/loan-engine/internal/amortization"
	"github.com/frbb/loan-engine/internal/credit"
	"github.com/frbb/loan-engine/internal/domain"
	"github.com/frbb/loan-engine/internal/logger"
	"github.com/frbb/loan-engine/internal/repository"
	customError "github.com/frbb/loan-engine/pkg/errors"
	"github.com/frbb/loan-engine/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoanService drives the loan lifecycle: origination, payment and closure.
// Mutations of a single loan are serialized; reads never take a lock.
type LoanService struct {
	LoanRepo     repository.LoanRepository
	CustomerRepo repository.CustomerRepository
	evaluator    credit.Evaluator
	rates        map[domain.Currency]decimal.Decimal
	log          *zap.Logger
	now          func() time.Time
	locks        *keyedMutex
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	customerRepo repository.CustomerRepository,
	evaluator credit.Evaluator,
	rates map[domain.Currency]decimal.Decimal,
	log *zap.Logger,
) *LoanService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanService{
		LoanRepo:     loanRepo,
		CustomerRepo: customerRepo,
		evaluator:    evaluator,
		rates:        rates,
		log:          log,
		now:          time.Now,
		locks:        newKeyedMutex(),
	}
}

// Originate evaluates a loan request and records the outcome.
// A request that fails the credit check is stored as REJECTED and returned
// without an error.
func (s *LoanService) Originate(ctx context.Context, request *domain.CreateLoanRequest) (*domain.LoanDetail, error) {
	currency, rate, err := s.validateLoanRequest(request)
	if err != nil {
		return nil, err
	}

	customer, err := s.CustomerRepo.FindByID(ctx, request.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapUnknownCustomer(request.CustomerID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !customer.Active {
		return nil, customError.WrapCustomerInactive(request.CustomerID)
	}

	approved, err := s.evaluator.Evaluate(ctx, request.CustomerID, request.Amount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loan := &domain.Loan{
		CustomerID:       request.CustomerID,
		RequestedAmount:  request.Amount,
		Amount:           decimal.Zero,
		Currency:         currency,
		TermMonths:       request.TermMonths,
		Status:           domain.LoanStatusPending,
		RemainingBalance: decimal.Zero,
		Plan:             []domain.Installment{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	message := domain.MessageLoanRejected
	if approved {
		financed, err := amortization.FinancedAmount(request.Amount, rate, request.TermMonths)
		if err != nil {
			return nil, err
		}
		plan, err := amortization.BuildSchedule(financed, request.TermMonths)
		if err != nil {
			return nil, err
		}

		loan.Amount = financed
		loan.RemainingBalance = financed
		loan.Plan = plan
		loan.Status = domain.LoanStatusApproved
		message = domain.MessageLoanApproved
	} else {
		loan.Status = domain.LoanStatusRejected
	}

	if err := s.LoanRepo.Save(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logger.FromContext(ctx, s.log).Info("loan originated",
		zap.Int64("loan_id", loan.ID),
		zap.Int64("customer_id", loan.CustomerID),
		zap.Stringer("status", loan.Status),
		zap.String("requested_amount", loan.RequestedAmount.String()),
		zap.String("amount", loan.Amount.String()),
		zap.Int("term_months", loan.TermMonths),
	)

	return &domain.LoanDetail{
		LoanID:  loan.ID,
		Status:  loan.Status,
		Message: message,
		Plan:    loan.Plan,
	}, nil
}

// GetByID returns a single loan
func (s *LoanService) GetByID(ctx context.Context, loanID int64) (*domain.Loan, error) {
	return s.findLoan(ctx, loanID)
}

// List returns every loan; an empty directory yields an empty list.
func (s *LoanService) List(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.LoanRepo.FindAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if loans == nil {
		loans = []*domain.Loan{}
	}
	return loans, nil
}

// ListByCustomer returns the summaries of every loan owned by a customer
func (s *LoanService) ListByCustomer(ctx context.Context, customerID int64) (*domain.LoanAggregate, error) {
	exists, err := s.CustomerRepo.Exists(ctx, customerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !exists {
		return nil, customError.WrapUnknownCustomer(customerID)
	}

	aggregate, err := s.aggregateFor(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(aggregate.Loans) == 0 {
		return nil, customError.WrapNoLoansForCustomer(customerID)
	}
	return aggregate, nil
}

// PayInstallment applies the next due installment of a loan and returns the
// owner's refreshed loan summaries.
func (s *LoanService) PayInstallment(ctx context.Context, loanID int64, request *domain.PaymentRequest) (*domain.LoanAggregate, error) {
	if request == nil {
		request = &domain.PaymentRequest{}
	}

	unlock := s.locks.Lock(loanID)
	defer unlock()

	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	// a loan owned by someone else is reported as missing
	if request.CustomerID != 0 && request.CustomerID != loan.CustomerID {
		return nil, customError.WrapLoanNotFound(loanID)
	}

	if loan.Status != domain.LoanStatusApproved {
		return nil, customError.WrapInvalidStateTransition(loanID, loan.Status.String(), "paid")
	}

	due, ok := amortization.InstallmentDue(loan.Plan, loan.PaymentsMade)
	if !ok {
		return nil, customError.WrapInvalidStateTransition(loanID, loan.Status.String(), "paid")
	}

	if request.Amount != nil {
		if !request.Amount.IsPositive() {
			return nil, customError.WrapMalformedRequest("amount", "must be greater than zero")
		}
		if !request.Amount.Equal(due.Amount) {
			return nil, customError.WrapPaymentAmountMismatch(due.Amount.StringFixed(utils.CurrencyPlaces), request.Amount.String())
		}
	}

	balance := loan.RemainingBalance.Sub(due.Amount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	loan.RemainingBalance = balance
	loan.PaymentsMade++
	if loan.PaymentsMade == loan.TermMonths || balance.IsZero() {
		loan.Status = domain.LoanStatusClosed
	}
	loan.UpdatedAt = s.now()

	if err := s.LoanRepo.Save(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logger.FromContext(ctx, s.log).Info("installment paid",
		zap.Int64("loan_id", loan.ID),
		zap.Int("installment", due.Number),
		zap.String("amount", due.Amount.String()),
		zap.String("remaining_balance", loan.RemainingBalance.String()),
		zap.Stringer("status", loan.Status),
	)

	return s.aggregateFor(ctx, loan.CustomerID)
}

// Close writes off an approved loan. Closing a closed loan is a no-op.
func (s *LoanService) Close(ctx context.Context, loanID int64) (*domain.Loan, error) {
	unlock := s.locks.Lock(loanID)
	defer unlock()

	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	switch loan.Status {
	case domain.LoanStatusClosed:
		return loan, nil
	case domain.LoanStatusApproved:
	default:
		return nil, customError.WrapInvalidStateTransition(loanID, loan.Status.String(), "closed")
	}

	writtenOff := loan.RemainingBalance
	loan.Status = domain.LoanStatusClosed
	loan.RemainingBalance = decimal.Zero
	loan.UpdatedAt = s.now()

	if err := s.LoanRepo.Save(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logger.FromContext(ctx, s.log).Info("loan closed",
		zap.Int64("loan_id", loan.ID),
		zap.Int("payments_made", loan.PaymentsMade),
		zap.String("written_off", writtenOff.String()),
	)

	return loan, nil
}

// GetSchedule renders a loan's plan with due dates and payment state
func (s *LoanService) GetSchedule(ctx context.Context, loanID int64) (*domain.ScheduleResponse, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	schedule := make([]domain.ScheduledInstallment, 0, len(loan.Plan))
	for _, inst := range loan.Plan {
		schedule = append(schedule, domain.ScheduledInstallment{
			Number:  inst.Number,
			Amount:  inst.Amount,
			DueDate: utils.CalculateDueDate(loan.CreatedAt, inst.Number),
			Paid:    inst.Number <= loan.PaymentsMade,
		})
	}

	return &domain.ScheduleResponse{
		LoanID:           loan.ID,
		Status:           loan.Status,
		RemainingBalance: loan.RemainingBalance,
		Schedule:         schedule,
	}, nil
}

func (s *LoanService) validateLoanRequest(request *domain.CreateLoanRequest) (domain.Currency, decimal.Decimal, error) {
	if request == nil {
		return "", decimal.Zero, customError.WrapMalformedRequest("body", "is required")
	}
	if request.CustomerID <= 0 {
		return "", decimal.Zero, customError.WrapMalformedRequest("customer_id", "must be greater than zero")
	}
	if !request.Amount.IsPositive() {
		return "", decimal.Zero, customError.WrapMalformedRequest("amount", "must be greater than zero")
	}
	if !utils.HasAtMostCents(request.Amount) {
		return "", decimal.Zero, customError.WrapMalformedRequest("amount", "must not have more than two decimal places")
	}
	if request.TermMonths <= 0 {
		return "", decimal.Zero, customError.WrapMalformedRequest("term_months", "must be greater than zero")
	}
	// financing never lowers the principal, so this also holds for the financed amount
	if !amortization.CoversMinimumInstallment(request.Amount, request.TermMonths) {
		return "", decimal.Zero, customError.WrapMalformedRequest("amount", "too small to cover one cent per installment")
	}

	currency, err := domain.ParseCurrency(request.Currency)
	if err != nil {
		return "", decimal.Zero, customError.WrapMalformedRequest("currency", err.Error())
	}
	rate, ok := s.rates[currency]
	if !ok {
		return "", decimal.Zero, customError.WrapMalformedRequest("currency", "no interest rate configured for "+string(currency))
	}

	return currency, rate, nil
}

func (s *LoanService) findLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	loan, err := s.LoanRepo.FindByID(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *LoanService) aggregateFor(ctx context.Context, customerID int64) (*domain.LoanAggregate, error) {
	loans, err := s.LoanRepo.FindAllByCustomer(ctx, customerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summaries := make([]domain.LoanSummary, 0, len(loans))
	for _, loan := range loans {
		summaries = append(summaries, loan.Summary())
	}

	return &domain.LoanAggregate{
		CustomerID: customerID,
		Loans:      summaries,
	}, nil
}
