package service

import (
	"context"
	"fmt"
	"time"

	"github.com/frbb/loan-engine/internal/amortization"
	"github.com/frbb/loan-engine/internal/domain"
	"github.com/frbb/loan-engine/internal/logger"
	"github.com/frbb/loan-engine/internal/repository"
	customError "github.com/frbb/loan-engine/pkg/errors"
	"github.com/frbb/loan-engine/pkg/utils"

	"go.uber.org/zap"
)

// AuditReport summarizes a scan of the loan directory.
type AuditReport struct {
	StartedAt  time.Time                 `json:"started_at"`
	Duration   time.Duration             `json:"duration"`
	Total      int                       `json:"total"`
	ByStatus   map[domain.LoanStatus]int `json:"-"`
	Counts     map[string]int            `json:"counts"`
	Violations []AuditViolation          `json:"violations"`
}

// AuditViolation is a loan that breaks a stored-record invariant.
type AuditViolation struct {
	LoanID int64  `json:"loan_id"`
	Reason string `json:"reason"`
}

// AuditService checks stored loans against the lifecycle invariants.
type AuditService struct {
	LoanRepo repository.LoanRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewAuditService(loanRepo repository.LoanRepository, log *zap.Logger) *AuditService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditService{
		LoanRepo: loanRepo,
		log:      log,
		now:      time.Now,
	}
}

// Run scans every loan and reports per-status counts and violations
func (s *AuditService) Run(ctx context.Context) (*AuditReport, error) {
	started := s.now()

	loans, err := s.LoanRepo.FindAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	report := &AuditReport{
		StartedAt:  started,
		Total:      len(loans),
		ByStatus:   make(map[domain.LoanStatus]int),
		Counts:     make(map[string]int),
		Violations: []AuditViolation{},
	}

	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report.ByStatus[loan.Status]++
		report.Counts[loan.Status.String()]++

		for _, reason := range checkLoan(loan) {
			report.Violations = append(report.Violations, AuditViolation{LoanID: loan.ID, Reason: reason})
		}
	}
	report.Duration = s.now().Sub(started)

	fields := []zap.Field{
		zap.Int("total", report.Total),
		zap.Int("approved", report.ByStatus[domain.LoanStatusApproved]),
		zap.Int("rejected", report.ByStatus[domain.LoanStatusRejected]),
		zap.Int("closed", report.ByStatus[domain.LoanStatusClosed]),
		zap.Int("violations", len(report.Violations)),
		zap.Duration("duration", report.Duration),
	}
	log := logger.FromContext(ctx, s.log)
	if len(report.Violations) > 0 {
		log.Warn("loan audit found violations", fields...)
		for _, v := range report.Violations {
			log.Warn("loan invariant violated", zap.Int64("loan_id", v.LoanID), zap.String("reason", v.Reason))
		}
	} else {
		log.Info("loan audit completed", fields...)
	}

	return report, nil
}

func checkLoan(loan *domain.Loan) []string {
	var reasons []string

	if loan.PaymentsMade < 0 || loan.PaymentsMade > loan.TermMonths {
		reasons = append(reasons, fmt.Sprintf("payments made %d outside 0..%d", loan.PaymentsMade, loan.TermMonths))
	}
	if loan.RemainingBalance.IsNegative() {
		reasons = append(reasons, "negative remaining balance")
	}
	if loan.RemainingBalance.GreaterThan(loan.Amount) {
		reasons = append(reasons, "remaining balance exceeds financed amount")
	}
	if !utils.HasAtMostCents(loan.RemainingBalance) {
		reasons = append(reasons, "remaining balance below cent precision")
	}

	switch loan.Status {
	case domain.LoanStatusApproved:
		if !amortization.ValidatePlan(loan.Plan, loan.Amount, loan.TermMonths) {
			reasons = append(reasons, "plan does not sum to the financed amount")
		}
		if loan.RemainingBalance.IsZero() {
			reasons = append(reasons, "approved loan with zero balance")
		}
		if loan.PaymentsMade == loan.TermMonths {
			reasons = append(reasons, "approved loan with every installment paid")
		}
	case domain.LoanStatusRejected:
		if len(loan.Plan) > 0 || !loan.RemainingBalance.IsZero() || loan.PaymentsMade != 0 {
			reasons = append(reasons, "rejected loan carries a plan, balance or payments")
		}
	case domain.LoanStatusClosed:
		if !loan.RemainingBalance.IsZero() {
			reasons = append(reasons, "closed loan with outstanding balance")
		}
		if !amortization.ValidatePlan(loan.Plan, loan.Amount, loan.TermMonths) {
			reasons = append(reasons, "plan does not sum to the financed amount")
		}
	default:
		reasons = append(reasons, "loan stored with status "+loan.Status.String())
	}

	return reasons
}
