package handler

import (
	"context"
	"net/http"

	"github.com/frbb/loan-engine/internal/domain"
	"github.com/frbb/loan-engine/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// LoanService is the loan lifecycle as seen by the HTTP layer
type LoanService interface {
	Originate(ctx context.Context, request *domain.CreateLoanRequest) (*domain.LoanDetail, error)
	GetByID(ctx context.Context, loanID int64) (*domain.Loan, error)
	List(ctx context.Context) ([]*domain.Loan, error)
	ListByCustomer(ctx context.Context, customerID int64) (*domain.LoanAggregate, error)
	PayInstallment(ctx context.Context, loanID int64, request *domain.PaymentRequest) (*domain.LoanAggregate, error)
	Close(ctx context.Context, loanID int64) (*domain.Loan, error)
	GetSchedule(ctx context.Context, loanID int64) (*domain.ScheduleResponse, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
	}
}

// RegisterRoutes mounts the loan endpoints on an API subrouter
func (h *LoanHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/customer/{customerId}", h.GetCustomerLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/schedule", h.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", h.MakePayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/close", h.CloseLoan).Methods(http.MethodPost)
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := decodeBody(r, &request, false); err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.FromError(w, validationError(err))
		return
	}

	detail, err := h.service.Originate(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, detail)
}

// ListLoans handles GET /loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.List(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loans)
}

// GetLoan handles GET /loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.service.GetByID(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// GetCustomerLoans handles GET /loans/customer/{customerId}
func (h *LoanHandler) GetCustomerLoans(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "customerId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	aggregate, err := h.service.ListByCustomer(r.Context(), customerID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, aggregate)
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, schedule)
}

// MakePayment handles POST /loans/{loanId}/payments; the body is optional
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var request domain.PaymentRequest
	if err := decodeBody(r, &request, true); err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.FromError(w, validationError(err))
		return
	}

	aggregate, err := h.service.PayInstallment(r.Context(), loanID, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, aggregate)
}

// CloseLoan handles POST /loans/{loanId}/close
func (h *LoanHandler) CloseLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.service.Close(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}
