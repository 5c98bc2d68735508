package handler

import (
	"context"
	"net/http"

	"github.com/frbb/loan-engine/internal/domain"
	"github.com/frbb/loan-engine/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// CustomerService is the customer directory as seen by the HTTP layer
type CustomerService interface {
	Register(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error)
	Get(ctx context.Context, dni int64) (*domain.Customer, error)
	List(ctx context.Context) ([]*domain.Customer, error)
	Deactivate(ctx context.Context, dni int64) (*domain.Customer, error)
	OpenAccount(ctx context.Context, request *domain.CreateAccountRequest) (*domain.Account, error)
	ListAccounts(ctx context.Context, dni int64) ([]*domain.Account, error)
	ListAllAccounts(ctx context.Context) ([]*domain.Account, error)
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, accountID int64) (*domain.Account, error)
}

type CustomerHandler struct {
	service   CustomerService
	validator *validator.Validate
}

func NewCustomerHandler(service CustomerService) *CustomerHandler {
	return &CustomerHandler{
		service:   service,
		validator: newValidator(),
	}
}

// RegisterRoutes mounts the customer and account endpoints on an API subrouter
func (h *CustomerHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/customers", h.CreateCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers", h.ListCustomers).Methods(http.MethodGet)
	api.HandleFunc("/customers/{dni}", h.GetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{dni}", h.DeactivateCustomer).Methods(http.MethodDelete)
	api.HandleFunc("/customers/{dni}/accounts", h.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts", h.ListAllAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}", h.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}", h.DeactivateAccount).Methods(http.MethodDelete)
}

// CreateCustomer handles POST /customers
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateCustomerRequest
	if err := decodeBody(r, &request, false); err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.FromError(w, validationError(err))
		return
	}

	customer, err := h.service.Register(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, customer)
}

// ListCustomers handles GET /customers
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.List(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customers)
}

// GetCustomer handles GET /customers/{dni}
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	dni, err := pathID(r, "dni")
	if err != nil {
		response.FromError(w, err)
		return
	}

	customer, err := h.service.Get(r.Context(), dni)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customer)
}

// DeactivateCustomer handles DELETE /customers/{dni}
func (h *CustomerHandler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	dni, err := pathID(r, "dni")
	if err != nil {
		response.FromError(w, err)
		return
	}

	customer, err := h.service.Deactivate(r.Context(), dni)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customer)
}

// CreateAccount handles POST /accounts
func (h *CustomerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateAccountRequest
	if err := decodeBody(r, &request, false); err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.FromError(w, validationError(err))
		return
	}

	account, err := h.service.OpenAccount(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, account)
}

// ListAccounts handles GET /customers/{dni}/accounts
func (h *CustomerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	dni, err := pathID(r, "dni")
	if err != nil {
		response.FromError(w, err)
		return
	}

	accounts, err := h.service.ListAccounts(r.Context(), dni)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, accounts)
}

// ListAllAccounts handles GET /accounts
func (h *CustomerHandler) ListAllAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAllAccounts(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, accounts)
}

// GetAccount handles GET /accounts/{accountId}
func (h *CustomerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, account)
}

// DeactivateAccount handles DELETE /accounts/{accountId}
func (h *CustomerHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "accountId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	account, err := h.service.DeactivateAccount(r.Context(), accountID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, account)
}
