package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frbb/loan-engine/internal/domain"
	"github.com/frbb/loan-engine/internal/logger"
	"github.com/frbb/loan-engine/internal/repository"
	customError "github.com/frbb/loan-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const birthDateLayout = "2006-01-02"

// CustomerService manages the customer directory and customer accounts.
type CustomerService struct {
	CustomerRepo repository.CustomerRepository
	AccountRepo  repository.AccountRepository
	minAge       int
	log          *zap.Logger
	now          func() time.Time
	locks        *keyedMutex
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	accountRepo repository.AccountRepository,
	minAge int,
	log *zap.Logger,
) *CustomerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CustomerService{
		CustomerRepo: customerRepo,
		AccountRepo:  accountRepo,
		minAge:       minAge,
		log:          log,
		now:          time.Now,
		locks:        newKeyedMutex(),
	}
}

// Register adds a customer after checking DNI uniqueness and minimum age
func (s *CustomerService) Register(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error) {
	if request == nil {
		return nil, customError.WrapMalformedRequest("body", "is required")
	}
	if request.DNI <= 0 {
		return nil, customError.WrapMalformedRequest("dni", "must be greater than zero")
	}
	if request.PersonType != domain.PersonTypeNatural && request.PersonType != domain.PersonTypeLegal {
		return nil, customError.WrapMalformedRequest("person_type", "must be F or J")
	}

	birthDate, err := time.Parse(birthDateLayout, request.BirthDate)
	if err != nil {
		return nil, customError.WrapMalformedRequest("birth_date", "must use the YYYY-MM-DD format")
	}

	exists, err := s.CustomerRepo.Exists(ctx, request.DNI)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if exists {
		return nil, customError.WrapCustomerAlreadyExists(request.DNI)
	}

	now := s.now()
	customer := &domain.Customer{
		ID:         request.DNI,
		FirstName:  strings.TrimSpace(request.FirstName),
		LastName:   strings.TrimSpace(request.LastName),
		BirthDate:  birthDate,
		PersonType: request.PersonType,
		Bank:       strings.TrimSpace(request.Bank),
		Phone:      strings.TrimSpace(request.Phone),
		Email:      strings.TrimSpace(request.Email),
		Active:     true,
		CreatedAt:  now,
	}

	if customer.AgeAt(now) < s.minAge {
		return nil, customError.WrapCustomerUnderage(s.minAge)
	}

	err = s.CustomerRepo.Create(ctx, customer)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, customError.WrapCustomerAlreadyExists(request.DNI)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logger.FromContext(ctx, s.log).Info("customer registered", zap.Int64("dni", customer.ID))
	return customer, nil
}

// Get returns a customer by DNI
func (s *CustomerService) Get(ctx context.Context, dni int64) (*domain.Customer, error) {
	customer, err := s.CustomerRepo.FindByID(ctx, dni)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapUnknownCustomer(dni)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return customer, nil
}

// List returns every registered customer
func (s *CustomerService) List(ctx context.Context) ([]*domain.Customer, error) {
	customers, err := s.CustomerRepo.FindAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if customers == nil {
		customers = []*domain.Customer{}
	}
	return customers, nil
}

// Deactivate marks a customer inactive; their loans are not touched
func (s *CustomerService) Deactivate(ctx context.Context, dni int64) (*domain.Customer, error) {
	customer, err := s.Get(ctx, dni)
	if err != nil {
		return nil, err
	}
	if !customer.Active {
		return customer, nil
	}

	customer.Active = false
	err = s.CustomerRepo.Update(ctx, customer)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapUnknownCustomer(dni)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logger.FromContext(ctx, s.log).Info("customer deactivated", zap.Int64("dni", dni))
	return customer, nil
}

// OpenAccount opens an account; a customer holds at most one account per type and currency
func (s *CustomerService) OpenAccount(ctx context.Context, request *domain.CreateAccountRequest) (*domain.Account, error) {
	if request == nil {
		return nil, customError.WrapMalformedRequest("body", "is required")
	}

	accountType, err := domain.ParseAccountType(request.Type)
	if err != nil {
		return nil, customError.WrapMalformedRequest("type", err.Error())
	}
	currency, err := domain.ParseCurrency(request.Currency)
	if err != nil {
		return nil, customError.WrapMalformedRequest("currency", err.Error())
	}

	customer, err := s.Get(ctx, request.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.Active {
		return nil, customError.WrapCustomerInactive(request.CustomerID)
	}

	unlock := s.locks.Lock(request.CustomerID)
	defer unlock()

	accounts, err := s.AccountRepo.FindByCustomer(ctx, request.CustomerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	for _, existing := range accounts {
		if existing.Type == accountType && existing.Currency == currency {
			return nil, customError.WrapAccountTypeExists(string(accountType), string(currency))
		}
	}

	account := &domain.Account{
		CustomerID: request.CustomerID,
		Type:       accountType,
		Currency:   currency,
		Balance:    decimal.Zero,
		Active:     true,
		CreatedAt:  s.now(),
	}
	err = s.AccountRepo.Create(ctx, account)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, customError.WrapAccountTypeExists(string(accountType), string(currency))
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logger.FromContext(ctx, s.log).Info("account opened",
		zap.Int64("account_id", account.ID),
		zap.Int64("dni", account.CustomerID),
		zap.String("type", string(account.Type)),
		zap.String("currency", string(account.Currency)),
	)
	return account, nil
}

// ListAccounts returns the accounts of a customer
func (s *CustomerService) ListAccounts(ctx context.Context, dni int64) ([]*domain.Account, error) {
	if _, err := s.Get(ctx, dni); err != nil {
		return nil, err
	}

	accounts, err := s.AccountRepo.FindByCustomer(ctx, dni)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return accounts, nil
}

// ListAllAccounts returns every account of every customer
func (s *CustomerService) ListAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := s.AccountRepo.FindAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return accounts, nil
}

// GetAccount returns an account by id
func (s *CustomerService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.AccountRepo.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapAccountNotFound(accountID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return account, nil
}

// DeactivateAccount marks an account inactive. Deactivating an inactive account is a no-op.
func (s *CustomerService) DeactivateAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return account, nil
	}

	account.Active = false
	err = s.AccountRepo.Update(ctx, account)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapAccountNotFound(accountID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	logger.FromContext(ctx, s.log).Info("account deactivated",
		zap.Int64("account_id", account.ID),
		zap.Int64("dni", account.CustomerID),
	)
	return account, nil
}
