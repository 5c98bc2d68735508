package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frbb/loan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, first_name, last_name, birth_date, person_type, bank, phone, email, active, created_at)
		VALUES (:id, :first_name, :last_name, :birth_date, :person_type, :bank, :phone, :email, :active, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, customer)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *customerRepository) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `
		SELECT id, first_name, last_name, birth_date, person_type, bank, phone, email, active, created_at
		FROM customers
		WHERE id = $1
	`

	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &customer, nil
}

func (r *customerRepository) FindAll(ctx context.Context) ([]*domain.Customer, error) {
	query := `
		SELECT id, first_name, last_name, birth_date, person_type, bank, phone, email, active, created_at
		FROM customers
		ORDER BY id
	`

	var customers []*domain.Customer
	if err := r.db.SelectContext(ctx, &customers, query); err != nil {
		return nil, err
	}

	return customers, nil
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `
		UPDATE customers
		SET phone = $2, email = $3, active = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, customer.ID, customer.Phone, customer.Email, customer.Active)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *customerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, err
	}

	return exists, nil
}
