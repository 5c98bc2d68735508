package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frbb/loan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// unique_violation, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const pqUniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (customer_id, type, currency, balance, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		account.CustomerID,
		account.Type,
		account.Currency,
		account.Balance,
		account.Active,
		account.CreatedAt,
	).Scan(&account.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT id, customer_id, type, currency, balance, active, created_at
		FROM accounts
		WHERE id = $1
	`

	var account domain.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) FindAll(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT id, customer_id, type, currency, balance, active, created_at
		FROM accounts
		ORDER BY id
	`

	var accounts []*domain.Account
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *accountRepository) FindByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	query := `
		SELECT id, customer_id, type, currency, balance, active, created_at
		FROM accounts
		WHERE customer_id = $1
		ORDER BY id
	`

	var accounts []*domain.Account
	if err := r.db.SelectContext(ctx, &accounts, query, customerID); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `UPDATE accounts SET active = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, account.ID, account.Active)
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
