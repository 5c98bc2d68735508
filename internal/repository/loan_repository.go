package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frbb/loan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

type installmentRow struct {
	LoanID int64           `db:"loan_id"`
	Number int             `db:"number"`
	Amount decimal.Decimal `db:"amount"`
}

const loanColumns = `id, customer_id, requested_amount, amount, currency, term_months, status,
		remaining_balance, payments_made, created_at, updated_at`

func (r *loanRepository) Save(ctx context.Context, loan *domain.Loan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if loan.ID == 0 {
		if err = r.insert(ctx, tx, loan); err != nil {
			return err
		}
		return tx.Commit()
	}

	query := `
		UPDATE loans
		SET status = $2, remaining_balance = $3, payments_made = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		loan.ID,
		loan.Status,
		loan.RemainingBalance,
		loan.PaymentsMade,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if err = r.insert(ctx, tx, loan); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// insert writes the loan row and its plan; a zero id is taken from the sequence.
func (r *loanRepository) insert(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	args := []interface{}{
		loan.CustomerID,
		loan.RequestedAmount,
		loan.Amount,
		loan.Currency,
		loan.TermMonths,
		loan.Status,
		loan.RemainingBalance,
		loan.PaymentsMade,
		loan.CreatedAt,
		loan.UpdatedAt,
	}

	var query string
	if loan.ID == 0 {
		query = `
		INSERT INTO loans (customer_id, requested_amount, amount, currency, term_months, status,
			remaining_balance, payments_made, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	} else {
		query = `
		INSERT INTO loans (customer_id, requested_amount, amount, currency, term_months, status,
			remaining_balance, payments_made, created_at, updated_at, id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
		args = append(args, loan.ID)
	}

	var id int64
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return err
	}

	installmentQuery := `
		INSERT INTO loan_installments (loan_id, number, amount)
		VALUES ($1, $2, $3)
	`
	for _, inst := range loan.Plan {
		if _, err := tx.ExecContext(ctx, installmentQuery, id, inst.Number, inst.Amount); err != nil {
			return err
		}
	}

	loan.ID = id
	return nil
}

func (r *loanRepository) FindByID(ctx context.Context, id int64) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	loans := []*domain.Loan{&loan}
	if err := r.attachPlans(ctx, loans); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) FindAllByCustomer(ctx context.Context, customerID int64) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE customer_id = $1
		ORDER BY id
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, customerID); err != nil {
		return nil, err
	}

	if err := r.attachPlans(ctx, loans); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) FindAll(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		ORDER BY id
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query); err != nil {
		return nil, err
	}

	if err := r.attachPlans(ctx, loans); err != nil {
		return nil, err
	}

	return loans, nil
}

// attachPlans loads the installments of every loan in a single query.
func (r *loanRepository) attachPlans(ctx context.Context, loans []*domain.Loan) error {
	if len(loans) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(loans))
	byID := make(map[int64]*domain.Loan, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
		byID[loan.ID] = loan
	}

	query := `
		SELECT loan_id, number, amount
		FROM loan_installments
		WHERE loan_id = ANY($1)
		ORDER BY loan_id, number
	`

	var rows []installmentRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return err
	}

	for _, row := range rows {
		if loan, ok := byID[row.LoanID]; ok {
			loan.Plan = append(loan.Plan, domain.Installment{Number: row.Number, Amount: row.Amount})
		}
	}

	return nil
}
