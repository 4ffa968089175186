// Package accounts is the Account Directory: read access to the chart of
// accounts per company and fiscal year.
package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

const selectAccount = `SELECT id, code, name, type, company_id, fiscal_year_id, is_active FROM accounts`

// Repository reads accounts from PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindAccounts lists every account of the company for the fiscal year ordered by code.
func (r *Repository) FindAccounts(ctx context.Context, companyID, fiscalYearID int64) ([]accounting.Account, error) {
	rows, err := r.db.Query(ctx, selectAccount+` WHERE company_id=$1 AND fiscal_year_id=$2 ORDER BY code`, companyID, fiscalYearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accounting.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// FindAccount resolves an account by id within a company.
func (r *Repository) FindAccount(ctx context.Context, companyID, accountID int64) (accounting.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+` WHERE company_id=$1 AND id=$2`, companyID, accountID)
	return oneAccount(row)
}

// FindAccountByCode resolves an account by its code. Codes are unique per
// company and fiscal year.
func (r *Repository) FindAccountByCode(ctx context.Context, companyID, fiscalYearID int64, code string) (accounting.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+` WHERE company_id=$1 AND fiscal_year_id=$2 AND code=$3`, companyID, fiscalYearID, code)
	return oneAccount(row)
}

func oneAccount(row pgx.Row) (accounting.Account, error) {
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounting.Account{}, shared.ErrAccountNotFound
		}
		return accounting.Account{}, err
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (accounting.Account, error) {
	var (
		a   accounting.Account
		typ string
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &a.CompanyID, &a.FiscalYearID, &a.IsActive); err != nil {
		return accounting.Account{}, err
	}
	a.Type = accounting.ParseAccountType(typ)
	return a, nil
}
