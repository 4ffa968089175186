// Package periods is the Fiscal Calendar: fiscal year windows per company.
package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

// Repository reads fiscal years from PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindFiscalYear returns the fiscal year by id.
func (r *Repository) FindFiscalYear(ctx context.Context, id int64) (accounting.FiscalYear, error) {
	var (
		fy  accounting.FiscalYear
		end *time.Time
	)
	err := r.db.QueryRow(ctx, `SELECT id, company_id, code, start_date, end_date FROM fiscal_years WHERE id=$1`, id).
		Scan(&fy.ID, &fy.CompanyID, &fy.Code, &fy.StartDate, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounting.FiscalYear{}, shared.ErrFiscalYearNotFound
		}
		return accounting.FiscalYear{}, err
	}
	return normalise(fy, end), nil
}

// ListFiscalYears returns the fiscal years of a company, or of every company
// when companyID is zero, ordered by company then start date.
func (r *Repository) ListFiscalYears(ctx context.Context, companyID int64) ([]accounting.FiscalYear, error) {
	rows, err := r.db.Query(ctx, `SELECT id, company_id, code, start_date, end_date FROM fiscal_years
WHERE ($1::bigint = 0 OR company_id=$1)
ORDER BY company_id, start_date`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accounting.FiscalYear
	for rows.Next() {
		var (
			fy  accounting.FiscalYear
			end *time.Time
		)
		if err := rows.Scan(&fy.ID, &fy.CompanyID, &fy.Code, &fy.StartDate, &end); err != nil {
			return nil, err
		}
		out = append(out, normalise(fy, end))
	}
	return out, rows.Err()
}

func normalise(fy accounting.FiscalYear, end *time.Time) accounting.FiscalYear {
	fy.StartDate = accounting.Day(fy.StartDate)
	if end != nil {
		d := accounting.Day(*end)
		fy.EndDate = &d
	}
	return fy
}
