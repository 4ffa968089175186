// Package journals is the Posting Ledger: read access to journal lines.
package journals

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/statements/internal/accounting"
)

// Repository reads posted journal lines from PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindPostedLines returns POSTED lines for the account in chronological order.
func (r *Repository) FindPostedLines(ctx context.Context, accountID int64, filter accounting.PostingFilter) ([]accounting.PostingLine, error) {
	rows, err := r.db.Query(ctx, `SELECT jl.id, jl.je_id, je.number, jl.account_id, je.date, jl.debit, jl.credit, COALESCE(je.memo, ''), je.status
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.je_id
WHERE jl.account_id=$1
  AND je.company_id=$2
  AND je.status='POSTED'
  AND ($3::bigint = 0 OR je.fiscal_year_id=$3)
  AND ($4::date IS NULL OR je.date >= $4)
  AND ($5::date IS NULL OR je.date <= $5)
ORDER BY je.date ASC, je.number ASC, jl.id ASC`,
		accountID, filter.CompanyID, filter.FiscalYearID, dateParam(filter.DateFrom), dateParam(filter.DateTo))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []accounting.PostingLine
	for rows.Next() {
		var (
			line   accounting.PostingLine
			status string
		)
		if err := rows.Scan(&line.ID, &line.JournalID, &line.JournalNumber, &line.AccountID, &line.Date, &line.Debit, &line.Credit, &line.Memo, &status); err != nil {
			return nil, err
		}
		line.Status = accounting.PostingStatus(status)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func dateParam(t *time.Time) pgtype.Date {
	if t == nil || t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: accounting.Day(*t), Valid: true}
}
