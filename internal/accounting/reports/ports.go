package reports

import (
	"context"

	"github.com/odyssey-erp/statements/internal/accounting"
)

// AccountDirectory resolves accounts in scope of a report.
type AccountDirectory interface {
	FindAccounts(ctx context.Context, companyID, fiscalYearID int64) ([]accounting.Account, error)
	FindAccount(ctx context.Context, companyID, accountID int64) (accounting.Account, error)
	FindAccountByCode(ctx context.Context, companyID, fiscalYearID int64, code string) (accounting.Account, error)
}

// PostingLedger exposes posted journal lines per account.
type PostingLedger interface {
	FindPostedLines(ctx context.Context, accountID int64, filter accounting.PostingFilter) ([]accounting.PostingLine, error)
}

// FiscalCalendar resolves fiscal year windows.
type FiscalCalendar interface {
	FindFiscalYear(ctx context.Context, id int64) (accounting.FiscalYear, error)
}
