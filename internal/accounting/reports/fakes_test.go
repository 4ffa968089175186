package reports

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

type fakeDirectory struct {
	accounts []accounting.Account
}

func (f *fakeDirectory) FindAccounts(_ context.Context, companyID, fiscalYearID int64) ([]accounting.Account, error) {
	var out []accounting.Account
	for _, acc := range f.accounts {
		if acc.CompanyID == companyID && acc.FiscalYearID == fiscalYearID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeDirectory) FindAccount(_ context.Context, companyID, accountID int64) (accounting.Account, error) {
	for _, acc := range f.accounts {
		if acc.CompanyID == companyID && acc.ID == accountID {
			return acc, nil
		}
	}
	return accounting.Account{}, shared.ErrAccountNotFound
}

func (f *fakeDirectory) FindAccountByCode(_ context.Context, companyID, fiscalYearID int64, code string) (accounting.Account, error) {
	for _, acc := range f.accounts {
		if acc.CompanyID == companyID && acc.FiscalYearID == fiscalYearID && acc.Code == code {
			return acc, nil
		}
	}
	return accounting.Account{}, shared.ErrAccountNotFound
}

type fakeLedger struct {
	mu    sync.Mutex
	lines []accounting.PostingLine
	calls int
	fail  map[int64]error
}

func (f *fakeLedger) FindPostedLines(_ context.Context, accountID int64, filter accounting.PostingFilter) ([]accounting.PostingLine, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := f.fail[accountID]; err != nil {
		return nil, err
	}
	var out []accounting.PostingLine
	for _, line := range f.lines {
		if line.AccountID != accountID {
			continue
		}
		if filter.DateFrom != nil && line.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && line.Date.After(*filter.DateTo) {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

type fakeCalendar struct {
	years map[int64]accounting.FiscalYear
}

func (f *fakeCalendar) FindFiscalYear(_ context.Context, id int64) (accounting.FiscalYear, error) {
	fy, ok := f.years[id]
	if !ok {
		return accounting.FiscalYear{}, shared.ErrFiscalYearNotFound
	}
	return fy, nil
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var lineSeq int64

func posted(accountID int64, journal int64, day string, debit, credit string) accounting.PostingLine {
	lineSeq++
	return accounting.PostingLine{
		ID:            lineSeq,
		JournalID:     journal,
		JournalNumber: journal,
		AccountID:     accountID,
		Date:          date(day),
		Debit:         dec(debit),
		Credit:        dec(credit),
		Status:        accounting.PostingStatusPosted,
	}
}

// fixture is a small company 1 / fiscal year 2024 ledger with balanced journals.
type fixture struct {
	dir      *fakeDirectory
	ledger   *fakeLedger
	calendar *fakeCalendar
}

func newFixture() fixture {
	accounts := []accounting.Account{
		{ID: 7, Code: "701", Name: "Ventes de marchandises", Type: accounting.AccountTypeRevenue, CompanyID: 1, FiscalYearID: 2024, IsActive: true},
		{ID: 1, Code: "411", Name: "Clients", Type: accounting.AccountTypeAsset, CompanyID: 1, FiscalYearID: 2024, IsActive: true},
		{ID: 3, Code: "521", Name: "Banque", Type: accounting.AccountTypeAsset, CompanyID: 1, FiscalYearID: 2024, IsActive: true},
		{ID: 4, Code: "101", Name: "Capital social", Type: accounting.AccountTypeEquity, CompanyID: 1, FiscalYearID: 2024, IsActive: true},
		{ID: 5, Code: "401", Name: "Fournisseurs", Type: accounting.AccountTypeLiability, CompanyID: 1, FiscalYearID: 2024, IsActive: true},
		{ID: 6, Code: "601", Name: "Achats de marchandises", Type: accounting.AccountTypeExpense, CompanyID: 1, FiscalYearID: 2024, IsActive: true},
		{ID: 8, Code: "471", Name: "Compte d'attente", Type: accounting.AccountTypeAsset, CompanyID: 1, FiscalYearID: 2024, IsActive: false},
		{ID: 9, Code: "701", Name: "Other company", Type: accounting.AccountTypeRevenue, CompanyID: 2, FiscalYearID: 2024, IsActive: true},
	}
	lines := []accounting.PostingLine{
		// 2023 capital contribution
		posted(3, 1, "2023-12-15", "2000", "0"),
		posted(4, 1, "2023-12-15", "0", "2000"),
		// sale on credit
		posted(1, 2, "2024-03-10", "1000", "0"),
		posted(7, 2, "2024-03-10", "0", "1000"),
		// purchase on credit
		posted(6, 3, "2024-04-02", "400", "0"),
		posted(5, 3, "2024-04-02", "0", "400"),
		// customer payment
		posted(3, 4, "2024-06-30", "600", "0"),
		posted(1, 4, "2024-06-30", "0", "600"),
		// draft and cancelled lines never count
		{ID: 900, AccountID: 1, Date: date("2024-05-01"), Debit: dec("999"), Credit: decimal.Zero, Status: accounting.PostingStatusDraft},
		{ID: 901, AccountID: 7, Date: date("2024-05-01"), Debit: decimal.Zero, Credit: dec("999"), Status: accounting.PostingStatusCancelled},
	}
	end := date("2024-12-31")
	return fixture{
		dir:    &fakeDirectory{accounts: accounts},
		ledger: &fakeLedger{lines: lines},
		calendar: &fakeCalendar{years: map[int64]accounting.FiscalYear{
			2024: {ID: 2024, CompanyID: 1, Code: "FY2024", StartDate: date("2024-01-01"), EndDate: &end},
			2025: {ID: 2025, CompanyID: 1, Code: "FY2025", StartDate: date("2025-01-01")},
		}},
	}
}

func (f fixture) trialBalanceBuilder() *TrialBalanceBuilder {
	return NewTrialBalanceBuilder(f.dir, f.calendar, NewCalculator(f.ledger))
}
