package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

// LedgerEntry is one posted line with its running balance.
type LedgerEntry struct {
	LineID         int64           `json:"line_id"`
	JournalID      int64           `json:"journal_id"`
	JournalNumber  int64           `json:"journal_number"`
	Date           time.Time       `json:"date"`
	Memo           string          `json:"memo,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// GeneralLedger lists the posted lines of one account in chronological order.
type GeneralLedger struct {
	Account        accounting.Account `json:"account"`
	From           time.Time          `json:"from"`
	To             time.Time          `json:"to"`
	OpeningBalance decimal.Decimal    `json:"opening_balance"`
	Entries        []LedgerEntry      `json:"entries"`
	TotalDebit     decimal.Decimal    `json:"total_debit"`
	TotalCredit    decimal.Decimal    `json:"total_credit"`
	FinalBalance   decimal.Decimal    `json:"final_balance"`
}

// GeneralLedgerBuilder produces per-account transaction lists.
type GeneralLedgerBuilder struct {
	accounts AccountDirectory
	ledger   PostingLedger
	calendar FiscalCalendar
	calc     *Calculator
}

// NewGeneralLedgerBuilder wires the builder.
func NewGeneralLedgerBuilder(accounts AccountDirectory, ledger PostingLedger, calendar FiscalCalendar, calc *Calculator) *GeneralLedgerBuilder {
	return &GeneralLedgerBuilder{accounts: accounts, ledger: ledger, calendar: calendar, calc: calc}
}

// Build lists the account's posted lines between from and to, which default to
// the fiscal year bounds. The running balance is seeded with the balance as of
// the day before from.
func (b *GeneralLedgerBuilder) Build(ctx context.Context, accountID, companyID, fiscalYearID int64, from, to *time.Time) (GeneralLedger, error) {
	acc, err := b.accounts.FindAccount(ctx, companyID, accountID)
	if err != nil {
		return GeneralLedger{}, err
	}
	return b.build(ctx, acc, fiscalYearID, from, to)
}

// BuildByCode resolves the account by code within the fiscal year, then builds its ledger.
func (b *GeneralLedgerBuilder) BuildByCode(ctx context.Context, companyID, fiscalYearID int64, code string, from, to *time.Time) (GeneralLedger, error) {
	acc, err := b.accounts.FindAccountByCode(ctx, companyID, fiscalYearID, code)
	if err != nil {
		return GeneralLedger{}, err
	}
	return b.build(ctx, acc, fiscalYearID, from, to)
}

func (b *GeneralLedgerBuilder) build(ctx context.Context, acc accounting.Account, fiscalYearID int64, from, to *time.Time) (GeneralLedger, error) {
	fy, err := b.calendar.FindFiscalYear(ctx, fiscalYearID)
	if err != nil {
		return GeneralLedger{}, err
	}
	start := accounting.Day(fy.StartDate)
	if from != nil {
		start = accounting.Day(*from)
	}
	var end time.Time
	switch {
	case to != nil:
		end = accounting.Day(*to)
	case fy.EndDate != nil:
		end = accounting.Day(*fy.EndDate)
	default:
		return GeneralLedger{}, shared.Invalid("fiscal year %s has no end date, to date required", fy.Code)
	}
	if end.Before(start) {
		return GeneralLedger{}, shared.Invalid("to date %s precedes from date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	opening, err := b.calc.BalanceAsOf(ctx, acc, start.AddDate(0, 0, -1))
	if err != nil {
		return GeneralLedger{}, err
	}
	lines, err := b.ledger.FindPostedLines(ctx, acc.ID, accounting.PostingFilter{
		CompanyID:    acc.CompanyID,
		FiscalYearID: fiscalYearID,
		DateFrom:     &start,
		DateTo:       &end,
	})
	if err != nil {
		return GeneralLedger{}, err
	}
	posted := make([]accounting.PostingLine, 0, len(lines))
	for _, line := range lines {
		if line.Counts() && within(line.Date, start, end) {
			posted = append(posted, line)
		}
	}
	sort.SliceStable(posted, func(i, j int) bool {
		di, dj := accounting.Day(posted[i].Date), accounting.Day(posted[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		if posted[i].JournalNumber != posted[j].JournalNumber {
			return posted[i].JournalNumber < posted[j].JournalNumber
		}
		return posted[i].ID < posted[j].ID
	})

	gl := GeneralLedger{
		Account:        acc,
		From:           start,
		To:             end,
		OpeningBalance: opening,
		Entries:        make([]LedgerEntry, 0, len(posted)),
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
	}
	running := opening
	for _, line := range posted {
		running = running.Add(line.Debit).Sub(line.Credit)
		gl.TotalDebit = gl.TotalDebit.Add(line.Debit)
		gl.TotalCredit = gl.TotalCredit.Add(line.Credit)
		gl.Entries = append(gl.Entries, LedgerEntry{
			LineID:         line.ID,
			JournalID:      line.JournalID,
			JournalNumber:  line.JournalNumber,
			Date:           accounting.Day(line.Date),
			Memo:           line.Memo,
			Debit:          line.Debit,
			Credit:         line.Credit,
			RunningBalance: running,
		})
	}
	gl.FinalBalance = running
	return gl, nil
}
