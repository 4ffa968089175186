package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

// DefaultWorkers bounds concurrent per-account ledger reads.
const DefaultWorkers = 8

// DefaultTolerance is the currency-unit tolerance for balance comparisons.
var DefaultTolerance = decimal.New(1, -2)

// TrialBalanceLine holds one account's opening, period and closing figures.
// Every amount is non-negative and each opening/closing pair has at most one
// non-zero side.
type TrialBalanceLine struct {
	AccountID     int64                  `json:"account_id"`
	Code          string                 `json:"code"`
	Name          string                 `json:"name"`
	Type          accounting.AccountType `json:"type"`
	OpeningDebit  decimal.Decimal        `json:"opening_debit"`
	OpeningCredit decimal.Decimal        `json:"opening_credit"`
	PeriodDebit   decimal.Decimal        `json:"period_debit"`
	PeriodCredit  decimal.Decimal        `json:"period_credit"`
	ClosingDebit  decimal.Decimal        `json:"closing_debit"`
	ClosingCredit decimal.Decimal        `json:"closing_credit"`
}

// OpeningBalance returns the signed opening balance (debit minus credit).
func (l TrialBalanceLine) OpeningBalance() decimal.Decimal {
	return l.OpeningDebit.Sub(l.OpeningCredit)
}

// ClosingBalance returns the signed closing balance (debit minus credit).
func (l TrialBalanceLine) ClosingBalance() decimal.Decimal {
	return l.ClosingDebit.Sub(l.ClosingCredit)
}

// PeriodNet returns period debit minus period credit.
func (l TrialBalanceLine) PeriodNet() decimal.Decimal {
	return l.PeriodDebit.Sub(l.PeriodCredit)
}

// IsZero reports whether every column is zero.
func (l TrialBalanceLine) IsZero() bool {
	return l.OpeningDebit.IsZero() && l.OpeningCredit.IsZero() &&
		l.PeriodDebit.IsZero() && l.PeriodCredit.IsZero() &&
		l.ClosingDebit.IsZero() && l.ClosingCredit.IsZero()
}

// ClassKey returns the chart class of the account, the first character of its code.
func (l TrialBalanceLine) ClassKey() string {
	if l.Code == "" {
		return ""
	}
	return l.Code[:1]
}

func newTrialBalanceLine(acc accounting.Account, f Figures) TrialBalanceLine {
	line := TrialBalanceLine{
		AccountID:    acc.ID,
		Code:         acc.Code,
		Name:         acc.Name,
		Type:         acc.Type,
		PeriodDebit:  f.Period.Debit,
		PeriodCredit: f.Period.Credit,
	}
	line.OpeningDebit, line.OpeningCredit = accounting.SplitBalance(acc.Type, f.Opening)
	line.ClosingDebit, line.ClosingCredit = accounting.SplitBalance(acc.Type, f.Closing())
	return line
}

// TrialBalanceTotals sums every column.
type TrialBalanceTotals struct {
	OpeningDebit  decimal.Decimal `json:"opening_debit"`
	OpeningCredit decimal.Decimal `json:"opening_credit"`
	PeriodDebit   decimal.Decimal `json:"period_debit"`
	PeriodCredit  decimal.Decimal `json:"period_credit"`
	ClosingDebit  decimal.Decimal `json:"closing_debit"`
	ClosingCredit decimal.Decimal `json:"closing_credit"`
}

func (t *TrialBalanceTotals) add(l TrialBalanceLine) {
	t.OpeningDebit = t.OpeningDebit.Add(l.OpeningDebit)
	t.OpeningCredit = t.OpeningCredit.Add(l.OpeningCredit)
	t.PeriodDebit = t.PeriodDebit.Add(l.PeriodDebit)
	t.PeriodCredit = t.PeriodCredit.Add(l.PeriodCredit)
	t.ClosingDebit = t.ClosingDebit.Add(l.ClosingDebit)
	t.ClosingCredit = t.ClosingCredit.Add(l.ClosingCredit)
}

// TrialBalanceGroup aggregates lines of one chart class.
type TrialBalanceGroup struct {
	Key    string             `json:"key"`
	Lines  []TrialBalanceLine `json:"lines"`
	Totals TrialBalanceTotals `json:"totals"`
}

// TrialBalance is the per-account artifact between postings and statements.
type TrialBalance struct {
	CompanyID    int64              `json:"company_id"`
	FiscalYearID int64              `json:"fiscal_year_id"`
	PeriodStart  time.Time          `json:"period_start"`
	AsOf         time.Time          `json:"as_of"`
	Lines        []TrialBalanceLine `json:"lines"`
	Totals       TrialBalanceTotals `json:"totals"`
	Balanced     bool               `json:"balanced"`
}

// Groups splits the lines by chart class, preserving code order.
func (tb TrialBalance) Groups() []TrialBalanceGroup {
	var groups []TrialBalanceGroup
	for _, line := range tb.Lines {
		key := line.ClassKey()
		if len(groups) == 0 || groups[len(groups)-1].Key != key {
			groups = append(groups, TrialBalanceGroup{Key: key})
		}
		grp := &groups[len(groups)-1]
		grp.Lines = append(grp.Lines, line)
		grp.Totals.add(line)
	}
	return groups
}

// TrialBalanceBuilder produces trial balances from the collaborators.
type TrialBalanceBuilder struct {
	accounts  AccountDirectory
	calendar  FiscalCalendar
	calc      *Calculator
	workers   int
	tolerance decimal.Decimal
}

// NewTrialBalanceBuilder wires the builder with default concurrency.
func NewTrialBalanceBuilder(accounts AccountDirectory, calendar FiscalCalendar, calc *Calculator) *TrialBalanceBuilder {
	return &TrialBalanceBuilder{
		accounts:  accounts,
		calendar:  calendar,
		calc:      calc,
		workers:   DefaultWorkers,
		tolerance: DefaultTolerance,
	}
}

// WithWorkers overrides the per-account concurrency limit.
func (b *TrialBalanceBuilder) WithWorkers(n int) *TrialBalanceBuilder {
	if n > 0 {
		b.workers = n
	}
	return b
}

// WithTolerance overrides the tolerance used for the Balanced flag.
func (b *TrialBalanceBuilder) WithTolerance(tol decimal.Decimal) *TrialBalanceBuilder {
	if tol.IsPositive() {
		b.tolerance = tol
	}
	return b
}

// Build computes the trial balance of the fiscal year as of asOf. A zero asOf
// defaults to the fiscal year end; open-ended years require an explicit date.
func (b *TrialBalanceBuilder) Build(ctx context.Context, companyID, fiscalYearID int64, asOf time.Time) (TrialBalance, error) {
	fy, err := b.calendar.FindFiscalYear(ctx, fiscalYearID)
	if err != nil {
		return TrialBalance{}, err
	}
	if fy.CompanyID != 0 && fy.CompanyID != companyID {
		return TrialBalance{}, shared.ErrFiscalYearNotFound
	}
	asOf, err = ResolveAsOf(fy, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	start := accounting.Day(fy.StartDate)

	accts, err := b.accounts.FindAccounts(ctx, companyID, fiscalYearID)
	if err != nil {
		return TrialBalance{}, err
	}
	if len(accts) == 0 {
		return TrialBalance{}, fmt.Errorf("company %d fiscal year %d: %w", companyID, fiscalYearID, shared.ErrCompanyNotFound)
	}

	lines := make([]TrialBalanceLine, len(accts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, acc := range accts {
		g.Go(func() error {
			f, err := b.calc.Figures(gctx, acc, start, asOf)
			if err != nil {
				return fmt.Errorf("account %s: %w", acc.Code, err)
			}
			lines[i] = newTrialBalanceLine(acc, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TrialBalance{}, err
	}

	tb := TrialBalance{
		CompanyID:    companyID,
		FiscalYearID: fiscalYearID,
		PeriodStart:  start,
		AsOf:         asOf,
		Lines:        make([]TrialBalanceLine, 0, len(lines)),
	}
	for i, line := range lines {
		if !accts[i].IsActive && line.IsZero() {
			continue
		}
		tb.Lines = append(tb.Lines, line)
	}
	sort.SliceStable(tb.Lines, func(i, j int) bool {
		if tb.Lines[i].Code == tb.Lines[j].Code {
			return tb.Lines[i].AccountID < tb.Lines[j].AccountID
		}
		return tb.Lines[i].Code < tb.Lines[j].Code
	})
	for _, line := range tb.Lines {
		tb.Totals.add(line)
	}
	tb.Balanced = tb.Totals.PeriodDebit.Sub(tb.Totals.PeriodCredit).Abs().LessThanOrEqual(b.tolerance)
	return tb, nil
}

// ResolveAsOf validates the reference date against the fiscal year.
func ResolveAsOf(fy accounting.FiscalYear, asOf time.Time) (time.Time, error) {
	if asOf.IsZero() {
		if fy.EndDate == nil {
			return time.Time{}, shared.Invalid("fiscal year %s has no end date, as-of date required", fy.Code)
		}
		return accounting.Day(*fy.EndDate), nil
	}
	asOf = accounting.Day(asOf)
	if asOf.Before(accounting.Day(fy.StartDate)) {
		return time.Time{}, shared.Invalid("as-of date %s precedes fiscal year start %s", asOf.Format(time.DateOnly), fy.StartDate.Format(time.DateOnly))
	}
	return asOf, nil
}
