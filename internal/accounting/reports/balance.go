package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/statements/internal/accounting"
)

// Movement holds debit and credit totals of a date range, not netted.
type Movement struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debit minus credit.
func (m Movement) Net() decimal.Decimal {
	return m.Debit.Sub(m.Credit)
}

// Figures bundles the opening balance and period movement of one account.
type Figures struct {
	Opening decimal.Decimal
	Period  Movement
}

// Closing returns the signed balance at the end of the period.
func (f Figures) Closing() decimal.Decimal {
	return f.Opening.Add(f.Period.Net())
}

// Calculator computes account balances from posted lines.
type Calculator struct {
	ledger PostingLedger
}

// NewCalculator constructs a Calculator over the posting ledger.
func NewCalculator(ledger PostingLedger) *Calculator {
	return &Calculator{ledger: ledger}
}

// BalanceAsOf sums debit minus credit of every posted line dated on or before asOf.
func (c *Calculator) BalanceAsOf(ctx context.Context, account accounting.Account, asOf time.Time) (decimal.Decimal, error) {
	to := accounting.Day(asOf)
	lines, err := c.ledger.FindPostedLines(ctx, account.ID, accounting.PostingFilter{CompanyID: account.CompanyID, DateTo: &to})
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, line := range lines {
		if !line.Counts() || accounting.Day(line.Date).After(to) {
			continue
		}
		balance = balance.Add(line.Debit).Sub(line.Credit)
	}
	return balance, nil
}

// Movements sums debit and credit separately over posted lines with start <= date <= end.
func (c *Calculator) Movements(ctx context.Context, account accounting.Account, start, end time.Time) (Movement, error) {
	from, to := accounting.Day(start), accounting.Day(end)
	lines, err := c.ledger.FindPostedLines(ctx, account.ID, accounting.PostingFilter{CompanyID: account.CompanyID, DateFrom: &from, DateTo: &to})
	if err != nil {
		return Movement{}, err
	}
	var m Movement
	for _, line := range lines {
		if !line.Counts() || !within(line.Date, from, to) {
			continue
		}
		m.Debit = m.Debit.Add(line.Debit)
		m.Credit = m.Credit.Add(line.Credit)
	}
	return m, nil
}

// Figures computes the opening balance as of the day before periodStart and
// the movement from periodStart through asOf with a single ledger read.
func (c *Calculator) Figures(ctx context.Context, account accounting.Account, periodStart, asOf time.Time) (Figures, error) {
	from, to := accounting.Day(periodStart), accounting.Day(asOf)
	lines, err := c.ledger.FindPostedLines(ctx, account.ID, accounting.PostingFilter{CompanyID: account.CompanyID, DateTo: &to})
	if err != nil {
		return Figures{}, err
	}
	f := Figures{Opening: decimal.Zero}
	for _, line := range lines {
		if !line.Counts() {
			continue
		}
		day := accounting.Day(line.Date)
		switch {
		case day.Before(from):
			f.Opening = f.Opening.Add(line.Debit).Sub(line.Credit)
		case !day.After(to):
			f.Period.Debit = f.Period.Debit.Add(line.Debit)
			f.Period.Credit = f.Period.Credit.Add(line.Credit)
		}
	}
	return f, nil
}

func within(t, from, to time.Time) bool {
	day := accounting.Day(t)
	return !day.Before(from) && !day.After(to)
}
