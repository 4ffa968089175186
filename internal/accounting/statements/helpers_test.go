package statements

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/reports"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func intPtr(v int) *int {
	return &v
}

// tbLine builds a trial balance line from a signed opening balance and period movement.
func tbLine(id int64, code string, t accounting.AccountType, opening, periodDebit, periodCredit string) reports.TrialBalanceLine {
	line := reports.TrialBalanceLine{
		AccountID:    id,
		Code:         code,
		Name:         "Account " + code,
		Type:         t,
		PeriodDebit:  dec(periodDebit),
		PeriodCredit: dec(periodCredit),
	}
	open := dec(opening)
	closing := open.Add(line.PeriodDebit).Sub(line.PeriodCredit)
	line.OpeningDebit, line.OpeningCredit = accounting.SplitBalance(t, open)
	line.ClosingDebit, line.ClosingCredit = accounting.SplitBalance(t, closing)
	return line
}

// companyLines is a balanced ledger: capital paid in the prior year, a credit
// sale, a credit purchase and a partial customer receipt.
func companyLines() []reports.TrialBalanceLine {
	return []reports.TrialBalanceLine{
		tbLine(4, "101", accounting.AccountTypeEquity, "-2000", "0", "0"),
		tbLine(5, "401", accounting.AccountTypeLiability, "0", "0", "400"),
		tbLine(1, "411", accounting.AccountTypeAsset, "0", "1000", "600"),
		tbLine(3, "521", accounting.AccountTypeAsset, "2000", "600", "0"),
		tbLine(6, "601", accounting.AccountTypeExpense, "0", "400", "0"),
		tbLine(7, "701", accounting.AccountTypeRevenue, "0", "0", "1000"),
	}
}

// tradingLines is a balanced year of a trading company on the SYSCOHADA
// chart: depreciation, stock, recoverable and collected VAT, payroll, an
// investment supplier, a loan repayment, a capital increase, advances both
// ways, prepaid rent, sundry debtors and income tax.
func tradingLines() []reports.TrialBalanceLine {
	asset, liability, equity := accounting.AccountTypeAsset, accounting.AccountTypeLiability, accounting.AccountTypeEquity
	revenue, expense := accounting.AccountTypeRevenue, accounting.AccountTypeExpense
	return []reports.TrialBalanceLine{
		tbLine(1, "101", equity, "-10000", "0", "2000"),
		tbLine(2, "162", liability, "-3000", "500", "0"),
		tbLine(3, "2441", asset, "6000", "1000", "0"),
		tbLine(4, "2844", asset, "-1200", "0", "400"),
		tbLine(5, "311", asset, "1500", "0", "300"),
		tbLine(6, "401", liability, "0", "1500", "2360"),
		tbLine(7, "409", asset, "0", "200", "0"),
		tbLine(8, "411", asset, "0", "5900", "4000"),
		tbLine(9, "419", liability, "0", "0", "300"),
		tbLine(10, "422", liability, "0", "600", "800"),
		tbLine(11, "441", liability, "0", "0", "250"),
		tbLine(12, "4431", liability, "0", "0", "900"),
		tbLine(13, "4452", asset, "0", "360", "0"),
		tbLine(14, "4671", asset, "0", "150", "0"),
		tbLine(15, "476", asset, "0", "90", "0"),
		tbLine(16, "481", liability, "0", "700", "1000"),
		tbLine(17, "521", asset, "6700", "6300", "4470"),
		tbLine(18, "571", asset, "0", "100", "0"),
		tbLine(19, "601", expense, "0", "2000", "0"),
		tbLine(20, "6031", expense, "0", "300", "0"),
		tbLine(21, "622", expense, "0", "600", "90"),
		tbLine(22, "661", expense, "0", "800", "0"),
		tbLine(23, "671", expense, "0", "120", "0"),
		tbLine(24, "6813", expense, "0", "400", "0"),
		tbLine(25, "701", revenue, "0", "0", "5000"),
		tbLine(26, "891", expense, "0", "250", "0"),
	}
}

type stubTrialBalance struct {
	lines    []reports.TrialBalanceLine
	balanced bool
	err      error
	asOf     time.Time
	calls    int
}

func (s *stubTrialBalance) Build(_ context.Context, companyID, fiscalYearID int64, asOf time.Time) (reports.TrialBalance, error) {
	s.calls++
	s.asOf = asOf
	if s.err != nil {
		return reports.TrialBalance{}, s.err
	}
	tb := reports.TrialBalance{
		CompanyID:    companyID,
		FiscalYearID: fiscalYearID,
		PeriodStart:  day("2024-01-01"),
		AsOf:         asOf,
		Lines:        s.lines,
		Balanced:     s.balanced,
	}
	for _, line := range s.lines {
		tb.Totals.PeriodDebit = tb.Totals.PeriodDebit.Add(line.PeriodDebit)
		tb.Totals.PeriodCredit = tb.Totals.PeriodCredit.Add(line.PeriodCredit)
	}
	return tb, nil
}

type stubCalendar struct {
	years map[int64]accounting.FiscalYear
}

func (s stubCalendar) FindFiscalYear(_ context.Context, id int64) (accounting.FiscalYear, error) {
	fy, ok := s.years[id]
	if !ok {
		return accounting.FiscalYear{}, shared.ErrFiscalYearNotFound
	}
	return fy, nil
}

func newCalendar() stubCalendar {
	end := day("2024-12-31")
	return stubCalendar{years: map[int64]accounting.FiscalYear{
		2024: {ID: 2024, CompanyID: 1, Code: "FY2024", StartDate: day("2024-01-01"), EndDate: &end},
		2025: {ID: 2025, CompanyID: 1, Code: "FY2025", StartDate: day("2025-01-01")},
	}}
}
