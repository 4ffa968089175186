package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
	_ "github.com/odyssey-erp/statements/internal/testing/guard"
)

func requireAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s got %s %v", want, got.String(), msgAndArgs)
}

func lineByCode(t *testing.T, tb TrialBalance, code string) TrialBalanceLine {
	t.Helper()
	for _, line := range tb.Lines {
		if line.Code == code {
			return line
		}
	}
	t.Fatalf("trial balance has no line %s", code)
	return TrialBalanceLine{}
}

func TestTrialBalanceReceivableScenario(t *testing.T) {
	end := date("2024-12-31")
	dir := &fakeDirectory{accounts: []accounting.Account{
		{ID: 1, Code: "411", Name: "Clients", Type: accounting.AccountTypeAsset, CompanyID: 1, FiscalYearID: 1, IsActive: true},
	}}
	ledger := &fakeLedger{lines: []accounting.PostingLine{posted(1, 1, "2024-02-01", "1000", "0")}}
	cal := &fakeCalendar{years: map[int64]accounting.FiscalYear{1: {ID: 1, CompanyID: 1, StartDate: date("2024-01-01"), EndDate: &end}}}

	tb, err := NewTrialBalanceBuilder(dir, cal, NewCalculator(ledger)).Build(context.Background(), 1, 1, date("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, tb.Lines, 1)
	line := tb.Lines[0]
	requireAmount(t, "0", line.OpeningDebit)
	requireAmount(t, "0", line.OpeningCredit)
	requireAmount(t, "1000", line.PeriodDebit)
	requireAmount(t, "0", line.PeriodCredit)
	requireAmount(t, "1000", line.ClosingDebit)
	requireAmount(t, "0", line.ClosingCredit)
}

func TestTrialBalanceBuild(t *testing.T) {
	f := newFixture()
	tb, err := f.trialBalanceBuilder().Build(context.Background(), 1, 2024, time.Time{})
	require.NoError(t, err)
	require.Equal(t, date("2024-01-01"), tb.PeriodStart)
	require.Equal(t, date("2024-12-31"), tb.AsOf)

	codes := make([]string, 0, len(tb.Lines))
	for _, line := range tb.Lines {
		codes = append(codes, line.Code)
	}
	require.Equal(t, []string{"101", "401", "411", "521", "601", "701"}, codes, "inactive zero account dropped, sorted by code")

	capital := lineByCode(t, tb, "101")
	requireAmount(t, "2000", capital.OpeningCredit)
	requireAmount(t, "0", capital.OpeningDebit)
	requireAmount(t, "2000", capital.ClosingCredit)

	bank := lineByCode(t, tb, "521")
	requireAmount(t, "2000", bank.OpeningDebit)
	requireAmount(t, "600", bank.PeriodDebit)
	requireAmount(t, "2600", bank.ClosingDebit)

	receivable := lineByCode(t, tb, "411")
	requireAmount(t, "1000", receivable.PeriodDebit, "draft line ignored")
	requireAmount(t, "600", receivable.PeriodCredit)
	requireAmount(t, "400", receivable.ClosingDebit)

	sales := lineByCode(t, tb, "701")
	requireAmount(t, "1000", sales.PeriodCredit, "cancelled line ignored")
	requireAmount(t, "1000", sales.ClosingCredit)

	requireAmount(t, "2000", tb.Totals.PeriodDebit)
	requireAmount(t, "2000", tb.Totals.PeriodCredit)
	requireAmount(t, "3400", tb.Totals.ClosingDebit)
	requireAmount(t, "3400", tb.Totals.ClosingCredit)
	require.True(t, tb.Balanced)
}

func TestTrialBalanceClosingSidesExclusive(t *testing.T) {
	f := newFixture()
	// contra balance on the receivable
	f.ledger.lines = append(f.ledger.lines, posted(1, 10, "2024-08-01", "0", "900"), posted(3, 10, "2024-08-01", "900", "0"))
	tb, err := f.trialBalanceBuilder().Build(context.Background(), 1, 2024, date("2024-12-31"))
	require.NoError(t, err)
	for _, line := range tb.Lines {
		require.False(t, line.ClosingDebit.IsNegative(), line.Code)
		require.False(t, line.ClosingCredit.IsNegative(), line.Code)
		require.True(t, line.ClosingDebit.IsZero() || line.ClosingCredit.IsZero(), line.Code)
		require.True(t, line.OpeningDebit.IsZero() || line.OpeningCredit.IsZero(), line.Code)
	}
	requireAmount(t, "500", lineByCode(t, tb, "411").ClosingCredit)
	require.True(t, tb.Balanced)
}

func TestTrialBalanceOpeningContinuity(t *testing.T) {
	f := newFixture()
	calc := NewCalculator(f.ledger)
	split := date("2024-06-29")
	accounts, err := f.dir.FindAccounts(context.Background(), 1, 2024)
	require.NoError(t, err)
	for _, acc := range accounts {
		before, err := calc.Figures(context.Background(), acc, date("2024-01-01"), split)
		require.NoError(t, err)
		after, err := calc.Figures(context.Background(), acc, split.AddDate(0, 0, 1), date("2024-12-31"))
		require.NoError(t, err)
		require.Truef(t, before.Closing().Equal(after.Opening), "account %s: closing %s opening %s", acc.Code, before.Closing(), after.Opening)
	}
}

func TestTrialBalanceDeterministicAcrossWorkers(t *testing.T) {
	f := newFixture()
	serial, err := f.trialBalanceBuilder().WithWorkers(1).Build(context.Background(), 1, 2024, date("2024-12-31"))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		parallel, err := f.trialBalanceBuilder().WithWorkers(16).Build(context.Background(), 1, 2024, date("2024-12-31"))
		require.NoError(t, err)
		require.Equal(t, serial, parallel)
	}
}

func TestTrialBalanceAsOfMidYear(t *testing.T) {
	f := newFixture()
	tb, err := f.trialBalanceBuilder().Build(context.Background(), 1, 2024, date("2024-03-31"))
	require.NoError(t, err)
	requireAmount(t, "1000", lineByCode(t, tb, "411").ClosingDebit)
	requireAmount(t, "0", lineByCode(t, tb, "601").PeriodDebit)
	requireAmount(t, "1000", tb.Totals.PeriodDebit)
}

func TestTrialBalanceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown fiscal year", func(t *testing.T) {
		_, err := newFixture().trialBalanceBuilder().Build(ctx, 1, 1999, date("2024-12-31"))
		require.ErrorIs(t, err, shared.ErrFiscalYearNotFound)
		require.True(t, shared.IsNotFound(err))
	})

	t.Run("fiscal year of another company", func(t *testing.T) {
		_, err := newFixture().trialBalanceBuilder().Build(ctx, 2, 2024, date("2024-12-31"))
		require.ErrorIs(t, err, shared.ErrFiscalYearNotFound)
	})

	t.Run("no accounts", func(t *testing.T) {
		_, err := newFixture().trialBalanceBuilder().Build(ctx, 1, 2025, date("2025-03-31"))
		require.ErrorIs(t, err, shared.ErrCompanyNotFound)
	})

	t.Run("open year needs as-of", func(t *testing.T) {
		_, err := newFixture().trialBalanceBuilder().Build(ctx, 1, 2025, time.Time{})
		require.True(t, shared.IsInvalidInput(err))
	})

	t.Run("as-of before start", func(t *testing.T) {
		_, err := newFixture().trialBalanceBuilder().Build(ctx, 1, 2024, date("2023-12-31"))
		require.True(t, shared.IsInvalidInput(err))
	})

	t.Run("ledger failure aborts", func(t *testing.T) {
		f := newFixture()
		boom := errors.New("connection reset")
		f.ledger.fail = map[int64]error{3: boom}
		tb, err := f.trialBalanceBuilder().Build(ctx, 1, 2024, date("2024-12-31"))
		require.ErrorIs(t, err, boom)
		require.Empty(t, tb.Lines)
	})
}

func TestTrialBalanceGroups(t *testing.T) {
	f := newFixture()
	tb, err := f.trialBalanceBuilder().Build(context.Background(), 1, 2024, date("2024-12-31"))
	require.NoError(t, err)
	groups := tb.Groups()
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	require.Equal(t, []string{"1", "4", "5", "6", "7"}, keys)
	require.Len(t, groups[1].Lines, 2)
	requireAmount(t, "400", groups[1].Totals.ClosingDebit)
	requireAmount(t, "400", groups[1].Totals.ClosingCredit)
}
