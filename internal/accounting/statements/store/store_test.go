package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
	"github.com/odyssey-erp/statements/internal/accounting/statements"
	_ "github.com/odyssey-erp/statements/internal/testing/guard"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	return New(client, time.Hour).WithClock(func() time.Time { return now }), mr
}

func TestStoreLifecycle(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	req := statements.Request{CompanyID: 1, FiscalYearID: 2024, Statement: statements.IncomeStatement, Standard: statements.StandardIFRS}

	created, err := s.Create(ctx, req)
	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)
	require.True(t, mr.Exists(keyPrefix+created.ID))
	require.Equal(t, time.Hour, mr.TTL(keyPrefix+created.ID))

	report := statements.Report{
		CompanyID:       1,
		FiscalYearID:    2024,
		Statement:       statements.IncomeStatement,
		Standard:        statements.StandardIFRS,
		IncomeStatement: &statements.IncomeStatementTotals{NetIncome: decimal.RequireFromString("600.50")},
	}
	require.NoError(t, s.Complete(ctx, created.ID, report))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDone, got.Status)
	require.Equal(t, req, got.Request)
	require.NotNil(t, got.Report)
	require.True(t, got.Report.IncomeStatement.NetIncome.Equal(decimal.RequireFromString("600.50")))
}

func TestStoreFail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, statements.Request{CompanyID: 1, FiscalYearID: 2024, Statement: statements.CashFlow})
	require.NoError(t, err)

	require.NoError(t, s.Fail(ctx, created.ID, errors.New("accounting: fiscal year not found")))
	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Nil(t, got.Report)
	require.Equal(t, "accounting: fiscal year not found", got.Error)
}

func TestStoreMissingAndExpired(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "not-a-uuid")
	require.True(t, shared.IsInvalidInput(err))

	_, err = s.Get(ctx, "6f1c1f0e-8f43-4a53-9d43-5b8f3f5f0b11")
	require.ErrorIs(t, err, shared.ErrReportNotFound)

	created, err := s.Create(ctx, statements.Request{CompanyID: 1, FiscalYearID: 2024, Statement: statements.BalanceSheet})
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, created.ID)
	require.True(t, shared.IsNotFound(err))

	err = s.Complete(ctx, created.ID, statements.Report{})
	require.ErrorIs(t, err, shared.ErrReportNotFound)
}
