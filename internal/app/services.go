package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/accounts"
	"github.com/odyssey-erp/statements/internal/accounting/journals"
	"github.com/odyssey-erp/statements/internal/accounting/periods"
	"github.com/odyssey-erp/statements/internal/accounting/reports"
	"github.com/odyssey-erp/statements/internal/accounting/statements"
)

// Calendar resolves and enumerates fiscal years.
type Calendar interface {
	reports.FiscalCalendar
	ListFiscalYears(ctx context.Context, companyID int64) ([]accounting.FiscalYear, error)
}

// Backends are the ledger collaborators the reporting services read from.
type Backends struct {
	Accounts reports.AccountDirectory
	Ledger   reports.PostingLedger
	Calendar Calendar
}

// PostgresBackends wires the pgx repositories.
func PostgresBackends(pool *pgxpool.Pool) Backends {
	return Backends{
		Accounts: accounts.NewRepository(pool),
		Ledger:   journals.NewRepository(pool),
		Calendar: periods.NewRepository(pool),
	}
}

// Services is the reporting object graph shared by the server, the worker
// and the CLI.
type Services struct {
	Registry     *statements.Registry
	Calendar     Calendar
	TrialBalance *reports.TrialBalanceBuilder
	Ledger       *reports.GeneralLedgerBuilder
	Assembler    *statements.Assembler
}

// NewServices builds the reporting services. Mapping files are validated here
// so a broken mapping stops the process at startup.
func NewServices(cfg *Config, backends Backends, logger *slog.Logger, registerer prometheus.Registerer) (*Services, error) {
	registry, err := statements.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	std := cfg.Standard()
	if _, err := registry.Definition(std, statements.BalanceSheet); err != nil {
		return nil, fmt.Errorf("default standard: %w", err)
	}

	calc := reports.NewCalculator(backends.Ledger)
	tol := cfg.ToleranceAmount()
	workers := reports.DefaultWorkers
	if cfg != nil && cfg.Workers > 0 {
		workers = cfg.Workers
	}
	tb := reports.NewTrialBalanceBuilder(backends.Accounts, backends.Calendar, calc).
		WithWorkers(workers).
		WithTolerance(tol)
	gl := reports.NewGeneralLedgerBuilder(backends.Accounts, backends.Ledger, backends.Calendar, calc)
	assembler := statements.NewAssembler(registry, backends.Calendar, tb, logger).
		WithMetrics(statements.NewMetrics(registerer)).
		WithDefaultStandard(std).
		WithTolerance(tol)

	return &Services{
		Registry:     registry,
		Calendar:     backends.Calendar,
		TrialBalance: tb,
		Ledger:       gl,
		Assembler:    assembler,
	}, nil
}
