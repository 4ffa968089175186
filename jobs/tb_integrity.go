package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/reports"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
	jobmetrics "github.com/odyssey-erp/statements/internal/jobs"
)

// TrialBalanceBuilder builds the trial balance checked by the integrity job.
type TrialBalanceBuilder interface {
	Build(ctx context.Context, companyID, fiscalYearID int64, asOf time.Time) (reports.TrialBalance, error)
}

// FiscalYearLister enumerates fiscal years in scope of the check.
type FiscalYearLister interface {
	FindFiscalYear(ctx context.Context, id int64) (accounting.FiscalYear, error)
	ListFiscalYears(ctx context.Context, companyID int64) ([]accounting.FiscalYear, error)
}

// IntegrityFinding records one out-of-balance trial balance.
type IntegrityFinding struct {
	CompanyID    int64
	FiscalYearID int64
	AsOf         time.Time
	Debit        string
	Credit       string
}

// TrialBalanceIntegrityJob verifies that period debits equal period credits
// for every fiscal year in scope.
type TrialBalanceIntegrityJob struct {
	Builder TrialBalanceBuilder
	Years   FiscalYearLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewTrialBalanceIntegrityJob wires dependencies for the integrity handler.
func NewTrialBalanceIntegrityJob(builder TrialBalanceBuilder, years FiscalYearLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *TrialBalanceIntegrityJob {
	return &TrialBalanceIntegrityJob{
		Builder: builder,
		Years:   years,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes integrity tasks.
func (j *TrialBalanceIntegrityJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Builder == nil || j.Years == nil {
		return errors.New("tb integrity: dependencies not configured")
	}
	var payload IntegrityPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskTrialBalanceIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	findings, err := j.Run(ctx, payload)
	if err != nil {
		resultErr = err
		return resultErr
	}
	j.log().Info("trial balance integrity checked",
		slog.Int64("company_id", payload.CompanyID),
		slog.Int64("fiscal_year_id", payload.FiscalYearID),
		slog.Int("unbalanced", len(findings)))
	return resultErr
}

// Run checks every fiscal year in scope and returns the unbalanced ones.
func (j *TrialBalanceIntegrityJob) Run(ctx context.Context, scope IntegrityPayload) ([]IntegrityFinding, error) {
	years, err := j.years(ctx, scope)
	if err != nil {
		return nil, err
	}
	today := accounting.Day(j.now())
	var findings []IntegrityFinding
	for _, fy := range years {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		asOf := today
		if fy.EndDate != nil && fy.EndDate.Before(today) {
			asOf = *fy.EndDate
		}
		if asOf.Before(fy.StartDate) {
			continue
		}
		tb, err := j.Builder.Build(ctx, fy.CompanyID, fy.ID, asOf)
		if errors.Is(err, shared.ErrCompanyNotFound) {
			continue
		}
		if err != nil {
			j.log().Error("build trial balance", slog.Int64("company_id", fy.CompanyID), slog.Int64("fiscal_year_id", fy.ID), slog.Any("error", err))
			return findings, err
		}
		if tb.Balanced {
			continue
		}
		finding := IntegrityFinding{
			CompanyID:    fy.CompanyID,
			FiscalYearID: fy.ID,
			AsOf:         asOf,
			Debit:        tb.Totals.PeriodDebit.StringFixed(2),
			Credit:       tb.Totals.PeriodCredit.StringFixed(2),
		}
		findings = append(findings, finding)
		j.metrics().AddAnomalies("high", fy.CompanyID, fy.ID, 1)
		j.log().Warn("trial balance out of balance",
			slog.Int64("company_id", fy.CompanyID),
			slog.Int64("fiscal_year_id", fy.ID),
			slog.Time("as_of", asOf),
			slog.String("debit", finding.Debit),
			slog.String("credit", finding.Credit))
	}
	return findings, nil
}

func (j *TrialBalanceIntegrityJob) years(ctx context.Context, scope IntegrityPayload) ([]accounting.FiscalYear, error) {
	if scope.FiscalYearID > 0 {
		fy, err := j.Years.FindFiscalYear(ctx, scope.FiscalYearID)
		if err != nil {
			return nil, err
		}
		if scope.CompanyID > 0 && fy.CompanyID != scope.CompanyID {
			return nil, shared.ErrFiscalYearNotFound
		}
		return []accounting.FiscalYear{fy}, nil
	}
	return j.Years.ListFiscalYears(ctx, scope.CompanyID)
}

func (j *TrialBalanceIntegrityJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *TrialBalanceIntegrityJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTrialBalanceIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskTrialBalanceIntegrity))
}

func (j *TrialBalanceIntegrityJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *TrialBalanceIntegrityJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
