package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
	"github.com/odyssey-erp/statements/internal/accounting/statements"
	"github.com/odyssey-erp/statements/internal/accounting/statements/store"
	jobmetrics "github.com/odyssey-erp/statements/internal/jobs"
)

// StatementGenerator produces a statement for a request.
type StatementGenerator interface {
	Generate(ctx context.Context, req statements.Request) (statements.Report, error)
}

// ResultStore tracks asynchronous generations.
type ResultStore interface {
	Get(ctx context.Context, id string) (store.Result, error)
	Complete(ctx context.Context, id string, report statements.Report) error
	Fail(ctx context.Context, id string, cause error) error
}

// GenerateStatementJob runs stored statement requests.
type GenerateStatementJob struct {
	Generator StatementGenerator
	Store     ResultStore
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewGenerateStatementJob constructs the job handler.
func NewGenerateStatementJob(generator StatementGenerator, results ResultStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *GenerateStatementJob {
	return &GenerateStatementJob{Generator: generator, Store: results, Logger: logger, Metrics: metrics}
}

// Handle executes one generation task.
func (j *GenerateStatementJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Generator == nil || j.Store == nil {
		return errors.New("statements generate: dependencies not configured")
	}
	var payload GeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.ReportID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskStatementsGenerate)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.log().With(slog.String("report_id", payload.ReportID))
	result, err := j.Store.Get(ctx, payload.ReportID)
	if err != nil {
		if shared.IsNotFound(err) || shared.IsInvalidInput(err) {
			logger.Warn("report result missing", slog.Any("error", err))
			resultErr = fmt.Errorf("statements generate: %v: %w", err, asynq.SkipRetry)
			return resultErr
		}
		resultErr = err
		return resultErr
	}
	if result.Status != store.StatusPending {
		logger.Info("report already settled", slog.String("status", string(result.Status)))
		return resultErr
	}

	report, err := j.Generator.Generate(ctx, result.Request)
	if err != nil {
		if permanent(err) || lastAttempt(ctx) {
			if ferr := j.Store.Fail(ctx, payload.ReportID, err); ferr != nil {
				logger.Error("record failure", slog.Any("error", ferr))
			}
		}
		if permanent(err) {
			resultErr = fmt.Errorf("statements generate: %v: %w", err, asynq.SkipRetry)
			return resultErr
		}
		resultErr = err
		return resultErr
	}
	if err := j.Store.Complete(ctx, payload.ReportID, report); err != nil {
		resultErr = err
		logger.Error("store report", slog.Any("error", err))
		return resultErr
	}
	logger.Info("report generated",
		slog.String("statement", string(report.Statement)),
		slog.String("standard", string(report.Standard)),
		slog.Int("warnings", len(report.Warnings)))
	return resultErr
}

// permanent reports whether retrying cannot change the outcome.
func permanent(err error) bool {
	return shared.IsNotFound(err) || shared.IsInvalidInput(err) || shared.IsConfigurationFault(err)
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	limit, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= limit
}

func (j *GenerateStatementJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GenerateStatementJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatementsGenerate))
	}
	return slog.Default().With(slog.String("job", TaskStatementsGenerate))
}
