package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/statements/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatementsGenerate generates a statement stored under a report id.
	TaskStatementsGenerate = "statements:generate"
	// TaskTrialBalanceIntegrity checks that trial balances still balance.
	TaskTrialBalanceIntegrity = "ledger:tb_integrity"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// GeneratePayload references a pending result in the report store.
type GeneratePayload struct {
	ReportID string `json:"report_id"`
}

// NewGenerateTask constructs the generation task for a stored request.
func NewGenerateTask(reportID string) (*asynq.Task, error) {
	data, err := json.Marshal(GeneratePayload{ReportID: reportID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementsGenerate, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// IntegrityPayload scopes the trial balance integrity check. Zero values mean
// every company or every fiscal year.
type IntegrityPayload struct {
	CompanyID    int64 `json:"company_id"`
	FiscalYearID int64 `json:"fiscal_year_id"`
}

// NewIntegrityTask constructs the trial balance integrity task.
func NewIntegrityTask(companyID, fiscalYearID int64) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityPayload{CompanyID: companyID, FiscalYearID: fiscalYearID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTrialBalanceIntegrity, data, asynq.Queue(QueueDefault)), nil
}
