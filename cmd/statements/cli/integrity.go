package cli

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

// IntegrityQueue schedules trial balance integrity checks on the worker.
type IntegrityQueue interface {
	EnqueueIntegrity(ctx context.Context, companyID, fiscalYearID int64) (*asynq.TaskInfo, error)
}

type enqueuedTask struct {
	TaskID       string `json:"task_id"`
	Queue        string `json:"queue"`
	CompanyID    int64  `json:"company_id,omitempty"`
	FiscalYearID int64  `json:"fiscal_year_id,omitempty"`
}

func newIntegrityCommand(opts Options) *cobra.Command {
	var (
		companyID, fiscalYearID int64
		pretty                  bool
	)
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Queue a trial balance integrity check on the worker",
		Long: "Queue a check that period debits equal period credits. Without flags every\n" +
			"fiscal year of every company is checked.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if companyID < 0 || fiscalYearID < 0 {
				return shared.Invalid("--company and --fiscal-year must not be negative")
			}
			if opts.Queue == nil {
				return errors.New("integrity: job queue not configured")
			}
			queue, release, err := opts.Queue(cmd.Context())
			if err != nil {
				return err
			}
			if release != nil {
				defer release()
			}
			info, err := queue.EnqueueIntegrity(cmd.Context(), companyID, fiscalYearID)
			if err != nil {
				return err
			}
			return writeJSON(opts.Stdout, enqueuedTask{
				TaskID:       info.ID,
				Queue:        info.Queue,
				CompanyID:    companyID,
				FiscalYearID: fiscalYearID,
			}, pretty)
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "limit the check to one company")
	cmd.Flags().Int64Var(&fiscalYearID, "fiscal-year", 0, "limit the check to one fiscal year")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}
