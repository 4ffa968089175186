// Package cli holds the operator commands of the statements binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/statements/internal/accounting/reports"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
	"github.com/odyssey-erp/statements/internal/accounting/statements"
)

const dateLayout = "2006-01-02"

// Exit codes returned by ExitCode.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitNotFound     = 3
)

// Generator produces financial statements.
type Generator interface {
	Generate(ctx context.Context, req statements.Request) (statements.Report, error)
}

// TrialBalancer builds trial balances.
type TrialBalancer interface {
	Build(ctx context.Context, companyID, fiscalYearID int64, asOf time.Time) (reports.TrialBalance, error)
}

// LedgerViewer builds general ledger views by account code.
type LedgerViewer interface {
	BuildByCode(ctx context.Context, companyID, fiscalYearID int64, code string, from, to *time.Time) (reports.GeneralLedger, error)
}

// Backend is the reporting graph the one-shot commands run against.
type Backend struct {
	Generator    Generator
	TrialBalance TrialBalancer
	Ledger       LedgerViewer
}

// Options wires the commands to their runtime.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Connect opens the backend and returns a release func.
	Connect func(ctx context.Context) (Backend, func(), error)
	// Serve runs the HTTP server until ctx is cancelled.
	Serve func(ctx context.Context) error
	// Queue opens the job queue and returns a release func.
	Queue func(ctx context.Context) (IntegrityQueue, func(), error)
}

// NewRootCommand creates the root command with all subcommands registered.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	root := &cobra.Command{
		Use:   "statements",
		Short: "Financial statements from the general ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	root.AddCommand(
		newServeCommand(opts),
		newGenerateCommand(opts),
		newTrialBalanceCommand(opts),
		newLedgerCommand(opts),
		newStandardsCommand(opts),
		newIntegrityCommand(opts),
	)
	return root
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case shared.IsInvalidInput(err):
		return ExitInvalidInput
	case shared.IsNotFound(err):
		return ExitNotFound
	default:
		return ExitFailure
	}
}

func newServeCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Serve == nil {
				return errors.New("serve: server not configured")
			}
			return opts.Serve(cmd.Context())
		},
	}
}

// scope holds the flags shared by the reporting commands.
type scope struct {
	companyID    int64
	fiscalYearID int64
	pretty       bool
}

func (s *scope) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&s.companyID, "company", 0, "company id (required)")
	cmd.Flags().Int64Var(&s.fiscalYearID, "fiscal-year", 0, "fiscal year id (required)")
	cmd.Flags().BoolVar(&s.pretty, "pretty", false, "indent JSON output")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("fiscal-year")
}

func (s scope) validate() error {
	if s.companyID <= 0 {
		return shared.Invalid("--company must be positive")
	}
	if s.fiscalYearID <= 0 {
		return shared.Invalid("--fiscal-year must be positive")
	}
	return nil
}

func withBackend(cmd *cobra.Command, opts Options, fn func(Backend) error) error {
	if opts.Connect == nil {
		return errors.New("backend not configured")
	}
	backend, release, err := opts.Connect(cmd.Context())
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}
	return fn(backend)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func parseDateFlag(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.Invalid("--%s %q is not a YYYY-MM-DD date", name, raw)
	}
	return &t, nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func newStandardsCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "standards",
		Short: "List the accounting standards and mapping versions compiled in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := statements.DefaultRegistry()
			if err != nil {
				return err
			}
			for _, info := range registry.Standards() {
				names := make([]string, len(info.Statements))
				for i, st := range info.Statements {
					names[i] = string(st)
				}
				fmt.Fprintf(opts.Stdout, "%s\t%s\t%s\t%s\n", info.Standard, info.Version,
					info.EffectiveFrom.Format(dateLayout), strings.Join(names, ","))
			}
			return nil
		},
	}
}
