package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/statements/internal/accounting/statements"
)

type generateFlags struct {
	scope
	statement string
	standard  string
	asOf      string
	periodEnd string
	strict    bool
}

func newGenerateCommand(opts Options) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one statement and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			return withBackend(cmd, opts, func(b Backend) error {
				report, err := b.Generator.Generate(cmd.Context(), req)
				if err != nil {
					return err
				}
				if err := writeJSON(opts.Stdout, report, f.pretty); err != nil {
					return err
				}
				for _, w := range report.Warnings {
					fmt.Fprintln(opts.Stderr, "warning:", w)
				}
				if f.strict && len(report.Warnings) > 0 {
					return fmt.Errorf("%d consistency warning(s)", len(report.Warnings))
				}
				return nil
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&f.statement, "statement", "", "balance-sheet, income-statement or cash-flow (required)")
	cmd.Flags().StringVar(&f.standard, "standard", "", "accounting standard, defaults to the configured one")
	cmd.Flags().StringVar(&f.asOf, "as-of", "", "balance sheet date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.periodEnd, "period-end", "", "flow statement end date (YYYY-MM-DD), defaults to the fiscal year end")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "exit non-zero when consistency warnings are raised")
	_ = cmd.MarkFlagRequired("statement")
	return cmd
}

func (f generateFlags) request() (statements.Request, error) {
	if err := f.validate(); err != nil {
		return statements.Request{}, err
	}
	kind, err := statements.ParseStatementType(f.statement)
	if err != nil {
		return statements.Request{}, err
	}
	asOf, err := parseDateFlag("as-of", f.asOf)
	if err != nil {
		return statements.Request{}, err
	}
	periodEnd, err := parseDateFlag("period-end", f.periodEnd)
	if err != nil {
		return statements.Request{}, err
	}
	return statements.Request{
		CompanyID:    f.companyID,
		FiscalYearID: f.fiscalYearID,
		Statement:    kind,
		Standard:     statements.ParseStandard(f.standard),
		AsOf:         deref(asOf),
		PeriodEnd:    deref(periodEnd),
	}, nil
}
