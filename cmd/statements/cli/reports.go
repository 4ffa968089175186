package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

func newTrialBalanceCommand(opts Options) *cobra.Command {
	var (
		s    scope
		asOf string
	)
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.validate(); err != nil {
				return err
			}
			at, err := parseDateFlag("as-of", asOf)
			if err != nil {
				return err
			}
			return withBackend(cmd, opts, func(b Backend) error {
				tb, err := b.TrialBalance.Build(cmd.Context(), s.companyID, s.fiscalYearID, deref(at))
				if err != nil {
					return err
				}
				return writeJSON(opts.Stdout, tb, s.pretty)
			})
		},
	}
	s.bind(cmd)
	cmd.Flags().StringVar(&asOf, "as-of", "", "closing date (YYYY-MM-DD), defaults to the fiscal year end")
	return cmd
}

func newLedgerCommand(opts Options) *cobra.Command {
	var (
		s        scope
		code     string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print the general ledger of one account as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.validate(); err != nil {
				return err
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return shared.Invalid("--account is required")
			}
			start, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			end, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}
			return withBackend(cmd, opts, func(b Backend) error {
				gl, err := b.Ledger.BuildByCode(cmd.Context(), s.companyID, s.fiscalYearID, code, start, end)
				if err != nil {
					return err
				}
				return writeJSON(opts.Stdout, gl, s.pretty)
			})
		},
	}
	s.bind(cmd)
	cmd.Flags().StringVar(&code, "account", "", "account code (required)")
	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD), defaults to the fiscal year start")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD), defaults to the fiscal year end")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
