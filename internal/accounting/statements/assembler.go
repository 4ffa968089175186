package statements

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/reports"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

// TrialBalanceSource builds the trial balance a statement is derived from.
type TrialBalanceSource interface {
	Build(ctx context.Context, companyID, fiscalYearID int64, asOf time.Time) (reports.TrialBalance, error)
}

// Request selects the statement to generate. AsOf is required for balance
// sheets; PeriodEnd defaults to the fiscal year end for flow statements.
type Request struct {
	CompanyID    int64         `json:"company_id"`
	FiscalYearID int64         `json:"fiscal_year_id"`
	Statement    StatementType `json:"statement"`
	Standard     Standard      `json:"standard,omitempty"`
	AsOf         time.Time     `json:"as_of,omitempty"`
	PeriodEnd    time.Time     `json:"period_end,omitempty"`
}

// Section is one resolved top-level section.
type Section struct {
	Key        SectionKey         `json:"key"`
	Categories []ResolvedCategory `json:"categories"`
	Total      decimal.Decimal    `json:"total"`
}

// BalanceSheetTotals aggregates balance sheet sections.
type BalanceSheetTotals struct {
	TotalAssets               decimal.Decimal `json:"total_assets"`
	TotalLiabilities          decimal.Decimal `json:"total_liabilities"`
	TotalEquity               decimal.Decimal `json:"total_equity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	NetIncome                 decimal.Decimal `json:"net_income"`
	Difference                decimal.Decimal `json:"difference"`
	Balanced                  bool            `json:"balanced"`
}

// IncomeStatementTotals aggregates income statement sections.
type IncomeStatementTotals struct {
	Revenue           decimal.Decimal `json:"revenue"`
	CostOfSales       decimal.Decimal `json:"cost_of_sales"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	OperatingIncome   decimal.Decimal `json:"operating_income"`
	OtherIncome       decimal.Decimal `json:"other_income"`
	OtherExpenses     decimal.Decimal `json:"other_expenses"`
	EarningsBeforeTax decimal.Decimal `json:"earnings_before_tax"`
	IncomeTax         decimal.Decimal `json:"income_tax"`
	NetIncome         decimal.Decimal `json:"net_income"`
}

// CashFlowTotals aggregates cash flow sections and the cash reconciliation.
type CashFlowTotals struct {
	Operating         decimal.Decimal `json:"operating"`
	Investing         decimal.Decimal `json:"investing"`
	Financing         decimal.Decimal `json:"financing"`
	NetIncreaseInCash decimal.Decimal `json:"net_increase_in_cash"`
	OpeningCash       decimal.Decimal `json:"opening_cash"`
	ClosingCash       decimal.Decimal `json:"closing_cash"`
	Difference        decimal.Decimal `json:"difference"`
	Reconciled        bool            `json:"reconciled"`
}

// UnmappedAccount is an account carrying an amount no statement line picked up.
type UnmappedAccount struct {
	AccountID int64                  `json:"account_id"`
	Code      string                 `json:"code"`
	Name      string                 `json:"name"`
	Type      accounting.AccountType `json:"type"`
	Amount    decimal.Decimal        `json:"amount"`
}

// Report is a generated financial statement.
type Report struct {
	CompanyID       int64                  `json:"company_id"`
	FiscalYearID    int64                  `json:"fiscal_year_id"`
	FiscalYear      string                 `json:"fiscal_year"`
	Statement       StatementType          `json:"statement"`
	Standard        Standard               `json:"standard"`
	MappingVersion  string                 `json:"mapping_version"`
	PeriodStart     time.Time              `json:"period_start"`
	AsOf            time.Time              `json:"as_of"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Sections        []Section              `json:"sections"`
	BalanceSheet    *BalanceSheetTotals    `json:"balance_sheet,omitempty"`
	IncomeStatement *IncomeStatementTotals `json:"income_statement,omitempty"`
	CashFlow        *CashFlowTotals        `json:"cash_flow,omitempty"`
	Unmapped        []UnmappedAccount      `json:"unmapped,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
	Notes           string                 `json:"notes"`
}

// Section returns the resolved section for key, or an empty one.
func (r Report) Section(key SectionKey) Section {
	for _, s := range r.Sections {
		if s.Key == key {
			return s
		}
	}
	return Section{Key: key, Categories: []ResolvedCategory{}, Total: decimal.Zero}
}

// Assembler orchestrates statement generation.
type Assembler struct {
	registry        *Registry
	calendar        reports.FiscalCalendar
	trial           TrialBalanceSource
	logger          *slog.Logger
	metrics         *Metrics
	defaultStandard Standard
	tolerance       decimal.Decimal
	clock           func() time.Time
	printer         *message.Printer
}

// NewAssembler constructs an Assembler.
func NewAssembler(registry *Registry, calendar reports.FiscalCalendar, trial TrialBalanceSource, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		registry:        registry,
		calendar:        calendar,
		trial:           trial,
		logger:          logger,
		defaultStandard: StandardSYSCOHADA,
		tolerance:       reports.DefaultTolerance,
		clock:           time.Now,
		printer:         message.NewPrinter(language.English),
	}
}

// WithMetrics attaches Prometheus collectors.
func (a *Assembler) WithMetrics(m *Metrics) *Assembler {
	a.metrics = m
	return a
}

// WithDefaultStandard sets the standard used when a request names none.
func (a *Assembler) WithDefaultStandard(std Standard) *Assembler {
	if std != "" {
		a.defaultStandard = std
	}
	return a
}

// WithTolerance overrides the consistency check tolerance.
func (a *Assembler) WithTolerance(tol decimal.Decimal) *Assembler {
	if tol.IsPositive() {
		a.tolerance = tol
	}
	return a
}

// WithClock overrides the generation timestamp source.
func (a *Assembler) WithClock(clock func() time.Time) *Assembler {
	if clock != nil {
		a.clock = clock
	}
	return a
}

// DefaultStandard returns the standard applied to requests that omit one.
func (a *Assembler) DefaultStandard() Standard {
	return a.defaultStandard
}

// BalanceSheet generates the balance sheet as of asOf.
func (a *Assembler) BalanceSheet(ctx context.Context, companyID, fiscalYearID int64, asOf time.Time, std Standard) (Report, error) {
	return a.Generate(ctx, Request{CompanyID: companyID, FiscalYearID: fiscalYearID, Statement: BalanceSheet, Standard: std, AsOf: asOf})
}

// IncomeStatement generates the income statement from the fiscal year start to periodEnd.
func (a *Assembler) IncomeStatement(ctx context.Context, companyID, fiscalYearID int64, periodEnd time.Time, std Standard) (Report, error) {
	return a.Generate(ctx, Request{CompanyID: companyID, FiscalYearID: fiscalYearID, Statement: IncomeStatement, Standard: std, PeriodEnd: periodEnd})
}

// CashFlow generates the cash flow statement from the fiscal year start to periodEnd.
func (a *Assembler) CashFlow(ctx context.Context, companyID, fiscalYearID int64, periodEnd time.Time, std Standard) (Report, error) {
	return a.Generate(ctx, Request{CompanyID: companyID, FiscalYearID: fiscalYearID, Statement: CashFlow, Standard: std, PeriodEnd: periodEnd})
}

// Generate produces a complete report or fails as a whole. Consistency
// problems are reported in Notes and never fail generation.
func (a *Assembler) Generate(ctx context.Context, req Request) (Report, error) {
	start := time.Now()
	if req.Standard == "" {
		req.Standard = a.defaultStandard
	}
	report, err := a.generate(ctx, req)
	statement, std := a.metricLabels(req)
	a.metrics.observe(statement, std, err, time.Since(start))
	logger := a.logger.With(
		slog.Int64("company_id", req.CompanyID),
		slog.Int64("fiscal_year_id", req.FiscalYearID),
		slog.String("statement", string(req.Statement)),
		slog.String("standard", string(req.Standard)),
	)
	switch {
	case err == nil:
		for _, w := range report.Warnings {
			logger.Warn("statement consistency warning", slog.String("warning", w))
		}
		logger.Info("statement generated", slog.Duration("duration", time.Since(start)))
	case shared.IsConfigurationFault(err):
		logger.Error("statement mapping configuration fault", slog.Any("error", err))
	case shared.IsNotFound(err), shared.IsInvalidInput(err):
		logger.Debug("statement request rejected", slog.Any("error", err))
	default:
		logger.Error("statement generation failed", slog.Any("error", err))
	}
	return report, err
}

// metricLabels keeps label values within the known statement types and the
// loaded standards; anything else is reported as unknown.
func (a *Assembler) metricLabels(req Request) (StatementType, Standard) {
	statement, err := ParseStatementType(string(req.Statement))
	if err != nil {
		statement = unknownLabel
	}
	std := req.Standard
	if !a.registry.Known(std) {
		std = unknownLabel
	}
	return statement, std
}

func (a *Assembler) generate(ctx context.Context, req Request) (Report, error) {
	if req.CompanyID <= 0 {
		return Report{}, shared.Invalid("company_id must be positive")
	}
	if req.FiscalYearID <= 0 {
		return Report{}, shared.Invalid("fiscal_year_id must be positive")
	}
	statement, err := ParseStatementType(string(req.Statement))
	if err != nil {
		return Report{}, err
	}
	if statement == BalanceSheet && req.AsOf.IsZero() {
		return Report{}, shared.Invalid("as_of date is required for the balance sheet")
	}

	fy, err := a.calendar.FindFiscalYear(ctx, req.FiscalYearID)
	if err != nil {
		return Report{}, err
	}
	if fy.CompanyID != 0 && fy.CompanyID != req.CompanyID {
		return Report{}, shared.ErrFiscalYearNotFound
	}
	def, err := a.registry.Definition(req.Standard, statement)
	if err != nil {
		return Report{}, err
	}

	ref := req.AsOf
	if statement.Flow() {
		ref = req.PeriodEnd
	}
	ref, err = reports.ResolveAsOf(fy, ref)
	if err != nil {
		return Report{}, err
	}

	tb, err := a.trial.Build(ctx, req.CompanyID, req.FiscalYearID, ref)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		CompanyID:      req.CompanyID,
		FiscalYearID:   req.FiscalYearID,
		FiscalYear:     fy.Code,
		Statement:      statement,
		Standard:       def.Standard,
		MappingVersion: def.Version,
		PeriodStart:    tb.PeriodStart,
		AsOf:           tb.AsOf,
		GeneratedAt:    a.clock().UTC(),
	}

	lines := tb.Lines
	var cash []reports.TrialBalanceLine
	if statement == CashFlow {
		lines, cash = splitCash(tb.Lines, def.CashAccounts)
	}
	calcs := map[string]decimal.Decimal{RefNetIncome: netIncome(tb.Lines, statement.Flow())}

	resolutions := make([]Resolution, 0, len(statement.Sections()))
	for _, key := range statement.Sections() {
		res := Resolve(def.Section(key), lines, statement.Flow(), calcs)
		resolutions = append(resolutions, res)
		report.Sections = append(report.Sections, Section{Key: key, Categories: res.Categories, Total: res.Total})
	}

	switch statement {
	case BalanceSheet:
		a.balanceSheetTotals(&report, calcs[RefNetIncome])
	case IncomeStatement:
		a.incomeStatementTotals(&report)
	case CashFlow:
		a.cashFlowTotals(&report, cash)
	}

	if !tb.Balanced {
		a.addWarning(&report, "trial_balance", a.printer.Sprintf(
			"Trial balance is not balanced: period debit %.2f, period credit %.2f.",
			tb.Totals.PeriodDebit.InexactFloat64(), tb.Totals.PeriodCredit.InexactFloat64()))
	}
	report.Unmapped = unmapped(lines, statement, resolutions)
	if len(report.Unmapped) > 0 {
		codes := make([]string, 0, len(report.Unmapped))
		for _, u := range report.Unmapped {
			codes = append(codes, u.Code)
		}
		a.addWarning(&report, "unmapped", fmt.Sprintf(
			"%d account(s) with amounts are not mapped to any line: %s.", len(codes), strings.Join(codes, ", ")))
	}
	report.Notes = strings.Join(report.Warnings, "\n")
	return report, nil
}

func (a *Assembler) balanceSheetTotals(report *Report, ni decimal.Decimal) {
	t := &BalanceSheetTotals{
		TotalAssets:      report.Section(SectionAssets).Total,
		TotalLiabilities: report.Section(SectionLiabilities).Total,
		TotalEquity:      report.Section(SectionEquity).Total,
		NetIncome:        ni,
	}
	t.TotalLiabilitiesAndEquity = t.TotalLiabilities.Add(t.TotalEquity)
	t.Difference = t.TotalAssets.Sub(t.TotalLiabilitiesAndEquity)
	t.Balanced = t.Difference.Abs().LessThanOrEqual(a.tolerance)
	report.BalanceSheet = t
	if !t.Balanced {
		a.addWarning(report, "balance_sheet", a.printer.Sprintf(
			"Balance sheet is out of balance: total assets %.2f, total liabilities and equity %.2f, difference %.2f.",
			t.TotalAssets.InexactFloat64(), t.TotalLiabilitiesAndEquity.InexactFloat64(), t.Difference.InexactFloat64()))
	}
}

func (a *Assembler) incomeStatementTotals(report *Report) {
	t := &IncomeStatementTotals{
		Revenue:           report.Section(SectionRevenue).Total,
		CostOfSales:       report.Section(SectionCostOfSales).Total,
		OperatingExpenses: report.Section(SectionOperatingExpenses).Total,
		OtherIncome:       report.Section(SectionOtherIncome).Total,
		OtherExpenses:     report.Section(SectionOtherExpenses).Total,
		IncomeTax:         report.Section(SectionIncomeTax).Total,
	}
	t.GrossProfit = t.Revenue.Sub(t.CostOfSales)
	t.OperatingIncome = t.GrossProfit.Sub(t.OperatingExpenses)
	t.EarningsBeforeTax = t.OperatingIncome.Add(t.OtherIncome).Sub(t.OtherExpenses)
	t.NetIncome = t.EarningsBeforeTax.Sub(t.IncomeTax)
	report.IncomeStatement = t
}

func (a *Assembler) cashFlowTotals(report *Report, cash []reports.TrialBalanceLine) {
	t := &CashFlowTotals{
		Operating:   report.Section(SectionOperating).Total,
		Investing:   report.Section(SectionInvesting).Total,
		Financing:   report.Section(SectionFinancing).Total,
		OpeningCash: decimal.Zero,
		ClosingCash: decimal.Zero,
	}
	t.NetIncreaseInCash = t.Operating.Add(t.Investing).Add(t.Financing)
	for _, line := range cash {
		t.OpeningCash = t.OpeningCash.Add(line.OpeningBalance())
		t.ClosingCash = t.ClosingCash.Add(line.ClosingBalance())
	}
	t.Difference = t.OpeningCash.Add(t.NetIncreaseInCash).Sub(t.ClosingCash)
	t.Reconciled = t.Difference.Abs().LessThanOrEqual(a.tolerance)
	report.CashFlow = t
	if !t.Reconciled {
		a.addWarning(report, "cash_reconciliation", a.printer.Sprintf(
			"Cash flow does not reconcile: opening cash %.2f plus net change %.2f differs from closing cash %.2f by %.2f.",
			t.OpeningCash.InexactFloat64(), t.NetIncreaseInCash.InexactFloat64(), t.ClosingCash.InexactFloat64(), t.Difference.InexactFloat64()))
	}
}

func (a *Assembler) addWarning(report *Report, check, text string) {
	report.Warnings = append(report.Warnings, text)
	a.metrics.warn(report.Statement, check)
}

// netIncome is the result carried by revenue and expense accounts, as credit
// minus debit. Balance sheets read closing balances, flow statements the period.
func netIncome(lines []reports.TrialBalanceLine, flow bool) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Type != accounting.AccountTypeRevenue && line.Type != accounting.AccountTypeExpense {
			continue
		}
		if flow {
			total = total.Sub(line.PeriodNet())
		} else {
			total = total.Sub(line.ClosingBalance())
		}
	}
	return total
}

func splitCash(lines []reports.TrialBalanceLine, patterns []string) (rest, cash []reports.TrialBalanceLine) {
	rest = make([]reports.TrialBalanceLine, 0, len(lines))
	for _, line := range lines {
		if matchesAny(patterns, line.Code) {
			cash = append(cash, line)
			continue
		}
		rest = append(rest, line)
	}
	return rest, cash
}

// unmapped lists accounts whose relevant amount is non-zero but that no
// section matched. Balance sheets cover revenue and expense accounts through
// the net income calculation.
func unmapped(lines []reports.TrialBalanceLine, statement StatementType, resolutions []Resolution) []UnmappedAccount {
	var out []UnmappedAccount
	for _, line := range lines {
		incomeType := line.Type == accounting.AccountTypeRevenue || line.Type == accounting.AccountTypeExpense
		amount := line.ClosingBalance()
		switch statement {
		case BalanceSheet:
			if incomeType {
				continue
			}
		case IncomeStatement:
			if !incomeType {
				continue
			}
			amount = line.PeriodNet()
		case CashFlow:
			amount = line.PeriodNet()
		}
		if amount.IsZero() || covered(resolutions, line.AccountID) {
			continue
		}
		out = append(out, UnmappedAccount{AccountID: line.AccountID, Code: line.Code, Name: line.Name, Type: line.Type, Amount: amount})
	}
	return out
}

func covered(resolutions []Resolution, accountID int64) bool {
	for _, r := range resolutions {
		if r.Covers(accountID) {
			return true
		}
	}
	return false
}
