// Package statements turns trial balances into financial statements using
// authored, per-standard account mappings.
package statements

import (
	"slices"
	"strings"
	"time"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/shared"
)

// Standard names an accounting standard.
type Standard string

const (
	StandardSYSCOHADA Standard = "SYSCOHADA"
	StandardIFRS      Standard = "IFRS"
)

// ParseStandard normalises a caller supplied standard name. It does not check
// the registry; unknown names are reported by Registry.Definition.
func ParseStandard(v string) Standard {
	return Standard(strings.ToUpper(strings.TrimSpace(v)))
}

// StatementType enumerates the generated statements.
type StatementType string

const (
	BalanceSheet    StatementType = "BALANCE_SHEET"
	IncomeStatement StatementType = "INCOME_STATEMENT"
	CashFlow        StatementType = "CASH_FLOW"
)

// ParseStatementType accepts both BALANCE_SHEET and balance-sheet spellings.
func ParseStatementType(v string) (StatementType, error) {
	t := StatementType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v), "-", "_")))
	switch t {
	case BalanceSheet, IncomeStatement, CashFlow:
		return t, nil
	}
	return "", shared.Invalid("unknown statement type %q", v)
}

// Flow reports whether the statement reads period movements rather than balances.
func (t StatementType) Flow() bool {
	return t == IncomeStatement || t == CashFlow
}

// Sections lists the top-level sections of the statement in display order.
func (t StatementType) Sections() []SectionKey {
	switch t {
	case BalanceSheet:
		return []SectionKey{SectionAssets, SectionLiabilities, SectionEquity}
	case IncomeStatement:
		return []SectionKey{SectionRevenue, SectionCostOfSales, SectionOperatingExpenses, SectionOtherIncome, SectionOtherExpenses, SectionIncomeTax}
	case CashFlow:
		return []SectionKey{SectionOperating, SectionInvesting, SectionFinancing}
	}
	return nil
}

// SectionKey identifies a top-level statement section.
type SectionKey string

const (
	SectionAssets            SectionKey = "assets"
	SectionLiabilities       SectionKey = "liabilities"
	SectionEquity            SectionKey = "equity"
	SectionRevenue           SectionKey = "revenue"
	SectionCostOfSales       SectionKey = "cost_of_sales"
	SectionOperatingExpenses SectionKey = "operating_expenses"
	SectionOtherIncome       SectionKey = "other_income"
	SectionOtherExpenses     SectionKey = "other_expenses"
	SectionIncomeTax         SectionKey = "income_tax"
	SectionOperating         SectionKey = "operating_activities"
	SectionInvesting         SectionKey = "investing_activities"
	SectionFinancing         SectionKey = "financing_activities"
)

// LineKind distinguishes account lines from structural lines.
type LineKind string

const (
	KindLine        LineKind = "line"
	KindHeader      LineKind = "header"
	KindSubtotal    LineKind = "subtotal"
	KindCalculation LineKind = "calculation"
)

// Reference codes of calculation lines filled by the assembler.
const (
	RefNetIncome = "NET_INCOME"
)

// LineDefinition maps account code patterns to one statement line. When Types
// is set, only accounts of those types match; chart classes that mix
// receivables and payables are split between lines this way.
type LineDefinition struct {
	Name     string                    `yaml:"name" validate:"required"`
	Ref      string                    `yaml:"ref,omitempty"`
	Kind     LineKind                  `yaml:"kind,omitempty" validate:"omitempty,oneof=line header subtotal calculation"`
	Sign     accounting.SignConvention `yaml:"sign,omitempty" validate:"omitempty,oneof=natural inverse"`
	Accounts []string                  `yaml:"accounts,omitempty" validate:"dive,account_pattern"`
	Types    []accounting.AccountType  `yaml:"types,omitempty" validate:"dive,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

// Matches reports whether an account falls on the line.
func (l LineDefinition) Matches(code string, t accounting.AccountType) bool {
	if len(l.Types) > 0 && !slices.Contains(l.Types, t) {
		return false
	}
	for _, p := range l.Accounts {
		if MatchPattern(p, code) {
			return true
		}
	}
	return false
}

// EffectiveKind defaults an empty kind to a regular account line.
func (l LineDefinition) EffectiveKind() LineKind {
	if l.Kind == "" {
		return KindLine
	}
	return l.Kind
}

// EffectiveSign defaults an empty convention to natural.
func (l LineDefinition) EffectiveSign() accounting.SignConvention {
	if l.Sign == "" {
		return accounting.SignNatural
	}
	return l.Sign
}

// CategoryDefinition is a node of the authored category tree. Each node owns
// its lines and children outright.
type CategoryDefinition struct {
	Name         string               `yaml:"name" validate:"required"`
	Ref          string               `yaml:"ref,omitempty"`
	DisplayOrder *int                 `yaml:"display_order,omitempty"`
	Lines        []LineDefinition     `yaml:"lines,omitempty" validate:"dive"`
	Categories   []CategoryDefinition `yaml:"categories,omitempty" validate:"dive"`
}

// Definition is the mapping of one statement type under one standard.
type Definition struct {
	Standard      Standard
	Version       string
	EffectiveFrom time.Time
	Statement     StatementType
	CashAccounts  []string
	sections      map[SectionKey][]CategoryDefinition
}

// Section returns the category trees of a section. Sections the statement
// does not use are empty, never nil.
func (d Definition) Section(key SectionKey) []CategoryDefinition {
	if cats, ok := d.sections[key]; ok && cats != nil {
		return cats
	}
	return []CategoryDefinition{}
}

// MatchPattern reports whether an account code matches an authored pattern:
// exact equality, or prefix match when the pattern ends with '*'.
func MatchPattern(pattern, code string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(code, prefix)
	}
	return pattern == code
}
