package statements

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/statements/internal/accounting/shared"
	_ "github.com/odyssey-erp/statements/internal/testing/guard"
)

func TestDefaultRegistryLoadsEmbeddedStandards(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	again, err := DefaultRegistry()
	require.NoError(t, err)
	require.Same(t, reg, again)

	infos := reg.Standards()
	require.Len(t, infos, 2)
	require.Equal(t, StandardIFRS, infos[0].Standard)
	require.Equal(t, StandardSYSCOHADA, infos[1].Standard)
	require.Equal(t, day("2018-01-01"), infos[1].EffectiveFrom)

	for _, std := range []Standard{StandardSYSCOHADA, StandardIFRS} {
		for _, st := range []StatementType{BalanceSheet, IncomeStatement, CashFlow} {
			def, err := reg.Definition(std, st)
			require.NoError(t, err, "%s/%s", std, st)
			require.NotEmpty(t, def.CashAccounts)
			for _, key := range st.Sections() {
				require.NotEmpty(t, def.Section(key), "%s/%s/%s", std, st, key)
			}
		}
	}
}

func TestDefinitionSectionNeverNil(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	def, ok := reg.Lookup(StandardSYSCOHADA, BalanceSheet)
	require.True(t, ok)
	cats := def.Section(SectionRevenue)
	require.NotNil(t, cats)
	require.Empty(t, cats)
}

func TestRegistryMissesAreClassified(t *testing.T) {
	reg, err := NewRegistry([]byte(`
standard: local
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET:
    assets:
      - name: Assets
        lines:
          - name: Everything
            accounts: ["2*", "3*", "4*", "5*"]
`))
	require.NoError(t, err)

	_, err = reg.Definition("LOCAL", BalanceSheet)
	require.NoError(t, err, "standard names are upper-cased at load")

	_, err = reg.Definition("LOCAL", IncomeStatement)
	require.ErrorIs(t, err, shared.ErrMappingNotConfigured)
	require.True(t, shared.IsConfigurationFault(err))
	require.False(t, shared.IsNotFound(err))

	_, err = reg.Definition("US_GAAP", BalanceSheet)
	require.ErrorIs(t, err, shared.ErrStandardNotFound)
	require.True(t, shared.IsNotFound(err))

	_, ok := reg.Lookup("LOCAL", CashFlow)
	require.False(t, ok)

	require.True(t, reg.Known("LOCAL"))
	require.False(t, reg.Known("US_GAAP"))
}

func TestRegistryRejectsInvalidMappings(t *testing.T) {
	cases := map[string]string{
		"bad pattern": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET:
    assets:
      - name: Assets
        lines:
          - name: Wildcard in the middle
            accounts: ["4*1"]
`,
		"header with accounts": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET:
    assets:
      - name: Assets
        lines:
          - name: Header
            kind: header
            accounts: ["41*"]
`,
		"line without accounts": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  INCOME_STATEMENT:
    revenue:
      - name: Revenue
        categories:
          - name: Nested
            lines:
              - name: Sales
`,
		"section of another statement": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET:
    revenue:
      - name: Revenue
        lines:
          - name: Sales
            accounts: ["70*"]
`,
		"unknown sign": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  CASH_FLOW:
    operating_activities:
      - name: Operating
        lines:
          - name: Income
            sign: reversed
            accounts: ["7*"]
`,
		"missing effective date": `
standard: X
version: "1"
cash_accounts: ["5*"]
statements:
  CASH_FLOW: {}
`,
		"unknown account type": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET:
    assets:
      - name: Assets
        lines:
          - name: Receivables
            accounts: ["4*"]
            types: [DEBTOR]
`,
		"subtotal with types": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET:
    assets:
      - name: Assets
        lines:
          - name: Total
            kind: subtotal
            types: [ASSET]
`,
		"calculation without ref": `
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET:
    equity:
      - name: Equity
        lines:
          - name: Result
            kind: calculation
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry([]byte(doc))
			require.ErrorIs(t, err, shared.ErrInvalidMapping)
			require.True(t, shared.IsConfigurationFault(err))
		})
	}
}

func TestRegistryRejectsDuplicateStandard(t *testing.T) {
	doc := []byte(`
standard: X
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  BALANCE_SHEET: {}
`)
	_, err := NewRegistry(doc, doc)
	require.ErrorIs(t, err, shared.ErrInvalidMapping)
}

func TestLoadRegistryFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"maps/a.yaml": {Data: []byte(`
standard: A
version: "1"
effective_from: "2024-01-01"
cash_accounts: ["5*"]
statements:
  CASH_FLOW: {}
`)},
	}
	reg, err := LoadRegistry(fsys, "maps/*.yaml")
	require.NoError(t, err)
	def, err := reg.Definition("A", CashFlow)
	require.NoError(t, err)
	require.Empty(t, def.Section(SectionOperating))

	_, err = LoadRegistry(fsys, "none/*.yaml")
	require.ErrorIs(t, err, shared.ErrInvalidMapping)
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, code string
		want          bool
	}{
		{"411", "411", true},
		{"411", "4111", false},
		{"41*", "411", true},
		{"41*", "41", true},
		{"41*", "4011", false},
		{"6031*", "603", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MatchPattern(tc.pattern, tc.code), "%s ~ %s", tc.pattern, tc.code)
	}
}

func TestParseStatementType(t *testing.T) {
	st, err := ParseStatementType("balance-sheet")
	require.NoError(t, err)
	require.Equal(t, BalanceSheet, st)
	require.False(t, st.Flow())

	st, err = ParseStatementType("CASH_FLOW")
	require.NoError(t, err)
	require.True(t, st.Flow())

	_, err = ParseStatementType("equity-changes")
	require.True(t, shared.IsInvalidInput(err))
}
