package statements

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/statements/internal/accounting"
	"github.com/odyssey-erp/statements/internal/accounting/reports"
)

// AccountAmount is one account's contribution to a resolved line.
type AccountAmount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// ResolvedLine is a line definition with its computed amount.
type ResolvedLine struct {
	Name     string          `json:"name"`
	Ref      string          `json:"ref,omitempty"`
	Kind     LineKind        `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	Accounts []AccountAmount `json:"accounts,omitempty"`
}

// ResolvedCategory is a category node with computed lines, children and total.
type ResolvedCategory struct {
	Name         string             `json:"name"`
	Ref          string             `json:"ref,omitempty"`
	DisplayOrder *int               `json:"display_order,omitempty"`
	Lines        []ResolvedLine     `json:"lines"`
	Categories   []ResolvedCategory `json:"categories,omitempty"`
	Total        decimal.Decimal    `json:"total"`
}

// Resolution is the outcome of resolving one section.
type Resolution struct {
	Categories []ResolvedCategory `json:"categories"`
	Total      decimal.Decimal    `json:"total"`
	matched    map[int64]struct{}
}

// Covers reports whether any line of the section matched the account.
func (r Resolution) Covers(accountID int64) bool {
	_, ok := r.matched[accountID]
	return ok
}

// Contribution converts a trial balance line to its display-signed amount for
// a line with the given convention. Point-in-time statements read the closing
// balance; flow statements read the period movement.
func Contribution(line reports.TrialBalanceLine, flow bool, conv accounting.SignConvention) decimal.Decimal {
	raw := line.ClosingBalance()
	if flow {
		raw = line.PeriodNet()
	}
	return raw.Mul(accounting.SignMultiplier(line.Type, conv))
}

// Resolve computes amounts for a category tree against trial balance lines.
// calculations supplies amounts of calculation lines keyed by ref. Resolve is
// pure: identical inputs give identical output.
func Resolve(categories []CategoryDefinition, lines []reports.TrialBalanceLine, flow bool, calculations map[string]decimal.Decimal) Resolution {
	r := resolver{lines: lines, flow: flow, calcs: calculations, matched: make(map[int64]struct{})}
	res := Resolution{Total: decimal.Zero, matched: r.matched}
	for _, cat := range sortCategories(categories) {
		rc := r.category(cat)
		res.Total = res.Total.Add(rc.Total)
		res.Categories = append(res.Categories, rc)
	}
	if res.Categories == nil {
		res.Categories = []ResolvedCategory{}
	}
	return res
}

type resolver struct {
	lines   []reports.TrialBalanceLine
	flow    bool
	calcs   map[string]decimal.Decimal
	matched map[int64]struct{}
}

func (r resolver) category(def CategoryDefinition) ResolvedCategory {
	out := ResolvedCategory{
		Name:         def.Name,
		Ref:          def.Ref,
		DisplayOrder: def.DisplayOrder,
		Lines:        make([]ResolvedLine, 0, len(def.Lines)),
		Total:        decimal.Zero,
	}
	running := decimal.Zero
	for _, ld := range def.Lines {
		line := ResolvedLine{Name: ld.Name, Ref: ld.Ref, Kind: ld.EffectiveKind(), Amount: decimal.Zero}
		switch line.Kind {
		case KindLine:
			line.Amount, line.Accounts = r.match(ld)
			running = running.Add(line.Amount)
			out.Total = out.Total.Add(line.Amount)
		case KindCalculation:
			if v, ok := r.calcs[ld.Ref]; ok {
				line.Amount = v.Mul(accounting.ConventionMultiplier(ld.EffectiveSign()))
			}
			running = running.Add(line.Amount)
			out.Total = out.Total.Add(line.Amount)
		case KindSubtotal:
			line.Amount = running
		}
		out.Lines = append(out.Lines, line)
	}
	for _, child := range sortCategories(def.Categories) {
		rc := r.category(child)
		out.Total = out.Total.Add(rc.Total)
		out.Categories = append(out.Categories, rc)
	}
	return out
}

// match sums contributions of every account the line accepts. An account
// counts once per line even when several patterns match it.
func (r resolver) match(def LineDefinition) (decimal.Decimal, []AccountAmount) {
	total := decimal.Zero
	var accounts []AccountAmount
	conv := def.EffectiveSign()
	for _, tbl := range r.lines {
		if !def.Matches(tbl.Code, tbl.Type) {
			continue
		}
		r.matched[tbl.AccountID] = struct{}{}
		amount := Contribution(tbl, r.flow, conv)
		total = total.Add(amount)
		accounts = append(accounts, AccountAmount{AccountID: tbl.AccountID, Code: tbl.Code, Name: tbl.Name, Amount: amount})
	}
	sort.SliceStable(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return total, accounts
}

func matchesAny(patterns []string, code string) bool {
	for _, p := range patterns {
		if MatchPattern(p, code) {
			return true
		}
	}
	return false
}

// sortCategories orders siblings by display order, undefined last, keeping
// authored order among equals.
func sortCategories(cats []CategoryDefinition) []CategoryDefinition {
	out := make([]CategoryDefinition, len(cats))
	copy(out, cats)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DisplayOrder, out[j].DisplayOrder
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
	return out
}
