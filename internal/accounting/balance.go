package accounting

import "github.com/shopspring/decimal"

// SignConvention controls whether a mapped amount is shown as-is or negated.
type SignConvention string

const (
	SignNatural SignConvention = "natural"
	SignInverse SignConvention = "inverse"
)

var (
	plusOne  = decimal.NewFromInt(1)
	minusOne = decimal.NewFromInt(-1)
)

// SplitBalance presents a signed (debit minus credit) balance as a debit/credit
// pair. A balance on the account's natural side is recorded on that side; a
// contra balance is recorded on the opposite side as an absolute value. At most
// one of the returned amounts is non-zero.
func SplitBalance(t AccountType, signed decimal.Decimal) (debit, credit decimal.Decimal) {
	if t.NaturalSide() == SideCredit {
		if signed.Sign() <= 0 {
			return decimal.Zero, signed.Neg()
		}
		return signed, decimal.Zero
	}
	if signed.Sign() >= 0 {
		return signed, decimal.Zero
	}
	return decimal.Zero, signed.Abs()
}

// SignMultiplier resolves the factor that turns a raw debit-minus-credit amount
// into its statement display sign. Credit-natural account types are negated
// first, then the line convention is applied. The rule is the same for
// point-in-time and period-movement amounts.
func SignMultiplier(t AccountType, conv SignConvention) decimal.Decimal {
	m := ConventionMultiplier(conv)
	if t.CreditNatural() {
		return m.Neg()
	}
	return m
}

// ConventionMultiplier is the line convention factor alone, for amounts that
// are already display-signed such as calculation lines.
func ConventionMultiplier(conv SignConvention) decimal.Decimal {
	if conv == SignInverse {
		return minusOne
	}
	return plusOne
}
