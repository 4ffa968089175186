package accounting

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// ParseAccountType normalises a stored type label. Unknown labels are returned as-is.
func ParseAccountType(raw string) AccountType {
	return AccountType(strings.ToUpper(strings.TrimSpace(raw)))
}

// Valid reports whether the type is one of the five CoA categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// BalanceSide is the debit or credit side of a balance.
type BalanceSide string

const (
	SideDebit  BalanceSide = "DEBIT"
	SideCredit BalanceSide = "CREDIT"
)

// NaturalSide returns the side on which the account type normally carries a
// positive balance. Unknown types are treated as debit-natural.
func (t AccountType) NaturalSide() BalanceSide {
	switch t {
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return SideCredit
	default:
		return SideDebit
	}
}

// CreditNatural is shorthand for NaturalSide() == SideCredit.
func (t AccountType) CreditNatural() bool {
	return t.NaturalSide() == SideCredit
}

// PostingStatus enumerates journal line lifecycle values.
type PostingStatus string

const (
	PostingStatusDraft     PostingStatus = "DRAFT"
	PostingStatusPosted    PostingStatus = "POSTED"
	PostingStatusCancelled PostingStatus = "CANCELLED"
)

// Account models a chart of accounts node scoped to a company and fiscal year.
type Account struct {
	ID           int64       `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Type         AccountType `json:"type"`
	CompanyID    int64       `json:"company_id"`
	FiscalYearID int64       `json:"fiscal_year_id"`
	IsActive     bool        `json:"is_active"`
}

// PostingLine stores the debit or credit amount booked on an account by a journal.
type PostingLine struct {
	ID            int64
	JournalID     int64
	JournalNumber int64
	AccountID     int64
	Date          time.Time
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Memo          string
	Status        PostingStatus
}

// Counts reports whether the line participates in balance computation.
func (l PostingLine) Counts() bool {
	return l.Status == PostingStatusPosted
}

// PostingFilter narrows posted line lookups. Nil dates are unbounded.
type PostingFilter struct {
	CompanyID    int64
	FiscalYearID int64
	DateFrom     *time.Time
	DateTo       *time.Time
}

// FiscalYear represents a company's fiscal window. EndDate is nil while the year is open-ended.
type FiscalYear struct {
	ID        int64
	CompanyID int64
	Code      string
	StartDate time.Time
	EndDate   *time.Time
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
