package balances

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/accounts"
)

// Query scopes balance reads to a period, optionally narrowed to a date
// range inside it. Zero From/To mean the full period.
type Query struct {
	PeriodID int64
	From     *time.Time
	To       *time.Time
}

// AccountBalance is the computed position of one account in a period.
type AccountBalance struct {
	AccountID   int64
	Code        string
	Name        string
	Type        accounts.AccountType
	Opening     decimal.Decimal
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
	Ending      decimal.Decimal
}

// AccountTotals is the raw per-account aggregation a repository returns.
type AccountTotals struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	IsActive  bool
	Opening   decimal.Decimal
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// TrialBalanceRow places one account's ending balance in its display column.
type TrialBalanceRow struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// TrialBalance lists every active account's position and whether the books
// hold the debit = credit identity.
type TrialBalance struct {
	PeriodID    int64
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsBalanced  bool
}

// LedgerLine is one posting against an account with the running balance
// after it was applied.
type LedgerLine struct {
	EntryID int64
	Number  string
	Date    time.Time
	Memo    string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Running decimal.Decimal
}

// RunningLedger is the chronological activity of one account.
type RunningLedger struct {
	AccountID int64
	Opening   decimal.Decimal
	Lines     []LedgerLine
	Ending    decimal.Decimal
}
