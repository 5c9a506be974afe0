package closing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Issue is one blocking condition found during pre-close validation.
type Issue struct {
	Code    string
	Message string
}

// Issue codes reported by ValidateClosable.
const (
	IssueDraftsPending   = "drafts_pending"
	IssueUnbalanced      = "unbalanced_entries"
	IssueNoRetainedEarns = "missing_retained_earnings_mapping"
	IssueNoNextPeriod    = "no_successor_period"
)

// Line is one leg of a closing entry.
type Line struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Memo      string
}

// EntryInput is a closing entry handed to the repository for insertion. The
// entry is posted immediately with ref type PERIOD_CLOSING.
type EntryInput struct {
	PeriodID int64
	Date     time.Time
	SourceID uuid.UUID
	Memo     string
	PostedBy int64
	Lines    []Line
}

// Result summarizes a completed close.
type Result struct {
	PeriodID       int64
	NextPeriodID   int64
	NetIncome      decimal.Decimal
	ClosingEntries []string
	CarriedForward int
	ClosedAt       time.Time
}
