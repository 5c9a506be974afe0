package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
)

// Reference type tags recorded on entries produced by this module.
const (
	RefTypeStockIn        = "STOCK_IN"
	RefTypeStockOut       = "STOCK_OUT"
	RefTypeExpense        = "EXPENSE"
	RefTypePurchaseReturn = "PURCHASE_RETURN"
	RefTypeSalesReturn    = "SALES_RETURN"
	RefTypePeriodClosing  = "PERIOD_CLOSING"
	RefTypeReversal       = "REVERSAL"
)

// JournalEntry captures one balanced accounting transaction.
type JournalEntry struct {
	ID           int64
	Number       string
	PeriodID     int64
	Date         time.Time
	RefType      string
	SourceModule string
	SourceID     uuid.UUID
	Memo         string
	PostedBy     int64
	PostedAt     *time.Time
	Status       EntryStatus
	ReversalOf   *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []JournalLine
}

// Posted reports whether the entry is final on the ledger.
func (e JournalEntry) Posted() bool {
	return e.Status == EntryStatusPosted
}

// JournalLine stores the debit or credit amount for an account.
type JournalLine struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Memo      string
	CreatedAt time.Time
}

// FormatNumber renders the human-readable entry number from the store
// sequence. Uniqueness is the hard contract; the prefix is cosmetic.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("JRN-%06d", seq)
}
