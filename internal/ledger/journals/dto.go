package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arthapos/ledger/internal/ledger/shared"
)

// PostingLineInput describes a journal line for a posting request. A
// well-formed line carries one of debit/credit, but the engine validates the
// sums, not per-line exclusivity; legacy callers send both on one line.
type PostingLineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Memo      string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	PeriodID     int64
	Date         time.Time
	RefType      string
	SourceModule string
	SourceID     uuid.UUID
	Memo         string
	PostedBy     int64
	AsDraft      bool
	Lines        []PostingLineInput

	// reversalOf links a reversal posting back to its original entry. Only
	// the reversal path inside this package sets it.
	reversalOf int64
}

// Validate enforces the double-entry law: non-negative line amounts and
// debit/credit totals equal within shared.Tolerance. Both sides of each
// generated entry should be built from the same source amount; the tolerance
// exists for legacy-entered data only.
func (in PostingInput) Validate() error {
	if in.PeriodID == 0 {
		return fmt.Errorf("%w: period required", shared.ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: entry date required", shared.ErrValidation)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: entry requires lines", shared.ErrValidation)
	}
	if in.SourceModule == "" {
		return fmt.Errorf("%w: source module required", shared.ErrValidation)
	}
	if in.SourceID == uuid.Nil {
		return fmt.Errorf("%w: source id required", shared.ErrValidation)
	}
	var debit, credit decimal.Decimal
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("%w: line %d missing account", shared.ErrValidation, idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d negative amount", shared.ErrValidation, idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !shared.WithinTolerance(debit, credit) {
		return &shared.UnbalancedEntryError{Debit: debit, Credit: credit}
	}
	return nil
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID    int64
	ActorID    int64
	Memo       string
	TargetDate *time.Time
}
