package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation indicates malformed input rejected before any write.
	ErrValidation = errors.New("ledger: invalid input")
	// ErrUnbalanced indicates debit and credit totals differ beyond tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrNotFound indicates a referenced account, period, or entry does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrImmutableEntry indicates mutation of a posted entry or an entry in a closed period.
	ErrImmutableEntry = errors.New("ledger: entry is immutable")
	// ErrPeriodClosed indicates a write against a closed period.
	ErrPeriodClosed = errors.New("ledger: period is closed")
	// ErrAlreadyClosed indicates closing a period that is already closed or being closed.
	ErrAlreadyClosed = errors.New("ledger: period already closed")
	// ErrNotClosable indicates the period failed close validation.
	ErrNotClosable = errors.New("ledger: period cannot be closed")
	// ErrDuplicateCode indicates an account code collision.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrAccountInUse indicates an account with journal activity cannot be removed.
	ErrAccountInUse = errors.New("ledger: account has journal activity")
	// ErrSourceAlreadyLinked indicates an idempotency conflict on the source link.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked")
	// ErrInvalidPeriod indicates a missing or non-open period.
	ErrInvalidPeriod = errors.New("ledger: period is not open")
	// ErrDateOutOfRange indicates an entry date outside its period window.
	ErrDateOutOfRange = errors.New("ledger: date outside period")
	// ErrMappingNotFound indicates an account mapping is missing.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
)

// UnbalancedEntryError carries both totals for diagnostics. It unwraps to
// ErrUnbalanced so callers can match with errors.Is.
type UnbalancedEntryError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("ledger: journal lines must balance (debit %s, credit %s)", e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *UnbalancedEntryError) Unwrap() error {
	return ErrUnbalanced
}
