package periods

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodStatus enumerates valid period states. A period transitions
// OPEN -> CLOSED exactly once; there is no unclose.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Period represents a fiscal period window.
type Period struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	IsActive  bool
	ClosedBy  *int64
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Closed reports whether the period has been closed.
func (p Period) Closed() bool {
	return p.Status == PeriodStatusClosed
}

// Contains reports whether a date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// OpeningBalance is the carried-forward balance of one account at the start
// of one period. The (AccountID, PeriodID) pair is unique.
type OpeningBalance struct {
	ID        int64
	AccountID int64
	PeriodID  int64
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
