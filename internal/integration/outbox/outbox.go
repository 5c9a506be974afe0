package outbox

import (
	"context"
	"time"
)

// Status of a parked event.
const (
	StatusPending = "PENDING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

// MaxAttempts before a record stops being retried and needs a human.
const MaxAttempts = 10

// Record is a source module event whose ledger posting failed and is
// waiting for redelivery.
type Record struct {
	ID        int64
	Kind      string
	Payload   []byte
	Attempts  int
	LastError string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists parked events.
type Store interface {
	Append(ctx context.Context, kind string, payload []byte, lastError string) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Pending(ctx context.Context, limit int) ([]Record, error)
	MarkDone(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, lastError string) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
}

// Enqueuer schedules a redelivery attempt for a parked record.
type Enqueuer interface {
	EnqueueRetry(ctx context.Context, recordID int64) error
}
