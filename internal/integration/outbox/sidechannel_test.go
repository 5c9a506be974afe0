package outbox

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arthapos/ledger/internal/integration"
	"github.com/arthapos/ledger/internal/ledger/journals"
	"github.com/arthapos/ledger/internal/ledger/periods"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

type memoryStore struct {
	records map[int64]Record
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]Record)}
}

func (s *memoryStore) Append(ctx context.Context, kind string, payload []byte, lastError string) (Record, error) {
	s.nextID++
	r := Record{ID: s.nextID, Kind: kind, Payload: payload, LastError: lastError, Status: StatusPending, CreatedAt: time.Now()}
	s.records[r.ID] = r
	return r, nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (Record, error) {
	r, ok := s.records[id]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	return r, nil
}

func (s *memoryStore) Pending(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	for _, r := range s.records {
		if r.Status == StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) MarkDone(ctx context.Context, id int64) error {
	r := s.records[id]
	r.Status = StatusDone
	s.records[id] = r
	return nil
}

func (s *memoryStore) MarkRetry(ctx context.Context, id int64, lastError string) error {
	r := s.records[id]
	r.Attempts++
	r.LastError = lastError
	s.records[id] = r
	return nil
}

func (s *memoryStore) MarkFailed(ctx context.Context, id int64, lastError string) error {
	r := s.records[id]
	r.Status = StatusFailed
	r.LastError = lastError
	s.records[id] = r
	return nil
}

type memoryQueue struct {
	enqueued []int64
}

func (q *memoryQueue) EnqueueRetry(ctx context.Context, recordID int64) error {
	q.enqueued = append(q.enqueued, recordID)
	return nil
}

// flakyPoster fails the first N attempts, then posts.
type flakyPoster struct {
	failures int
	posted   int
}

func (p *flakyPoster) CreateEntry(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error) {
	if p.failures > 0 {
		p.failures--
		return journals.JournalEntry{}, shared.ErrPeriodClosed
	}
	p.posted++
	return journals.JournalEntry{ID: int64(p.posted)}, nil
}

type staticResolver struct{}

func (staticResolver) Resolve(ctx context.Context, module, key string) (int64, error) {
	return 1, nil
}

type staticLocator struct{}

func (staticLocator) FindOpenPeriodByDate(ctx context.Context, date time.Time) (periods.Period, error) {
	return periods.Period{
		ID:        1,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    periods.PeriodStatusOpen,
	}, nil
}

func testEvent() integration.StockDecreaseEvent {
	return integration.StockDecreaseEvent{
		EventID: uuid.New(),
		Amount:  decimal.NewFromInt(50_000),
		Date:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func channel(poster *flakyPoster, store Store, queue Enqueuer) *SideChannel {
	hooks := integration.NewHooks(poster, staticResolver{}, staticLocator{})
	return NewSideChannel(hooks, store, queue, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLedgerFailureIsParkedNotReturned(t *testing.T) {
	store := newMemoryStore()
	queue := &memoryQueue{}
	ch := channel(&flakyPoster{failures: 1}, store, queue)

	err := ch.StockDecrease(context.Background(), testEvent())
	require.NoError(t, err)

	pending, err := store.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, KindStockDecrease, pending[0].Kind)
	require.Equal(t, []int64{pending[0].ID}, queue.enqueued)
}

func TestValidationErrorsAreNotParked(t *testing.T) {
	store := newMemoryStore()
	ch := channel(&flakyPoster{}, store, &memoryQueue{})

	event := testEvent()
	event.Amount = decimal.NewFromInt(-1)
	err := ch.StockDecrease(context.Background(), event)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, store.records)
}

func TestDispatchReplaysAndMarksDone(t *testing.T) {
	store := newMemoryStore()
	queue := &memoryQueue{}
	poster := &flakyPoster{failures: 1}
	ch := channel(poster, store, queue)
	ctx := context.Background()

	require.NoError(t, ch.StockDecrease(ctx, testEvent()))
	record, err := store.Get(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, ch.Dispatch(ctx, record))
	record, err = store.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, StatusDone, record.Status)
	require.Equal(t, 1, poster.posted)
}

func TestDispatchCountsAttempts(t *testing.T) {
	store := newMemoryStore()
	poster := &flakyPoster{failures: 3}
	ch := channel(poster, store, &memoryQueue{})
	ctx := context.Background()

	require.NoError(t, ch.StockDecrease(ctx, testEvent()))

	record, _ := store.Get(ctx, 1)
	require.Error(t, ch.Dispatch(ctx, record))
	record, _ = store.Get(ctx, 1)
	require.Equal(t, 1, record.Attempts)
	require.Equal(t, StatusPending, record.Status)
}

func TestDispatchGivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemoryStore()
	poster := &flakyPoster{failures: MaxAttempts + 5}
	ch := channel(poster, store, &memoryQueue{})
	ctx := context.Background()

	require.NoError(t, ch.StockDecrease(ctx, testEvent()))

	for {
		record, err := store.Get(ctx, 1)
		require.NoError(t, err)
		if record.Status != StatusPending {
			break
		}
		_ = ch.Dispatch(ctx, record)
	}
	record, _ := store.Get(ctx, 1)
	require.Equal(t, StatusFailed, record.Status)
}
