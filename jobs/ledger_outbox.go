package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/arthapos/ledger/internal/integration/outbox"
	"github.com/arthapos/ledger/internal/ledger/shared"
)

// OutboxJob redelivers parked ledger events through the side channel.
type OutboxJob struct {
	store   outbox.Store
	channel *outbox.SideChannel
	logger  *slog.Logger
	batch   int
}

func NewOutboxJob(store outbox.Store, channel *outbox.SideChannel, logger *slog.Logger, batch int) *OutboxJob {
	if batch <= 0 {
		batch = 100
	}
	return &OutboxJob{store: store, channel: channel, logger: logger, batch: batch}
}

// HandleDispatch processes TaskOutboxDispatch for a single record.
func (j *OutboxJob) HandleDispatch(ctx context.Context, t *asynq.Task) error {
	var payload OutboxDispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	record, err := j.store.Get(ctx, payload.RecordID)
	if errors.Is(err, shared.ErrNotFound) {
		return asynq.SkipRetry
	}
	if err != nil {
		return err
	}
	if record.Status != outbox.StatusPending {
		return nil
	}
	return j.channel.Dispatch(ctx, record)
}

// HandleSweep processes TaskOutboxSweep: it replays every pending record so
// events whose enqueue was lost still get delivered.
func (j *OutboxJob) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	records, err := j.store.Pending(ctx, j.batch)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := j.channel.Dispatch(ctx, record); err != nil {
			j.logger.Warn("outbox sweep redelivery failed",
				slog.Int64("record_id", record.ID), slog.String("error", err.Error()))
		}
	}
	if len(records) > 0 {
		j.logger.Info("outbox sweep finished", slog.Int("records", len(records)))
	}
	return nil
}
