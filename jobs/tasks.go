package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOutboxDispatch redelivers one parked ledger event.
	TaskOutboxDispatch = "ledger:outbox_dispatch"
	// TaskOutboxSweep re-enqueues every pending outbox record.
	TaskOutboxSweep = "ledger:outbox_sweep"
	// TaskGLIntegrity verifies the debit = credit identity across open periods.
	TaskGLIntegrity = "ledger:gl_integrity"
)

// OutboxDispatchPayload identifies the record to redeliver.
type OutboxDispatchPayload struct {
	RecordID int64 `json:"record_id"`
}

// NewOutboxDispatchTask constructs an Asynq task for one outbox record.
func NewOutboxDispatchTask(recordID int64) (*asynq.Task, error) {
	data, err := json.Marshal(OutboxDispatchPayload{RecordID: recordID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutboxDispatch, data), nil
}

// NewOutboxSweepTask constructs the periodic sweep task.
func NewOutboxSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOutboxSweep, nil)
}

// NewGLIntegrityTask constructs the periodic integrity check task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGLIntegrity, nil)
}
