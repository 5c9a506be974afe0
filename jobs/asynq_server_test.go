package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestOutboxDispatchTaskRoundTrip(t *testing.T) {
	task, err := NewOutboxDispatchTask(42)
	require.NoError(t, err)
	require.Equal(t, TaskOutboxDispatch, task.Type())

	var payload OutboxDispatchPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(42), payload.RecordID)
}

func TestClientEnqueuesRetry(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.EnqueueRetry(context.Background(), 7))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()
	scheduled, err := inspector.ListScheduledTasks(QueueDefault)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	require.Equal(t, TaskOutboxDispatch, scheduled[0].Type)
}

func TestNewWorkerRejectsBadCronSpec(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: mr.Addr()},
		Cron: []CronRegistration{
			{Spec: "not a cron spec", Task: NewOutboxSweepTask()},
		},
	})
	require.Error(t, err)
}
