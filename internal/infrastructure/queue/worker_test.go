package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/cache"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMetrics struct {
	core.NopMetrics
	mu       sync.Mutex
	statuses []string
}

func (m *recordingMetrics) JobProcessed(_, _, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *recordingMetrics) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statuses...)
}

func newTestWorker(broker Broker, dedupe cache.IdempotencyStore, metrics core.Metrics) *Worker {
	return NewWorker(broker, dedupe, metrics, WorkerConfig{
		Queues:       []string{core.QueueImports},
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
		MaxAttempts:  2,
		RetryDelay:   time.Minute,
	}, zap.NewNop())
}

func TestWorker_ProcessNext(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the registered handler and acks", func(t *testing.T) {
		broker := NewMemoryBroker()
		metrics := &recordingMetrics{}
		w := newTestWorker(broker, nil, metrics)
		var got map[string]string
		w.Handle(core.JobProcessImport, func(_ context.Context, payload map[string]string) error {
			got = payload
			return nil
		})

		require.NoError(t, broker.Enqueue(ctx, core.QueueImports, core.JobProcessImport, map[string]string{"job_id": "42"}))
		took, err := w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.True(t, took)
		assert.Equal(t, map[string]string{"job_id": "42"}, got)
		assert.Equal(t, []string{StatusSucceeded}, metrics.all())

		ready, inflight, delayed := broker.Len(core.QueueImports)
		assert.Zero(t, ready+inflight+delayed)
	})

	t.Run("empty queue", func(t *testing.T) {
		w := newTestWorker(NewMemoryBroker(), nil, nil)
		took, err := w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.False(t, took)
	})

	t.Run("failures are retried with backoff then dropped", func(t *testing.T) {
		broker := NewMemoryBroker()
		now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		broker.now = func() time.Time { return now }
		metrics := &recordingMetrics{}
		w := newTestWorker(broker, nil, metrics)
		var attempts int
		w.Handle(core.JobProcessImport, func(context.Context, map[string]string) error {
			attempts++
			return errors.New("storage unavailable")
		})

		require.NoError(t, broker.Enqueue(ctx, core.QueueImports, core.JobProcessImport, nil))
		_, err := w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		_, _, delayed := broker.Len(core.QueueImports)
		assert.Equal(t, 1, delayed)

		// not due yet
		took, err := w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.False(t, took)

		now = now.Add(time.Minute)
		took, err = w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.True(t, took)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, []string{StatusRetried, StatusDropped}, metrics.all())

		ready, inflight, delayed := broker.Len(core.QueueImports)
		assert.Zero(t, ready+inflight+delayed)
	})

	t.Run("panics count as failures", func(t *testing.T) {
		broker := NewMemoryBroker()
		metrics := &recordingMetrics{}
		w := newTestWorker(broker, nil, metrics)
		w.Handle(core.JobProcessImport, func(context.Context, map[string]string) error {
			panic("boom")
		})
		require.NoError(t, broker.Enqueue(ctx, core.QueueImports, core.JobProcessImport, nil))
		_, err := w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.Equal(t, []string{StatusRetried}, metrics.all())
	})

	t.Run("unknown job is dropped", func(t *testing.T) {
		broker := NewMemoryBroker()
		metrics := &recordingMetrics{}
		w := newTestWorker(broker, nil, metrics)
		require.NoError(t, broker.Enqueue(ctx, core.QueueImports, "imports.unknown", nil))
		took, err := w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.True(t, took)
		assert.Equal(t, []string{StatusDropped}, metrics.all())
	})

	t.Run("redelivered message runs once", func(t *testing.T) {
		broker := NewMemoryBroker()
		dedupe := cache.NewInMemoryIdempotencyStore()
		metrics := &recordingMetrics{}
		w := newTestWorker(broker, dedupe, metrics)
		var runs int
		w.Handle(core.JobProcessImport, func(context.Context, map[string]string) error {
			runs++
			return nil
		})

		// a consumer took the message and marked it, then died before acking
		require.NoError(t, broker.Enqueue(ctx, core.QueueImports, core.JobProcessImport, nil))
		msg, err := broker.Dequeue(ctx, core.QueueImports, time.Millisecond)
		require.NoError(t, err)
		require.NotNil(t, msg)
		_, err = dedupe.MarkProcessed(ctx, msg.ID+"#1", time.Hour)
		require.NoError(t, err)

		n, err := broker.Recover(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		took, err := w.ProcessNext(ctx, core.QueueImports)
		require.NoError(t, err)
		assert.True(t, took)
		assert.Zero(t, runs)
		assert.Equal(t, []string{StatusDuplicate}, metrics.all())
	})
}

func TestWorker_Run(t *testing.T) {
	broker := NewMemoryBroker()
	w := newTestWorker(broker, cache.NewInMemoryIdempotencyStore(), nil)
	done := make(chan string, 1)
	w.Handle(core.JobProcessImport, func(_ context.Context, payload map[string]string) error {
		done <- payload["job_id"]
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	require.NoError(t, broker.Enqueue(ctx, core.QueueImports, core.JobProcessImport, map[string]string{"job_id": "7"}))
	select {
	case id := <-done:
		assert.Equal(t, "7", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRedisBroker(t *testing.T) {
	client := testutil.RedisClient(t)
	ctx := context.Background()
	broker := NewRedisBroker(client)
	queue := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		client.Del(context.Background(), readyKey(queue), inflightKey(queue), delayedKey(queue))
	})

	require.NoError(t, broker.Enqueue(ctx, queue, core.JobProcessExport, map[string]string{"export_id": "1"}))
	msg, err := broker.Dequeue(ctx, queue, time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, core.JobProcessExport, msg.Name)
	assert.Equal(t, "1", msg.Payload["export_id"])
	assert.Equal(t, 1, msg.Attempt)

	// not acked, so a restart hands it back
	n, err := broker.Recover(ctx, queue)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	msg, err = broker.Dequeue(ctx, queue, time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)

	require.NoError(t, broker.Retry(ctx, msg, 50*time.Millisecond))
	none, err := broker.Dequeue(ctx, queue, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, none)

	time.Sleep(100 * time.Millisecond)
	msg, err = broker.Dequeue(ctx, queue, time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, 2, msg.Attempt)
	require.NoError(t, broker.Ack(ctx, msg))

	n, err = broker.Recover(ctx, queue)
	require.NoError(t, err)
	assert.Zero(t, n)
}
