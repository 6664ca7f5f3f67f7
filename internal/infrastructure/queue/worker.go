package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/cache"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler runs one job
type Handler func(ctx context.Context, payload map[string]string) error

// Job outcomes reported to core.Metrics
const (
	StatusSucceeded = "succeeded"
	StatusRetried   = "retried"
	StatusDropped   = "dropped"
	StatusDuplicate = "duplicate"
)

// WorkerConfig holds configuration for the queue worker
type WorkerConfig struct {
	Queues       []string
	Concurrency  int           // consumers per queue
	PollInterval time.Duration // longest a consumer blocks waiting for a message
	MaxAttempts  int
	RetryDelay   time.Duration // first retry delay, doubled on each further attempt
	DedupeTTL    time.Duration
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Queues:       []string{core.QueueDefault, core.QueueEmails, core.QueueImports, core.QueueExports},
		Concurrency:  2,
		PollInterval: 5 * time.Second,
		MaxAttempts:  3,
		RetryDelay:   30 * time.Second,
		DedupeTTL:    24 * time.Hour,
	}
}

// Worker consumes queues and dispatches each message to the handler
// registered for its job name
type Worker struct {
	broker   Broker
	dedupe   cache.IdempotencyStore
	handlers map[string]Handler
	metrics  core.Metrics
	config   WorkerConfig
	logger   *zap.Logger
}

// NewWorker creates a worker. dedupe may be nil.
func NewWorker(broker Broker, dedupe cache.IdempotencyStore, metrics core.Metrics, config WorkerConfig, logger *zap.Logger) *Worker {
	defaults := DefaultWorkerConfig()
	if len(config.Queues) == 0 {
		config.Queues = defaults.Queues
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.DedupeTTL <= 0 {
		config.DedupeTTL = defaults.DedupeTTL
	}
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Worker{
		broker:   broker,
		dedupe:   dedupe,
		handlers: make(map[string]Handler),
		metrics:  metrics,
		config:   config,
		logger:   logger,
	}
}

// Handle registers h for job name. Registering a name twice replaces the handler.
func (w *Worker) Handle(name string, h Handler) {
	w.handlers[name] = h
}

// Run recovers messages left in flight by a previous run, then consumes every
// configured queue until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	for _, q := range w.config.Queues {
		n, err := w.broker.Recover(ctx, q)
		if err != nil {
			return err
		}
		if n > 0 {
			w.logger.Warn("Recovered in-flight jobs", zap.String("queue", q), zap.Int("count", n))
		}
	}

	w.logger.Info("queue worker started",
		zap.Strings("queues", w.config.Queues),
		zap.Int("concurrency", w.config.Concurrency),
		zap.Int("handlers", len(w.handlers)))

	g, ctx := errgroup.WithContext(ctx)
	for _, q := range w.config.Queues {
		for range w.config.Concurrency {
			g.Go(func() error { return w.consume(ctx, q) })
		}
	}
	err := g.Wait()
	w.logger.Info("queue worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context, queue string) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := w.ProcessNext(ctx, queue); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("queue consumer error", zap.String("queue", queue), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.config.PollInterval):
			}
		}
	}
}

// ProcessNext takes one message from queue and runs it. It reports whether a
// message was taken. Handler failures are retried with exponential delay until
// MaxAttempts, after which the message is dropped and logged.
func (w *Worker) ProcessNext(ctx context.Context, queue string) (bool, error) {
	msg, err := w.broker.Dequeue(ctx, queue, w.config.PollInterval)
	if err != nil || msg == nil {
		return false, err
	}
	log := w.logger.With(
		zap.String("queue", msg.Queue),
		zap.String("job", msg.Name),
		zap.String("job_id", msg.ID),
		zap.Int("attempt", msg.Attempt))

	h, ok := w.handlers[msg.Name]
	if !ok {
		log.Error("No handler registered for job, dropping")
		w.metrics.JobProcessed(msg.Queue, msg.Name, StatusDropped)
		return true, w.broker.Ack(ctx, msg)
	}

	if w.dedupe != nil {
		fresh, err := w.dedupe.MarkProcessed(ctx, fmt.Sprintf("%s#%d", msg.ID, msg.Attempt), w.config.DedupeTTL)
		if err != nil {
			log.Warn("failed to check job idempotency, running anyway", zap.Error(err))
		} else if !fresh {
			log.Debug("duplicate delivery, skipping")
			w.metrics.JobProcessed(msg.Queue, msg.Name, StatusDuplicate)
			return true, w.broker.Ack(ctx, msg)
		}
	}

	started := time.Now()
	if err := w.run(ctx, h, msg); err != nil {
		if msg.Attempt >= w.config.MaxAttempts {
			log.Error("Job failed permanently", zap.Error(err))
			w.metrics.JobProcessed(msg.Queue, msg.Name, StatusDropped)
			return true, w.broker.Ack(ctx, msg)
		}
		delay := w.config.RetryDelay << (msg.Attempt - 1)
		log.Warn("Job failed, retrying", zap.Duration("delay", delay), zap.Error(err))
		w.metrics.JobProcessed(msg.Queue, msg.Name, StatusRetried)
		return true, w.broker.Retry(ctx, msg, delay)
	}

	log.Info("Job completed", zap.Duration("duration", time.Since(started)))
	w.metrics.JobProcessed(msg.Queue, msg.Name, StatusSucceeded)
	return true, w.broker.Ack(ctx, msg)
}

func (w *Worker) run(ctx context.Context, h Handler, msg *Message) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "job."+msg.Name,
		"queue", msg.Queue, "job_id", msg.ID, "attempt", msg.Attempt)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		telemetry.RecordError(span, err)
		span.End()
	}()
	return h(ctx, msg.Payload)
}
