package notification

import (
	"context"
	"sync"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"go.uber.org/zap"
)

// Sender delivers one notification, e.g. as an email
type Sender interface {
	Send(ctx context.Context, n *notification.OutboxNotification) error
}

// ProcessorConfig holds configuration for the outbox processor
type ProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	BaseBackoff  time.Duration
}

// DefaultProcessorConfig returns default configuration
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:    50,
		PollInterval: 10 * time.Second,
		MaxRetries:   5,
		BaseBackoff:  time.Minute,
	}
}

// Processor delivers due outbox notifications in the background
type Processor struct {
	txScope core.TransactionScope
	sender  Sender
	metrics core.Metrics
	config  ProcessorConfig
	logger  *zap.Logger
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates a new outbox processor
func NewProcessor(txScope core.TransactionScope, sender Sender, metrics core.Metrics, config ProcessorConfig, logger *zap.Logger) *Processor {
	defaults := DefaultProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = defaults.BaseBackoff
	}
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Processor{
		txScope: txScope,
		sender:  sender,
		metrics: metrics,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Start starts the background delivery loop
func (p *Processor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("max_retries", p.config.MaxRetries))
	return nil
}

// Stop gracefully stops the processor
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("failed to process outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch claims due notifications and hands each to the sender. Rows
// stay locked until the batch commits, so concurrent processors skip them.
// It returns the number of notifications attempted.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	var attempted int
	err := p.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		due, err := repos.OutboxRepo().ClaimDue(ctx, p.now(), p.config.BatchSize)
		if err != nil {
			return err
		}
		for _, n := range due {
			p.deliver(ctx, n)
			if err := repos.OutboxRepo().Update(ctx, n); err != nil {
				return err
			}
			attempted++
		}
		return nil
	})
	return attempted, err
}

func (p *Processor) deliver(ctx context.Context, n *notification.OutboxNotification) {
	err := p.sender.Send(ctx, n)
	now := p.now()
	if err == nil {
		n.MarkSent(now)
		p.metrics.NotificationDelivered(string(notification.StateSent))
		p.logger.Debug("notification sent",
			zap.String("notification_id", n.ID.String()),
			zap.String("type", n.Type))
		return
	}

	n.MarkFailed(err, now, p.config.BaseBackoff, p.config.MaxRetries)
	p.metrics.NotificationDelivered(string(n.DeliveryState))
	if n.DeliveryState == notification.StateFailed {
		p.logger.Warn("notification failed permanently",
			zap.String("notification_id", n.ID.String()),
			zap.String("type", n.Type),
			zap.Int("retry_count", n.RetryCount),
			zap.Error(err))
		return
	}
	p.logger.Info("notification delivery failed, will retry",
		zap.String("notification_id", n.ID.String()),
		zap.String("type", n.Type),
		zap.Int("retry_count", n.RetryCount),
		zap.Time("next_attempt_at", n.NextAttemptAt),
		zap.Error(err))
}
