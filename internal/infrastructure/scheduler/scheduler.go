package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrNoTasks is returned when starting a scheduler without tasks
var ErrNoTasks = errors.New("scheduler has no tasks")

// Task is periodic background work
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Config holds scheduler configuration
type Config struct {
	Enabled      bool
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		PollInterval: time.Minute,
		JobTimeout:   10 * time.Minute,
	}
}

// Scheduler runs each task on its own ticker. A tick that arrives while the
// previous run of the same task is still going is skipped.
type Scheduler struct {
	config Config
	tasks  []Task
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// New creates a scheduler
func New(config Config, logger *zap.Logger, tasks ...Task) *Scheduler {
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	return &Scheduler{config: config, tasks: tasks, logger: logger}
}

// Start starts one loop per task. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return ErrNoTasks
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}

	s.logger.Info("Scheduler started",
		zap.Int("tasks", len(s.tasks)),
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Duration("job_timeout", s.config.JobTimeout))
	return nil
}

// Stop cancels the loops and waits for running tasks to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunOnce runs every task once in order and returns the first error
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var first error
	for _, task := range s.tasks {
		if err := s.runTask(ctx, task); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.runTask(ctx, task)
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, task Task) error {
	taskCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	taskCtx, span := telemetry.StartSpan(taskCtx, "scheduler."+task.Name())
	defer span.End()

	started := time.Now()
	err := task.Run(taskCtx)
	if err != nil {
		telemetry.RecordError(span, err)
		if ctx.Err() == nil {
			s.logger.Error("Scheduled task failed",
				zap.String("task", task.Name()),
				zap.Duration("duration", time.Since(started)),
				zap.Error(err))
		}
		return err
	}
	s.logger.Debug("Scheduled task finished",
		zap.String("task", task.Name()),
		zap.Duration("duration", time.Since(started)))
	return nil
}
