package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// DueScheduleRunner runs due report schedules
type DueScheduleRunner interface {
	RunDue(ctx context.Context, limit int) (int, error)
}

// ReportScheduleTask drains due report schedules in batches
type ReportScheduleTask struct {
	runner    DueScheduleRunner
	batchSize int
	logger    *zap.Logger
}

// NewReportScheduleTask creates the task. batchSize defaults to 20.
func NewReportScheduleTask(runner DueScheduleRunner, batchSize int, logger *zap.Logger) *ReportScheduleTask {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &ReportScheduleTask{runner: runner, batchSize: batchSize, logger: logger}
}

// Name implements Task
func (t *ReportScheduleTask) Name() string { return "report_schedules" }

// Run keeps claiming batches until a short batch shows nothing more is due
func (t *ReportScheduleTask) Run(ctx context.Context) error {
	total := 0
	for {
		n, err := t.runner.RunDue(ctx, t.batchSize)
		total += n
		if err != nil {
			return err
		}
		if n < t.batchSize {
			break
		}
	}
	if total > 0 {
		t.logger.Info("Ran due report schedules", zap.Int("count", total))
	}
	return nil
}
