package report

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Export stream event names
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
	EventTimeout  = "timeout"
)

// ExportEvent is one message of an export progress stream
type ExportEvent struct {
	Name   string
	Export ExportDTO
}

// WatchOptions controls how often an export is polled and for how long
type WatchOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (o WatchOptions) withDefaults() WatchOptions {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
	return o
}

// Watch polls an export and emits a progress event whenever its status or
// row count changes. The stream ends with complete, error or timeout, or when
// ctx is cancelled. The channel is closed when the stream ends.
func (s *ExportService) Watch(ctx context.Context, actor core.Actor, id uuid.UUID, opts WatchOptions) (<-chan ExportEvent, error) {
	first, err := s.GetExport(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	events := make(chan ExportEvent, 1)

	go func() {
		defer close(events)
		send := func(name string, dto ExportDTO) bool {
			select {
			case events <- ExportEvent{Name: name, Export: dto}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		deadline := time.NewTimer(opts.Timeout)
		defer deadline.Stop()
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()

		current := *first
		if !send(EventProgress, current) {
			return
		}
		for {
			switch report.ExportStatus(current.Status) {
			case report.ExportCompleted:
				send(EventComplete, current)
				return
			case report.ExportFailed:
				send(EventError, current)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-deadline.C:
				send(EventTimeout, current)
				return
			case <-ticker.C:
			}

			next, err := s.GetExport(ctx, actor, id)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("Export stream poll failed", zap.String("export_id", id.String()), zap.Error(err))
				}
				continue
			}
			changed := next.Status != current.Status || rows(next.ProcessedRows) != rows(current.ProcessedRows)
			current = *next
			if changed && !report.ExportStatus(current.Status).IsFinal() {
				if !send(EventProgress, current) {
					return
				}
			}
		}
	}()
	return events, nil
}

func rows(n *int) int {
	if n == nil {
		return -1
	}
	return *n
}
