package core

import (
	"context"
	"time"
)

// ObjectStorage stores uploaded and generated files (import sources, exports, error reports)
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	Download(ctx context.Context, storageKey string) ([]byte, error)
	DeleteObject(ctx context.Context, storageKey string) error

	// GenerateDownloadURL returns a presigned GET URL. A zero expiresIn uses the default.
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// Queue names
const (
	QueueDefault = "default"
	QueueEmails  = "emails"
	QueueImports = "imports"
	QueueExports = "exports"
)

// Job names
const (
	JobProcessImport = "imports.process"
	JobProcessExport = "exports.process"
)

// JobQueue hands work to background workers. Enqueue returns once the job is
// stored; the caller never waits for it to run.
type JobQueue interface {
	Enqueue(ctx context.Context, queue, name string, payload map[string]string) error
	EnqueueIn(ctx context.Context, queue, name string, payload map[string]string, delay time.Duration) error
}

// Metrics records business counters. Implementations must be safe for concurrent use.
type Metrics interface {
	BatchTransition(action string)
	ImportFinished(entityType, status string, rows int)
	ExportFinished(format, status string)
	NotificationDelivered(status string)
	JobProcessed(queue, name, status string)
}

// NopMetrics discards every observation
type NopMetrics struct{}

func (NopMetrics) BatchTransition(string) {}
func (NopMetrics) ImportFinished(string, string, int) {}
func (NopMetrics) ExportFinished(string, string) {}
func (NopMetrics) NotificationDelivered(string) {}
func (NopMetrics) JobProcessed(string, string, string) {}
