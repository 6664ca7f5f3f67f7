// Package notification holds outbox senders.
package notification

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/notification"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned for notifications without a "to" address
var ErrNoRecipient = errors.New("notification has no recipient")

// LogSender writes notifications to the log instead of delivering them.
// Deployments without a mail relay use it so the outbox still drains.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the notification with its recipient and subject
func (s *LogSender) Send(_ context.Context, n *notification.OutboxNotification) error {
	to, _ := n.Payload["to"].(string)
	if to == "" {
		return ErrNoRecipient
	}
	s.logger.Info("notification delivered to log",
		zap.String("notification_id", n.ID.String()),
		zap.String("tenant_id", n.TenantID.String()),
		zap.String("type", n.Type),
		zap.String("to", to),
		zap.String("subject", Subject(n)),
		zap.Any("payload", redact(n.Payload)))
	return nil
}

var secretKeys = []string{"temporary_password"}

func redact(payload map[string]any) map[string]any {
	out := maps.Clone(payload)
	for _, k := range secretKeys {
		if _, ok := out[k]; ok {
			out[k] = "[redacted]"
		}
	}
	return out
}

// Subject renders the mail subject of a notification
func Subject(n *notification.OutboxNotification) string {
	switch n.Type {
	case notification.TypeInvite:
		return "You have been invited to the zone reporting portal"
	case notification.TypeScheduledReport:
		if name, ok := n.Payload["template_name"].(string); ok && name != "" {
			return fmt.Sprintf("Scheduled report: %s", name)
		}
		return "Scheduled report"
	case notification.TypeImportFinished:
		return "Your import has finished"
	default:
		return n.Type
	}
}
