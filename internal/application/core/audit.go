package core

import (
	"context"
	"fmt"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/google/uuid"
)

// RecordAudit appends an audit row through the transaction's repositories.
// A failure aborts the surrounding unit of work.
func RecordAudit(ctx context.Context, repos TransactionalRepositories, actor Actor, action, entityType string, entityID uuid.UUID, before, after any) error {
	var id *uuid.UUID
	if entityID != uuid.Nil {
		id = &entityID
	}
	entry, err := iam.NewAuditLog(actor.TenantID, actor.UserID, action, entityType, id, before, after)
	if err != nil {
		return fmt.Errorf("build audit log: %w", err)
	}
	entry.WithRequest(actor.IP, actor.UserAgent)
	if err := repos.AuditLogRepo().Create(ctx, entry); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
