package cells

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// CellRepository persists cells.
// Supported filter keys: "org_unit_id", "org_unit_ids", "status", "leader_id".
type CellRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Cell, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Cell, error)
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	ExistsByName(ctx context.Context, tenantID, orgUnitID uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	Save(ctx context.Context, cell *Cell) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// ReassignLeader replaces fromPersonID in leader and assistant leader slots
	ReassignLeader(ctx context.Context, tenantID, fromPersonID, toPersonID uuid.UUID) (int64, error)
	// ClearLeader empties the leader and assistant leader slots held by personID
	ClearLeader(ctx context.Context, tenantID, personID uuid.UUID) (int64, error)
}

// ReportFilter narrows cell report queries. Zero values are ignored.
type ReportFilter struct {
	CellID     *uuid.UUID
	OrgUnitIDs []uuid.UUID
	Status     ReportStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ReportRepository persists cell reports
type ReportRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CellReport, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ReportFilter) ([]CellReport, int64, error)
	ExistsForDate(ctx context.Context, tenantID, cellID uuid.UUID, date time.Time, excludeID uuid.UUID) (bool, error)
	CountByCell(ctx context.Context, tenantID, cellID uuid.UUID) (int64, error)
	Save(ctx context.Context, report *CellReport) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
