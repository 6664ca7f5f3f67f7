package report

import (
	"context"
	"slices"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Template is a saved query definition
type Template struct {
	shared.TenantEntity
	UserID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name                string          `gorm:"type:varchar(200);not null"`
	Description         *string         `gorm:"type:text"`
	QueryDefinition     QueryDefinition `gorm:"serializer:json;type:jsonb;not null"`
	VisualizationConfig map[string]any  `gorm:"serializer:json;type:jsonb"`
	IsShared            bool            `gorm:"not null;default:false"`
	SharedWithOrgUnits  []uuid.UUID     `gorm:"serializer:json;type:jsonb"`
}

// TableName returns the table name for GORM
func (Template) TableName() string {
	return "report_templates"
}

// NewTemplate validates the query definition and creates a template
func NewTemplate(tenantID, userID uuid.UUID, name string, description *string, def QueryDefinition, viz map[string]any, isShared bool, sharedWith []uuid.UUID) (*Template, error) {
	t := &Template{
		TenantEntity: shared.NewTenantEntity(tenantID, userID),
		UserID:       userID,
	}
	if err := t.Update(name, description, def, viz, isShared, sharedWith); err != nil {
		return nil, err
	}
	return t, nil
}

// Update replaces the template content
func (t *Template) Update(name string, description *string, def QueryDefinition, viz map[string]any, isShared bool, sharedWith []uuid.UUID) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "template name is required")
	}
	def, err := def.Normalize()
	if err != nil {
		return err
	}
	t.Name = name
	t.Description = description
	t.QueryDefinition = def
	t.VisualizationConfig = viz
	t.IsShared = isShared
	t.SharedWithOrgUnits = sharedWith
	t.Touch()
	return nil
}

// VisibleTo reports whether a user owning accessibleUnits may read the template.
// Shared templates without explicit units are visible tenant-wide.
func (t *Template) VisibleTo(userID uuid.UUID, accessibleUnits []uuid.UUID) bool {
	if t.UserID == userID {
		return true
	}
	if !t.IsShared {
		return false
	}
	if len(t.SharedWithOrgUnits) == 0 {
		return true
	}
	for _, u := range t.SharedWithOrgUnits {
		if slices.Contains(accessibleUnits, u) {
			return true
		}
	}
	return false
}

// TemplateRepository persists report templates
type TemplateRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Template, error)

	// FindVisible lists the user's own templates and all shared ones
	FindVisible(ctx context.Context, tenantID, userID uuid.UUID) ([]Template, error)
	Save(ctx context.Context, t *Template) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
