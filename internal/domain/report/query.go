package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxLimit caps the rows a single query may return
const MaxLimit = 10000

// DefaultLimit applies when a query does not set a limit
const DefaultLimit = 1000

// EntityType is a queryable table
type EntityType string

const (
	EntityFinanceEntries EntityType = "finance_entries"
	EntityAttendance     EntityType = "attendance"
	EntityCellReports    EntityType = "cell_reports"
	EntityPeople         EntityType = "people"
	EntityServices       EntityType = "services"
	EntityBatches        EntityType = "batches"
	EntityCells          EntityType = "cells"
)

// FieldKind drives how filter values are converted
type FieldKind int

const (
	KindString FieldKind = iota
	KindUUID
	KindDate
	KindTime
	KindNumber
	KindBool
)

// Field is a whitelisted column of an entity
type Field struct {
	Column string
	Kind   FieldKind
}

// OrgScope describes how an entity is restricted to org units
type OrgScope int

const (
	// ScopeOrgUnitColumn filters on the entity's own org_unit_id
	ScopeOrgUnitColumn OrgScope = iota
	// ScopeThroughService joins services and filters on services.org_unit_id
	ScopeThroughService
	// ScopeThroughCell joins cells and filters on cells.org_unit_id
	ScopeThroughCell
)

// Entity describes a queryable table
type Entity struct {
	Table  string
	Scope  OrgScope
	Fields map[string]Field
}

func columns(table string, kinds map[string]FieldKind) map[string]Field {
	out := make(map[string]Field, len(kinds))
	for name, kind := range kinds {
		out[name] = Field{Column: table + "." + name, Kind: kind}
	}
	return out
}

var entities = map[EntityType]Entity{
	EntityFinanceEntries: {
		Table: "finance_entries",
		Scope: ScopeOrgUnitColumn,
		Fields: columns("finance_entries", map[string]FieldKind{
			"id": KindUUID, "org_unit_id": KindUUID, "batch_id": KindUUID, "service_id": KindUUID,
			"fund_id": KindUUID, "partnership_arm_id": KindUUID, "amount": KindNumber,
			"currency": KindString, "method": KindString, "person_id": KindUUID, "cell_id": KindUUID,
			"external_giver_name": KindString, "reference": KindString, "verified_status": KindString,
			"source_type": KindString, "transaction_date": KindDate, "created_at": KindTime,
		}),
	},
	EntityAttendance: {
		Table: "attendance",
		Scope: ScopeThroughService,
		Fields: merge(columns("attendance", map[string]FieldKind{
			"id": KindUUID, "service_id": KindUUID, "men_count": KindNumber, "women_count": KindNumber,
			"teens_count": KindNumber, "kids_count": KindNumber, "first_timers_count": KindNumber,
			"new_converts_count": KindNumber, "total_attendance": KindNumber, "created_at": KindTime,
		}), map[string]Field{
			"org_unit_id":  {Column: "services.org_unit_id", Kind: KindUUID},
			"service_date": {Column: "services.service_date", Kind: KindDate},
			"service_name": {Column: "services.name", Kind: KindString},
		}),
	},
	EntityCellReports: {
		Table: "cell_reports",
		Scope: ScopeThroughCell,
		Fields: merge(columns("cell_reports", map[string]FieldKind{
			"id": KindUUID, "cell_id": KindUUID, "report_date": KindDate, "attendance": KindNumber,
			"first_timers": KindNumber, "new_converts": KindNumber, "offerings_total": KindNumber,
			"meeting_type": KindString, "status": KindString, "created_at": KindTime,
		}), map[string]Field{
			"org_unit_id": {Column: "cells.org_unit_id", Kind: KindUUID},
		}),
	},
	EntityPeople: {
		Table: "people",
		Scope: ScopeOrgUnitColumn,
		Fields: columns("people", map[string]FieldKind{
			"id": KindUUID, "org_unit_id": KindUUID, "member_code": KindString, "first_name": KindString,
			"last_name": KindString, "gender": KindString, "dob": KindDate, "email": KindString,
			"phone": KindString, "town": KindString, "county": KindString, "marital_status": KindString,
			"created_at": KindTime,
		}),
	},
	EntityServices: {
		Table: "services",
		Scope: ScopeOrgUnitColumn,
		Fields: columns("services", map[string]FieldKind{
			"id": KindUUID, "org_unit_id": KindUUID, "name": KindString, "service_date": KindDate,
			"created_at": KindTime,
		}),
	},
	EntityBatches: {
		Table: "batches",
		Scope: ScopeOrgUnitColumn,
		Fields: columns("batches", map[string]FieldKind{
			"id": KindUUID, "org_unit_id": KindUUID, "service_id": KindUUID, "status": KindString,
			"verified_by_1": KindUUID, "verified_by_2": KindUUID, "locked_by": KindUUID,
			"locked_at": KindTime, "created_at": KindTime,
		}),
	},
	EntityCells: {
		Table: "cells",
		Scope: ScopeOrgUnitColumn,
		Fields: columns("cells", map[string]FieldKind{
			"id": KindUUID, "org_unit_id": KindUUID, "name": KindString, "leader_id": KindUUID,
			"assistant_leader_id": KindUUID, "meeting_day": KindString, "status": KindString,
			"created_at": KindTime,
		}),
	},
}

func merge(a, b map[string]Field) map[string]Field {
	for k, v := range b {
		a[k] = v
	}
	return a
}

// LookupEntity returns the schema of a queryable entity
func LookupEntity(t EntityType) (Entity, error) {
	e, ok := entities[t]
	if !ok {
		return Entity{}, shared.Errorf(shared.CodeInvalidInput, "unknown entity type: %s", t)
	}
	return e, nil
}

// Aggregation functions
const (
	AggSum   = "sum"
	AggCount = "count"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"
)

// Aggregation is one aggregate column of a query
type Aggregation struct {
	Field    string `json:"field,omitempty"`
	Function string `json:"function"`
	Alias    string `json:"alias,omitempty"`
}

// OrderBy is one sort key
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// DataQuality overrides the default status filters
type DataQuality struct {
	VerifiedStatus   []string `json:"verified_status,omitempty"`
	CellReportStatus []string `json:"cell_report_status,omitempty"`
}

// QueryDefinition is a declarative report query
type QueryDefinition struct {
	EntityType   EntityType     `json:"entity_type"`
	Filters      map[string]any `json:"filters,omitempty"`
	Aggregations []Aggregation  `json:"aggregations,omitempty"`
	GroupBy      []string       `json:"group_by,omitempty"`
	OrderBy      []OrderBy      `json:"order_by,omitempty"`
	DataQuality  *DataQuality   `json:"data_quality,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Offset       int            `json:"offset,omitempty"`
}

// DateTrunc is a parsed date_trunc_<unit>_<field> group key
type DateTrunc struct {
	Unit  string
	Field string
}

var truncUnits = map[string]bool{"day": true, "week": true, "month": true, "quarter": true, "year": true}

// ParseDateTrunc splits a date_trunc_<unit>_<field> group key
func ParseDateTrunc(key string) (DateTrunc, bool) {
	rest, ok := strings.CutPrefix(key, "date_trunc_")
	if !ok {
		return DateTrunc{}, false
	}
	unit, field, ok := strings.Cut(rest, "_")
	if !ok || !truncUnits[unit] || field == "" {
		return DateTrunc{}, false
	}
	return DateTrunc{Unit: unit, Field: field}, true
}

// Normalize validates the definition against the entity whitelist and fills defaults
func (q QueryDefinition) Normalize() (QueryDefinition, error) {
	entity, err := LookupEntity(q.EntityType)
	if err != nil {
		return q, err
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		return q, shared.Errorf(shared.CodeInvalidInput, "limit cannot exceed %d", MaxLimit)
	}
	if q.Offset < 0 {
		return q, shared.NewDomainError(shared.CodeInvalidInput, "offset cannot be negative")
	}
	q.Aggregations = append([]Aggregation(nil), q.Aggregations...)
	q.OrderBy = append([]OrderBy(nil), q.OrderBy...)
	for field := range q.Filters {
		if _, ok := entity.Fields[field]; !ok {
			return q, shared.Errorf(shared.CodeInvalidInput, "unknown filter field %q for %s", field, q.EntityType)
		}
	}

	aliases := make(map[string]bool)
	for i, agg := range q.Aggregations {
		fn := strings.ToLower(agg.Function)
		if fn == "" {
			fn = AggCount
		}
		switch fn {
		case AggSum, AggCount, AggAvg, AggMin, AggMax:
		default:
			return q, shared.Errorf(shared.CodeInvalidInput, "unknown aggregation function %q", agg.Function)
		}
		if agg.Field == "" && fn != AggCount {
			return q, shared.Errorf(shared.CodeInvalidInput, "aggregation %s requires a field", fn)
		}
		if agg.Field != "" {
			if _, ok := entity.Fields[agg.Field]; !ok {
				return q, shared.Errorf(shared.CodeInvalidInput, "unknown aggregation field %q for %s", agg.Field, q.EntityType)
			}
		}
		if agg.Alias == "" {
			agg.Alias = fn
			if agg.Field != "" {
				agg.Alias = fmt.Sprintf("%s_%s", fn, agg.Field)
			}
		}
		if !isIdentifier(agg.Alias) {
			return q, shared.Errorf(shared.CodeInvalidInput, "invalid alias %q", agg.Alias)
		}
		agg.Function = fn
		aliases[agg.Alias] = true
		q.Aggregations[i] = agg
	}

	groups := make(map[string]bool)
	for _, g := range q.GroupBy {
		if dt, ok := ParseDateTrunc(g); ok {
			f, exists := entity.Fields[dt.Field]
			if !exists || (f.Kind != KindDate && f.Kind != KindTime) {
				return q, shared.Errorf(shared.CodeInvalidInput, "cannot truncate field %q", dt.Field)
			}
		} else if _, ok := entity.Fields[g]; !ok {
			return q, shared.Errorf(shared.CodeInvalidInput, "unknown group_by field %q for %s", g, q.EntityType)
		}
		groups[g] = true
	}

	aggregated := len(q.Aggregations) > 0 || len(q.GroupBy) > 0
	for i, o := range q.OrderBy {
		dir := strings.ToLower(o.Direction)
		if dir != "desc" {
			dir = "asc"
		}
		q.OrderBy[i].Direction = dir
		if aggregated {
			if !aliases[o.Field] && !groups[o.Field] {
				return q, shared.Errorf(shared.CodeInvalidInput, "order_by %q must be a group_by field or aggregation alias", o.Field)
			}
			continue
		}
		if _, ok := entity.Fields[o.Field]; !ok {
			return q, shared.Errorf(shared.CodeInvalidInput, "unknown order_by field %q for %s", o.Field, q.EntityType)
		}
	}
	return q, nil
}

// VerifiedStatuses returns the finance entry statuses included by the query
func (q QueryDefinition) VerifiedStatuses() []string {
	if q.DataQuality != nil && len(q.DataQuality.VerifiedStatus) > 0 {
		return q.DataQuality.VerifiedStatus
	}
	return []string{"verified", "reconciled", "locked"}
}

// CellReportStatuses returns the cell report statuses included by the query
func (q QueryDefinition) CellReportStatuses() []string {
	if q.DataQuality != nil && len(q.DataQuality.CellReportStatus) > 0 {
		return q.DataQuality.CellReportStatus
	}
	return []string{"approved"}
}

func isIdentifier(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// QueryResult is the output of an executed query
type QueryResult struct {
	Rows    []map[string]any `json:"results"`
	Columns []string         `json:"columns"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// QueryExecutor runs a normalised definition restricted to orgUnitIDs
type QueryExecutor interface {
	Execute(ctx context.Context, tenantID uuid.UUID, def QueryDefinition, orgUnitIDs []uuid.UUID) (*QueryResult, error)
}
