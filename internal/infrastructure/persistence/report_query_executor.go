package persistence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormQueryExecutor runs report query definitions as SQL built from the
// entity whitelist. Only whitelisted column names ever reach the SQL text;
// every value is bound.
type GormQueryExecutor struct {
	db *gorm.DB
}

// NewGormQueryExecutor creates a new GormQueryExecutor
func NewGormQueryExecutor(db *gorm.DB) *GormQueryExecutor {
	return &GormQueryExecutor{db: db}
}

var _ report.QueryExecutor = (*GormQueryExecutor)(nil)

// Execute normalizes def and runs it restricted to orgUnitIDs
func (e *GormQueryExecutor) Execute(ctx context.Context, tenantID uuid.UUID, def report.QueryDefinition, orgUnitIDs []uuid.UUID) (*report.QueryResult, error) {
	def, err := def.Normalize()
	if err != nil {
		return nil, err
	}
	entity, err := report.LookupEntity(def.EntityType)
	if err != nil {
		return nil, err
	}

	query := e.db.WithContext(ctx).Table(entity.Table).Where(entity.Table+".tenant_id = ?", tenantID)
	switch entity.Scope {
	case report.ScopeThroughService:
		query = query.Joins("JOIN services ON services.id = " + entity.Table + ".service_id")
		query = scopeUnits(query, "services.org_unit_id", orgUnitIDs)
	case report.ScopeThroughCell:
		query = query.Joins("JOIN cells ON cells.id = " + entity.Table + ".cell_id")
		query = scopeUnits(query, "cells.org_unit_id", orgUnitIDs)
	default:
		query = scopeUnits(query, entity.Table+".org_unit_id", orgUnitIDs)
	}

	if query, err = applyReportFilters(query, entity, def.Filters); err != nil {
		return nil, err
	}
	switch def.EntityType {
	case report.EntityFinanceEntries:
		query = query.Where("finance_entries.verified_status IN ?", def.VerifiedStatuses())
	case report.EntityCellReports:
		query = query.Where("cell_reports.status IN ?", def.CellReportStatuses())
	}

	if len(def.Aggregations) > 0 || len(def.GroupBy) > 0 {
		query = e.aggregate(query, entity, def)
	} else {
		query = query.Select(entity.Table + ".*")
		for _, o := range def.OrderBy {
			query = query.Order(entity.Fields[o.Field].Column + " " + strings.ToUpper(o.Direction))
		}
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := e.db.WithContext(ctx).Table("(?) AS report_rows", query).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count report rows: %w", err)
	}

	rows, err := query.Limit(def.Limit).Offset(def.Offset).Rows()
	if err != nil {
		return nil, fmt.Errorf("run report query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &report.QueryResult{
		Rows:    []map[string]any{},
		Columns: cols,
		Total:   total,
		Limit:   def.Limit,
		Offset:  def.Offset,
	}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func (e *GormQueryExecutor) aggregate(query *gorm.DB, entity report.Entity, def report.QueryDefinition) *gorm.DB {
	selects := make([]string, 0, len(def.GroupBy)+len(def.Aggregations))
	groups := make([]string, 0, len(def.GroupBy))
	for _, g := range def.GroupBy {
		expr := entity.Fields[g].Column
		if dt, ok := report.ParseDateTrunc(g); ok {
			expr = truncExpr(e.db, dt.Unit, entity.Fields[dt.Field].Column)
		}
		selects = append(selects, fmt.Sprintf(`%s AS "%s"`, expr, g))
		groups = append(groups, expr)
	}
	for _, agg := range def.Aggregations {
		var expr string
		switch {
		case agg.Function == report.AggCount && (agg.Field == "" || agg.Field == "id"):
			expr = "COUNT(*)"
		default:
			expr = fmt.Sprintf("%s(%s)", strings.ToUpper(agg.Function), entity.Fields[agg.Field].Column)
		}
		selects = append(selects, fmt.Sprintf(`%s AS "%s"`, expr, agg.Alias))
	}
	query = query.Select(strings.Join(selects, ", "))
	if len(groups) > 0 {
		query = query.Group(strings.Join(groups, ", "))
	}
	for _, o := range def.OrderBy {
		query = query.Order(fmt.Sprintf(`"%s" %s`, o.Field, strings.ToUpper(o.Direction)))
	}
	return query
}

// truncExpr renders date truncation for the connected dialect
func truncExpr(db *gorm.DB, unit, column string) string {
	if isPostgres(db) {
		return fmt.Sprintf("date_trunc('%s', %s)", unit, column)
	}
	switch unit {
	case "year":
		return fmt.Sprintf("strftime('%%Y-01-01', %s)", column)
	case "quarter":
		return fmt.Sprintf("printf('%%s-%%02d-01', strftime('%%Y', %s), ((CAST(strftime('%%m', %s) AS INTEGER) - 1) / 3) * 3 + 1)", column, column)
	case "month":
		return fmt.Sprintf("strftime('%%Y-%%m-01', %s)", column)
	case "week":
		return fmt.Sprintf("date(%s, 'weekday 0', '-6 days')", column)
	default:
		return fmt.Sprintf("date(%s)", column)
	}
}

// applyReportFilters supports equality, lists (IN) and operator maps with
// gte, lte, gt, lt, in and is_null
func applyReportFilters(query *gorm.DB, entity report.Entity, filters map[string]any) (*gorm.DB, error) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := entity.Fields[name]
		col := field.Column
		switch cond := filters[name].(type) {
		case nil:
			query = query.Where(col + " IS NULL")
		case []any:
			values, err := convertList(field, name, cond)
			if err != nil {
				return nil, err
			}
			query = scopeIn(query, col, values)
		case map[string]any:
			ops := make([]string, 0, len(cond))
			for op := range cond {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				raw := cond[op]
				switch op {
				case "gte", "lte", "gt", "lt":
					v, err := convertFilterValue(field, name, raw)
					if err != nil {
						return nil, err
					}
					query = query.Where(fmt.Sprintf("%s %s ?", col, comparison[op]), v)
				case "is_null":
					if b, _ := raw.(bool); b {
						query = query.Where(col + " IS NULL")
					} else {
						query = query.Where(col + " IS NOT NULL")
					}
				case "in":
					list, ok := raw.([]any)
					if !ok {
						return nil, shared.Errorf(shared.CodeInvalidInput, "filter %s.in must be a list", name)
					}
					values, err := convertList(field, name, list)
					if err != nil {
						return nil, err
					}
					query = scopeIn(query, col, values)
				default:
					return nil, shared.Errorf(shared.CodeInvalidInput, "unknown filter operator %q on %s", op, name)
				}
			}
		default:
			v, err := convertFilterValue(field, name, cond)
			if err != nil {
				return nil, err
			}
			query = query.Where(col+" = ?", v)
		}
	}
	return query, nil
}

var comparison = map[string]string{"gte": ">=", "lte": "<=", "gt": ">", "lt": "<"}

func scopeIn(query *gorm.DB, col string, values []any) *gorm.DB {
	if len(values) == 0 {
		return query.Where("1 = 0")
	}
	return query.Where(col+" IN ?", values)
}

func convertList(field report.Field, name string, list []any) ([]any, error) {
	out := make([]any, 0, len(list))
	for _, item := range list {
		v, err := convertFilterValue(field, name, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// convertFilterValue turns a decoded JSON value into the column's Go type
func convertFilterValue(field report.Field, name string, raw any) (any, error) {
	invalid := func() error {
		return shared.Errorf(shared.CodeInvalidInput, "invalid value %v for filter %s", raw, name)
	}
	switch field.Kind {
	case report.KindUUID:
		switch v := raw.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, invalid()
			}
			return id, nil
		}
		return nil, invalid()
	case report.KindDate, report.KindTime:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano} {
				if t, err := time.Parse(layout, v); err == nil {
					return t.UTC(), nil
				}
			}
		}
		return nil, invalid()
	case report.KindNumber:
		switch v := raw.(type) {
		case float64, int, int64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, invalid()
			}
			return f, nil
		}
		return nil, invalid()
	case report.KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		return nil, invalid()
	default:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64, bool:
			return fmt.Sprint(v), nil
		}
		return nil, invalid()
	}
}

// normalizeValue makes driver values JSON friendly
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return x
	}
}
