package report

import (
	"context"
	"slices"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityReport    = "reports"
	auditActionView = "report.view"
)

// Dashboard types
const (
	DashboardFinance    = "finance"
	DashboardAttendance = "attendance"
	DashboardCells      = "cells"
)

// QueryService runs report definitions and the dashboards built on them
type QueryService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *QueryService {
	return &QueryService{txScope: txScope, authz: authz, logger: logger}
}

// ExecuteQuery runs def restricted to the org units the actor can reach
func (s *QueryService) ExecuteQuery(ctx context.Context, actor core.Actor, def report.QueryDefinition) (*report.QueryResult, error) {
	var result *report.QueryResult
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermReportsQuery); err != nil {
			return err
		}
		normalized, err := def.Normalize()
		if err != nil {
			return err
		}
		result, err = s.run(ctx, repos, actor, normalized, nil)
		if err != nil {
			return err
		}
		return core.RecordAudit(ctx, repos, actor, auditActionView, entityReport, uuid.Nil, nil, map[string]any{
			"entity_type": normalized.EntityType,
			"rows":        len(result.Rows),
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Report query executed",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("entity_type", string(def.EntityType)),
		zap.Int("rows", len(result.Rows)))
	return result, nil
}

// run executes def as actor. A non-nil within narrows the result to that
// unit's subtree, intersected with the actor's reach.
func (s *QueryService) run(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, def report.QueryDefinition, within *uuid.UUID) (*report.QueryResult, error) {
	units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if within != nil {
		if !slices.Contains(units, *within) {
			return nil, shared.NewDomainError(shared.CodeForbidden, "no access to the requested org unit")
		}
		subtree, err := repos.OrgUnitRepo().FindDescendantIDs(ctx, actor.TenantID, *within)
		if err != nil {
			return nil, err
		}
		subtree = append(subtree, *within)
		units = slices.DeleteFunc(subtree, func(id uuid.UUID) bool {
			return !slices.Contains(units, id)
		})
	}
	return repos.ReportQueries().Execute(ctx, actor.TenantID, def, units)
}

// Dashboard builds one of the predefined summaries
func (s *QueryService) Dashboard(ctx context.Context, actor core.Actor, kind string, input DashboardInput) (*DashboardDTO, error) {
	defs, err := dashboardQueries(kind, input)
	if err != nil {
		return nil, err
	}
	dto := &DashboardDTO{Type: kind, From: input.From, To: input.To, Sections: make(map[string]*report.QueryResult, len(defs))}
	err = s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.RequirePermission(ctx, repos, actor, iam.PermReportsDashboards); err != nil {
			return err
		}
		for name, def := range defs {
			normalized, err := def.Normalize()
			if err != nil {
				return err
			}
			result, err := s.run(ctx, repos, actor, normalized, input.OrgUnitID)
			if err != nil {
				return err
			}
			dto.Sections[name] = result
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func dashboardQueries(kind string, input DashboardInput) (map[string]report.QueryDefinition, error) {
	period := func(field string) map[string]any {
		filters := map[string]any{}
		bounds := map[string]any{}
		if input.From != nil {
			bounds["gte"] = input.From.Format(time.DateOnly)
		}
		if input.To != nil {
			bounds["lte"] = input.To.Format(time.DateOnly)
		}
		if len(bounds) > 0 {
			filters[field] = bounds
		}
		return filters
	}
	byMonth := func(field string) []report.OrderBy {
		return []report.OrderBy{{Field: "date_trunc_month_" + field}}
	}

	switch kind {
	case DashboardFinance:
		return map[string]report.QueryDefinition{
			"totals": {
				EntityType: report.EntityFinanceEntries,
				Filters:    period("transaction_date"),
				Aggregations: []report.Aggregation{
					{Field: "amount", Function: report.AggSum, Alias: "total_amount"},
					{Function: report.AggCount, Alias: "entry_count"},
				},
			},
			"by_fund": {
				EntityType:   report.EntityFinanceEntries,
				Filters:      period("transaction_date"),
				Aggregations: []report.Aggregation{{Field: "amount", Function: report.AggSum, Alias: "total_amount"}},
				GroupBy:      []string{"fund_id"},
				OrderBy:      []report.OrderBy{{Field: "total_amount", Direction: "desc"}},
			},
			"by_month": {
				EntityType:   report.EntityFinanceEntries,
				Filters:      period("transaction_date"),
				Aggregations: []report.Aggregation{{Field: "amount", Function: report.AggSum, Alias: "total_amount"}},
				GroupBy:      []string{"date_trunc_month_transaction_date"},
				OrderBy:      byMonth("transaction_date"),
			},
		}, nil
	case DashboardAttendance:
		return map[string]report.QueryDefinition{
			"totals": {
				EntityType: report.EntityAttendance,
				Filters:    period("service_date"),
				Aggregations: []report.Aggregation{
					{Field: "total_attendance", Function: report.AggSum, Alias: "total_attendance"},
					{Field: "first_timers_count", Function: report.AggSum, Alias: "first_timers"},
					{Field: "new_converts_count", Function: report.AggSum, Alias: "new_converts"},
					{Field: "total_attendance", Function: report.AggAvg, Alias: "average_attendance"},
				},
			},
			"by_month": {
				EntityType:   report.EntityAttendance,
				Filters:      period("service_date"),
				Aggregations: []report.Aggregation{{Field: "total_attendance", Function: report.AggSum, Alias: "total_attendance"}},
				GroupBy:      []string{"date_trunc_month_service_date"},
				OrderBy:      byMonth("service_date"),
			},
		}, nil
	case DashboardCells:
		return map[string]report.QueryDefinition{
			"totals": {
				EntityType: report.EntityCellReports,
				Filters:    period("report_date"),
				Aggregations: []report.Aggregation{
					{Function: report.AggCount, Alias: "report_count"},
					{Field: "attendance", Function: report.AggSum, Alias: "total_attendance"},
					{Field: "offerings_total", Function: report.AggSum, Alias: "total_offerings"},
				},
			},
			"by_cell": {
				EntityType: report.EntityCellReports,
				Filters:    period("report_date"),
				Aggregations: []report.Aggregation{
					{Function: report.AggCount, Alias: "report_count"},
					{Field: "attendance", Function: report.AggAvg, Alias: "average_attendance"},
				},
				GroupBy: []string{"cell_id"},
				OrderBy: []report.OrderBy{{Field: "report_count", Direction: "desc"}},
			},
		}, nil
	default:
		return nil, shared.Errorf(shared.CodeInvalidInput, "unknown dashboard type %q", kind)
	}
}
