package registry

import (
	"context"
	"errors"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityService    = "services"
	entityAttendance = "attendance"
)

// AttendanceService manages service events and their head counts
type AttendanceService struct {
	txScope core.TransactionScope
	authz   *appiam.Authorizer
	logger  *zap.Logger
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(txScope core.TransactionScope, authz *appiam.Authorizer, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{txScope: txScope, authz: authz, logger: logger}
}

func (f ServiceListFilter) scoped(units []uuid.UUID) registry.ServiceFilter {
	page := shared.Filter{Page: f.Page, PageSize: f.PageSize}.Normalize()
	return registry.ServiceFilter{
		OrgUnitID:  f.OrgUnitID,
		OrgUnitIDs: units,
		From:       f.From,
		To:         f.To,
		Page:       page.Page,
		PageSize:   page.PageSize,
	}
}

// ListServices returns services of the actor's org units, newest first
func (s *AttendanceService) ListServices(ctx context.Context, actor core.Actor, f ServiceListFilter) (shared.Paginated[ServiceDTO], error) {
	var result shared.Paginated[ServiceDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter := f.scoped(units)
		services, total, err := repos.ServiceRepo().FindAll(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]ServiceDTO, 0, len(services))
		for i := range services {
			items = append(items, ToServiceDTO(&services[i]))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// GetService returns a service the actor can reach
func (s *AttendanceService) GetService(ctx context.Context, actor core.Actor, id uuid.UUID) (*ServiceDTO, error) {
	var dto ServiceDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		service, err := repos.ServiceRepo().FindByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := s.authz.RequireOrgAccess(ctx, repos, actor, service.OrgUnitID); err != nil {
			return err
		}
		dto = ToServiceDTO(service)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// CreateService adds a service; (org unit, name, date) is unique
func (s *AttendanceService) CreateService(ctx context.Context, actor core.Actor, input CreateServiceInput) (*ServiceDTO, error) {
	var dto ServiceDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		if err := s.authz.ValidateOrgAccess(ctx, repos, actor, input.OrgUnitID, iam.PermAttendanceCreate); err != nil {
			return err
		}
		if _, err := repos.OrgUnitRepo().FindByID(ctx, actor.TenantID, input.OrgUnitID); err != nil {
			return err
		}
		service, err := registry.NewService(actor.TenantID, actor.UserID, input.OrgUnitID, input.Name, input.ServiceDate, input.ServiceTime)
		if err != nil {
			return err
		}
		existing, err := repos.ServiceRepo().FindByNaturalKey(ctx, actor.TenantID, service.OrgUnitID, service.Name, service.ServiceDate)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return shared.Errorf(shared.CodeAlreadyExists, "service %q on %s already exists",
				service.Name, service.ServiceDate.Format("2006-01-02"))
		}
		if err := repos.ServiceRepo().Save(ctx, service); err != nil {
			return err
		}
		dto = ToServiceDTO(service)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityService, service.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// ListAttendance returns attendance of services in the actor's org units
func (s *AttendanceService) ListAttendance(ctx context.Context, actor core.Actor, f ServiceListFilter) (shared.Paginated[AttendanceDTO], error) {
	var result shared.Paginated[AttendanceDTO]
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		units, err := s.authz.AccessibleOrgUnits(ctx, repos, actor.TenantID, actor.UserID)
		if err != nil {
			return err
		}
		filter := f.scoped(units)
		rows, total, err := repos.ServiceRepo().FindAttendance(ctx, actor.TenantID, filter)
		if err != nil {
			return err
		}
		items := make([]AttendanceDTO, 0, len(rows))
		for i := range rows {
			items = append(items, ToAttendanceDTO(&rows[i]))
		}
		result = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return result, err
}

// GetAttendance returns one attendance record
func (s *AttendanceService) GetAttendance(ctx context.Context, actor core.Actor, id uuid.UUID) (*AttendanceDTO, error) {
	var dto AttendanceDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		a, err := repos.ServiceRepo().FindAttendanceByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if _, err := s.service(ctx, repos, actor, a.ServiceID, ""); err != nil {
			return err
		}
		dto = ToAttendanceDTO(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// RecordAttendance creates the attendance of a service. A service has at most one record.
func (s *AttendanceService) RecordAttendance(ctx context.Context, actor core.Actor, serviceID uuid.UUID, input AttendanceInput) (*AttendanceDTO, error) {
	var dto AttendanceDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		service, err := s.service(ctx, repos, actor, serviceID, iam.PermAttendanceCreate)
		if err != nil {
			return err
		}
		_, err = repos.ServiceRepo().FindAttendanceByService(ctx, actor.TenantID, service.ID)
		switch {
		case err == nil:
			return shared.NewDomainError(shared.CodeAlreadyExists, "attendance already recorded for this service")
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}
		a, err := registry.NewAttendance(actor.TenantID, actor.UserID, service.ID, input.counts(), input.Notes)
		if err != nil {
			return err
		}
		if err := repos.ServiceRepo().SaveAttendance(ctx, a); err != nil {
			return err
		}
		dto = ToAttendanceDTO(a)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionCreate, entityAttendance, a.ID, nil, dto)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Attendance recorded",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("service_id", serviceID.String()),
		zap.Int("total", dto.TotalAttendance))
	return &dto, nil
}

// UpdateAttendance replaces the counts of an attendance record
func (s *AttendanceService) UpdateAttendance(ctx context.Context, actor core.Actor, id uuid.UUID, input AttendanceInput) (*AttendanceDTO, error) {
	var dto AttendanceDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		a, err := repos.ServiceRepo().FindAttendanceByID(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if _, err := s.service(ctx, repos, actor, a.ServiceID, iam.PermAttendanceUpdate); err != nil {
			return err
		}
		before := ToAttendanceDTO(a)
		if err := a.SetCounts(input.counts()); err != nil {
			return err
		}
		if input.Notes != nil {
			a.Notes = input.Notes
		}
		if err := repos.ServiceRepo().SaveAttendance(ctx, a); err != nil {
			return err
		}
		dto = ToAttendanceDTO(a)
		return core.RecordAudit(ctx, repos, actor, iam.AuditActionUpdate, entityAttendance, a.ID, before, dto)
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *AttendanceService) service(ctx context.Context, repos core.TransactionalRepositories, actor core.Actor, id uuid.UUID, code string) (*registry.Service, error) {
	service, err := repos.ServiceRepo().FindByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if code == "" {
		err = s.authz.RequireOrgAccess(ctx, repos, actor, service.OrgUnitID)
	} else {
		err = s.authz.ValidateOrgAccess(ctx, repos, actor, service.OrgUnitID, code)
	}
	if err != nil {
		return nil, err
	}
	return service, nil
}
