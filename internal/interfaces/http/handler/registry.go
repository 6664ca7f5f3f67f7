package handler

import (
	"time"

	appregistry "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/registry"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegistryHandler handles people, first-timers, services, attendance and departments
type RegistryHandler struct {
	BaseHandler
	people      *appregistry.PersonService
	firstTimers *appregistry.FirstTimerService
	attendance  *appregistry.AttendanceService
	departments *appregistry.DepartmentService
}

// NewRegistryHandler creates a new RegistryHandler
func NewRegistryHandler(
	people *appregistry.PersonService,
	firstTimers *appregistry.FirstTimerService,
	attendance *appregistry.AttendanceService,
	departments *appregistry.DepartmentService,
	log *zap.Logger,
) *RegistryHandler {
	return &RegistryHandler{
		BaseHandler: newBase(log),
		people:      people,
		firstTimers: firstTimers,
		attendance:  attendance,
		departments: departments,
	}
}

// People

// PersonListQuery filters GET /registry/people
type PersonListQuery struct {
	dto.PageQuery
	OrgUnitID string `form:"org_unit_id" binding:"omitempty,uuid"`
	Search    string `form:"search" binding:"max=100"`
}

// MembershipRequest sets the membership record of a person
type MembershipRequest struct {
	Status              string     `json:"status" binding:"required,max=20"`
	JoinDate            *dto.Date  `json:"join_date"`
	FoundationCompleted bool       `json:"foundation_completed"`
	BaptismDate         *dto.Date  `json:"baptism_date"`
	CellID              *uuid.UUID `json:"cell_id"`
}

func (r *MembershipRequest) input() *appregistry.MembershipInput {
	if r == nil {
		return nil
	}
	return &appregistry.MembershipInput{
		Status:              r.Status,
		JoinDate:            r.JoinDate.TimePtr(),
		FoundationCompleted: r.FoundationCompleted,
		BaptismDate:         r.BaptismDate.TimePtr(),
		CellID:              r.CellID,
	}
}

// PersonRequest is the body of POST and PUT /registry/people
type PersonRequest struct {
	OrgUnitID          uuid.UUID          `json:"org_unit_id" binding:"required"`
	Title              *string            `json:"title" binding:"omitempty,max=20"`
	FirstName          string             `json:"first_name" binding:"required,max=100"`
	LastName           string             `json:"last_name" binding:"required,max=100"`
	Alias              *string            `json:"alias" binding:"omitempty,max=100"`
	DOB                *dto.Date          `json:"dob"`
	Gender             string             `json:"gender" binding:"required,max=20"`
	Email              *string            `json:"email" binding:"omitempty,email,max=255"`
	Phone              *string            `json:"phone" binding:"omitempty,max=50"`
	AddressLine1       *string            `json:"address_line1" binding:"omitempty,max=255"`
	AddressLine2       *string            `json:"address_line2" binding:"omitempty,max=255"`
	Town               *string            `json:"town" binding:"omitempty,max=100"`
	County             *string            `json:"county" binding:"omitempty,max=100"`
	Eircode            *string            `json:"eircode" binding:"omitempty,max=10"`
	MaritalStatus      *string            `json:"marital_status" binding:"omitempty,max=20"`
	ConsentContact     *bool              `json:"consent_contact"`
	ConsentDataStorage *bool              `json:"consent_data_storage"`
	Membership         *MembershipRequest `json:"membership"`
}

func (r PersonRequest) input() appregistry.PersonInput {
	return appregistry.PersonInput{
		OrgUnitID:          r.OrgUnitID,
		Title:              r.Title,
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		Alias:              r.Alias,
		DOB:                r.DOB.TimePtr(),
		Gender:             r.Gender,
		Email:              r.Email,
		Phone:              r.Phone,
		AddressLine1:       r.AddressLine1,
		AddressLine2:       r.AddressLine2,
		Town:               r.Town,
		County:             r.County,
		Eircode:            r.Eircode,
		MaritalStatus:      r.MaritalStatus,
		ConsentContact:     r.ConsentContact,
		ConsentDataStorage: r.ConsentDataStorage,
		Membership:         r.Membership.input(),
	}
}

// MergeRequest is the body of POST /registry/people/merge
type MergeRequest struct {
	SourceID uuid.UUID `json:"source_id" binding:"required"`
	TargetID uuid.UUID `json:"target_id" binding:"required,nefield=SourceID"`
	Reason   string    `json:"reason" binding:"max=500"`
}

// ListPeople lists people visible to the caller
func (h *RegistryHandler) ListPeople(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q PersonListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.people.List(c.Request.Context(), actor, appregistry.PersonListFilter{
		OrgUnitID: optionalUUID(q.OrgUnitID),
		Search:    q.Search,
		Page:      p,
		PageSize:  size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetPerson returns one person with their membership
func (h *RegistryHandler) GetPerson(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	person, err := h.people.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, person, err)
}

// CreatePerson godoc
//
//	@ID				createPerson
//	@Summary		Register a person
//	@Description	Creates a person and, when membership is given, their membership record. Members get the next MEM-nnnn code.
//	@Tags			registry
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PersonRequest	true	"Person"
//	@Success		201		{object}	dto.Response{data=appregistry.PersonDTO}
//	@Failure		400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/registry/people [post]
func (h *RegistryHandler) CreatePerson(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req PersonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	person, err := h.people.Create(c.Request.Context(), actor, req.input())
	created(&h.BaseHandler, c, person, err)
}

// UpdatePerson replaces the details of a person
func (h *RegistryHandler) UpdatePerson(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req PersonRequest
	if !h.bindJSON(c, &req) {
		return
	}
	person, err := h.people.Update(c.Request.Context(), actor, id, req.input())
	respond(&h.BaseHandler, c, person, err)
}

// UpdateMembership upserts the membership record of a person
func (h *RegistryHandler) UpdateMembership(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req MembershipRequest
	if !h.bindJSON(c, &req) {
		return
	}
	person, err := h.people.UpdateMembership(c.Request.Context(), actor, id, *req.input())
	respond(&h.BaseHandler, c, person, err)
}

// DeletePerson deletes a person
func (h *RegistryHandler) DeletePerson(c *gin.Context) {
	h.deleteByID(c, h.people.Delete)
}

// MergePeople folds a duplicate person into another
func (h *RegistryHandler) MergePeople(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req MergeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.people.Merge(c.Request.Context(), actor, appregistry.MergeInput{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		Reason:   req.Reason,
	})
	respond(&h.BaseHandler, c, result, err)
}

// First-timers

// FirstTimerListQuery filters GET /registry/first-timers
type FirstTimerListQuery struct {
	dto.PageQuery
	ServiceID string `form:"service_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=New Contacted Returned Member"`
}

// CreateFirstTimerRequest is the body of POST /registry/first-timers
type CreateFirstTimerRequest struct {
	ServiceID uuid.UUID  `json:"service_id" binding:"required"`
	PersonID  *uuid.UUID `json:"person_id"`
	Source    *string    `json:"source" binding:"omitempty,max=100"`
	Notes     *string    `json:"notes" binding:"omitempty,max=2000"`
}

// FirstTimerStatusRequest is the body of PATCH /registry/first-timers/:id/status
type FirstTimerStatusRequest struct {
	Status string  `json:"status" binding:"required,oneof=New Contacted Returned Member"`
	Notes  *string `json:"notes" binding:"omitempty,max=2000"`
}

// ListFirstTimers lists first-timers
func (h *RegistryHandler) ListFirstTimers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q FirstTimerListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.firstTimers.List(c.Request.Context(), actor, appregistry.FirstTimerListFilter{
		ServiceID: optionalUUID(q.ServiceID),
		Status:    q.Status,
		Page:      p,
		PageSize:  size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetFirstTimer returns one first-timer
func (h *RegistryHandler) GetFirstTimer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	ft, err := h.firstTimers.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, ft, err)
}

// CreateFirstTimer records a first-time visit at a service
func (h *RegistryHandler) CreateFirstTimer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateFirstTimerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ft, err := h.firstTimers.Create(c.Request.Context(), actor, appregistry.CreateFirstTimerInput{
		ServiceID: req.ServiceID,
		PersonID:  req.PersonID,
		Source:    req.Source,
		Notes:     req.Notes,
	})
	created(&h.BaseHandler, c, ft, err)
}

// UpdateFirstTimerStatus moves a first-timer along the follow-up pipeline
func (h *RegistryHandler) UpdateFirstTimerStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req FirstTimerStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ft, err := h.firstTimers.UpdateStatus(c.Request.Context(), actor, id, req.Status, req.Notes)
	respond(&h.BaseHandler, c, ft, err)
}

// ConvertFirstTimer turns a first-timer into a member. The body describes the
// person to create when the first-timer is not linked to one yet.
func (h *RegistryHandler) ConvertFirstTimer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var input appregistry.ConvertInput
	if c.Request.ContentLength > 0 {
		var req PersonRequest
		if !h.bindJSON(c, &req) {
			return
		}
		input.Person = req.input()
	}
	result, err := h.firstTimers.Convert(c.Request.Context(), actor, id, input)
	respond(&h.BaseHandler, c, result, err)
}

// Services and attendance

// ServiceListQuery filters GET /registry/services and /registry/attendance
type ServiceListQuery struct {
	dto.PageQuery
	OrgUnitID string     `form:"org_unit_id" binding:"omitempty,uuid"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
}

func (q ServiceListQuery) filter() appregistry.ServiceListFilter {
	p, size := q.Normalize()
	return appregistry.ServiceListFilter{
		OrgUnitID: optionalUUID(q.OrgUnitID),
		From:      q.From,
		To:        q.To,
		Page:      p,
		PageSize:  size,
	}
}

// CreateServiceRequest is the body of POST /registry/services
type CreateServiceRequest struct {
	OrgUnitID   uuid.UUID `json:"org_unit_id" binding:"required"`
	Name        string    `json:"name" binding:"required,max=255"`
	ServiceDate *dto.Date `json:"service_date" binding:"required"`
	ServiceTime *string   `json:"service_time" binding:"omitempty,len=5"`
}

// AttendanceRequest is the body of attendance create and update
type AttendanceRequest struct {
	Men         int     `json:"men" binding:"min=0"`
	Women       int     `json:"women" binding:"min=0"`
	Teens       int     `json:"teens" binding:"min=0"`
	Kids        int     `json:"kids" binding:"min=0"`
	FirstTimers int     `json:"first_timers" binding:"min=0"`
	NewConverts int     `json:"new_converts" binding:"min=0"`
	Notes       *string `json:"notes" binding:"omitempty,max=2000"`
}

func (r AttendanceRequest) input() appregistry.AttendanceInput {
	return appregistry.AttendanceInput{
		Men:         r.Men,
		Women:       r.Women,
		Teens:       r.Teens,
		Kids:        r.Kids,
		FirstTimers: r.FirstTimers,
		NewConverts: r.NewConverts,
		Notes:       r.Notes,
	}
}

// ListServices lists services
func (h *RegistryHandler) ListServices(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ServiceListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.attendance.ListServices(c.Request.Context(), actor, q.filter())
	page(&h.BaseHandler, c, result, err)
}

// GetService returns one service
func (h *RegistryHandler) GetService(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	svc, err := h.attendance.GetService(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, svc, err)
}

// CreateService schedules a service at an org unit
func (h *RegistryHandler) CreateService(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateServiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	svc, err := h.attendance.CreateService(c.Request.Context(), actor, appregistry.CreateServiceInput{
		OrgUnitID:   req.OrgUnitID,
		Name:        req.Name,
		ServiceDate: req.ServiceDate.Time,
		ServiceTime: req.ServiceTime,
	})
	created(&h.BaseHandler, c, svc, err)
}

// ListAttendance lists attendance records of services
func (h *RegistryHandler) ListAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ServiceListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.attendance.ListAttendance(c.Request.Context(), actor, q.filter())
	page(&h.BaseHandler, c, result, err)
}

// GetAttendance returns one attendance record
func (h *RegistryHandler) GetAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.attendance.GetAttendance(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, a, err)
}

// RecordAttendance records the head count of a service
func (h *RegistryHandler) RecordAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	serviceID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req AttendanceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.attendance.RecordAttendance(c.Request.Context(), actor, serviceID, req.input())
	created(&h.BaseHandler, c, a, err)
}

// UpdateAttendance corrects an attendance record
func (h *RegistryHandler) UpdateAttendance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req AttendanceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.attendance.UpdateAttendance(c.Request.Context(), actor, id, req.input())
	respond(&h.BaseHandler, c, a, err)
}

// Departments

// DepartmentListQuery filters GET /registry/departments
type DepartmentListQuery struct {
	dto.PageQuery
	OrgUnitID string `form:"org_unit_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,max=20"`
}

// CreateDepartmentRequest is the body of POST /registry/departments
type CreateDepartmentRequest struct {
	OrgUnitID uuid.UUID `json:"org_unit_id" binding:"required"`
	Name      string    `json:"name" binding:"required,max=255"`
}

// UpdateDepartmentRequest is the body of PATCH /registry/departments/:id
type UpdateDepartmentRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=255"`
	Status *string `json:"status" binding:"omitempty,max=20"`
}

// AssignMemberRequest is the body of POST /registry/departments/:id/members
type AssignMemberRequest struct {
	PersonID  uuid.UUID `json:"person_id" binding:"required"`
	Role      string    `json:"role" binding:"required,max=50"`
	StartDate *dto.Date `json:"start_date"`
	EndDate   *dto.Date `json:"end_date"`
}

// ListDepartments lists departments
func (h *RegistryHandler) ListDepartments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q DepartmentListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.departments.List(c.Request.Context(), actor, appregistry.DepartmentListFilter{
		OrgUnitID: optionalUUID(q.OrgUnitID),
		Status:    q.Status,
		Page:      p,
		PageSize:  size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetDepartment returns one department
func (h *RegistryHandler) GetDepartment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.departments.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, d, err)
}

// CreateDepartment creates a department at an org unit
func (h *RegistryHandler) CreateDepartment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateDepartmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	d, err := h.departments.Create(c.Request.Context(), actor, req.OrgUnitID, req.Name)
	created(&h.BaseHandler, c, d, err)
}

// UpdateDepartment renames or (de)activates a department
func (h *RegistryHandler) UpdateDepartment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateDepartmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	d, err := h.departments.Update(c.Request.Context(), actor, id, req.Name, req.Status)
	respond(&h.BaseHandler, c, d, err)
}

// DeleteDepartment deletes a department
func (h *RegistryHandler) DeleteDepartment(c *gin.Context) {
	h.deleteByID(c, h.departments.Delete)
}

// DepartmentMembers lists the members of a department
func (h *RegistryHandler) DepartmentMembers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	members, err := h.departments.Members(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, members, err)
}

// AssignDepartmentMember adds a person to a department
func (h *RegistryHandler) AssignDepartmentMember(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req AssignMemberRequest
	if !h.bindJSON(c, &req) {
		return
	}
	m, err := h.departments.AssignMember(c.Request.Context(), actor, id, appregistry.AssignMemberInput{
		PersonID:  req.PersonID,
		Role:      req.Role,
		StartDate: req.StartDate.TimePtr(),
		EndDate:   req.EndDate.TimePtr(),
	})
	created(&h.BaseHandler, c, m, err)
}

// RemoveDepartmentMember removes a person from a department
func (h *RegistryHandler) RemoveDepartmentMember(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	personID, ok := h.pathID(c, "personId")
	if !ok {
		return
	}
	if err := h.departments.RemoveMember(c.Request.Context(), actor, id, personID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
