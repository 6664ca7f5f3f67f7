package handler

import (
	"context"
	"time"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
	appiam "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/identity"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/iam"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IAMHandler handles org units, roles, assignments, users and the audit log
type IAMHandler struct {
	BaseHandler
	orgUnits    *appiam.OrgUnitService
	roles       *appiam.RoleService
	permissions *appiam.PermissionService
	assignments *appiam.AssignmentService
	audit       *appiam.AuditService
	users       *identity.UserService
}

// IAMServices groups the services behind IAMHandler
type IAMServices struct {
	OrgUnits    *appiam.OrgUnitService
	Roles       *appiam.RoleService
	Permissions *appiam.PermissionService
	Assignments *appiam.AssignmentService
	Audit       *appiam.AuditService
	Users       *identity.UserService
}

// NewIAMHandler creates a new IAMHandler
func NewIAMHandler(s IAMServices, log *zap.Logger) *IAMHandler {
	return &IAMHandler{
		BaseHandler: newBase(log),
		orgUnits:    s.OrgUnits,
		roles:       s.Roles,
		permissions: s.Permissions,
		assignments: s.Assignments,
		audit:       s.Audit,
		users:       s.Users,
	}
}

// Org units

// OrgUnitListQuery filters GET /iam/org-units
type OrgUnitListQuery struct {
	dto.PageQuery
	Type     string `form:"type" binding:"omitempty,orgunittype"`
	ParentID string `form:"parent_id" binding:"omitempty,uuid"`
	Search   string `form:"search" binding:"max=100"`
}

// CreateOrgUnitRequest is the body of POST /iam/org-units
type CreateOrgUnitRequest struct {
	Name     string     `json:"name" binding:"required,max=255"`
	Type     string     `json:"type" binding:"required,orgunittype"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// UpdateOrgUnitRequest is the body of PATCH /iam/org-units/:id. A parent_id
// moves the unit.
type UpdateOrgUnitRequest struct {
	Name     *string    `json:"name" binding:"omitempty,max=255"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// ListOrgUnits godoc
//
//	@ID			listOrgUnits
//	@Summary	List org units
//	@Tags		iam
//	@Produce	json
//	@Param		type		query		string	false	"region, zone, group, church or outreach"
//	@Param		parent_id	query		string	false	"Parent unit"
//	@Param		search		query		string	false	"Name contains"
//	@Success	200			{object}	dto.Response{data=[]appiam.OrgUnitDTO}
//	@Security	BearerAuth
//	@Router		/iam/org-units [get]
func (h *IAMHandler) ListOrgUnits(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q OrgUnitListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.orgUnits.List(c.Request.Context(), actor, appiam.OrgUnitListFilter{
		Type:     q.Type,
		ParentID: optionalUUID(q.ParentID),
		Search:   q.Search,
		Page:     p,
		PageSize: size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetOrgUnit returns one org unit
func (h *IAMHandler) GetOrgUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	unit, err := h.orgUnits.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, unit, err)
}

// OrgUnitChildren lists the direct children of a unit
func (h *IAMHandler) OrgUnitChildren(c *gin.Context) {
	h.orgUnitRelatives(c, h.orgUnits.Children)
}

// OrgUnitSubtree lists a unit and all its descendants
func (h *IAMHandler) OrgUnitSubtree(c *gin.Context) {
	h.orgUnitRelatives(c, h.orgUnits.Subtree)
}

// OrgUnitAncestors lists the chain from a unit up to the root
func (h *IAMHandler) OrgUnitAncestors(c *gin.Context) {
	h.orgUnitRelatives(c, h.orgUnits.Ancestors)
}

func (h *IAMHandler) orgUnitRelatives(c *gin.Context, fetch func(context.Context, core.Actor, uuid.UUID) ([]appiam.OrgUnitDTO, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	units, err := fetch(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, units, err)
}

// CreateOrgUnit godoc
//
//	@ID			createOrgUnit
//	@Summary	Create an org unit
//	@Tags		iam
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateOrgUnitRequest	true	"Org unit"
//	@Success	201		{object}	dto.Response{data=appiam.OrgUnitDTO}
//	@Failure	400		{object}	dto.Response
//	@Failure	403		{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/iam/org-units [post]
func (h *IAMHandler) CreateOrgUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateOrgUnitRequest
	if !h.bindJSON(c, &req) {
		return
	}
	unit, err := h.orgUnits.Create(c.Request.Context(), actor, appiam.CreateOrgUnitInput{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
	})
	created(&h.BaseHandler, c, unit, err)
}

// UpdateOrgUnit renames or moves an org unit
func (h *IAMHandler) UpdateOrgUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrgUnitRequest
	if !h.bindJSON(c, &req) {
		return
	}
	unit, err := h.orgUnits.Update(c.Request.Context(), actor, id, appiam.UpdateOrgUnitInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	respond(&h.BaseHandler, c, unit, err)
}

// DeleteOrgUnit deletes a leaf unit nothing refers to
func (h *IAMHandler) DeleteOrgUnit(c *gin.Context) {
	h.deleteByID(c, h.orgUnits.Delete)
}

// Roles

// RoleRequest is the body of POST and PUT /iam/roles
type RoleRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// PermissionIDsRequest carries the permissions granted to a role
type PermissionIDsRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids" binding:"required,min=1,dive,required"`
}

// ReplacePermissionsRequest is the body of PUT /iam/roles/:id/permissions. An
// empty list clears the role.
type ReplacePermissionsRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids" binding:"dive,required"`
}

// ListRoles lists the roles of the tenant
func (h *IAMHandler) ListRoles(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.roles.List(c.Request.Context(), actor, p, size)
	page(&h.BaseHandler, c, result, err)
}

// GetRole returns one role
func (h *IAMHandler) GetRole(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	role, err := h.roles.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, role, err)
}

// CreateRole godoc
//
//	@ID			createRole
//	@Summary	Create a role
//	@Tags		iam
//	@Accept		json
//	@Produce	json
//	@Param		request	body		RoleRequest	true	"Role"
//	@Success	201		{object}	dto.Response{data=appiam.RoleDTO}
//	@Failure	409		{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/iam/roles [post]
func (h *IAMHandler) CreateRole(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req RoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roles.Create(c.Request.Context(), actor, req.Name)
	created(&h.BaseHandler, c, role, err)
}

// UpdateRole renames a role
func (h *IAMHandler) UpdateRole(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roles.Update(c.Request.Context(), actor, id, req.Name)
	respond(&h.BaseHandler, c, role, err)
}

// DeleteRole deletes a role no assignment uses
func (h *IAMHandler) DeleteRole(c *gin.Context) {
	h.deleteByID(c, h.roles.Delete)
}

// RolePermissions lists the permissions of a role
func (h *IAMHandler) RolePermissions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	perms, err := h.roles.Permissions(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, perms, err)
}

// AssignRolePermissions adds permissions to a role
func (h *IAMHandler) AssignRolePermissions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req PermissionIDsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	perms, err := h.roles.AssignPermissions(c.Request.Context(), actor, id, req.PermissionIDs)
	respond(&h.BaseHandler, c, perms, err)
}

// ReplaceRolePermissions sets the exact permission set of a role
func (h *IAMHandler) ReplaceRolePermissions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ReplacePermissionsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	perms, err := h.roles.ReplacePermissions(c.Request.Context(), actor, id, req.PermissionIDs)
	respond(&h.BaseHandler, c, perms, err)
}

// RemoveRolePermission removes one permission from a role
func (h *IAMHandler) RemoveRolePermission(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	permID, ok := h.pathID(c, "permissionId")
	if !ok {
		return
	}
	if err := h.roles.RemovePermission(c.Request.Context(), actor, id, permID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListPermissions lists the permission catalogue, optionally for one module
func (h *IAMHandler) ListPermissions(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	perms, err := h.permissions.List(c.Request.Context(), c.Query("module"))
	respond(&h.BaseHandler, c, perms, err)
}

// Assignments

// AssignmentRequest is the body of POST /iam/assignments and one element of
// the bulk variant
type AssignmentRequest struct {
	UserID           uuid.UUID   `json:"user_id" binding:"required"`
	OrgUnitID        uuid.UUID   `json:"org_unit_id" binding:"required"`
	RoleID           uuid.UUID   `json:"role_id" binding:"required"`
	ScopeType        string      `json:"scope_type" binding:"required,scopetype"`
	CustomOrgUnitIDs []uuid.UUID `json:"custom_org_unit_ids"`
}

func (r AssignmentRequest) input() appiam.CreateAssignmentInput {
	return appiam.CreateAssignmentInput{
		UserID:           r.UserID,
		OrgUnitID:        r.OrgUnitID,
		RoleID:           r.RoleID,
		ScopeType:        r.ScopeType,
		CustomOrgUnitIDs: r.CustomOrgUnitIDs,
	}
}

// BulkAssignmentRequest is the body of POST /iam/assignments/bulk
type BulkAssignmentRequest struct {
	Assignments []AssignmentRequest `json:"assignments" binding:"required,min=1,max=100,dive"`
}

// UpdateAssignmentRequest is the body of PATCH /iam/assignments/:id
type UpdateAssignmentRequest struct {
	RoleID    *uuid.UUID `json:"role_id"`
	ScopeType *string    `json:"scope_type" binding:"omitempty,scopetype"`
}

// CustomUnitRequest is the body of POST /iam/assignments/:id/units
type CustomUnitRequest struct {
	OrgUnitID uuid.UUID `json:"org_unit_id" binding:"required"`
}

// AssignmentListQuery selects assignments by user or by org unit
type AssignmentListQuery struct {
	UserID    string `form:"user_id" binding:"required_without=OrgUnitID,omitempty,uuid"`
	OrgUnitID string `form:"org_unit_id" binding:"required_without=UserID,omitempty,uuid"`
}

// ListAssignments lists the assignments of a user or of an org unit
func (h *IAMHandler) ListAssignments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q AssignmentListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	var (
		list []appiam.AssignmentDTO
		err  error
	)
	if id := optionalUUID(q.UserID); id != nil {
		list, err = h.assignments.ListForUser(c.Request.Context(), actor, *id)
	} else {
		list, err = h.assignments.ListForOrgUnit(c.Request.Context(), actor, *optionalUUID(q.OrgUnitID))
	}
	respond(&h.BaseHandler, c, list, err)
}

// GetAssignment returns one assignment
func (h *IAMHandler) GetAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.assignments.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, a, err)
}

// CreateAssignment gives a user a role at an org unit
func (h *IAMHandler) CreateAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req AssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.assignments.Create(c.Request.Context(), actor, req.input())
	created(&h.BaseHandler, c, a, err)
}

// CreateAssignmentsBulk creates several assignments and reports each outcome
func (h *IAMHandler) CreateAssignmentsBulk(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req BulkAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	inputs := make([]appiam.CreateAssignmentInput, len(req.Assignments))
	for i, a := range req.Assignments {
		inputs[i] = a.input()
	}
	result, err := h.assignments.CreateBulk(c.Request.Context(), actor, inputs)
	respond(&h.BaseHandler, c, result, err)
}

// UpdateAssignment changes the role or the scope of an assignment
func (h *IAMHandler) UpdateAssignment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.assignments.Update(c.Request.Context(), actor, id, appiam.UpdateAssignmentInput{
		RoleID:    req.RoleID,
		ScopeType: req.ScopeType,
	})
	respond(&h.BaseHandler, c, a, err)
}

// DeleteAssignment removes an assignment
func (h *IAMHandler) DeleteAssignment(c *gin.Context) {
	h.deleteByID(c, h.assignments.Delete)
}

// AddAssignmentUnit adds a unit to a custom-scope assignment
func (h *IAMHandler) AddAssignmentUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req CustomUnitRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.assignments.AddCustomUnit(c.Request.Context(), actor, id, req.OrgUnitID)
	respond(&h.BaseHandler, c, a, err)
}

// RemoveAssignmentUnit removes a unit from a custom-scope assignment
func (h *IAMHandler) RemoveAssignmentUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	unitID, ok := h.pathID(c, "orgUnitId")
	if !ok {
		return
	}
	if err := h.assignments.RemoveCustomUnit(c.Request.Context(), actor, id, unitID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Audit log

// AuditLogQuery filters GET /iam/audit-logs
type AuditLogQuery struct {
	dto.PageQuery
	ActorID    string     `form:"actor_id" binding:"omitempty,uuid"`
	Action     string     `form:"action" binding:"max=50"`
	EntityType string     `form:"entity_type" binding:"max=50"`
	EntityID   string     `form:"entity_id" binding:"omitempty,uuid"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
}

// ListAuditLogs lists audit entries, newest first
func (h *IAMHandler) ListAuditLogs(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q AuditLogQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.audit.List(c.Request.Context(), actor, iam.AuditLogFilter{
		ActorID:    optionalUUID(q.ActorID),
		Action:     q.Action,
		EntityType: q.EntityType,
		EntityID:   optionalUUID(q.EntityID),
		From:       q.From,
		To:         q.To,
		Page:       p,
		PageSize:   size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetAuditLog returns one audit entry
func (h *IAMHandler) GetAuditLog(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.audit.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, entry, err)
}

// Users

// InviteRequest is the body of POST /iam/users/invite
type InviteRequest struct {
	Email      string                   `json:"email" binding:"required,email,max=255"`
	Assignment *InviteAssignmentRequest `json:"assignment"`
}

// InviteAssignmentRequest is the optional first assignment of an invitee
type InviteAssignmentRequest struct {
	OrgUnitID        uuid.UUID   `json:"org_unit_id" binding:"required"`
	RoleID           uuid.UUID   `json:"role_id" binding:"required"`
	ScopeType        string      `json:"scope_type" binding:"required,scopetype"`
	CustomOrgUnitIDs []uuid.UUID `json:"custom_org_unit_ids"`
}

// UserListQuery filters GET /iam/users
type UserListQuery struct {
	dto.PageQuery
	Search string `form:"search" binding:"max=100"`
}

// InviteUser godoc
//
//	@ID				inviteUser
//	@Summary		Invite a user
//	@Description	Create an active user with a one-time password, optionally with a first assignment, and email the invitation
//	@Tags			iam
//	@Accept			json
//	@Produce		json
//	@Param			request	body		InviteRequest	true	"Invitation"
//	@Success		201		{object}	dto.Response{data=identity.InviteResult}
//	@Failure		409		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/iam/users/invite [post]
func (h *IAMHandler) InviteUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req InviteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	input := identity.InviteInput{Email: req.Email}
	if a := req.Assignment; a != nil {
		input.Assignment = &identity.InviteAssignment{
			OrgUnitID:        a.OrgUnitID,
			RoleID:           a.RoleID,
			ScopeType:        a.ScopeType,
			CustomOrgUnitIDs: a.CustomOrgUnitIDs,
		}
	}
	result, err := h.users.Invite(c.Request.Context(), actor, input)
	created(&h.BaseHandler, c, result, err)
}

// ListUsers lists the users of the tenant
func (h *IAMHandler) ListUsers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q UserListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.users.List(c.Request.Context(), actor, p, size, q.Search)
	page(&h.BaseHandler, c, result, err)
}

// GetUser returns one user
func (h *IAMHandler) GetUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, u, err)
}

// DeactivateUser disables sign-in and revokes the user's sessions
func (h *IAMHandler) DeactivateUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.users.Deactivate(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, u, err)
}
