package handler

import (
	"io"
	"time"

	appreport "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/report"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/domain/report"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportHandler handles ad-hoc queries, dashboards, exports, templates and schedules
type ReportHandler struct {
	BaseHandler
	queries   *appreport.QueryService
	exports   *appreport.ExportService
	templates *appreport.TemplateService
	schedules *appreport.ScheduleService
	watch     appreport.WatchOptions
}

// NewReportHandler creates a new ReportHandler. watch tunes the export progress stream.
func NewReportHandler(
	queries *appreport.QueryService,
	exports *appreport.ExportService,
	templates *appreport.TemplateService,
	schedules *appreport.ScheduleService,
	watch appreport.WatchOptions,
	log *zap.Logger,
) *ReportHandler {
	return &ReportHandler{
		BaseHandler: newBase(log),
		queries:     queries,
		exports:     exports,
		templates:   templates,
		schedules:   schedules,
		watch:       watch,
	}
}

// Query godoc
//
//	@ID				runReportQuery
//	@Summary		Run an ad-hoc report query
//	@Description	Filters, aggregates and groups one entity type, restricted to the org units the caller can see
//	@Tags			reports
//	@Accept			json
//	@Produce		json
//	@Param			request	body		report.QueryDefinition	true	"Query"
//	@Success		200		{object}	dto.Response{data=report.QueryResult}
//	@Failure		400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/reports/query [post]
func (h *ReportHandler) Query(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var def report.QueryDefinition
	if !h.bindJSON(c, &def) {
		return
	}
	result, err := h.queries.ExecuteQuery(c.Request.Context(), actor, def)
	respond(&h.BaseHandler, c, result, err)
}

// DashboardQuery narrows a dashboard
type DashboardQuery struct {
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	OrgUnitID string     `form:"org_unit_id" binding:"omitempty,uuid"`
}

// Dashboard returns the sections of a predefined dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q DashboardQuery
	if !h.bindQuery(c, &q) {
		return
	}
	d, err := h.queries.Dashboard(c.Request.Context(), actor, c.Param("type"), appreport.DashboardInput{
		From:      q.From,
		To:        q.To,
		OrgUnitID: optionalUUID(q.OrgUnitID),
	})
	respond(&h.BaseHandler, c, d, err)
}

// Exports

// ExportRequest is the body of POST /reports/exports. Either a query
// definition or a template is required.
type ExportRequest struct {
	QueryDefinition *report.QueryDefinition `json:"query_definition" binding:"required_without=TemplateID"`
	TemplateID      *uuid.UUID              `json:"template_id" binding:"required_without=QueryDefinition"`
	Format          string                  `json:"format" binding:"required,oneof=csv xlsx"`
}

// CreateExport queues an export and answers 202 with the pending job
func (h *ReportHandler) CreateExport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ExportRequest
	if !h.bindJSON(c, &req) {
		return
	}
	job, err := h.exports.CreateExport(c.Request.Context(), actor, appreport.ExportInput{
		Definition: req.QueryDefinition,
		TemplateID: req.TemplateID,
		Format:     req.Format,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, job)
}

// GetExport returns an export with a fresh download link once it is complete
func (h *ReportHandler) GetExport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	job, err := h.exports.GetExport(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, job, err)
}

// StreamExport godoc
//
//	@ID				streamExport
//	@Summary		Follow an export
//	@Description	Server-sent events: progress while the export runs, then one of complete, error or timeout
//	@Tags			reports
//	@Produce		text/event-stream
//	@Param			id	path	string	true	"Export ID"
//	@Success		200
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/reports/exports/{id}/stream [get]
func (h *ReportHandler) StreamExport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.exports.Watch(c.Request.Context(), actor, id, h.watch)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(ev.Name, ev.Export)
		return true
	})
}

// Templates

// TemplateRequest is the body of POST and PUT /reports/templates
type TemplateRequest struct {
	Name                string                 `json:"name" binding:"required,max=255"`
	Description         *string                `json:"description" binding:"omitempty,max=2000"`
	QueryDefinition     report.QueryDefinition `json:"query_definition"`
	VisualizationConfig map[string]any         `json:"visualization_config"`
	IsShared            bool                   `json:"is_shared"`
	SharedWithOrgUnits  []uuid.UUID            `json:"shared_with_org_units"`
}

func (r TemplateRequest) input() appreport.TemplateInput {
	return appreport.TemplateInput{
		Name:                r.Name,
		Description:         r.Description,
		QueryDefinition:     r.QueryDefinition,
		VisualizationConfig: r.VisualizationConfig,
		IsShared:            r.IsShared,
		SharedWithOrgUnits:  r.SharedWithOrgUnits,
	}
}

// ListTemplates lists the caller's templates and those shared with them
func (h *ReportHandler) ListTemplates(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.templates.List(c.Request.Context(), actor)
	respond(&h.BaseHandler, c, list, err)
}

// GetTemplate returns one template
func (h *ReportHandler) GetTemplate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.templates.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, t, err)
}

// CreateTemplate saves a query as a template
func (h *ReportHandler) CreateTemplate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	t, err := h.templates.Create(c.Request.Context(), actor, req.input())
	created(&h.BaseHandler, c, t, err)
}

// UpdateTemplate replaces a template the caller owns
func (h *ReportHandler) UpdateTemplate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	t, err := h.templates.Update(c.Request.Context(), actor, id, req.input())
	respond(&h.BaseHandler, c, t, err)
}

// DeleteTemplate deletes a template the caller owns
func (h *ReportHandler) DeleteTemplate(c *gin.Context) {
	h.deleteByID(c, h.templates.Delete)
}

// Schedules

// ScheduleRequest is the body of POST /reports/schedules
type ScheduleRequest struct {
	TemplateID     uuid.UUID      `json:"template_id" binding:"required"`
	Frequency      string         `json:"frequency" binding:"required,oneof=daily weekly monthly quarterly"`
	DayOfWeek      *int           `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	DayOfMonth     *int           `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	TimeOfDay      string         `json:"time_of_day" binding:"required,len=5"`
	Recipients     []string       `json:"recipients" binding:"required,min=1,max=50,dive,email"`
	Format         string         `json:"format" binding:"omitempty,oneof=csv xlsx"`
	QueryOverrides map[string]any `json:"query_overrides"`
}

// ListSchedules lists the caller's report schedules
func (h *ReportHandler) ListSchedules(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	list, err := h.schedules.List(c.Request.Context(), actor)
	respond(&h.BaseHandler, c, list, err)
}

// CreateSchedule schedules a template to be exported and mailed
func (h *ReportHandler) CreateSchedule(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	format := report.ExportFormat(req.Format)
	if format == "" {
		format = report.FormatCSV
	}
	s, err := h.schedules.Create(c.Request.Context(), actor, report.ScheduleParams{
		TemplateID:     req.TemplateID,
		Frequency:      report.Frequency(req.Frequency),
		DayOfWeek:      req.DayOfWeek,
		DayOfMonth:     req.DayOfMonth,
		TimeOfDay:      req.TimeOfDay,
		Recipients:     req.Recipients,
		Format:         format,
		QueryOverrides: req.QueryOverrides,
	})
	created(&h.BaseHandler, c, s, err)
}

// DeleteSchedule deletes a schedule
func (h *ReportHandler) DeleteSchedule(c *gin.Context) {
	h.deleteByID(c, h.schedules.Delete)
}
