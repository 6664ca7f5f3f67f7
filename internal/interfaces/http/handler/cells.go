package handler

import (
	"time"

	appcells "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/cells"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CellHandler handles cells and their meeting reports
type CellHandler struct {
	BaseHandler
	cells   *appcells.CellService
	reports *appcells.ReportService
}

// NewCellHandler creates a new CellHandler
func NewCellHandler(cells *appcells.CellService, reports *appcells.ReportService, log *zap.Logger) *CellHandler {
	return &CellHandler{BaseHandler: newBase(log), cells: cells, reports: reports}
}

// CellListQuery filters GET /cells
type CellListQuery struct {
	dto.PageQuery
	OrgUnitID string `form:"org_unit_id" binding:"omitempty,uuid"`
	LeaderID  string `form:"leader_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,max=20"`
}

// CellRequest is the body of POST and PUT /cells
type CellRequest struct {
	OrgUnitID         uuid.UUID  `json:"org_unit_id" binding:"required"`
	Name              string     `json:"name" binding:"required,max=255"`
	LeaderID          *uuid.UUID `json:"leader_id"`
	AssistantLeaderID *uuid.UUID `json:"assistant_leader_id"`
	Venue             *string    `json:"venue" binding:"omitempty,max=255"`
	MeetingDay        *string    `json:"meeting_day" binding:"omitempty,max=20"`
	MeetingTime       *string    `json:"meeting_time" binding:"omitempty,len=5"`
	Status            string     `json:"status" binding:"omitempty,max=20"`
}

func (r CellRequest) input() appcells.CellInput {
	return appcells.CellInput{
		OrgUnitID:         r.OrgUnitID,
		Name:              r.Name,
		LeaderID:          r.LeaderID,
		AssistantLeaderID: r.AssistantLeaderID,
		Venue:             r.Venue,
		MeetingDay:        r.MeetingDay,
		MeetingTime:       r.MeetingTime,
		Status:            r.Status,
	}
}

// ListCells lists cells
func (h *CellHandler) ListCells(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q CellListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.cells.List(c.Request.Context(), actor, appcells.CellListFilter{
		OrgUnitID: optionalUUID(q.OrgUnitID),
		LeaderID:  optionalUUID(q.LeaderID),
		Status:    q.Status,
		Page:      p,
		PageSize:  size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetCell returns one cell
func (h *CellHandler) GetCell(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	cell, err := h.cells.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, cell, err)
}

// CreateCell creates a cell
func (h *CellHandler) CreateCell(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CellRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cell, err := h.cells.Create(c.Request.Context(), actor, req.input())
	created(&h.BaseHandler, c, cell, err)
}

// UpdateCell replaces the details of a cell
func (h *CellHandler) UpdateCell(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req CellRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cell, err := h.cells.Update(c.Request.Context(), actor, id, req.input())
	respond(&h.BaseHandler, c, cell, err)
}

// DeleteCell deletes a cell
func (h *CellHandler) DeleteCell(c *gin.Context) {
	h.deleteByID(c, h.cells.Delete)
}

// Reports

// ReportListQuery filters GET /cells/reports
type ReportListQuery struct {
	dto.PageQuery
	CellID string     `form:"cell_id" binding:"omitempty,uuid"`
	Status string     `form:"status" binding:"omitempty,oneof=submitted reviewed approved"`
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
}

// ReportRequest is the body of cell report create and update
type ReportRequest struct {
	ReportDate     *dto.Date       `json:"report_date" binding:"required"`
	ReportTime     *string         `json:"report_time" binding:"omitempty,len=5"`
	Attendance     int             `json:"attendance" binding:"min=0"`
	FirstTimers    int             `json:"first_timers" binding:"min=0"`
	NewConverts    int             `json:"new_converts" binding:"min=0"`
	Testimonies    *string         `json:"testimonies" binding:"omitempty,max=5000"`
	OfferingsTotal decimal.Decimal `json:"offerings_total"`
	MeetingType    string          `json:"meeting_type" binding:"required,oneof=prayer_planning bible_study outreach"`
	Notes          *string         `json:"notes" binding:"omitempty,max=2000"`
}

func (r ReportRequest) input() appcells.ReportInput {
	return appcells.ReportInput{
		ReportDate:     r.ReportDate.Time,
		ReportTime:     r.ReportTime,
		Attendance:     r.Attendance,
		FirstTimers:    r.FirstTimers,
		NewConverts:    r.NewConverts,
		Testimonies:    r.Testimonies,
		OfferingsTotal: r.OfferingsTotal,
		MeetingType:    r.MeetingType,
		Notes:          r.Notes,
	}
}

// ApproveReportRequest is the body of POST /cells/reports/:id/approve
type ApproveReportRequest struct {
	Status string `json:"status" binding:"required,oneof=reviewed approved"`
}

// ListReports lists cell reports
func (h *CellHandler) ListReports(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ReportListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.reports.List(c.Request.Context(), actor, appcells.ReportListFilter{
		CellID:   optionalUUID(q.CellID),
		Status:   q.Status,
		From:     q.From,
		To:       q.To,
		Page:     p,
		PageSize: size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetReport returns one cell report
func (h *CellHandler) GetReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.reports.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, r, err)
}

// CreateReport submits the report of a cell meeting
func (h *CellHandler) CreateReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cellID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ReportRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.reports.Create(c.Request.Context(), actor, cellID, req.input())
	created(&h.BaseHandler, c, r, err)
}

// UpdateReport corrects a submitted report
func (h *CellHandler) UpdateReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ReportRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.reports.Update(c.Request.Context(), actor, id, req.input())
	respond(&h.BaseHandler, c, r, err)
}

// ApproveReport godoc
//
//	@ID				approveCellReport
//	@Summary		Review or approve a cell report
//	@Description	Approving posts the meeting offering as a finance entry when there is one
//	@Tags			cells
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Report ID"
//	@Param			request	body		ApproveReportRequest	true	"Target status"
//	@Success		200		{object}	dto.Response{data=appcells.ReportDTO}
//	@Security		BearerAuth
//	@Router			/cells/reports/{id}/approve [post]
func (h *CellHandler) ApproveReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ApproveReportRequest
	if !h.bindJSON(c, &req) {
		return
	}
	r, err := h.reports.Approve(c.Request.Context(), actor, id, req.Status)
	respond(&h.BaseHandler, c, r, err)
}

// DeleteReport deletes a report
func (h *CellHandler) DeleteReport(c *gin.Context) {
	h.deleteByID(c, h.reports.Delete)
}
