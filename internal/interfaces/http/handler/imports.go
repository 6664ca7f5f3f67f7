package handler

import (
	"io"
	"strconv"

	appimports "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/imports"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultMaxUploadSize bounds an uploaded import file
const DefaultMaxUploadSize int64 = 10 << 20

// ImportHandler handles the bulk import workflow: upload, preview, mapping,
// validate, start, then poll status and errors
type ImportHandler struct {
	BaseHandler
	imports       *appimports.ImportService
	maxUploadSize int64
}

// NewImportHandler creates a new ImportHandler. maxUploadSize <= 0 means DefaultMaxUploadSize.
func NewImportHandler(imports *appimports.ImportService, maxUploadSize int64, log *zap.Logger) *ImportHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &ImportHandler{BaseHandler: newBase(log), imports: imports, maxUploadSize: maxUploadSize}
}

// UploadForm is the multipart form of POST /imports/upload besides the file
type UploadForm struct {
	EntityType       string `form:"entity_type" binding:"required,max=30"`
	Mode             string `form:"import_mode" binding:"omitempty,oneof=create_only update_existing"`
	DefaultOrgUnitID string `form:"default_org_unit_id" binding:"omitempty,uuid"`
	DryRun           bool   `form:"dry_run"`
}

// MappingRequest is the body of PUT /imports/:id/mapping, source column to target field
type MappingRequest struct {
	Mapping map[string]string `json:"mapping" binding:"required,min=1"`
}

// JobListQuery filters GET /imports
type JobListQuery struct {
	dto.PageQuery
	Status     string `form:"status" binding:"omitempty,oneof=pending previewed processing completed failed"`
	EntityType string `form:"entity_type" binding:"max=30"`
}

// Upload godoc
//
//	@ID				uploadImport
//	@Summary		Upload an import file
//	@Description	Stores a CSV or XLSX file and creates a pending import job
//	@Tags			imports
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file				formData	file	true	"CSV or XLSX file"
//	@Param			entity_type			formData	string	true	"Target entity"
//	@Param			import_mode			formData	string	false	"create_only or update_existing"
//	@Param			default_org_unit_id	formData	string	false	"Org unit for rows without one"
//	@Param			dry_run				formData	bool	false	"Validate without writing"
//	@Success		201					{object}	dto.Response{data=appimports.JobDTO}
//	@Failure		400					{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/imports/upload [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var form UploadForm
	if err := c.ShouldBind(&form); err != nil {
		h.bindError(c, err, "Invalid upload form")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, dto.ErrCodeBadRequest, "A file is required")
		return
	}
	if fh.Size > h.maxUploadSize {
		h.Error(c, dto.ErrCodeRequestTooLarge, "File exceeds the upload limit of "+strconv.FormatInt(h.maxUploadSize, 10)+" bytes")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	job, err := h.imports.Upload(c.Request.Context(), actor, appimports.UploadInput{
		FileName:         fh.Filename,
		Data:             data,
		EntityType:       form.EntityType,
		Mode:             form.Mode,
		DefaultOrgUnitID: optionalUUID(form.DefaultOrgUnitID),
		DryRun:           form.DryRun,
	})
	created(&h.BaseHandler, c, job, err)
}

// ListJobs lists the caller's import jobs
func (h *ImportHandler) ListJobs(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q JobListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.imports.List(c.Request.Context(), actor, appimports.JobListFilter{
		Status:     q.Status,
		EntityType: q.EntityType,
		Page:       p,
		PageSize:   size,
	})
	page(&h.BaseHandler, c, result, err)
}

// Preview returns the headers, first rows and a suggested mapping
func (h *ImportHandler) Preview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	preview, err := h.imports.Preview(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, preview, err)
}

// UpdateMapping stores the column mapping of a job
func (h *ImportHandler) UpdateMapping(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req MappingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	job, err := h.imports.UpdateMapping(c.Request.Context(), actor, id, req.Mapping)
	respond(&h.BaseHandler, c, job, err)
}

// Validate checks every row against the mapping without writing
func (h *ImportHandler) Validate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.imports.Validate(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, result, err)
}

// Start queues the job for background processing
func (h *ImportHandler) Start(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	job, err := h.imports.Start(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, job)
}

// Status returns the job with its progress
func (h *ImportHandler) Status(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	job, err := h.imports.Status(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, job, err)
}

// Errors lists the row errors of a job. ?limit caps the list, default 100.
func (h *ImportHandler) Errors(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			h.Error(c, dto.ErrCodeValidation, "limit must be between 1 and 1000",
				dto.ErrorDetail{Field: "limit", Message: "must be between 1 and 1000"})
			return
		}
		limit = n
	}
	rows, err := h.imports.Errors(c.Request.Context(), actor, id, limit)
	respond(&h.BaseHandler, c, rows, err)
}

// ErrorReport returns a download link to the CSV of all row errors
func (h *ImportHandler) ErrorReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.imports.ErrorReport(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, report, err)
}
