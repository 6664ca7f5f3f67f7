package handler

import (
	"time"

	appfinance "github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/finance"
	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FinanceHandler handles funds, partnership arms, batches, entries and partnerships
type FinanceHandler struct {
	BaseHandler
	lookups      *appfinance.LookupService
	batches      *appfinance.BatchService
	entries      *appfinance.EntryService
	partnerships *appfinance.PartnershipService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(
	lookups *appfinance.LookupService,
	batches *appfinance.BatchService,
	entries *appfinance.EntryService,
	partnerships *appfinance.PartnershipService,
	log *zap.Logger,
) *FinanceHandler {
	return &FinanceHandler{
		BaseHandler:  newBase(log),
		lookups:      lookups,
		batches:      batches,
		entries:      entries,
		partnerships: partnerships,
	}
}

// Funds and partnership arms

// ActiveQuery narrows lookup listings to active rows
type ActiveQuery struct {
	ActiveOnly bool `form:"active_only"`
}

// CreateFundRequest is the body of POST /finance/funds
type CreateFundRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	IsPartnership bool   `json:"is_partnership"`
}

// UpdateFundRequest is the body of PATCH /finance/funds/:id
type UpdateFundRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=100"`
	IsPartnership *bool   `json:"is_partnership"`
	Active        *bool   `json:"active"`
}

// CreateArmRequest is the body of POST /finance/partnership-arms
type CreateArmRequest struct {
	Name       string    `json:"name" binding:"required,max=100"`
	ActiveFrom *dto.Date `json:"active_from" binding:"required"`
	ActiveTo   *dto.Date `json:"active_to"`
}

// UpdateArmRequest is the body of PATCH /finance/partnership-arms/:id
type UpdateArmRequest struct {
	Name       *string   `json:"name" binding:"omitempty,max=100"`
	ActiveFrom *dto.Date `json:"active_from"`
	ActiveTo   *dto.Date `json:"active_to"`
	Active     *bool     `json:"active"`
}

// ListFunds lists the funds of the tenant
func (h *FinanceHandler) ListFunds(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ActiveQuery
	if !h.bindQuery(c, &q) {
		return
	}
	funds, err := h.lookups.ListFunds(c.Request.Context(), actor, q.ActiveOnly)
	respond(&h.BaseHandler, c, funds, err)
}

// GetFund returns one fund
func (h *FinanceHandler) GetFund(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	fund, err := h.lookups.GetFund(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, fund, err)
}

// CreateFund creates a fund
func (h *FinanceHandler) CreateFund(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateFundRequest
	if !h.bindJSON(c, &req) {
		return
	}
	fund, err := h.lookups.CreateFund(c.Request.Context(), actor, appfinance.CreateFundInput{
		Name:          req.Name,
		IsPartnership: req.IsPartnership,
	})
	created(&h.BaseHandler, c, fund, err)
}

// UpdateFund renames, reclassifies or (de)activates a fund
func (h *FinanceHandler) UpdateFund(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateFundRequest
	if !h.bindJSON(c, &req) {
		return
	}
	fund, err := h.lookups.UpdateFund(c.Request.Context(), actor, id, appfinance.UpdateFundInput{
		Name:          req.Name,
		IsPartnership: req.IsPartnership,
		Active:        req.Active,
	})
	respond(&h.BaseHandler, c, fund, err)
}

// DeleteFund godoc
//
//	@ID				deleteFund
//	@Summary		Delete a fund
//	@Description	Funds referenced by any finance entry cannot be deleted; deactivate them instead
//	@Tags			finance
//	@Param			id	path	string	true	"Fund ID"
//	@Success		204
//	@Failure		400	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/finance/funds/{id} [delete]
func (h *FinanceHandler) DeleteFund(c *gin.Context) {
	h.deleteByID(c, h.lookups.DeleteFund)
}

// ListArms lists the partnership arms of the tenant
func (h *FinanceHandler) ListArms(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ActiveQuery
	if !h.bindQuery(c, &q) {
		return
	}
	arms, err := h.lookups.ListArms(c.Request.Context(), actor, q.ActiveOnly)
	respond(&h.BaseHandler, c, arms, err)
}

// GetArm returns one partnership arm
func (h *FinanceHandler) GetArm(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	arm, err := h.lookups.GetArm(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, arm, err)
}

// CreateArm creates a partnership arm
func (h *FinanceHandler) CreateArm(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateArmRequest
	if !h.bindJSON(c, &req) {
		return
	}
	arm, err := h.lookups.CreateArm(c.Request.Context(), actor, appfinance.CreatePartnershipArmInput{
		Name:       req.Name,
		ActiveFrom: req.ActiveFrom.Time,
		ActiveTo:   req.ActiveTo.TimePtr(),
	})
	created(&h.BaseHandler, c, arm, err)
}

// UpdateArm updates a partnership arm
func (h *FinanceHandler) UpdateArm(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateArmRequest
	if !h.bindJSON(c, &req) {
		return
	}
	arm, err := h.lookups.UpdateArm(c.Request.Context(), actor, id, appfinance.UpdatePartnershipArmInput{
		Name:       req.Name,
		ActiveFrom: req.ActiveFrom.TimePtr(),
		ActiveTo:   req.ActiveTo.TimePtr(),
		Active:     req.Active,
	})
	respond(&h.BaseHandler, c, arm, err)
}

// DeleteArm deletes a partnership arm nothing refers to
func (h *FinanceHandler) DeleteArm(c *gin.Context) {
	h.deleteByID(c, h.lookups.DeleteArm)
}

// Batches

// BatchListQuery filters GET /finance/batches
type BatchListQuery struct {
	dto.PageQuery
	OrgUnitID string `form:"org_unit_id" binding:"omitempty,uuid"`
	ServiceID string `form:"service_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=draft locked"`
}

// CreateBatchRequest is the body of POST /finance/batches
type CreateBatchRequest struct {
	OrgUnitID uuid.UUID  `json:"org_unit_id" binding:"required"`
	ServiceID *uuid.UUID `json:"service_id"`
}

// UpdateBatchRequest is the body of PATCH /finance/batches/:id
type UpdateBatchRequest struct {
	ServiceID *uuid.UUID `json:"service_id"`
}

// UnlockBatchRequest is the body of POST /finance/batches/:id/unlock
type UnlockBatchRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListBatches lists batches visible to the caller
func (h *FinanceHandler) ListBatches(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q BatchListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.batches.List(c.Request.Context(), actor, appfinance.BatchListFilter{
		OrgUnitID: optionalUUID(q.OrgUnitID),
		ServiceID: optionalUUID(q.ServiceID),
		Status:    q.Status,
		Page:      p,
		PageSize:  size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetBatch returns one batch with its totals
func (h *FinanceHandler) GetBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batches.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, batch, err)
}

// CreateBatch opens a draft batch
func (h *FinanceHandler) CreateBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), actor, appfinance.CreateBatchInput{
		OrgUnitID: req.OrgUnitID,
		ServiceID: req.ServiceID,
	})
	created(&h.BaseHandler, c, batch, err)
}

// UpdateBatch relinks a draft batch to a service
func (h *FinanceHandler) UpdateBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	batch, err := h.batches.Update(c.Request.Context(), actor, id, req.ServiceID)
	respond(&h.BaseHandler, c, batch, err)
}

// DeleteBatch deletes a draft batch
func (h *FinanceHandler) DeleteBatch(c *gin.Context) {
	h.deleteByID(c, h.batches.Delete)
}

// VerifyBatch godoc
//
//	@ID				verifyBatch
//	@Summary		Verify a batch
//	@Description	Records a verification. The second verification must come from a different user and completes dual verification.
//	@Tags			finance
//	@Produce		json
//	@Param			id	path		string	true	"Batch ID"
//	@Success		200	{object}	dto.Response{data=appfinance.BatchDTO}
//	@Failure		400	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/finance/batches/{id}/verify [post]
func (h *FinanceHandler) VerifyBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batches.Verify(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, batch, err)
}

// LockBatch locks a verified batch and its entries
func (h *FinanceHandler) LockBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batches.Lock(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, batch, err)
}

// UnlockBatch reopens a locked batch for correction
func (h *FinanceHandler) UnlockBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UnlockBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	batch, err := h.batches.Unlock(c.Request.Context(), actor, id, req.Reason)
	respond(&h.BaseHandler, c, batch, err)
}

// Entries

// EntryListQuery filters GET /finance/entries
type EntryListQuery struct {
	dto.PageQuery
	OrgUnitID        string     `form:"org_unit_id" binding:"omitempty,uuid"`
	BatchID          string     `form:"batch_id" binding:"omitempty,uuid"`
	ServiceID        string     `form:"service_id" binding:"omitempty,uuid"`
	FundID           string     `form:"fund_id" binding:"omitempty,uuid"`
	PartnershipArmID string     `form:"partnership_arm_id" binding:"omitempty,uuid"`
	PersonID         string     `form:"person_id" binding:"omitempty,uuid"`
	VerifiedStatus   string     `form:"verified_status" binding:"omitempty,oneof=draft verified reconciled locked"`
	From             *time.Time `form:"from" time_format:"2006-01-02"`
	To               *time.Time `form:"to" time_format:"2006-01-02"`
}

// CreateEntryRequest is the body of POST /finance/entries
type CreateEntryRequest struct {
	OrgUnitID         uuid.UUID       `json:"org_unit_id" binding:"required"`
	BatchID           *uuid.UUID      `json:"batch_id"`
	ServiceID         *uuid.UUID      `json:"service_id"`
	FundID            uuid.UUID       `json:"fund_id" binding:"required"`
	PartnershipArmID  *uuid.UUID      `json:"partnership_arm_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency" binding:"omitempty,len=3"`
	Method            string          `json:"method" binding:"omitempty,max=20"`
	PersonID          *uuid.UUID      `json:"person_id"`
	CellID            *uuid.UUID      `json:"cell_id"`
	ExternalGiverName *string         `json:"external_giver_name" binding:"omitempty,max=255"`
	Reference         *string         `json:"reference" binding:"omitempty,max=100"`
	Comment           *string         `json:"comment" binding:"omitempty,max=1000"`
	TransactionDate   *dto.Date       `json:"transaction_date" binding:"required"`
}

// UpdateEntryRequest is the body of PATCH /finance/entries/:id
type UpdateEntryRequest struct {
	FundID            *uuid.UUID       `json:"fund_id"`
	PartnershipArmID  *uuid.UUID       `json:"partnership_arm_id"`
	Amount            *decimal.Decimal `json:"amount"`
	Method            *string          `json:"method" binding:"omitempty,max=20"`
	PersonID          *uuid.UUID       `json:"person_id"`
	ExternalGiverName *string          `json:"external_giver_name" binding:"omitempty,max=255"`
	Reference         *string          `json:"reference" binding:"omitempty,max=100"`
	Comment           *string          `json:"comment" binding:"omitempty,max=1000"`
	TransactionDate   *dto.Date        `json:"transaction_date"`
}

// VerifyEntryRequest is the body of POST /finance/entries/:id/verify
type VerifyEntryRequest struct {
	Status string `json:"status" binding:"required,oneof=draft verified reconciled"`
}

// ListEntries lists finance entries visible to the caller
func (h *FinanceHandler) ListEntries(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q EntryListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.entries.List(c.Request.Context(), actor, appfinance.EntryListFilter{
		OrgUnitID:        optionalUUID(q.OrgUnitID),
		BatchID:          optionalUUID(q.BatchID),
		ServiceID:        optionalUUID(q.ServiceID),
		FundID:           optionalUUID(q.FundID),
		PartnershipArmID: optionalUUID(q.PartnershipArmID),
		PersonID:         optionalUUID(q.PersonID),
		VerifiedStatus:   q.VerifiedStatus,
		From:             q.From,
		To:               q.To,
		Page:             p,
		PageSize:         size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetEntry returns one finance entry
func (h *FinanceHandler) GetEntry(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.entries.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, entry, err)
}

// CreateEntry godoc
//
//	@ID			createFinanceEntry
//	@Summary	Record a giving entry
//	@Tags		finance
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateEntryRequest	true	"Entry"
//	@Success	201		{object}	dto.Response{data=appfinance.EntryDTO}
//	@Failure	400		{object}	dto.Response
//	@Security	BearerAuth
//	@Router		/finance/entries [post]
func (h *FinanceHandler) CreateEntry(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.entries.Create(c.Request.Context(), actor, appfinance.CreateEntryInput{
		OrgUnitID:         req.OrgUnitID,
		BatchID:           req.BatchID,
		ServiceID:         req.ServiceID,
		FundID:            req.FundID,
		PartnershipArmID:  req.PartnershipArmID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Method:            req.Method,
		PersonID:          req.PersonID,
		CellID:            req.CellID,
		ExternalGiverName: req.ExternalGiverName,
		Reference:         req.Reference,
		Comment:           req.Comment,
		TransactionDate:   req.TransactionDate.Time,
	})
	created(&h.BaseHandler, c, entry, err)
}

// UpdateEntry edits an entry that is not locked
func (h *FinanceHandler) UpdateEntry(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.entries.Update(c.Request.Context(), actor, id, appfinance.UpdateEntryInput{
		FundID:            req.FundID,
		PartnershipArmID:  req.PartnershipArmID,
		Amount:            req.Amount,
		Method:            req.Method,
		PersonID:          req.PersonID,
		ExternalGiverName: req.ExternalGiverName,
		Reference:         req.Reference,
		Comment:           req.Comment,
		TransactionDate:   req.TransactionDate.TimePtr(),
	})
	respond(&h.BaseHandler, c, entry, err)
}

// DeleteEntry deletes an entry that is not locked
func (h *FinanceHandler) DeleteEntry(c *gin.Context) {
	h.deleteByID(c, h.entries.Delete)
}

// VerifyEntry sets the verified status of a single entry
func (h *FinanceHandler) VerifyEntry(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req VerifyEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.entries.Verify(c.Request.Context(), actor, id, req.Status)
	respond(&h.BaseHandler, c, entry, err)
}

// ReconcileEntry marks a verified entry reconciled
func (h *FinanceHandler) ReconcileEntry(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.entries.Reconcile(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, entry, err)
}

// Partnerships

// PartnershipListQuery filters GET /finance/partnerships
type PartnershipListQuery struct {
	dto.PageQuery
	PersonID string `form:"person_id" binding:"omitempty,uuid"`
	FundID   string `form:"fund_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,max=20"`
}

// CreatePartnershipRequest is the body of POST /finance/partnerships
type CreatePartnershipRequest struct {
	PersonID         uuid.UUID        `json:"person_id" binding:"required"`
	FundID           uuid.UUID        `json:"fund_id" binding:"required"`
	PartnershipArmID *uuid.UUID       `json:"partnership_arm_id"`
	Cadence          string           `json:"cadence" binding:"required,max=20"`
	StartDate        *dto.Date        `json:"start_date" binding:"required"`
	EndDate          *dto.Date        `json:"end_date"`
	TargetAmount     *decimal.Decimal `json:"target_amount"`
}

// UpdatePartnershipRequest is the body of PATCH /finance/partnerships/:id
type UpdatePartnershipRequest struct {
	Cadence      *string          `json:"cadence" binding:"omitempty,max=20"`
	EndDate      *dto.Date        `json:"end_date"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	Status       *string          `json:"status" binding:"omitempty,max=20"`
}

// ListPartnerships lists partnership pledges
func (h *FinanceHandler) ListPartnerships(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q PartnershipListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	p, size := q.Normalize()
	result, err := h.partnerships.List(c.Request.Context(), actor, appfinance.PartnershipListFilter{
		PersonID: optionalUUID(q.PersonID),
		FundID:   optionalUUID(q.FundID),
		Status:   q.Status,
		Page:     p,
		PageSize: size,
	})
	page(&h.BaseHandler, c, result, err)
}

// GetPartnership returns one partnership
func (h *FinanceHandler) GetPartnership(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	pledge, err := h.partnerships.Get(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, pledge, err)
}

// CreatePartnership records a pledge
func (h *FinanceHandler) CreatePartnership(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreatePartnershipRequest
	if !h.bindJSON(c, &req) {
		return
	}
	pledge, err := h.partnerships.Create(c.Request.Context(), actor, appfinance.CreatePartnershipInput{
		PersonID:         req.PersonID,
		FundID:           req.FundID,
		PartnershipArmID: req.PartnershipArmID,
		Cadence:          req.Cadence,
		StartDate:        req.StartDate.Time,
		EndDate:          req.EndDate.TimePtr(),
		TargetAmount:     req.TargetAmount,
	})
	created(&h.BaseHandler, c, pledge, err)
}

// UpdatePartnership updates a pledge
func (h *FinanceHandler) UpdatePartnership(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdatePartnershipRequest
	if !h.bindJSON(c, &req) {
		return
	}
	pledge, err := h.partnerships.Update(c.Request.Context(), actor, id, appfinance.UpdatePartnershipInput{
		Cadence:      req.Cadence,
		EndDate:      req.EndDate.TimePtr(),
		TargetAmount: req.TargetAmount,
		Status:       req.Status,
	})
	respond(&h.BaseHandler, c, pledge, err)
}

// DeletePartnership deletes a pledge
func (h *FinanceHandler) DeletePartnership(c *gin.Context) {
	h.deleteByID(c, h.partnerships.Delete)
}

// PartnershipFulfilment compares a pledge with the giving recorded against it
func (h *FinanceHandler) PartnershipFulfilment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.partnerships.Fulfilment(c.Request.Context(), actor, id)
	respond(&h.BaseHandler, c, f, err)
}
