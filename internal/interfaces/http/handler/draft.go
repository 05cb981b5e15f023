package handler

import (
	"github.com/gin-gonic/gin"
	apptrade "github.com/hospital/pharmacy/internal/application/trade"
	"github.com/hospital/pharmacy/internal/interfaces/http/dto"
)

// DraftHandler serves purchase drafts and their commit
type DraftHandler struct {
	BaseHandler
	drafts  *apptrade.DraftService
	commits *apptrade.CommitService
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(drafts *apptrade.DraftService, commits *apptrade.CommitService) *DraftHandler {
	return &DraftHandler{drafts: drafts, commits: commits}
}

// Preview godoc
// @Summary      Compute an invoice without storing it
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        request body apptrade.SaveDraftRequest true "Invoice"
// @Success      200 {object} dto.Response{data=apptrade.InvoicePreview}
// @Failure      400 {object} dto.Response
// @Router       /drafts/preview [post]
func (h *DraftHandler) Preview(c *gin.Context) {
	var req apptrade.SaveDraftRequest
	if !h.BindJSON(c, &req) {
		return
	}
	preview, err := h.drafts.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Create godoc
// @Summary      Store a new purchase draft
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        request body apptrade.SaveDraftRequest true "Invoice"
// @Success      201 {object} dto.Response{data=apptrade.DraftResponse}
// @Failure      400 {object} dto.Response
// @Router       /drafts [post]
func (h *DraftHandler) Create(c *gin.Context) {
	var req apptrade.SaveDraftRequest
	if !h.BindJSON(c, &req) {
		return
	}
	draft, err := h.drafts.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, draft)
}

// Update replaces the content of a draft. A version in the body must match.
func (h *DraftHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req apptrade.SaveDraftRequest
	if !h.BindJSON(c, &req) {
		return
	}
	draft, err := h.drafts.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

func (h *DraftHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	draft, err := h.drafts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

func (h *DraftHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	page, err := h.drafts.List(c.Request.Context(), req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

func (h *DraftHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.drafts.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Commit godoc
// @Summary      Commit a draft into stock
// @Description  Books every named line into inventory and re-averages cost.
// @Description  Committing the same draft again returns the stored purchase with replayed=true.
// @Tags         drafts
// @Produce      json
// @Param        id path string true "Draft ID"
// @Success      201 {object} dto.Response{data=apptrade.CommitResult}
// @Success      200 {object} dto.Response{data=apptrade.CommitResult}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /drafts/{id}/commit [post]
func (h *DraftHandler) Commit(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	result, err := h.commits.CommitDraft(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}
