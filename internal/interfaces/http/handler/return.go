package handler

import (
	"github.com/gin-gonic/gin"
	apptrade "github.com/hospital/pharmacy/internal/application/trade"
)

// ReturnHandler serves customer, supplier and manual returns
type ReturnHandler struct {
	BaseHandler
	returns *apptrade.ReturnService
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(returns *apptrade.ReturnService) *ReturnHandler {
	return &ReturnHandler{returns: returns}
}

// Create godoc
// @Summary      Record a return
// @Description  Reverses part of a bill (customer) or a purchase (supplier), or records
// @Description  a manual return without touching stock. A repeated idempotency_key
// @Description  returns the stored return with replayed=true.
// @Tags         returns
// @Accept       json
// @Produce      json
// @Param        request body apptrade.CreateReturnRequest true "Return"
// @Success      201 {object} dto.Response{data=apptrade.ReturnResult}
// @Success      200 {object} dto.Response{data=apptrade.ReturnResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /returns [post]
func (h *ReturnHandler) Create(c *gin.Context) {
	var req apptrade.CreateReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.returns.CreateReturn(c.Request.Context(), req)
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

func (h *ReturnHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	result, err := h.returns.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListQuery selects returns by the bill or invoice number they reverse
type ListQuery struct {
	Reference string `form:"reference" binding:"required,max=100"`
}

// List returns every return recorded against ?reference=
func (h *ReturnHandler) List(c *gin.Context) {
	var q ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	results, err := h.returns.ListByReference(c.Request.Context(), q.Reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}
