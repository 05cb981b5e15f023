package handler

import (
	"github.com/gin-gonic/gin"
	apptrade "github.com/hospital/pharmacy/internal/application/trade"
)

// SaleHandler serves bills
type SaleHandler struct {
	BaseHandler
	sales *apptrade.DispenseService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales *apptrade.DispenseService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// Create godoc
// @Summary      Issue a bill
// @Description  Removes the sold quantities from stock and records cost and profit per line.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body apptrade.CreateSaleRequest true "Sale"
// @Success      201 {object} dto.Response{data=apptrade.SaleResult}
// @Failure      400 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	var req apptrade.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.sales.CreateSale(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get returns a bill by its number
func (h *SaleHandler) Get(c *gin.Context) {
	bill, err := h.sales.GetByBillNumber(c.Request.Context(), c.Param("billNumber"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}
