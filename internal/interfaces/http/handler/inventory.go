package handler

import (
	"github.com/gin-gonic/gin"
	appinventory "github.com/hospital/pharmacy/internal/application/inventory"
)

// InventoryHandler serves read access to stock levels and valuation
type InventoryHandler struct {
	BaseHandler
	inventory *appinventory.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventory *appinventory.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// List godoc
// @Summary      List inventory items
// @Tags         inventory
// @Produce      json
// @Param        search query string false "Name filter"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appinventory.ItemResponse}
// @Router       /inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var q appinventory.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.inventory.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// ListLowStock returns items whose stock is below their minimum
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	var q appinventory.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.inventory.ListLowStock(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns one item by id or by name
func (h *InventoryHandler) Get(c *gin.Context) {
	item, err := h.inventory.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}
