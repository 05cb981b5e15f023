package handler

import (
	"github.com/hospital/pharmacy/internal/interfaces/http/router"
)

// Handlers bundles the API handlers mounted under /api/v1
type Handlers struct {
	Drafts    *DraftHandler
	Sales     *SaleHandler
	Returns   *ReturnHandler
	Inventory *InventoryHandler
}

// Groups returns the domain route groups of the API
func (hs Handlers) Groups() []*router.DomainGroup {
	drafts := router.NewDomainGroup("drafts", "/drafts").
		POST("/preview", hs.Drafts.Preview).
		POST("", hs.Drafts.Create).
		GET("", hs.Drafts.List).
		GET("/:id", hs.Drafts.Get).
		PUT("/:id", hs.Drafts.Update).
		DELETE("/:id", hs.Drafts.Delete).
		POST("/:id/commit", hs.Drafts.Commit)

	sales := router.NewDomainGroup("sales", "/sales").
		POST("", hs.Sales.Create).
		GET("/:billNumber", hs.Sales.Get)

	returns := router.NewDomainGroup("returns", "/returns").
		POST("", hs.Returns.Create).
		GET("", hs.Returns.List).
		GET("/:id", hs.Returns.Get)

	inventory := router.NewDomainGroup("inventory", "/inventory").
		GET("", hs.Inventory.List).
		GET("/low-stock", hs.Inventory.ListLowStock).
		GET("/:ref", hs.Inventory.Get)

	return []*router.DomainGroup{drafts, sales, returns, inventory}
}

// Register mounts every group on r
func (hs Handlers) Register(r *router.Router) {
	for _, g := range hs.Groups() {
		r.Register(g)
	}
}
