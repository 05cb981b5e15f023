package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ItemResponse represents an inventory valuation record
type ItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Key                  string          `json:"key"`
	Name                 string          `json:"name"`
	GenericName          string          `json:"generic_name,omitempty"`
	Category             string          `json:"category,omitempty"`
	UnitsPerPack         decimal.Decimal `json:"units_per_pack"`
	OnHand               decimal.Decimal `json:"on_hand"`
	AvgCost              decimal.Decimal `json:"avg_cost"`
	StockValue           decimal.Decimal `json:"stock_value"`
	MinStock             decimal.Decimal `json:"min_stock"`
	BelowMinimum         bool            `json:"below_minimum"`
	LastBuyPerPack       decimal.Decimal `json:"last_buy_per_pack"`
	LastBuyPerUnit       decimal.Decimal `json:"last_buy_per_unit"`
	LastAfterTaxUnitCost decimal.Decimal `json:"last_after_tax_unit_cost"`
	LastSalePerPack      decimal.Decimal `json:"last_sale_per_pack"`
	LastSalePerUnit      decimal.Decimal `json:"last_sale_per_unit"`
	LastSalePrice        decimal.Decimal `json:"last_sale_price"`
	LastSupplier         string          `json:"last_supplier,omitempty"`
	LastInvoiceNumber    string          `json:"last_invoice_number,omitempty"`
	LastPacksReceived    decimal.Decimal `json:"last_packs_received"`
	LastReceivedAt       *time.Time      `json:"last_received_at,omitempty"`
	EarliestExpiry       *time.Time      `json:"earliest_expiry,omitempty"`
	Version              int             `json:"version"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ToItemResponse converts a domain item to its response form
func ToItemResponse(i *inventory.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:                   i.ID,
		Key:                  i.Key,
		Name:                 i.Name,
		GenericName:          i.GenericName,
		Category:             i.Category,
		UnitsPerPack:         i.UnitsPerPack,
		OnHand:               i.OnHand,
		AvgCost:              i.AvgCost,
		StockValue:           i.StockValue(),
		MinStock:             i.MinStock,
		BelowMinimum:         i.BelowMinimum(),
		LastBuyPerPack:       i.LastBuyPerPack,
		LastBuyPerUnit:       i.LastBuyPerUnit,
		LastAfterTaxUnitCost: i.LastAfterTaxUnitCost,
		LastSalePerPack:      i.LastSalePerPack,
		LastSalePerUnit:      i.LastSalePerUnit,
		LastSalePrice:        i.LastSalePrice,
		LastSupplier:         i.LastSupplier,
		LastInvoiceNumber:    i.LastInvoiceNumber,
		LastPacksReceived:    i.LastPacksReceived,
		LastReceivedAt:       i.LastReceivedAt,
		EarliestExpiry:       i.EarliestExpiry,
		Version:              i.Version,
		UpdatedAt:            i.UpdatedAt,
	}
}

// ListQuery is the query string of inventory listings
type ListQuery struct {
	Search   string `form:"search" binding:"max=100"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}
