package models

import (
	"time"

	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryItemModel is the persistence model for the InventoryItem aggregate root.
type InventoryItemModel struct {
	AggregateModel
	Key          string          `gorm:"column:item_key;type:varchar(200);not null;uniqueIndex"`
	Name         string          `gorm:"type:varchar(200);not null"`
	GenericName  string          `gorm:"type:varchar(200)"`
	Category     string          `gorm:"type:varchar(100);index"`
	UnitsPerPack decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	OnHand       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvgCost      decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	MinStock     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	LastBuyPerPack       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastBuyPerUnit       decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	LastAfterTaxUnitCost decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	LastSalePerPack      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastSalePerUnit      decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	LastSalePrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastSupplier         string          `gorm:"type:varchar(200)"`
	LastInvoiceNumber    string          `gorm:"type:varchar(100)"`
	LastPacksReceived    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastReceivedAt       *time.Time
	EarliestExpiry       *time.Time `gorm:"type:date;index"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem entity.
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	return &inventory.InventoryItem{
		BaseAggregateRoot:    m.ToAggregateRoot(),
		Key:                  m.Key,
		Name:                 m.Name,
		GenericName:          m.GenericName,
		Category:             m.Category,
		UnitsPerPack:         m.UnitsPerPack,
		OnHand:               m.OnHand,
		AvgCost:              m.AvgCost,
		MinStock:             m.MinStock,
		LastBuyPerPack:       m.LastBuyPerPack,
		LastBuyPerUnit:       m.LastBuyPerUnit,
		LastAfterTaxUnitCost: m.LastAfterTaxUnitCost,
		LastSalePerPack:      m.LastSalePerPack,
		LastSalePerUnit:      m.LastSalePerUnit,
		LastSalePrice:        m.LastSalePrice,
		LastSupplier:         m.LastSupplier,
		LastInvoiceNumber:    m.LastInvoiceNumber,
		LastPacksReceived:    m.LastPacksReceived,
		LastReceivedAt:       m.LastReceivedAt,
		EarliestExpiry:       m.EarliestExpiry,
	}
}

// FromDomain populates the persistence model from a domain InventoryItem entity.
func (m *InventoryItemModel) FromDomain(i *inventory.InventoryItem) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.Key = i.Key
	m.Name = i.Name
	m.GenericName = i.GenericName
	m.Category = i.Category
	m.UnitsPerPack = i.UnitsPerPack
	m.OnHand = i.OnHand
	m.AvgCost = i.AvgCost
	m.MinStock = i.MinStock
	m.LastBuyPerPack = i.LastBuyPerPack
	m.LastBuyPerUnit = i.LastBuyPerUnit
	m.LastAfterTaxUnitCost = i.LastAfterTaxUnitCost
	m.LastSalePerPack = i.LastSalePerPack
	m.LastSalePerUnit = i.LastSalePerUnit
	m.LastSalePrice = i.LastSalePrice
	m.LastSupplier = i.LastSupplier
	m.LastInvoiceNumber = i.LastInvoiceNumber
	m.LastPacksReceived = i.LastPacksReceived
	m.LastReceivedAt = i.LastReceivedAt
	m.EarliestExpiry = i.EarliestExpiry
}

// InventoryItemModelFromDomain creates a new persistence model from a domain InventoryItem entity.
func InventoryItemModelFromDomain(i *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{}
	m.FromDomain(i)
	return m
}

// UpdateColumns lists the mutable columns written by optimistic saves
func (m *InventoryItemModel) UpdateColumns() map[string]any {
	return map[string]any{
		"name":                     m.Name,
		"generic_name":             m.GenericName,
		"category":                 m.Category,
		"units_per_pack":           m.UnitsPerPack,
		"on_hand":                  m.OnHand,
		"avg_cost":                 m.AvgCost,
		"min_stock":                m.MinStock,
		"last_buy_per_pack":        m.LastBuyPerPack,
		"last_buy_per_unit":        m.LastBuyPerUnit,
		"last_after_tax_unit_cost": m.LastAfterTaxUnitCost,
		"last_sale_per_pack":       m.LastSalePerPack,
		"last_sale_per_unit":       m.LastSalePerUnit,
		"last_sale_price":          m.LastSalePrice,
		"last_supplier":            m.LastSupplier,
		"last_invoice_number":      m.LastInvoiceNumber,
		"last_packs_received":      m.LastPacksReceived,
		"last_received_at":         m.LastReceivedAt,
		"earliest_expiry":          m.EarliestExpiry,
		"version":                  m.Version,
		"updated_at":               m.UpdatedAt,
	}
}
