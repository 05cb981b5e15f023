package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// logger for model conversion errors
var modelLogger = zap.L().Named("trade.models")

// PurchaseDraftModel is the persistence model for the Draft aggregate root.
// Lines, taxes and totals are kept as JSON documents; a draft is only ever
// loaded whole.
type PurchaseDraftModel struct {
	AggregateModel
	SupplierName  string          `gorm:"type:varchar(200);index"`
	InvoiceNumber string          `gorm:"type:varchar(100);index"`
	InvoiceDate   *time.Time      `gorm:"type:date"`
	Discount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxesJSON     string          `gorm:"column:taxes;type:jsonb;default:'[]'"`
	LinesJSON     string          `gorm:"column:lines;type:jsonb;default:'[]'"`
	TotalsJSON    string          `gorm:"column:totals;type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (PurchaseDraftModel) TableName() string {
	return "purchase_drafts"
}

// ToDomain converts the persistence model to a domain Draft.
func (m *PurchaseDraftModel) ToDomain() *trade.Draft {
	d := &trade.Draft{
		BaseAggregateRoot: m.ToAggregateRoot(),
		SupplierName:      m.SupplierName,
		InvoiceNumber:     m.InvoiceNumber,
		InvoiceDate:       m.InvoiceDate,
		Discount:          m.Discount,
		Taxes:             make([]trade.InvoiceTax, 0),
		Lines:             make([]trade.InvoiceLine, 0),
	}
	unmarshalColumn(m.ID, "taxes", m.TaxesJSON, &d.Taxes)
	unmarshalColumn(m.ID, "lines", m.LinesJSON, &d.Lines)
	unmarshalColumn(m.ID, "totals", m.TotalsJSON, &d.Totals)
	return d
}

// FromDomain populates the persistence model from a domain Draft.
func (m *PurchaseDraftModel) FromDomain(d *trade.Draft) error {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.SupplierName = d.SupplierName
	m.InvoiceNumber = d.InvoiceNumber
	m.InvoiceDate = d.InvoiceDate
	m.Discount = d.Discount

	var err error
	if m.TaxesJSON, err = marshalColumn(d.Taxes, "[]"); err != nil {
		return err
	}
	if m.LinesJSON, err = marshalColumn(d.Lines, "[]"); err != nil {
		return err
	}
	m.TotalsJSON, err = marshalColumn(d.Totals, "{}")
	return err
}

// UpdateColumns lists the mutable columns written by optimistic saves
func (m *PurchaseDraftModel) UpdateColumns() map[string]any {
	return map[string]any{
		"supplier_name":  m.SupplierName,
		"invoice_number": m.InvoiceNumber,
		"invoice_date":   m.InvoiceDate,
		"discount":       m.Discount,
		"taxes":          m.TaxesJSON,
		"lines":          m.LinesJSON,
		"totals":         m.TotalsJSON,
		"version":        m.Version,
		"updated_at":     m.UpdatedAt,
	}
}

// PurchaseDraftModelFromDomain creates a new persistence model from a domain Draft.
func PurchaseDraftModelFromDomain(d *trade.Draft) (*PurchaseDraftModel, error) {
	m := &PurchaseDraftModel{}
	if err := m.FromDomain(d); err != nil {
		return nil, err
	}
	return m, nil
}

// PurchaseModel is the persistence model for the Purchase aggregate root.
type PurchaseModel struct {
	AggregateModel
	DraftID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	InvoiceNumber string          `gorm:"type:varchar(100);not null;index:idx_purchase_invoice,priority:1"`
	SupplierName  string          `gorm:"type:varchar(200);index:idx_purchase_invoice,priority:2"`
	PurchasedAt   time.Time       `gorm:"not null;index"`
	TotalsJSON    string          `gorm:"column:totals;type:jsonb;default:'{}'"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	// Associations
	Lines []PurchaseLineModel `gorm:"foreignKey:PurchaseID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseModel) TableName() string {
	return "purchases"
}

// ToDomain converts the persistence model to a domain Purchase.
func (m *PurchaseModel) ToDomain() *trade.Purchase {
	p := &trade.Purchase{
		BaseAggregateRoot: m.ToAggregateRoot(),
		DraftID:           m.DraftID,
		InvoiceNumber:     m.InvoiceNumber,
		SupplierName:      m.SupplierName,
		PurchasedAt:       m.PurchasedAt,
		TotalAmount:       m.TotalAmount,
		Lines:             make([]trade.PurchaseLine, len(m.Lines)),
	}
	unmarshalColumn(m.ID, "totals", m.TotalsJSON, &p.Totals)
	for i := range m.Lines {
		p.Lines[i] = m.Lines[i].ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain Purchase.
func (m *PurchaseModel) FromDomain(p *trade.Purchase) error {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.DraftID = p.DraftID
	m.InvoiceNumber = p.InvoiceNumber
	m.SupplierName = p.SupplierName
	m.PurchasedAt = p.PurchasedAt
	m.TotalAmount = p.TotalAmount

	var err error
	if m.TotalsJSON, err = marshalColumn(p.Totals, "{}"); err != nil {
		return err
	}
	m.Lines = make([]PurchaseLineModel, len(p.Lines))
	for i := range p.Lines {
		m.Lines[i].FromDomain(p.ID, p.UpdatedAt, p.Lines[i])
	}
	return nil
}

// UpdateColumns lists the mutable columns written by optimistic saves
func (m *PurchaseModel) UpdateColumns() map[string]any {
	return map[string]any{
		"totals":       m.TotalsJSON,
		"total_amount": m.TotalAmount,
		"version":      m.Version,
		"updated_at":   m.UpdatedAt,
	}
}

// PurchaseModelFromDomain creates a new persistence model from a domain Purchase.
func PurchaseModelFromDomain(p *trade.Purchase) (*PurchaseModel, error) {
	m := &PurchaseModel{}
	if err := m.FromDomain(p); err != nil {
		return nil, err
	}
	return m, nil
}

// PurchaseLineModel is the persistence model for a costed purchase line.
type PurchaseLineModel struct {
	BaseModel
	PurchaseID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo           int             `gorm:"not null"`
	ItemID           *uuid.UUID      `gorm:"type:uuid;index"`
	Name             string          `gorm:"type:varchar(200);not null"`
	GenericName      string          `gorm:"type:varchar(200)"`
	Category         string          `gorm:"type:varchar(100)"`
	UnitsPerPack     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	Packs            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalItems       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BuyPerPack       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BuyPerUnit       decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	SalePerPack      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SalePerUnit      decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	TaxType          string          `gorm:"type:varchar(20);not null;default:'percent'"`
	TaxValue         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ExpiryDate       *time.Time      `gorm:"type:date"`
	MinStock         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineGross        decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	LineTaxAmount    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	AllocatedTax     decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	AfterTaxUnitCost decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	AfterTaxPackCost decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseLineModel) TableName() string {
	return "purchase_lines"
}

// ToDomain converts the persistence model to a domain PurchaseLine.
func (m *PurchaseLineModel) ToDomain() trade.PurchaseLine {
	return trade.PurchaseLine{
		ID:     m.ID,
		LineNo: m.LineNo,
		ItemID: m.ItemID,
		InvoiceLine: trade.InvoiceLine{
			Name:             m.Name,
			GenericName:      m.GenericName,
			Category:         m.Category,
			UnitsPerPack:     m.UnitsPerPack,
			Packs:            m.Packs,
			TotalItems:       m.TotalItems,
			BuyPerPack:       m.BuyPerPack,
			BuyPerUnit:       m.BuyPerUnit,
			SalePerPack:      m.SalePerPack,
			SalePerUnit:      m.SalePerUnit,
			Tax:              trade.LineTax{Type: trade.TaxType(m.TaxType), Value: m.TaxValue},
			ExpiryDate:       m.ExpiryDate,
			MinStock:         m.MinStock,
			LineGross:        m.LineGross,
			LineTaxAmount:    m.LineTaxAmount,
			AllocatedTax:     m.AllocatedTax,
			AfterTaxUnitCost: m.AfterTaxUnitCost,
			AfterTaxPackCost: m.AfterTaxPackCost,
		},
	}
}

// FromDomain populates the persistence model from a domain PurchaseLine.
func (m *PurchaseLineModel) FromDomain(purchaseID uuid.UUID, at time.Time, l trade.PurchaseLine) {
	m.ID = l.ID
	m.CreatedAt = at
	m.UpdatedAt = at
	m.PurchaseID = purchaseID
	m.LineNo = l.LineNo
	m.ItemID = l.ItemID
	m.Name = l.Name
	m.GenericName = l.GenericName
	m.Category = l.Category
	m.UnitsPerPack = l.UnitsPerPack
	m.Packs = l.Packs
	m.TotalItems = l.TotalItems
	m.BuyPerPack = l.BuyPerPack
	m.BuyPerUnit = l.BuyPerUnit
	m.SalePerPack = l.SalePerPack
	m.SalePerUnit = l.SalePerUnit
	m.TaxType = string(l.Tax.Type)
	m.TaxValue = l.Tax.Value
	m.ExpiryDate = l.ExpiryDate
	m.MinStock = l.MinStock
	m.LineGross = l.LineGross
	m.LineTaxAmount = l.LineTaxAmount
	m.AllocatedTax = l.AllocatedTax
	m.AfterTaxUnitCost = l.AfterTaxUnitCost
	m.AfterTaxPackCost = l.AfterTaxPackCost
}

// DispenseModel is the persistence model for the Dispense aggregate root.
type DispenseModel struct {
	AggregateModel
	BillNumber        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	DispensedAt       time.Time       `gorm:"not null;index"`
	CustomerRef       string          `gorm:"type:varchar(200);index"`
	PaymentMethod     string          `gorm:"type:varchar(30);not null;default:'cash'"`
	DiscountPercent   decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineDiscountTotal decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BillDiscount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Profit            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	// Associations
	Lines []DispenseLineModel `gorm:"foreignKey:DispenseID;references:ID"`
}

// TableName returns the table name for GORM
func (DispenseModel) TableName() string {
	return "dispenses"
}

// ToDomain converts the persistence model to a domain Dispense.
func (m *DispenseModel) ToDomain() *trade.Dispense {
	d := &trade.Dispense{
		BaseAggregateRoot: m.ToAggregateRoot(),
		BillNumber:        m.BillNumber,
		DispensedAt:       m.DispensedAt,
		CustomerRef:       m.CustomerRef,
		PaymentMethod:     m.PaymentMethod,
		DiscountPercent:   m.DiscountPercent,
		Subtotal:          m.Subtotal,
		LineDiscountTotal: m.LineDiscountTotal,
		BillDiscount:      m.BillDiscount,
		Total:             m.Total,
		Profit:            m.Profit,
		Lines:             make([]trade.DispenseLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		d.Lines[i] = trade.DispenseLine{
			ID:           l.ID,
			LineNo:       l.LineNo,
			ItemID:       l.ItemID,
			Name:         l.Name,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			CostPerUnit:  l.CostPerUnit,
			LineDiscount: l.LineDiscount,
		}
	}
	return d
}

// FromDomain populates the persistence model from a domain Dispense.
func (m *DispenseModel) FromDomain(d *trade.Dispense) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.BillNumber = d.BillNumber
	m.DispensedAt = d.DispensedAt
	m.CustomerRef = d.CustomerRef
	m.PaymentMethod = d.PaymentMethod
	m.DiscountPercent = d.DiscountPercent
	m.Subtotal = d.Subtotal
	m.LineDiscountTotal = d.LineDiscountTotal
	m.BillDiscount = d.BillDiscount
	m.Total = d.Total
	m.Profit = d.Profit
	m.Lines = make([]DispenseLineModel, len(d.Lines))
	for i, l := range d.Lines {
		m.Lines[i] = DispenseLineModel{
			BaseModel:    BaseModel{ID: l.ID, CreatedAt: d.UpdatedAt, UpdatedAt: d.UpdatedAt},
			DispenseID:   d.ID,
			LineNo:       l.LineNo,
			ItemID:       l.ItemID,
			Name:         l.Name,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			CostPerUnit:  l.CostPerUnit,
			LineDiscount: l.LineDiscount,
		}
	}
}

// UpdateColumns lists the mutable columns written by optimistic saves
func (m *DispenseModel) UpdateColumns() map[string]any {
	return map[string]any{
		"subtotal":            m.Subtotal,
		"line_discount_total": m.LineDiscountTotal,
		"bill_discount":       m.BillDiscount,
		"total":               m.Total,
		"profit":              m.Profit,
		"version":             m.Version,
		"updated_at":          m.UpdatedAt,
	}
}

// DispenseModelFromDomain creates a new persistence model from a domain Dispense.
func DispenseModelFromDomain(d *trade.Dispense) *DispenseModel {
	m := &DispenseModel{}
	m.FromDomain(d)
	return m
}

// DispenseLineModel is the persistence model for one bill line with its
// captured cost.
type DispenseLineModel struct {
	BaseModel
	DispenseID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo       int             `gorm:"not null"`
	ItemID       *uuid.UUID      `gorm:"type:uuid;index"`
	Name         string          `gorm:"type:varchar(200);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CostPerUnit  decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	LineDiscount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (DispenseLineModel) TableName() string {
	return "dispense_lines"
}

// ReturnEntryModel is the persistence model for the ReturnEntry aggregate root.
type ReturnEntryModel struct {
	AggregateModel
	ReturnNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type           string          `gorm:"type:varchar(20);not null;index"`
	ReturnedAt     time.Time       `gorm:"not null;index"`
	Reference      string          `gorm:"type:varchar(100);index"`
	Counterparty   string          `gorm:"type:varchar(200)"`
	OriginalID     *uuid.UUID      `gorm:"type:uuid;index"`
	ItemCount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalValue     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	IdempotencyKey *string         `gorm:"type:varchar(100);uniqueIndex"`
	// Associations
	Lines []ReturnLineModel `gorm:"foreignKey:ReturnID;references:ID"`
}

// TableName returns the table name for GORM
func (ReturnEntryModel) TableName() string {
	return "returns"
}

// ToDomain converts the persistence model to a domain ReturnEntry.
func (m *ReturnEntryModel) ToDomain() *trade.ReturnEntry {
	r := &trade.ReturnEntry{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ReturnNumber:      m.ReturnNumber,
		Type:              trade.ReturnType(m.Type),
		ReturnedAt:        m.ReturnedAt,
		Reference:         m.Reference,
		Counterparty:      m.Counterparty,
		OriginalID:        m.OriginalID,
		ItemCount:         m.ItemCount,
		TotalValue:        m.TotalValue,
		Lines:             make([]trade.ReturnLine, len(m.Lines)),
	}
	if m.IdempotencyKey != nil {
		r.IdempotencyKey = *m.IdempotencyKey
	}
	for i, l := range m.Lines {
		r.Lines[i] = trade.ReturnLine{
			ID:       l.ID,
			LineNo:   l.LineNo,
			ItemID:   l.ItemID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Amount:   l.Amount,
		}
	}
	return r
}

// FromDomain populates the persistence model from a domain ReturnEntry.
// An empty idempotency key is stored as NULL so the unique index ignores it.
func (m *ReturnEntryModel) FromDomain(r *trade.ReturnEntry) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.ReturnNumber = r.ReturnNumber
	m.Type = string(r.Type)
	m.ReturnedAt = r.ReturnedAt
	m.Reference = r.Reference
	m.Counterparty = r.Counterparty
	m.OriginalID = r.OriginalID
	m.ItemCount = r.ItemCount
	m.TotalValue = r.TotalValue
	m.IdempotencyKey = nil
	if r.IdempotencyKey != "" {
		key := r.IdempotencyKey
		m.IdempotencyKey = &key
	}
	m.Lines = make([]ReturnLineModel, len(r.Lines))
	for i, l := range r.Lines {
		m.Lines[i] = ReturnLineModel{
			BaseModel: BaseModel{ID: l.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.CreatedAt},
			ReturnID:  r.ID,
			LineNo:    l.LineNo,
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Amount:    l.Amount,
		}
	}
}

// ReturnEntryModelFromDomain creates a new persistence model from a domain ReturnEntry.
func ReturnEntryModelFromDomain(r *trade.ReturnEntry) *ReturnEntryModel {
	m := &ReturnEntryModel{}
	m.FromDomain(r)
	return m
}

// ReturnLineModel is the persistence model for one reversed line.
type ReturnLineModel struct {
	BaseModel
	ReturnID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo   int             `gorm:"not null"`
	ItemID   *uuid.UUID      `gorm:"type:uuid"`
	Name     string          `gorm:"type:varchar(200);not null"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Amount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (ReturnLineModel) TableName() string {
	return "return_lines"
}

// DocumentCounterModel holds the last number issued for one period key,
// e.g. "B-260314" or "RET-202603".
type DocumentCounterModel struct {
	PeriodKey string    `gorm:"type:varchar(50);primaryKey"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentCounterModel) TableName() string {
	return "document_counters"
}

func marshalColumn(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON column: %w", err)
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func unmarshalColumn(id uuid.UUID, column, raw string, dst any) {
	if raw == "" || raw == "[]" || raw == "{}" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		modelLogger.Warn("failed to parse JSON column",
			zap.String("id", id.String()),
			zap.String("column", column),
			zap.Error(err))
	}
}
