package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/hospital/pharmacy/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ==================== Draft DTOs ====================

// InvoiceLineInput is one line of a supplier invoice as entered
type InvoiceLineInput struct {
	Name         string          `json:"name" binding:"max=200"`
	GenericName  string          `json:"generic_name" binding:"max=200"`
	Category     string          `json:"category" binding:"max=100"`
	UnitsPerPack decimal.Decimal `json:"units_per_pack"`
	Packs        decimal.Decimal `json:"packs"`
	TotalItems   decimal.Decimal `json:"total_items"`
	BuyPerPack   decimal.Decimal `json:"buy_per_pack"`
	BuyPerUnit   decimal.Decimal `json:"buy_per_unit"`
	SalePerPack  decimal.Decimal `json:"sale_per_pack"`
	SalePerUnit  decimal.Decimal `json:"sale_per_unit"`
	TaxType      string          `json:"tax_type" binding:"omitempty,oneof=percent fixed"`
	TaxValue     decimal.Decimal `json:"tax_value"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	MinStock     decimal.Decimal `json:"min_stock"`
}

// InvoiceTaxInput is an invoice-level tax as entered
type InvoiceTaxInput struct {
	Name    string          `json:"name" binding:"max=100"`
	ApplyOn string          `json:"apply_on" binding:"omitempty,oneof=gross taxable"`
	Type    string          `json:"type" binding:"required,oneof=percent fixed"`
	Value   decimal.Decimal `json:"value"`
}

// SaveDraftRequest creates or replaces a purchase draft
type SaveDraftRequest struct {
	SupplierName  string             `json:"supplier_name" binding:"max=200"`
	InvoiceNumber string             `json:"invoice_number" binding:"max=100"`
	InvoiceDate   *time.Time         `json:"invoice_date"`
	Discount      decimal.Decimal    `json:"discount"`
	Taxes         []InvoiceTaxInput  `json:"taxes" binding:"dive"`
	Lines         []InvoiceLineInput `json:"lines" binding:"dive"`
	// Version, when set on update, must match the stored draft
	Version *int `json:"version"`
}

func (r SaveDraftRequest) toInput() trade.DraftInput {
	in := trade.DraftInput{
		SupplierName:  r.SupplierName,
		InvoiceNumber: r.InvoiceNumber,
		InvoiceDate:   r.InvoiceDate,
		Discount:      r.Discount,
		Lines:         make([]trade.InvoiceLine, len(r.Lines)),
		Taxes:         make([]trade.InvoiceTax, len(r.Taxes)),
	}
	for i, t := range r.Taxes {
		applyOn := trade.TaxBase(t.ApplyOn)
		if applyOn == "" {
			applyOn = trade.ApplyOnGross
		}
		in.Taxes[i] = trade.InvoiceTax{
			Name:    t.Name,
			ApplyOn: applyOn,
			Type:    trade.TaxType(t.Type),
			Value:   t.Value,
		}
	}
	for i, l := range r.Lines {
		taxType := trade.TaxType(l.TaxType)
		if taxType == "" {
			taxType = trade.TaxPercent
		}
		in.Lines[i] = trade.InvoiceLine{
			Name:         l.Name,
			GenericName:  l.GenericName,
			Category:     l.Category,
			UnitsPerPack: l.UnitsPerPack,
			Packs:        l.Packs,
			TotalItems:   l.TotalItems,
			BuyPerPack:   l.BuyPerPack,
			BuyPerUnit:   l.BuyPerUnit,
			SalePerPack:  l.SalePerPack,
			SalePerUnit:  l.SalePerUnit,
			Tax:          trade.LineTax{Type: taxType, Value: l.TaxValue},
			ExpiryDate:   l.ExpiryDate,
			MinStock:     l.MinStock,
		}
	}
	return in
}

// InvoicePreview is the computed form of an invoice that was not stored
type InvoicePreview struct {
	Lines       []trade.InvoiceLine `json:"lines"`
	Totals      trade.InvoiceTotals `json:"totals"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
}

// DraftResponse represents a stored draft
type DraftResponse struct {
	ID            uuid.UUID           `json:"id"`
	Version       int                 `json:"version"`
	SupplierName  string              `json:"supplier_name"`
	InvoiceNumber string              `json:"invoice_number"`
	InvoiceDate   *time.Time          `json:"invoice_date,omitempty"`
	Discount      decimal.Decimal     `json:"discount"`
	Taxes         []trade.InvoiceTax  `json:"taxes"`
	Lines         []trade.InvoiceLine `json:"lines"`
	Totals        trade.InvoiceTotals `json:"totals"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ToDraftResponse converts a domain draft to its response form
func ToDraftResponse(d *trade.Draft) DraftResponse {
	return DraftResponse{
		ID:            d.ID,
		Version:       d.Version,
		SupplierName:  d.SupplierName,
		InvoiceNumber: d.InvoiceNumber,
		InvoiceDate:   d.InvoiceDate,
		Discount:      d.Discount,
		Taxes:         d.Taxes,
		Lines:         d.Lines,
		Totals:        d.Totals,
		TotalAmount:   d.TotalAmount(),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// ==================== Commit DTOs ====================

// CommittedLine is a purchase line with the item it was booked to
type CommittedLine struct {
	LineNo           int             `json:"line_no"`
	ItemID           *uuid.UUID      `json:"item_id,omitempty"`
	Name             string          `json:"name"`
	TotalItems       decimal.Decimal `json:"total_items"`
	AfterTaxUnitCost decimal.Decimal `json:"after_tax_unit_cost"`
}

// ItemSnapshot is the valuation of an item after an operation
type ItemSnapshot struct {
	ID      uuid.UUID       `json:"id"`
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	OnHand  decimal.Decimal `json:"on_hand"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

func toItemSnapshots(items []*inventory.InventoryItem) []ItemSnapshot {
	out := make([]ItemSnapshot, 0, len(items))
	for _, i := range items {
		out = append(out, ItemSnapshot{ID: i.ID, Key: i.Key, Name: i.Name, OnHand: i.OnHand, AvgCost: i.AvgCost})
	}
	return out
}

// CommitResult describes a committed purchase
type CommitResult struct {
	PurchaseID    uuid.UUID           `json:"purchase_id"`
	DraftID       uuid.UUID           `json:"draft_id"`
	InvoiceNumber string              `json:"invoice_number"`
	SupplierName  string              `json:"supplier_name"`
	PurchasedAt   time.Time           `json:"purchased_at"`
	Totals        trade.InvoiceTotals `json:"totals"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Lines         []CommittedLine     `json:"lines"`
	Items         []ItemSnapshot      `json:"items,omitempty"`
	Warnings      []shared.Warning    `json:"warnings,omitempty"`
	// Replayed is set when the draft had already been committed and the
	// stored purchase is returned unchanged.
	Replayed bool `json:"replayed"`
}

func toCommitResult(p *trade.Purchase) *CommitResult {
	lines := make([]CommittedLine, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = CommittedLine{
			LineNo:           l.LineNo,
			ItemID:           l.ItemID,
			Name:             l.Name,
			TotalItems:       l.TotalItems,
			AfterTaxUnitCost: l.AfterTaxUnitCost,
		}
	}
	return &CommitResult{
		PurchaseID:    p.ID,
		DraftID:       p.DraftID,
		InvoiceNumber: p.InvoiceNumber,
		SupplierName:  p.SupplierName,
		PurchasedAt:   p.PurchasedAt,
		Totals:        p.Totals,
		TotalAmount:   p.TotalAmount,
		Lines:         lines,
	}
}

// ==================== Sale DTOs ====================

// SaleLineRequest is one requested sale line
type SaleLineRequest struct {
	ItemID       *uuid.UUID      `json:"item_id"`
	Name         string          `json:"name" binding:"max=200"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	LineDiscount decimal.Decimal `json:"line_discount"`
}

// CreateSaleRequest issues a bill
type CreateSaleRequest struct {
	CustomerRef     string            `json:"customer_ref" binding:"max=200"`
	PaymentMethod   string            `json:"payment_method" binding:"max=50"`
	DiscountPercent decimal.Decimal   `json:"discount_percent"`
	Lines           []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

func (r CreateSaleRequest) toInputs() []trade.SaleLineInput {
	out := make([]trade.SaleLineInput, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = trade.SaleLineInput{
			ItemID:       l.ItemID,
			Name:         l.Name,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			LineDiscount: l.LineDiscount,
		}
	}
	return out
}

// DispenseLineResponse is one line of a bill
type DispenseLineResponse struct {
	LineNo       int             `json:"line_no"`
	ItemID       *uuid.UUID      `json:"item_id,omitempty"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	LineDiscount decimal.Decimal `json:"line_discount"`
}

// DispenseResponse represents a stored bill
type DispenseResponse struct {
	ID                uuid.UUID              `json:"id"`
	BillNumber        string                 `json:"bill_number"`
	DispensedAt       time.Time              `json:"dispensed_at"`
	CustomerRef       string                 `json:"customer_ref,omitempty"`
	PaymentMethod     string                 `json:"payment_method"`
	DiscountPercent   decimal.Decimal        `json:"discount_percent"`
	Subtotal          decimal.Decimal        `json:"subtotal"`
	LineDiscountTotal decimal.Decimal        `json:"line_discount_total"`
	BillDiscount      decimal.Decimal        `json:"bill_discount"`
	Total             decimal.Decimal        `json:"total"`
	Profit            decimal.Decimal        `json:"profit"`
	Lines             []DispenseLineResponse `json:"lines"`
}

// ToDispenseResponse converts a domain bill to its response form
func ToDispenseResponse(d *trade.Dispense) DispenseResponse {
	lines := make([]DispenseLineResponse, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = DispenseLineResponse{
			LineNo:       l.LineNo,
			ItemID:       l.ItemID,
			Name:         l.Name,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			CostPerUnit:  l.CostPerUnit,
			LineDiscount: l.LineDiscount,
		}
	}
	return DispenseResponse{
		ID:                d.ID,
		BillNumber:        d.BillNumber,
		DispensedAt:       d.DispensedAt,
		CustomerRef:       d.CustomerRef,
		PaymentMethod:     d.PaymentMethod,
		DiscountPercent:   d.DiscountPercent,
		Subtotal:          d.Subtotal,
		LineDiscountTotal: d.LineDiscountTotal,
		BillDiscount:      d.BillDiscount,
		Total:             d.Total,
		Profit:            d.Profit,
		Lines:             lines,
	}
}

// SaleResult is a freshly issued bill
type SaleResult struct {
	DispenseResponse
	Warnings []shared.Warning `json:"warnings,omitempty"`
}

// ==================== Return DTOs ====================

// ReturnLineInput is one requested return line
type ReturnLineInput struct {
	ItemID   *uuid.UUID      `json:"item_id"`
	Name     string          `json:"name" binding:"max=200"`
	Quantity decimal.Decimal `json:"quantity"`
	// Amount is only read for manual returns
	Amount decimal.Decimal `json:"amount"`
}

// CreateReturnRequest reverses part of a sale or purchase
type CreateReturnRequest struct {
	Type           string            `json:"type" binding:"required,oneof=customer supplier manual"`
	Reference      string            `json:"reference" binding:"max=100"`
	Counterparty   string            `json:"counterparty" binding:"max=200"`
	IdempotencyKey string            `json:"idempotency_key" binding:"max=100"`
	Lines          []ReturnLineInput `json:"lines" binding:"required,min=1,dive"`
}

func (r CreateReturnRequest) toRequests() []trade.ReturnLineRequest {
	out := make([]trade.ReturnLineRequest, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = trade.ReturnLineRequest{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Amount:   l.Amount,
		}
	}
	return out
}

// ReturnLineResponse is one reversed line
type ReturnLineResponse struct {
	LineNo   int             `json:"line_no"`
	ItemID   *uuid.UUID      `json:"item_id,omitempty"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// OriginalSummary is the state of the reversed document after the return
type OriginalSummary struct {
	ID          uuid.UUID        `json:"id"`
	Reference   string           `json:"reference"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Profit      *decimal.Decimal `json:"profit,omitempty"`
	LineCount   int              `json:"line_count"`
}

// ReturnResult describes a recorded return
type ReturnResult struct {
	ReturnID     uuid.UUID            `json:"return_id"`
	ReturnNumber string               `json:"return_number"`
	Type         trade.ReturnType     `json:"type"`
	ReturnedAt   time.Time            `json:"returned_at"`
	Reference    string               `json:"reference,omitempty"`
	Counterparty string               `json:"counterparty,omitempty"`
	OriginalID   *uuid.UUID           `json:"original_id,omitempty"`
	ItemCount    decimal.Decimal      `json:"item_count"`
	TotalValue   decimal.Decimal      `json:"total_value"`
	Lines        []ReturnLineResponse `json:"lines"`
	Original     *OriginalSummary     `json:"original,omitempty"`
	Warnings     []shared.Warning     `json:"warnings,omitempty"`
	Replayed     bool                 `json:"replayed"`
}

func toReturnResult(r *trade.ReturnEntry) *ReturnResult {
	lines := make([]ReturnLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReturnLineResponse{
			LineNo:   l.LineNo,
			ItemID:   l.ItemID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Amount:   l.Amount,
		}
	}
	return &ReturnResult{
		ReturnID:     r.ID,
		ReturnNumber: r.ReturnNumber,
		Type:         r.Type,
		ReturnedAt:   r.ReturnedAt,
		Reference:    r.Reference,
		Counterparty: r.Counterparty,
		OriginalID:   r.OriginalID,
		ItemCount:    r.ItemCount,
		TotalValue:   r.TotalValue,
		Lines:        lines,
	}
}

func dispenseSummary(d *trade.Dispense) *OriginalSummary {
	profit := d.Profit
	return &OriginalSummary{
		ID:          d.ID,
		Reference:   d.BillNumber,
		TotalAmount: d.Total,
		Profit:      &profit,
		LineCount:   len(d.Lines),
	}
}

func purchaseSummary(p *trade.Purchase) *OriginalSummary {
	return &OriginalSummary{
		ID:          p.ID,
		Reference:   p.InvoiceNumber,
		TotalAmount: p.TotalAmount,
		LineCount:   len(p.Lines),
	}
}
