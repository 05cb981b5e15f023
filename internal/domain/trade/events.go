package trade

import (
	"time"

	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypePurchaseCommitted = "PurchaseCommitted"
	EventTypeSaleCompleted     = "SaleCompleted"
	EventTypeReturnRecorded    = "ReturnRecorded"
)

// PurchaseCommittedEvent is raised when a draft becomes a purchase
type PurchaseCommittedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	SupplierName  string          `json:"supplier_name"`
	LineCount     int             `json:"line_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewPurchaseCommittedEvent creates a new PurchaseCommittedEvent
func NewPurchaseCommittedEvent(p *Purchase, at time.Time) *PurchaseCommittedEvent {
	return &PurchaseCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseCommitted, AggregateTypePurchase, p.ID, at),
		InvoiceNumber:   p.InvoiceNumber,
		SupplierName:    p.SupplierName,
		LineCount:       len(p.Lines),
		TotalAmount:     p.TotalAmount,
	}
}

// SaleCompletedEvent is raised when a bill is issued
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	BillNumber string          `json:"bill_number"`
	Total      decimal.Decimal `json:"total"`
	Profit     decimal.Decimal `json:"profit"`
}

// NewSaleCompletedEvent creates a new SaleCompletedEvent
func NewSaleCompletedEvent(d *Dispense, at time.Time) *SaleCompletedEvent {
	return &SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCompleted, AggregateTypeDispense, d.ID, at),
		BillNumber:      d.BillNumber,
		Total:           d.Total,
		Profit:          d.Profit,
	}
}

// ReturnRecordedEvent is raised when a return document is written
type ReturnRecordedEvent struct {
	shared.BaseDomainEvent
	ReturnNumber string          `json:"return_number"`
	ReturnType   ReturnType      `json:"return_type"`
	Reference    string          `json:"reference"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// NewReturnRecordedEvent creates a new ReturnRecordedEvent
func NewReturnRecordedEvent(r *ReturnEntry, at time.Time) *ReturnRecordedEvent {
	return &ReturnRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnRecorded, AggregateTypeReturn, r.ID, at),
		ReturnNumber:    r.ReturnNumber,
		ReturnType:      r.Type,
		Reference:       r.Reference,
		TotalValue:      r.TotalValue,
	}
}
