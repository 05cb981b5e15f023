package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeInventoryItem names the aggregate in events
const AggregateTypeInventoryItem = "InventoryItem"

// Event type constants
const (
	EventTypeStockReceived       = "StockReceived"
	EventTypeStockAdjusted       = "StockAdjusted"
	EventTypeAverageCostChanged  = "AverageCostChanged"
	EventTypeStockBelowThreshold = "StockBelowThreshold"
)

// Adjustment reasons
const (
	ReasonSale           = "sale"
	ReasonCustomerReturn = "customer_return"
	ReasonSupplierReturn = "supplier_return"
)

// StockReceivedEvent is raised when a committed invoice line adds stock
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	ItemKey       string          `json:"item_key"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	InvoiceNumber string          `json:"invoice_number"`
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(item *InventoryItem, qty, unitCost decimal.Decimal, invoiceNumber string, at time.Time) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, AggregateTypeInventoryItem, item.ID, at),
		ItemKey:         item.Key,
		Quantity:        qty,
		UnitCost:        unitCost,
		InvoiceNumber:   invoiceNumber,
	}
}

// StockAdjustedEvent is raised by sales and returns. Quantity is signed.
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ItemKey   string          `json:"item_key"`
	Quantity  decimal.Decimal `json:"quantity"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Reason    string          `json:"reason"`
	Reference string          `json:"reference"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(item *InventoryItem, qty decimal.Decimal, reason, reference string, at time.Time) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeInventoryItem, item.ID, at),
		ItemKey:         item.Key,
		Quantity:        qty,
		OnHand:          item.OnHand,
		Reason:          reason,
		Reference:       reference,
	}
}

// AverageCostChangedEvent is raised when a receipt moves the weighted average
type AverageCostChangedEvent struct {
	shared.BaseDomainEvent
	ItemKey string          `json:"item_key"`
	OldCost decimal.Decimal `json:"old_cost"`
	NewCost decimal.Decimal `json:"new_cost"`
}

// NewAverageCostChangedEvent creates a new AverageCostChangedEvent
func NewAverageCostChangedEvent(item *InventoryItem, oldCost decimal.Decimal, at time.Time) *AverageCostChangedEvent {
	return &AverageCostChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAverageCostChanged, AggregateTypeInventoryItem, item.ID, at),
		ItemKey:         item.Key,
		OldCost:         oldCost,
		NewCost:         item.AvgCost,
	}
}

// StockBelowThresholdEvent is raised when on-hand falls under the minimum stock
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	ItemID   uuid.UUID       `json:"item_id"`
	ItemKey  string          `json:"item_key"`
	Name     string          `json:"name"`
	OnHand   decimal.Decimal `json:"on_hand"`
	MinStock decimal.Decimal `json:"min_stock"`
}

// NewStockBelowThresholdEvent creates a new StockBelowThresholdEvent
func NewStockBelowThresholdEvent(item *InventoryItem, at time.Time) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeInventoryItem, item.ID, at),
		ItemID:          item.ID,
		ItemKey:         item.Key,
		Name:            item.Name,
		OnHand:          item.OnHand,
		MinStock:        item.MinStock,
	}
}
