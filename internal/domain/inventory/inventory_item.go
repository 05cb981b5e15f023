package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CostPrecision is the number of decimals kept on per-unit costs.
const CostPrecision = 6

// InventoryItem is the running valuation of one distinct item name.
// One global weighted-average cost is kept per item.
type InventoryItem struct {
	shared.BaseAggregateRoot
	Key          string
	Name         string
	GenericName  string
	Category     string
	UnitsPerPack decimal.Decimal
	OnHand       decimal.Decimal
	AvgCost      decimal.Decimal
	MinStock     decimal.Decimal

	LastBuyPerPack       decimal.Decimal
	LastBuyPerUnit       decimal.Decimal
	LastAfterTaxUnitCost decimal.Decimal
	LastSalePerPack      decimal.Decimal
	LastSalePerUnit      decimal.Decimal // list price from the last invoice
	LastSalePrice        decimal.Decimal // price actually charged on the last sale
	LastSupplier         string
	LastInvoiceNumber    string
	LastPacksReceived    decimal.Decimal
	LastReceivedAt       *time.Time
	EarliestExpiry       *time.Time
}

// NewInventoryItem creates an empty valuation record for name
func NewInventoryItem(name string, now time.Time) (*InventoryItem, error) {
	key := NormalizeKey(name)
	if key == "" {
		return nil, shared.NewValidationError("item name cannot be empty")
	}
	return &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		Key:               key,
		Name:              collapse(name),
		UnitsPerPack:      decimal.NewFromInt(1),
		OnHand:            decimal.Zero,
		AvgCost:           decimal.Zero,
		MinStock:          decimal.Zero,
	}, nil
}

// Receipt is one costed invoice line arriving into stock.
type Receipt struct {
	Quantity         decimal.Decimal
	AfterTaxUnitCost decimal.Decimal
	UnitsPerPack     decimal.Decimal
	Packs            decimal.Decimal
	BuyPerPack       decimal.Decimal
	BuyPerUnit       decimal.Decimal
	SalePerPack      decimal.Decimal
	SalePerUnit      decimal.Decimal
	GenericName      string
	Category         string
	MinStock         decimal.Decimal
	Supplier         string
	InvoiceNumber    string
	Expiry           *time.Time
	ReceivedAt       time.Time
}

// WeightedAverage blends an incoming quantity into the running cost:
//
//	newOnHand > 0 ? (priorAvg*priorOnHand + unitCost*added) / newOnHand : priorAvg
func WeightedAverage(priorOnHand, priorAvg, added, unitCost decimal.Decimal) decimal.Decimal {
	newOnHand := priorOnHand.Add(added)
	if !newOnHand.IsPositive() {
		return priorAvg
	}
	value := priorAvg.Mul(priorOnHand).Add(unitCost.Mul(added))
	return value.DivRound(newOnHand, CostPrecision)
}

// Receive applies a purchase receipt: quantity, weighted-average cost,
// last-transaction metadata and earliest expiry.
func (i *InventoryItem) Receive(r Receipt) {
	added := clampZero(r.Quantity)
	oldCost := i.AvgCost

	i.AvgCost = WeightedAverage(i.OnHand, i.AvgCost, added, clampZero(r.AfterTaxUnitCost))
	i.OnHand = i.OnHand.Add(added)

	if r.UnitsPerPack.IsPositive() {
		i.UnitsPerPack = r.UnitsPerPack
	}
	if r.GenericName != "" {
		i.GenericName = r.GenericName
	}
	if r.Category != "" {
		i.Category = r.Category
	}
	if r.MinStock.IsPositive() {
		i.MinStock = r.MinStock
	}
	i.LastBuyPerPack = r.BuyPerPack
	i.LastBuyPerUnit = r.BuyPerUnit
	i.LastAfterTaxUnitCost = r.AfterTaxUnitCost
	i.LastSalePerPack = r.SalePerPack
	i.LastSalePerUnit = r.SalePerUnit
	i.LastSupplier = r.Supplier
	i.LastInvoiceNumber = r.InvoiceNumber
	i.LastPacksReceived = r.Packs
	receivedAt := r.ReceivedAt
	i.LastReceivedAt = &receivedAt

	if r.Expiry != nil && (i.EarliestExpiry == nil || r.Expiry.Before(*i.EarliestExpiry)) {
		expiry := *r.Expiry
		i.EarliestExpiry = &expiry
	}

	i.Touch(r.ReceivedAt)
	i.IncrementVersion()

	i.AddDomainEvent(NewStockReceivedEvent(i, added, r.AfterTaxUnitCost, r.InvoiceNumber, r.ReceivedAt))
	if !oldCost.Equal(i.AvgCost) {
		i.AddDomainEvent(NewAverageCostChangedEvent(i, oldCost, r.ReceivedAt))
	}
}

// Dispense removes sold stock (clamped at zero) and records the sale price.
func (i *InventoryItem) Dispense(qty, unitPrice decimal.Decimal, billNumber string, at time.Time) {
	i.OnHand = clampZero(i.OnHand.Sub(clampZero(qty)))
	i.LastSalePrice = unitPrice
	i.Touch(at)
	i.IncrementVersion()

	i.AddDomainEvent(NewStockAdjustedEvent(i, qty.Neg(), ReasonSale, billNumber, at))
	i.checkThreshold(at)
}

// Restock puts returned customer stock back on hand. Cost is unchanged.
func (i *InventoryItem) Restock(qty decimal.Decimal, reference string, at time.Time) {
	qty = clampZero(qty)
	i.OnHand = i.OnHand.Add(qty)
	i.Touch(at)
	i.IncrementVersion()

	i.AddDomainEvent(NewStockAdjustedEvent(i, qty, ReasonCustomerReturn, reference, at))
}

// ReturnToSupplier removes stock sent back to the supplier. The average cost
// is left as is: only quantity changes.
func (i *InventoryItem) ReturnToSupplier(qty decimal.Decimal, reference string, at time.Time) {
	qty = clampZero(qty)
	i.OnHand = clampZero(i.OnHand.Sub(qty))
	i.Touch(at)
	i.IncrementVersion()

	i.AddDomainEvent(NewStockAdjustedEvent(i, qty.Neg(), ReasonSupplierReturn, reference, at))
	i.checkThreshold(at)
}

// CurrentUnitCost resolves the cost to snapshot onto a sale line:
// average cost, then last after-tax buy cost, then last buy cost, then zero.
func (i *InventoryItem) CurrentUnitCost() decimal.Decimal {
	switch {
	case i.AvgCost.IsPositive():
		return i.AvgCost
	case i.LastAfterTaxUnitCost.IsPositive():
		return i.LastAfterTaxUnitCost
	case i.LastBuyPerUnit.IsPositive():
		return i.LastBuyPerUnit
	case i.LastBuyPerPack.IsPositive() && i.UnitsPerPack.IsPositive():
		return i.LastBuyPerPack.DivRound(i.UnitsPerPack, CostPrecision)
	default:
		return decimal.Zero
	}
}

// BelowMinimum reports whether on-hand has dropped under the configured threshold
func (i *InventoryItem) BelowMinimum() bool {
	return i.MinStock.IsPositive() && i.OnHand.LessThan(i.MinStock)
}

// StockValue is on-hand valued at average cost
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.OnHand.Mul(i.AvgCost).Round(2)
}

func (i *InventoryItem) checkThreshold(at time.Time) {
	if i.BelowMinimum() {
		i.AddDomainEvent(NewStockBelowThresholdEvent(i, at))
	}
}

// ResolveID returns a pointer to the item id, nil for a nil item
func ResolveID(i *InventoryItem) *uuid.UUID {
	if i == nil {
		return nil
	}
	id := i.ID
	return &id
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
