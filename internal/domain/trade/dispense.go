package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeDispense names the aggregate in events
const AggregateTypeDispense = "Dispense"

// DispenseLine is one sold item. CostPerUnit is captured when the sale is
// made and is never looked up again.
type DispenseLine struct {
	ID           uuid.UUID
	LineNo       int
	ItemID       *uuid.UUID
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	CostPerUnit  decimal.Decimal
	LineDiscount decimal.Decimal
}

// Amount is the undiscounted line value
func (l DispenseLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

// Dispense is a point-of-sale bill
type Dispense struct {
	shared.BaseAggregateRoot
	BillNumber        string
	DispensedAt       time.Time
	CustomerRef       string
	PaymentMethod     string
	DiscountPercent   decimal.Decimal
	Lines             []DispenseLine
	Subtotal          decimal.Decimal
	LineDiscountTotal decimal.Decimal
	BillDiscount      decimal.Decimal
	Total             decimal.Decimal
	Profit            decimal.Decimal
}

// SaleLineInput is a requested sale line before cost capture
type SaleLineInput struct {
	ItemID       *uuid.UUID
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	LineDiscount decimal.Decimal
}

// ValidateSale rejects a sale before any number is issued or stock touched
func ValidateSale(discountPercent decimal.Decimal, lines []SaleLineInput) error {
	if len(lines) == 0 {
		return shared.NewValidationError("sale has no lines")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return shared.NewValidationError("discount percent must be between 0 and 100")
	}
	for i, l := range lines {
		if l.ItemID == nil && strings.TrimSpace(l.Name) == "" {
			return shared.NewValidationError("line %d: item reference is required", i+1)
		}
		if !l.Quantity.IsPositive() {
			return shared.NewValidationError("line %d: quantity must be positive", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return shared.NewValidationError("line %d: unit price cannot be negative", i+1)
		}
		if l.LineDiscount.IsNegative() {
			return shared.NewValidationError("line %d: discount cannot be negative", i+1)
		}
		if l.LineDiscount.GreaterThan(l.UnitPrice.Mul(l.Quantity)) {
			return shared.NewValidationError("line %d: discount exceeds line amount", i+1)
		}
	}
	return nil
}

// NewDispense creates a bill from lines whose cost has already been captured
func NewDispense(billNumber, customerRef, paymentMethod string, discountPercent decimal.Decimal, lines []DispenseLine, now time.Time) *Dispense {
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		if lines[i].LineNo == 0 {
			lines[i].LineNo = i + 1
		}
	}
	d := &Dispense{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		BillNumber:        billNumber,
		DispensedAt:       now,
		CustomerRef:       strings.TrimSpace(customerRef),
		PaymentMethod:     paymentMethod,
		DiscountPercent:   discountPercent,
		Lines:             lines,
	}
	d.recalculate()
	d.AddDomainEvent(NewSaleCompletedEvent(d, now))
	return d
}

// recalculate derives all aggregates from the current lines and their
// captured costs.
func (d *Dispense) recalculate() {
	subtotal := decimal.Zero
	lineDiscounts := decimal.Zero
	margin := decimal.Zero
	for _, l := range d.Lines {
		subtotal = subtotal.Add(l.Amount())
		lineDiscounts = lineDiscounts.Add(l.LineDiscount)
		margin = margin.Add(l.UnitPrice.Sub(l.CostPerUnit).Mul(l.Quantity))
	}
	billDiscount := nonNegative(subtotal.Sub(lineDiscounts)).Mul(d.DiscountPercent).Div(hundred)

	d.Subtotal = subtotal.Round(2)
	d.LineDiscountTotal = lineDiscounts.Round(2)
	d.BillDiscount = billDiscount.Round(2)
	d.Total = subtotal.Sub(lineDiscounts).Sub(billDiscount).Round(2)
	d.Profit = margin.Sub(lineDiscounts).Sub(billDiscount).Round(2)
}

// ReturnValue prices returned units with the bill discount that was given
// at sale time: unitPrice * qty * (1 - discountPercent/100).
func (d *Dispense) ReturnValue(unitPrice, qty decimal.Decimal) decimal.Decimal {
	keep := decimal.NewFromInt(1).Sub(d.DiscountPercent.Div(hundred))
	return unitPrice.Mul(qty).Mul(keep).Round(2)
}

// ApplyCustomerReturn takes returned units off the bill. Lines that reach
// zero are removed, a partially returned line keeps a proportional share of
// its line discount, and totals and profit are recomputed from the captured
// costs.
func (d *Dispense) ApplyCustomerReturn(reqs []ReturnLineRequest, now time.Time) ([]ReversedLine, error) {
	refs := make([]lineRef, len(d.Lines))
	for i, l := range d.Lines {
		refs[i] = lineRef{itemID: l.ItemID, key: inventory.NormalizeKey(l.Name)}
	}
	take, err := planReversal(reqs, refs, func(i int) decimal.Decimal { return d.Lines[i].Quantity })
	if err != nil {
		return nil, err
	}

	var (
		reversed []ReversedLine
		kept     = make([]DispenseLine, 0, len(d.Lines))
	)
	for i, l := range d.Lines {
		qty := take[i]
		if qty.IsPositive() {
			reversed = append(reversed, ReversedLine{
				LineNo:   l.LineNo,
				ItemID:   l.ItemID,
				Name:     l.Name,
				Quantity: qty,
				Amount:   d.ReturnValue(l.UnitPrice, qty),
			})
			remaining := l.Quantity.Sub(qty)
			if l.LineDiscount.IsPositive() && remaining.IsPositive() {
				l.LineDiscount = l.LineDiscount.Mul(remaining).Div(l.Quantity).Round(2)
			}
			l.Quantity = remaining
		}
		if l.Quantity.IsPositive() {
			kept = append(kept, l)
		}
	}

	d.Lines = kept
	d.recalculate()
	d.Touch(now)
	d.IncrementVersion()
	return reversed, nil
}

// TotalQuantity is the number of units still on the bill
func (d *Dispense) TotalQuantity() decimal.Decimal {
	q := decimal.Zero
	for _, l := range d.Lines {
		q = q.Add(l.Quantity)
	}
	return q
}
