package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypePurchase names the aggregate in events
const AggregateTypePurchase = "Purchase"

// PurchaseLine is the costed snapshot of a committed invoice line
type PurchaseLine struct {
	ID     uuid.UUID
	LineNo int
	ItemID *uuid.UUID
	InvoiceLine
}

// UnitCost is the per-unit value of the line: after-tax cost, then the buy
// price per unit, then the pack price spread over its units.
func (l PurchaseLine) UnitCost() decimal.Decimal {
	switch {
	case l.AfterTaxUnitCost.IsPositive():
		return l.AfterTaxUnitCost
	case l.BuyPerUnit.IsPositive():
		return l.BuyPerUnit
	case l.BuyPerPack.IsPositive() && l.UnitsPerPack.IsPositive():
		return l.BuyPerPack.Div(l.UnitsPerPack)
	default:
		return decimal.Zero
	}
}

// Purchase is the ledger entry of a committed supplier invoice. Supplier
// returns may reduce its quantities and total; nothing else changes it.
type Purchase struct {
	shared.BaseAggregateRoot
	DraftID       uuid.UUID
	InvoiceNumber string
	SupplierName  string
	PurchasedAt   time.Time
	Lines         []PurchaseLine
	Totals        InvoiceTotals
	TotalAmount   decimal.Decimal
}

// NewPurchase books a draft. lines must be the draft's committable lines,
// each already linked to its inventory item.
func NewPurchase(draft *Draft, invoiceNumber string, lines []PurchaseLine, now time.Time) *Purchase {
	purchasedAt := now
	if draft.InvoiceDate != nil {
		purchasedAt = *draft.InvoiceDate
	}
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
	}
	p := &Purchase{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		DraftID:           draft.ID,
		InvoiceNumber:     invoiceNumber,
		SupplierName:      draft.SupplierName,
		PurchasedAt:       purchasedAt,
		Lines:             lines,
		Totals:            draft.Totals,
		TotalAmount:       draft.TotalAmount(),
	}
	p.AddDomainEvent(NewPurchaseCommittedEvent(p, now))
	return p
}

// ApplySupplierReturn reduces line quantities for goods sent back to the
// supplier. Every request line is validated before anything changes.
func (p *Purchase) ApplySupplierReturn(reqs []ReturnLineRequest, now time.Time) ([]ReversedLine, error) {
	refs := make([]lineRef, len(p.Lines))
	for i, l := range p.Lines {
		refs[i] = lineRef{itemID: l.ItemID, key: inventory.NormalizeKey(l.Name)}
	}
	take, err := planReversal(reqs, refs, func(i int) decimal.Decimal { return p.Lines[i].TotalItems })
	if err != nil {
		return nil, err
	}

	var reversed []ReversedLine
	for i, qty := range take {
		if !qty.IsPositive() {
			continue
		}
		l := &p.Lines[i]
		l.TotalItems = l.TotalItems.Sub(qty)
		l.Packs = l.TotalItems.Div(l.UnitsPerPack).Floor()
		reversed = append(reversed, ReversedLine{
			LineNo:   l.LineNo,
			ItemID:   l.ItemID,
			Name:     l.Name,
			Quantity: qty,
			Amount:   l.UnitCost().Mul(qty).Round(2),
		})
	}

	p.recalculateTotal()
	p.Touch(now)
	p.IncrementVersion()
	return reversed, nil
}

func (p *Purchase) recalculateTotal() {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.UnitCost().Mul(l.TotalItems))
	}
	p.TotalAmount = total.Round(2)
}
