package trade

import (
	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/inventory"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReturnLineRequest asks to reverse a quantity of one item
type ReturnLineRequest struct {
	ItemID   *uuid.UUID
	Name     string
	Quantity decimal.Decimal
	// Amount is only used by manual returns, which have no original line to price from.
	Amount decimal.Decimal
}

// ReversedLine is one applied reversal, priced from the original line
type ReversedLine struct {
	LineNo   int
	ItemID   *uuid.UUID
	Name     string
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// lineRef is the identity of an original line for matching purposes
type lineRef struct {
	itemID *uuid.UUID
	key    string
}

// matchingLines lists the original lines a request refers to, in document
// order: lines with the same item reference first, otherwise lines with the
// same normalized name.
func matchingLines(req ReturnLineRequest, refs []lineRef) []int {
	var idx []int
	if req.ItemID != nil {
		for i, r := range refs {
			if r.itemID != nil && *r.itemID == *req.ItemID {
				idx = append(idx, i)
			}
		}
		if len(idx) > 0 {
			return idx
		}
	}
	key := inventory.NormalizeKey(req.Name)
	if key == "" {
		return nil
	}
	for i, r := range refs {
		if r.key == key {
			idx = append(idx, i)
		}
	}
	return idx
}

// planReversal spreads each requested quantity over its matching original
// lines in document order, skipping what earlier request lines already took.
// A request may not exceed what remains across all its matching lines.
// Nothing is mutated; the returned slice holds the quantity to take off each
// original line.
func planReversal(reqs []ReturnLineRequest, refs []lineRef, remaining func(int) decimal.Decimal) ([]decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, shared.NewValidationError("return has no lines")
	}
	take := make([]decimal.Decimal, len(refs))
	for i := range take {
		take[i] = decimal.Zero
	}
	for n, req := range reqs {
		if !req.Quantity.IsPositive() {
			return nil, shared.NewValidationError("return line %d: quantity must be positive", n+1)
		}
		lines := matchingLines(req, refs)
		if len(lines) == 0 {
			return nil, shared.NewValidationError("return line %d: %q is not on the original document", n+1, req.Name)
		}

		available := decimal.Zero
		for _, i := range lines {
			if free := remaining(i).Sub(take[i]); free.IsPositive() {
				available = available.Add(free)
			}
		}
		if req.Quantity.GreaterThan(available) {
			return nil, shared.NewValidationError(
				"return line %d: quantity %s exceeds remaining %s", n+1, req.Quantity.String(), available.String())
		}

		need := req.Quantity
		for _, i := range lines {
			if !need.IsPositive() {
				break
			}
			free := remaining(i).Sub(take[i])
			if !free.IsPositive() {
				continue
			}
			part := decimal.Min(free, need)
			take[i] = take[i].Add(part)
			need = need.Sub(part)
		}
	}
	return take, nil
}
