package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeReturn names the aggregate in events
const AggregateTypeReturn = "Return"

// ReturnType says which original document a return reverses
type ReturnType string

const (
	ReturnCustomer ReturnType = "customer"
	ReturnSupplier ReturnType = "supplier"
	// ReturnManual records a return with no linked document; stock and
	// ledgers are not touched.
	ReturnManual ReturnType = "manual"
)

// ParseReturnType validates a caller supplied type
func ParseReturnType(s string) (ReturnType, error) {
	switch t := ReturnType(strings.ToLower(strings.TrimSpace(s))); t {
	case ReturnCustomer, ReturnSupplier, ReturnManual:
		return t, nil
	default:
		return "", shared.NewValidationError("unknown return type %q", s)
	}
}

// ReturnLine is one reversed item on a return document
type ReturnLine struct {
	ID       uuid.UUID
	LineNo   int
	ItemID   *uuid.UUID
	Name     string
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// ReturnEntry is the immutable ledger entry of a reversal
type ReturnEntry struct {
	shared.BaseAggregateRoot
	ReturnNumber   string
	Type           ReturnType
	ReturnedAt     time.Time
	Reference      string
	Counterparty   string
	OriginalID     *uuid.UUID
	ItemCount      decimal.Decimal
	TotalValue     decimal.Decimal
	Lines          []ReturnLine
	IdempotencyKey string
}

// NewReturnEntry builds a return document from applied reversals
func NewReturnEntry(number string, typ ReturnType, reference, counterparty string, originalID *uuid.UUID, lines []ReversedLine, now time.Time) *ReturnEntry {
	r := &ReturnEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ReturnNumber:      number,
		Type:              typ,
		ReturnedAt:        now,
		Reference:         strings.TrimSpace(reference),
		Counterparty:      strings.TrimSpace(counterparty),
		OriginalID:        originalID,
		ItemCount:         decimal.Zero,
		TotalValue:        decimal.Zero,
	}
	for i, l := range lines {
		r.Lines = append(r.Lines, ReturnLine{
			ID:       uuid.New(),
			LineNo:   i + 1,
			ItemID:   l.ItemID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Amount:   l.Amount,
		})
		r.ItemCount = r.ItemCount.Add(l.Quantity)
		r.TotalValue = r.TotalValue.Add(l.Amount)
	}
	r.TotalValue = r.TotalValue.Round(2)
	r.AddDomainEvent(NewReturnRecordedEvent(r, now))
	return r
}

// ManualReversal turns unlinked request lines into reversed lines, priced
// with the caller supplied amounts.
func ManualReversal(reqs []ReturnLineRequest) ([]ReversedLine, error) {
	if len(reqs) == 0 {
		return nil, shared.NewValidationError("return has no lines")
	}
	out := make([]ReversedLine, 0, len(reqs))
	for i, r := range reqs {
		if strings.TrimSpace(r.Name) == "" && r.ItemID == nil {
			return nil, shared.NewValidationError("return line %d: item reference is required", i+1)
		}
		if !r.Quantity.IsPositive() {
			return nil, shared.NewValidationError("return line %d: quantity must be positive", i+1)
		}
		if r.Amount.IsNegative() {
			return nil, shared.NewValidationError("return line %d: amount cannot be negative", i+1)
		}
		out = append(out, ReversedLine{
			LineNo:   i + 1,
			ItemID:   r.ItemID,
			Name:     strings.TrimSpace(r.Name),
			Quantity: r.Quantity,
			Amount:   r.Amount.Round(2),
		})
	}
	return out, nil
}
