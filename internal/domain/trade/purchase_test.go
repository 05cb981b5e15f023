package trade

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func committedPurchase(t *testing.T) *Purchase {
	t.Helper()
	draft, err := NewDraft(DraftInput{
		SupplierName:  "Acme Pharma",
		InvoiceNumber: "INV-100",
		Lines: []InvoiceLine{
			{Name: "Paracetamol", UnitsPerPack: d("10"), Packs: d("5"), BuyPerPack: d("70")},
			{Name: "Amoxicillin", UnitsPerPack: d("12"), Packs: d("2"), BuyPerPack: d("24")},
		},
	}, testNow)
	require.NoError(t, err)

	committable, warnings := draft.CommittableLines()
	require.Empty(t, warnings)
	lines := make([]PurchaseLine, len(committable))
	for i, l := range committable {
		id := uuid.New()
		lines[i] = PurchaseLine{LineNo: l.LineNo, ItemID: &id, InvoiceLine: l.InvoiceLine}
	}
	return NewPurchase(draft, draft.InvoiceNumber, lines, testNow)
}

func TestNewPurchase(t *testing.T) {
	p := committedPurchase(t)

	assertDecimal(t, "398", p.TotalAmount)
	assert.Equal(t, "Acme Pharma", p.SupplierName)
	assert.Equal(t, testNow, p.PurchasedAt)
	require.Len(t, p.Lines, 2)
	assert.NotEqual(t, uuid.Nil, p.Lines[0].ID)
	require.Len(t, p.GetDomainEvents(), 1)
}

func TestApplySupplierReturn(t *testing.T) {
	p := committedPurchase(t)

	reversed, err := p.ApplySupplierReturn([]ReturnLineRequest{{Name: "paracetamol", Quantity: d("15")}}, testNow)
	require.NoError(t, err)

	require.Len(t, reversed, 1)
	assertDecimal(t, "105", reversed[0].Amount)
	assertDecimal(t, "35", p.Lines[0].TotalItems)
	assertDecimal(t, "3", p.Lines[0].Packs, "packs floored")
	// 7*35 + 2*24
	assertDecimal(t, "293", p.TotalAmount)
	assert.Equal(t, 2, p.Version)
}

func TestApplySupplierReturn_OverQuantity(t *testing.T) {
	p := committedPurchase(t)

	_, err := p.ApplySupplierReturn([]ReturnLineRequest{
		{Name: "Amoxicillin", Quantity: d("4")},
		{Name: "Paracetamol", Quantity: d("51")},
	}, testNow)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assertDecimal(t, "24", p.Lines[1].TotalItems, "no partial apply")
	assertDecimal(t, "398", p.TotalAmount)
}

func TestApplySupplierReturn_ByItemID(t *testing.T) {
	p := committedPurchase(t)
	itemID := *p.Lines[1].ItemID

	reversed, err := p.ApplySupplierReturn([]ReturnLineRequest{{ItemID: &itemID, Quantity: d("24")}}, testNow)
	require.NoError(t, err)

	assertDecimal(t, "48", reversed[0].Amount)
	assertDecimal(t, "0", p.Lines[1].TotalItems)
	assertDecimal(t, "0", p.Lines[1].Packs)
	assert.Len(t, p.Lines, 2, "supplier lines are kept at zero")
}

func TestPurchaseLine_UnitCostFallback(t *testing.T) {
	l := PurchaseLine{InvoiceLine: InvoiceLine{UnitsPerPack: d("4"), BuyPerPack: d("10")}}
	assertDecimal(t, "2.5", l.UnitCost())

	l.BuyPerUnit = d("2.6")
	assertDecimal(t, "2.6", l.UnitCost())

	l.AfterTaxUnitCost = d("2.8")
	assertDecimal(t, "2.8", l.UnitCost())

	assert.True(t, PurchaseLine{}.UnitCost().IsZero())
}

func sameItemOnTwoLines(t *testing.T) *Purchase {
	t.Helper()
	draft, err := NewDraft(DraftInput{
		SupplierName:  "Acme Pharma",
		InvoiceNumber: "INV-9",
		Lines: []InvoiceLine{
			{Name: "Paracetamol", UnitsPerPack: d("10"), Packs: d("1"), BuyPerPack: d("50")},
			{Name: "Paracetamol", UnitsPerPack: d("10"), Packs: d("2"), BuyPerPack: d("70")},
		},
	}, testNow)
	require.NoError(t, err)

	itemID := uuid.New()
	committable, _ := draft.CommittableLines()
	lines := make([]PurchaseLine, len(committable))
	for i, l := range committable {
		lines[i] = PurchaseLine{LineNo: l.LineNo, ItemID: &itemID, InvoiceLine: l.InvoiceLine}
	}
	return NewPurchase(draft, draft.InvoiceNumber, lines, testNow)
}

func TestApplySupplierReturn_SpreadsOverLinesOfSameItem(t *testing.T) {
	p := sameItemOnTwoLines(t)

	reversed, err := p.ApplySupplierReturn([]ReturnLineRequest{{Name: "Paracetamol", Quantity: d("15")}}, testNow)
	require.NoError(t, err)
	require.Len(t, reversed, 2)
	assert.Equal(t, 1, reversed[0].LineNo)
	assertDecimal(t, "10", reversed[0].Quantity)
	assertDecimal(t, "50", reversed[0].Amount)
	assert.Equal(t, 2, reversed[1].LineNo)
	assertDecimal(t, "5", reversed[1].Quantity)
	assertDecimal(t, "35", reversed[1].Amount)
	assertDecimal(t, "0", p.Lines[0].TotalItems)
	assertDecimal(t, "15", p.Lines[1].TotalItems)

	// the exhausted first line no longer blocks the second
	itemID := *p.Lines[1].ItemID
	reversed, err = p.ApplySupplierReturn([]ReturnLineRequest{{ItemID: &itemID, Quantity: d("15")}}, testNow)
	require.NoError(t, err)
	require.Len(t, reversed, 1)
	assert.Equal(t, 2, reversed[0].LineNo)
	assertDecimal(t, "0", p.Lines[1].TotalItems)
	assertDecimal(t, "0", p.TotalAmount)

	_, err = p.ApplySupplierReturn([]ReturnLineRequest{{Name: "Paracetamol", Quantity: d("1")}}, testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestApplySupplierReturn_SameItemBoundedByDocumentTotal(t *testing.T) {
	p := sameItemOnTwoLines(t)

	_, err := p.ApplySupplierReturn([]ReturnLineRequest{
		{Name: "Paracetamol", Quantity: d("20")},
		{Name: "paracetamol", Quantity: d("11")},
	}, testNow)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds remaining 10")
	assertDecimal(t, "10", p.Lines[0].TotalItems, "no partial apply")
	assertDecimal(t, "20", p.Lines[1].TotalItems)
}
