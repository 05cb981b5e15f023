package trade

import (
	"errors"
	"testing"
	"time"

	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraft(t *testing.T) {
	draft, err := NewDraft(DraftInput{
		SupplierName:  " Acme ",
		InvoiceNumber: " INV-1 ",
		Discount:      d("10"),
		Lines: []InvoiceLine{
			{Name: "Paracetamol", UnitsPerPack: d("10"), Packs: d("5"), BuyPerPack: d("50")},
		},
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, "Acme", draft.SupplierName)
	assert.Equal(t, "INV-1", draft.InvoiceNumber)
	assertDecimal(t, "240", draft.Totals.Net)
	assertDecimal(t, "50", draft.Lines[0].TotalItems)
	assertDecimal(t, "240", draft.TotalAmount())
}

func TestNewDraft_Validation(t *testing.T) {
	_, err := NewDraft(DraftInput{Discount: d("-1")}, testNow)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = NewDraft(DraftInput{Lines: []InvoiceLine{{Name: "A", Tax: LineTax{Type: "vat"}}}}, testNow)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = NewDraft(DraftInput{Taxes: []InvoiceTax{{ApplyOn: "net", Type: TaxFixed}}}, testNow)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestDraft_Update(t *testing.T) {
	draft, err := NewDraft(DraftInput{}, testNow)
	require.NoError(t, err)

	later := testNow.Add(time.Hour)
	err = draft.Update(DraftInput{Lines: []InvoiceLine{{Name: "A", Packs: d("2"), BuyPerPack: d("3")}}}, later)
	require.NoError(t, err)

	assert.Equal(t, 2, draft.Version)
	assert.Equal(t, later, draft.UpdatedAt)
	assertDecimal(t, "6", draft.Totals.Net)
}

func TestDraft_CommittableLinesSkipsUnnamed(t *testing.T) {
	draft, err := NewDraft(DraftInput{Lines: []InvoiceLine{
		{Name: "A", Packs: d("1"), BuyPerPack: d("1")},
		{Name: "   ", Packs: d("1"), BuyPerPack: d("1")},
		{Name: "C", Packs: d("1"), BuyPerPack: d("1")},
	}}, testNow)
	require.NoError(t, err)

	lines, warnings := draft.CommittableLines()
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].LineNo)
	assert.Equal(t, 3, lines[1].LineNo)
	require.Len(t, warnings, 1)
	assert.Equal(t, shared.WarnSkippedLine, warnings[0].Code)
	assert.Equal(t, 2, warnings[0].Line)
}

func TestDraft_TotalAmountFallsBackToLineSum(t *testing.T) {
	draft := &Draft{Lines: []InvoiceLine{{LineGross: d("10"), LineTaxAmount: d("1")}}}
	assertDecimal(t, "11", draft.TotalAmount())

	draft.Totals = InvoiceTotals{Gross: d("10"), Net: decimal.Zero}
	assertDecimal(t, "0", draft.TotalAmount())
}
