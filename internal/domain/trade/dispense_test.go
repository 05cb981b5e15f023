package trade

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

func paracetamolSale() *Dispense {
	id := uuid.New()
	return NewDispense("B-260131-0001", "walk-in", "cash", decimal.Zero, []DispenseLine{
		{ItemID: &id, Name: "Paracetamol", UnitPrice: d("10"), Quantity: d("20"), CostPerUnit: d("6")},
	}, testNow)
}

func TestValidateSale(t *testing.T) {
	line := SaleLineInput{Name: "Paracetamol", UnitPrice: d("10"), Quantity: d("1")}

	assert.NoError(t, ValidateSale(d("10"), []SaleLineInput{line}))

	err := ValidateSale(decimal.Zero, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	assert.Error(t, ValidateSale(d("101"), []SaleLineInput{line}))
	assert.Error(t, ValidateSale(d("-1"), []SaleLineInput{line}))

	bad := line
	bad.Quantity = decimal.Zero
	assert.Error(t, ValidateSale(decimal.Zero, []SaleLineInput{bad}))

	bad = line
	bad.Name = " "
	assert.Error(t, ValidateSale(decimal.Zero, []SaleLineInput{bad}))

	bad = line
	bad.LineDiscount = d("-2")
	assert.Error(t, ValidateSale(decimal.Zero, []SaleLineInput{bad}))

	bad = line
	bad.LineDiscount = d("10.01")
	assert.Error(t, ValidateSale(decimal.Zero, []SaleLineInput{bad}))
}

func TestNewDispense_ProfitFromCapturedCost(t *testing.T) {
	sale := paracetamolSale()

	assertDecimal(t, "200", sale.Subtotal)
	assertDecimal(t, "200", sale.Total)
	assertDecimal(t, "80", sale.Profit)
	assert.Equal(t, 1, sale.Lines[0].LineNo)
	assert.NotEqual(t, uuid.Nil, sale.Lines[0].ID)
	require.Len(t, sale.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeSaleCompleted, sale.GetDomainEvents()[0].EventType())
}

func TestNewDispense_Discounts(t *testing.T) {
	sale := NewDispense("B-1", "", "card", d("10"), []DispenseLine{
		{Name: "A", UnitPrice: d("50"), Quantity: d("2"), CostPerUnit: d("30"), LineDiscount: d("10")},
		{Name: "B", UnitPrice: d("20"), Quantity: d("5"), CostPerUnit: d("12")},
	}, testNow)

	// subtotal 200, line discounts 10, bill discount 10% of 190
	assertDecimal(t, "200", sale.Subtotal)
	assertDecimal(t, "10", sale.LineDiscountTotal)
	assertDecimal(t, "19", sale.BillDiscount)
	assertDecimal(t, "171", sale.Total)
	// margin 40 + 40, less both discounts
	assertDecimal(t, "51", sale.Profit)
}

func TestApplyCustomerReturn_PartialKeepsCapturedCost(t *testing.T) {
	sale := paracetamolSale()

	reversed, err := sale.ApplyCustomerReturn([]ReturnLineRequest{{Name: "paracetamol", Quantity: d("5")}}, testNow)
	require.NoError(t, err)

	require.Len(t, reversed, 1)
	assertDecimal(t, "5", reversed[0].Quantity)
	assertDecimal(t, "50", reversed[0].Amount)
	require.Len(t, sale.Lines, 1)
	assertDecimal(t, "15", sale.Lines[0].Quantity)
	assertDecimal(t, "6", sale.Lines[0].CostPerUnit)
	assertDecimal(t, "150", sale.Subtotal)
	assertDecimal(t, "150", sale.Total)
	assertDecimal(t, "60", sale.Profit)
	assert.Equal(t, 2, sale.Version)
}

func TestApplyCustomerReturn_OverQuantityRejectedWithoutMutation(t *testing.T) {
	sale := paracetamolSale()
	_, err := sale.ApplyCustomerReturn([]ReturnLineRequest{{Name: "Paracetamol", Quantity: d("5")}}, testNow)
	require.NoError(t, err)

	_, err = sale.ApplyCustomerReturn([]ReturnLineRequest{{Name: "Paracetamol", Quantity: d("999")}}, testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assert.Contains(t, err.Error(), "exceeds remaining 15")

	assertDecimal(t, "15", sale.Lines[0].Quantity)
	assertDecimal(t, "60", sale.Profit)
	assert.Equal(t, 2, sale.Version)
}

func TestApplyCustomerReturn_SummedRequestsAreBounded(t *testing.T) {
	sale := paracetamolSale()

	_, err := sale.ApplyCustomerReturn([]ReturnLineRequest{
		{Name: "Paracetamol", Quantity: d("15")},
		{Name: "PARACETAMOL", Quantity: d("6")},
	}, testNow)

	require.Error(t, err)
	assertDecimal(t, "20", sale.Lines[0].Quantity)
}

func TestApplyCustomerReturn_MatchesByItemReferenceFirst(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	sale := NewDispense("B-1", "", "cash", decimal.Zero, []DispenseLine{
		{ItemID: &idA, Name: "Same Name", UnitPrice: d("10"), Quantity: d("2"), CostPerUnit: d("5")},
		{ItemID: &idB, Name: "Same Name", UnitPrice: d("30"), Quantity: d("2"), CostPerUnit: d("20")},
	}, testNow)

	reversed, err := sale.ApplyCustomerReturn([]ReturnLineRequest{{ItemID: &idB, Name: "Same Name", Quantity: d("1")}}, testNow)
	require.NoError(t, err)

	assert.Equal(t, 2, reversed[0].LineNo)
	assertDecimal(t, "30", reversed[0].Amount)
	assertDecimal(t, "1", sale.Lines[1].Quantity)
}

func TestApplyCustomerReturn_FullLineRemoved(t *testing.T) {
	sale := NewDispense("B-1", "", "cash", d("10"), []DispenseLine{
		{Name: "A", UnitPrice: d("10"), Quantity: d("2"), CostPerUnit: d("4")},
		{Name: "B", UnitPrice: d("5"), Quantity: d("4"), CostPerUnit: d("1"), LineDiscount: d("2")},
	}, testNow)

	reversed, err := sale.ApplyCustomerReturn([]ReturnLineRequest{
		{Name: "A", Quantity: d("2")},
		{Name: "B", Quantity: d("2")},
	}, testNow)
	require.NoError(t, err)

	// amount = price * qty * (1 - 10/100)
	assertDecimal(t, "18", reversed[0].Amount)
	assertDecimal(t, "9", reversed[1].Amount)

	require.Len(t, sale.Lines, 1)
	assert.Equal(t, "B", sale.Lines[0].Name)
	// half of B remains so half its line discount does too
	assertDecimal(t, "1", sale.Lines[0].LineDiscount)
	assertDecimal(t, "10", sale.Subtotal)
	assertDecimal(t, "0.9", sale.BillDiscount)
	assertDecimal(t, "8.1", sale.Total)
	// (5-1)*2 - 1 - 0.9
	assertDecimal(t, "6.1", sale.Profit)
	assertDecimal(t, "2", sale.TotalQuantity())
}

func TestApplyCustomerReturn_UnknownItem(t *testing.T) {
	sale := paracetamolSale()
	_, err := sale.ApplyCustomerReturn([]ReturnLineRequest{{Name: "Ibuprofen", Quantity: d("1")}}, testNow)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestApplyCustomerReturn_RejectsEmptyAndNonPositive(t *testing.T) {
	sale := paracetamolSale()

	_, err := sale.ApplyCustomerReturn(nil, testNow)
	assert.Error(t, err)
	_, err = sale.ApplyCustomerReturn([]ReturnLineRequest{{Name: "Paracetamol", Quantity: d("0")}}, testNow)
	assert.Error(t, err)
}

func TestApplyCustomerReturn_SpreadsOverLinesOfSameItem(t *testing.T) {
	id := uuid.New()
	sale := NewDispense("B-2", "", "cash", decimal.Zero, []DispenseLine{
		{ItemID: &id, Name: "Paracetamol", UnitPrice: d("10"), Quantity: d("4"), CostPerUnit: d("6")},
		{ItemID: &id, Name: "Paracetamol", UnitPrice: d("12"), Quantity: d("6"), CostPerUnit: d("6")},
	}, testNow)

	// line 1 still holds units: the request takes them first, then moves on
	_, err := sale.ApplyCustomerReturn([]ReturnLineRequest{{ItemID: &id, Quantity: d("2")}}, testNow)
	require.NoError(t, err)

	reversed, err := sale.ApplyCustomerReturn([]ReturnLineRequest{{Name: "paracetamol", Quantity: d("5")}}, testNow)
	require.NoError(t, err)
	require.Len(t, reversed, 2)
	assertDecimal(t, "2", reversed[0].Quantity)
	assertDecimal(t, "20", reversed[0].Amount)
	assertDecimal(t, "3", reversed[1].Quantity)
	assertDecimal(t, "36", reversed[1].Amount)

	require.Len(t, sale.Lines, 1, "emptied line removed")
	assert.Equal(t, 2, sale.Lines[0].LineNo)
	assertDecimal(t, "3", sale.Lines[0].Quantity)
	assertDecimal(t, "36", sale.Total)

	_, err = sale.ApplyCustomerReturn([]ReturnLineRequest{{ItemID: &id, Quantity: d("4")}}, testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assertDecimal(t, "3", sale.Lines[0].Quantity)
}
