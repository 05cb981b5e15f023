package trade

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func TestNormalizeLine(t *testing.T) {
	t.Run("derives total items and unit price from packs", func(t *testing.T) {
		l := NormalizeLine(InvoiceLine{Name: "  Paracetamol  500mg ", UnitsPerPack: d("10"), Packs: d("5"), BuyPerPack: d("50")})
		assert.Equal(t, "Paracetamol 500mg", l.Name)
		assertDecimal(t, "50", l.TotalItems)
		assertDecimal(t, "5", l.BuyPerUnit)
	})

	t.Run("explicit total items wins", func(t *testing.T) {
		l := NormalizeLine(InvoiceLine{UnitsPerPack: d("10"), Packs: d("5"), TotalItems: d("48"), BuyPerUnit: d("2")})
		assertDecimal(t, "48", l.TotalItems)
		assertDecimal(t, "20", l.BuyPerPack)
	})

	t.Run("missing units per pack defaults to one and negatives are floored", func(t *testing.T) {
		l := NormalizeLine(InvoiceLine{Packs: d("3"), BuyPerPack: d("-4"), SalePerPack: d("9")})
		assertDecimal(t, "1", l.UnitsPerPack)
		assertDecimal(t, "3", l.TotalItems)
		assertDecimal(t, "0", l.BuyPerPack)
		assertDecimal(t, "9", l.SalePerUnit)
	})
}

func TestCalculateInvoiceTotals_NoTaxes(t *testing.T) {
	calc := CalculateInvoiceTotals([]InvoiceLine{
		{Name: "Paracetamol", UnitsPerPack: d("10"), Packs: d("5"), BuyPerPack: d("50")},
	}, decimal.Zero, nil)

	assertDecimal(t, "250", calc.Totals.Gross)
	assertDecimal(t, "250", calc.Totals.Taxable)
	assertDecimal(t, "250", calc.Totals.Net)
	require.Len(t, calc.Lines, 1)
	assertDecimal(t, "5", calc.Lines[0].AfterTaxUnitCost)
	assertDecimal(t, "50", calc.Lines[0].AfterTaxPackCost)
}

func TestCalculateInvoiceTotals_TaxesAndAllocation(t *testing.T) {
	lines := []InvoiceLine{
		{Name: "A", UnitsPerPack: d("10"), Packs: d("3"), BuyPerPack: d("100"), Tax: LineTax{Type: TaxPercent, Value: d("10")}},
		{Name: "B", UnitsPerPack: d("1"), Packs: d("10"), BuyPerPack: d("10"), Tax: LineTax{Type: TaxFixed, Value: d("5")}},
	}
	taxes := []InvoiceTax{
		{ApplyOn: ApplyOnGross, Type: TaxPercent, Value: d("5")},
		{ApplyOn: ApplyOnTaxable, Type: TaxFixed, Value: d("12")},
	}

	calc := CalculateInvoiceTotals(lines, d("40"), taxes)

	// gross 300 + 100, taxable 360, line taxes 30 + 5
	assertDecimal(t, "400", calc.Totals.Gross)
	assertDecimal(t, "40", calc.Totals.Discount)
	assertDecimal(t, "360", calc.Totals.Taxable)
	assertDecimal(t, "35", calc.Totals.LineTaxes)
	// 5% of 360 plus fixed 12
	assertDecimal(t, "30", calc.Totals.InvoiceTaxes)
	assertDecimal(t, "425", calc.Totals.Net)

	// allocation by gross share: 300/400 and 100/400 of 30
	assertDecimal(t, "22.5", calc.Lines[0].AllocatedTax)
	assertDecimal(t, "7.5", calc.Lines[1].AllocatedTax)
	// (300 + 30 + 22.5) / 30
	assertDecimal(t, "11.75", calc.Lines[0].AfterTaxUnitCost)
	assertDecimal(t, "117.5", calc.Lines[0].AfterTaxPackCost)
	// (100 + 5 + 7.5) / 10
	assertDecimal(t, "11.25", calc.Lines[1].AfterTaxUnitCost)
}

func TestCalculateInvoiceTotals_PercentOnTaxableIncludesLineTaxes(t *testing.T) {
	calc := CalculateInvoiceTotals([]InvoiceLine{
		{Name: "A", Packs: d("1"), BuyPerPack: d("100"), Tax: LineTax{Type: TaxPercent, Value: d("10")}},
	}, decimal.Zero, []InvoiceTax{{ApplyOn: ApplyOnTaxable, Type: TaxPercent, Value: d("10")}})

	assertDecimal(t, "11", calc.Totals.InvoiceTaxes)
	assertDecimal(t, "121", calc.Totals.Net)
}

func TestCalculateInvoiceTotals_UnsetBaseIncludesLineTaxes(t *testing.T) {
	lines := []InvoiceLine{
		{Name: "A", Packs: d("1"), BuyPerPack: d("100"), Tax: LineTax{Type: TaxPercent, Value: d("10")}},
	}

	unset := CalculateInvoiceTotals(lines, decimal.Zero, []InvoiceTax{{Type: TaxPercent, Value: d("10")}})
	onGross := CalculateInvoiceTotals(lines, decimal.Zero, []InvoiceTax{{ApplyOn: ApplyOnGross, Type: TaxPercent, Value: d("10")}})

	// 10% of (100 + 10)
	assertDecimal(t, "11", unset.Totals.InvoiceTaxes)
	assertDecimal(t, "121", unset.Totals.Net)
	assertDecimal(t, "10", onGross.Totals.InvoiceTaxes)
	assertDecimal(t, "120", onGross.Totals.Net)
}

func TestCalculateInvoiceTotals_DiscountFloorsTaxableAtZero(t *testing.T) {
	calc := CalculateInvoiceTotals([]InvoiceLine{
		{Name: "A", Packs: d("1"), BuyPerPack: d("30")},
	}, d("50"), []InvoiceTax{{Type: TaxPercent, Value: d("10")}})

	assertDecimal(t, "0", calc.Totals.Taxable)
	assertDecimal(t, "0", calc.Totals.InvoiceTaxes)
	assertDecimal(t, "0", calc.Totals.Net)
}

func TestCalculateInvoiceTotals_NoLines(t *testing.T) {
	calc := CalculateInvoiceTotals(nil, decimal.Zero, []InvoiceTax{{Type: TaxFixed, Value: d("10")}})

	assert.Empty(t, calc.Lines)
	assertDecimal(t, "10", calc.Totals.InvoiceTaxes)
	assertDecimal(t, "10", calc.Totals.Net)
}

func TestCalculateInvoiceTotals_ZeroQuantityLineKeepsBuyPrice(t *testing.T) {
	calc := CalculateInvoiceTotals([]InvoiceLine{
		{Name: "A", UnitsPerPack: d("10"), BuyPerUnit: d("3")},
	}, decimal.Zero, nil)

	assertDecimal(t, "0", calc.Lines[0].LineGross)
	assertDecimal(t, "3", calc.Lines[0].AfterTaxUnitCost)
}

func TestCalculateInvoiceTotals_RepeatingDecimalsRoundOnlyAtOutput(t *testing.T) {
	calc := CalculateInvoiceTotals([]InvoiceLine{
		{Name: "A", UnitsPerPack: d("3"), Packs: d("1"), BuyPerPack: d("10")},
	}, decimal.Zero, nil)

	assertDecimal(t, "10", calc.Totals.Gross)
	assertDecimal(t, "3.333333", calc.Lines[0].AfterTaxUnitCost)
}

func TestCalculateInvoiceTotals_NetEqualsComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randDec := func(max int64) decimal.Decimal {
		return decimal.New(rng.Int63n(max*100), -2)
	}

	for i := 0; i < 500; i++ {
		var lines []InvoiceLine
		for n := rng.Intn(6); n > 0; n-- {
			typ := TaxPercent
			if rng.Intn(2) == 0 {
				typ = TaxFixed
			}
			lines = append(lines, InvoiceLine{
				Name:         "item",
				UnitsPerPack: decimal.NewFromInt(rng.Int63n(30) + 1),
				Packs:        decimal.NewFromInt(rng.Int63n(20)),
				BuyPerPack:   randDec(500),
				Tax:          LineTax{Type: typ, Value: randDec(20)},
			})
		}
		taxes := []InvoiceTax{
			{ApplyOn: ApplyOnGross, Type: TaxPercent, Value: randDec(18)},
			{ApplyOn: ApplyOnTaxable, Type: TaxPercent, Value: randDec(5)},
			{ApplyOn: ApplyOnTaxable, Type: TaxFixed, Value: randDec(50)},
		}

		calc := CalculateInvoiceTotals(lines, randDec(300), taxes)
		tt := calc.Totals
		diff := tt.Net.Sub(tt.Taxable.Add(tt.LineTaxes).Add(tt.InvoiceTaxes)).Abs()
		require.True(t, diff.LessThanOrEqual(d("0.01")), "iteration %d: net %s", i, tt.Net)
		require.False(t, tt.Net.IsNegative())

		allocated := decimal.Zero
		for _, l := range calc.Lines {
			allocated = allocated.Add(l.AllocatedTax)
		}
		if tt.Gross.IsPositive() {
			require.True(t, allocated.Sub(tt.InvoiceTaxes).Abs().LessThanOrEqual(d("0.01")),
				"iteration %d: allocated %s of %s", i, allocated, tt.InvoiceTaxes)
		}
	}
}

func TestLineSum(t *testing.T) {
	calc := CalculateInvoiceTotals([]InvoiceLine{
		{Name: "A", Packs: d("2"), BuyPerPack: d("10"), Tax: LineTax{Type: TaxFixed, Value: d("1")}},
	}, decimal.Zero, []InvoiceTax{{Type: TaxFixed, Value: d("2")}})

	assertDecimal(t, "23", LineSum(calc.Lines))
}
