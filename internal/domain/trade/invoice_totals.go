package trade

import "github.com/shopspring/decimal"

const costPrecision = 6

// InvoiceTotals summarizes an invoice. Amounts are rounded to 2 decimals.
type InvoiceTotals struct {
	Gross        decimal.Decimal `json:"gross"`
	Discount     decimal.Decimal `json:"discount"`
	Taxable      decimal.Decimal `json:"taxable"`
	LineTaxes    decimal.Decimal `json:"line_taxes"`
	InvoiceTaxes decimal.Decimal `json:"invoice_taxes"`
	Net          decimal.Decimal `json:"net"`
}

// InvoiceCalculation is the output of CalculateInvoiceTotals
type InvoiceCalculation struct {
	Lines  []InvoiceLine
	Totals InvoiceTotals
}

// CalculateInvoiceTotals normalizes lines and computes invoice totals and
// after-tax line costs. Invoice-level taxes are allocated back to lines in
// proportion to each line's share of gross. Intermediate values keep full
// precision; only the returned totals are rounded.
func CalculateInvoiceTotals(lines []InvoiceLine, discount decimal.Decimal, taxes []InvoiceTax) InvoiceCalculation {
	out := make([]InvoiceLine, len(lines))
	gross := decimal.Zero
	lineTaxes := decimal.Zero

	for i, l := range lines {
		l = NormalizeLine(l)
		if l.TotalItems.IsPositive() {
			l.LineGross = l.BuyPerUnit.Mul(l.TotalItems)
		} else {
			l.LineGross = l.BuyPerPack.Mul(l.Packs)
		}
		l.LineTaxAmount = l.Tax.Amount(l.LineGross)
		gross = gross.Add(l.LineGross)
		lineTaxes = lineTaxes.Add(l.LineTaxAmount)
		out[i] = l
	}

	discount = nonNegative(discount)
	taxable := nonNegative(gross.Sub(discount))

	invoiceTaxes := decimal.Zero
	for _, t := range taxes {
		base := taxable.Add(lineTaxes)
		if t.ApplyOn == ApplyOnGross {
			base = taxable
		}
		invoiceTaxes = invoiceTaxes.Add(taxAmount(t.Type, t.Value, base))
	}

	for i := range out {
		l := &out[i]
		l.AllocatedTax = decimal.Zero
		if gross.IsPositive() {
			l.AllocatedTax = invoiceTaxes.Mul(l.LineGross).Div(gross)
		}
		landed := l.LineGross.Add(l.LineTaxAmount).Add(l.AllocatedTax)
		if l.TotalItems.IsPositive() {
			l.AfterTaxUnitCost = landed.DivRound(l.TotalItems, costPrecision)
		} else {
			l.AfterTaxUnitCost = l.BuyPerUnit
		}
		l.AfterTaxPackCost = l.AfterTaxUnitCost.Mul(l.UnitsPerPack).Round(costPrecision)
		l.AllocatedTax = l.AllocatedTax.Round(costPrecision)
		l.LineTaxAmount = l.LineTaxAmount.Round(costPrecision)
	}

	totals := InvoiceTotals{
		Gross:        gross.Round(2),
		Discount:     discount.Round(2),
		Taxable:      taxable.Round(2),
		LineTaxes:    lineTaxes.Round(2),
		InvoiceTaxes: invoiceTaxes.Round(2),
	}
	totals.Net = totals.Taxable.Add(totals.LineTaxes).Add(totals.InvoiceTaxes)

	return InvoiceCalculation{Lines: out, Totals: totals}
}

// LineSum is the fallback total of a line snapshot: gross plus all taxes
func LineSum(lines []InvoiceLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineGross).Add(l.LineTaxAmount).Add(l.AllocatedTax)
	}
	return sum.Round(2)
}
