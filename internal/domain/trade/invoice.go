package trade

import (
	"strings"
	"time"

	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TaxType is how a tax value is interpreted
type TaxType string

const (
	TaxPercent TaxType = "percent"
	TaxFixed   TaxType = "fixed"
)

// TaxBase selects the base an invoice-level tax is computed on
type TaxBase string

const (
	// ApplyOnGross taxes the taxable base (gross less discount)
	ApplyOnGross TaxBase = "gross"
	// ApplyOnTaxable taxes the taxable base plus line taxes, as does an unset base
	ApplyOnTaxable TaxBase = "taxable"
)

var hundred = decimal.NewFromInt(100)

// LineTax is a tax charged on a single invoice line
type LineTax struct {
	Type  TaxType         `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Amount returns the tax for base
func (t LineTax) Amount(base decimal.Decimal) decimal.Decimal {
	return taxAmount(t.Type, t.Value, base)
}

// InvoiceTax is a tax charged on the invoice as a whole
type InvoiceTax struct {
	Name    string          `json:"name,omitempty"`
	ApplyOn TaxBase         `json:"apply_on"`
	Type    TaxType         `json:"type"`
	Value   decimal.Decimal `json:"value"`
}

func taxAmount(typ TaxType, value, base decimal.Decimal) decimal.Decimal {
	if !value.IsPositive() {
		return decimal.Zero
	}
	if typ == TaxFixed {
		return value
	}
	return base.Mul(value).Div(hundred)
}

func validTaxType(t TaxType) bool {
	return t == "" || t == TaxPercent || t == TaxFixed
}

// InvoiceLine is one supplier invoice line. Derived fields are filled in by
// CalculateInvoiceTotals.
type InvoiceLine struct {
	Name         string          `json:"name"`
	GenericName  string          `json:"generic_name,omitempty"`
	Category     string          `json:"category,omitempty"`
	UnitsPerPack decimal.Decimal `json:"units_per_pack"`
	Packs        decimal.Decimal `json:"packs"`
	TotalItems   decimal.Decimal `json:"total_items"`
	BuyPerPack   decimal.Decimal `json:"buy_per_pack"`
	BuyPerUnit   decimal.Decimal `json:"buy_per_unit"`
	SalePerPack  decimal.Decimal `json:"sale_per_pack"`
	SalePerUnit  decimal.Decimal `json:"sale_per_unit"`
	Tax          LineTax         `json:"tax"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	MinStock     decimal.Decimal `json:"min_stock"`

	LineGross        decimal.Decimal `json:"line_gross"`
	LineTaxAmount    decimal.Decimal `json:"line_tax_amount"`
	AllocatedTax     decimal.Decimal `json:"allocated_invoice_tax"`
	AfterTaxUnitCost decimal.Decimal `json:"after_tax_unit_cost"`
	AfterTaxPackCost decimal.Decimal `json:"after_tax_pack_cost"`
}

// NormalizeLine produces the canonical form of a line: negative inputs
// floored at zero, a positive units-per-pack, an authoritative total-items
// quantity, and unit and pack prices derived from each other when only one
// is given.
func NormalizeLine(l InvoiceLine) InvoiceLine {
	l.Name = strings.Join(strings.Fields(l.Name), " ")
	l.GenericName = strings.TrimSpace(l.GenericName)
	l.Category = strings.TrimSpace(l.Category)

	l.UnitsPerPack = nonNegative(l.UnitsPerPack)
	if l.UnitsPerPack.IsZero() {
		l.UnitsPerPack = decimal.NewFromInt(1)
	}
	l.Packs = nonNegative(l.Packs)
	l.TotalItems = nonNegative(l.TotalItems)
	if l.TotalItems.IsZero() {
		l.TotalItems = l.UnitsPerPack.Mul(l.Packs)
	}

	l.BuyPerPack, l.BuyPerUnit = derivePrices(nonNegative(l.BuyPerPack), nonNegative(l.BuyPerUnit), l.UnitsPerPack)
	l.SalePerPack, l.SalePerUnit = derivePrices(nonNegative(l.SalePerPack), nonNegative(l.SalePerUnit), l.UnitsPerPack)
	l.MinStock = nonNegative(l.MinStock)
	l.Tax.Value = nonNegative(l.Tax.Value)
	return l
}

func derivePrices(perPack, perUnit, unitsPerPack decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	switch {
	case perUnit.IsZero() && perPack.IsPositive():
		perUnit = perPack.Div(unitsPerPack)
	case perPack.IsZero() && perUnit.IsPositive():
		perPack = perUnit.Mul(unitsPerPack)
	}
	return perPack, perUnit
}

// validateTaxes rejects unknown tax types and bases; the first problem wins.
func validateTaxes(lines []InvoiceLine, taxes []InvoiceTax) error {
	for i, l := range lines {
		if !validTaxType(l.Tax.Type) {
			return shared.NewValidationError("line %d: unknown tax type %q", i+1, l.Tax.Type)
		}
	}
	for i, t := range taxes {
		if !validTaxType(t.Type) {
			return shared.NewValidationError("invoice tax %d: unknown tax type %q", i+1, t.Type)
		}
		if t.ApplyOn != "" && t.ApplyOn != ApplyOnGross && t.ApplyOn != ApplyOnTaxable {
			return shared.NewValidationError("invoice tax %d: unknown base %q", i+1, t.ApplyOn)
		}
	}
	return nil
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
