package trade

import (
	"strings"
	"time"

	"github.com/hospital/pharmacy/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeDraft names the aggregate in events
const AggregateTypeDraft = "PurchaseDraft"

// Draft is an editable supplier invoice that has not been committed to stock.
type Draft struct {
	shared.BaseAggregateRoot
	SupplierName  string
	InvoiceNumber string
	InvoiceDate   *time.Time
	Discount      decimal.Decimal
	Taxes         []InvoiceTax
	Lines         []InvoiceLine
	Totals        InvoiceTotals
}

// DraftInput carries the editable fields of a draft
type DraftInput struct {
	SupplierName  string
	InvoiceNumber string
	InvoiceDate   *time.Time
	Discount      decimal.Decimal
	Taxes         []InvoiceTax
	Lines         []InvoiceLine
}

// NewDraft creates a draft and computes its totals
func NewDraft(in DraftInput, now time.Time) (*Draft, error) {
	d := &Draft{BaseAggregateRoot: shared.NewBaseAggregateRoot(now)}
	if err := d.apply(in); err != nil {
		return nil, err
	}
	return d, nil
}

// Update replaces the editable fields and recomputes totals
func (d *Draft) Update(in DraftInput, now time.Time) error {
	if err := d.apply(in); err != nil {
		return err
	}
	d.Touch(now)
	d.IncrementVersion()
	return nil
}

func (d *Draft) apply(in DraftInput) error {
	if in.Discount.IsNegative() {
		return shared.NewValidationError("discount cannot be negative")
	}
	if err := validateTaxes(in.Lines, in.Taxes); err != nil {
		return err
	}
	d.SupplierName = strings.TrimSpace(in.SupplierName)
	d.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	d.InvoiceDate = in.InvoiceDate
	d.Discount = in.Discount
	d.Taxes = in.Taxes
	d.Lines = in.Lines
	d.Recalculate()
	return nil
}

// Recalculate normalizes lines and refreshes totals
func (d *Draft) Recalculate() {
	calc := CalculateInvoiceTotals(d.Lines, d.Discount, d.Taxes)
	d.Lines = calc.Lines
	d.Totals = calc.Totals
}

// IndexedLine is a draft line with its 1-based position on the invoice
type IndexedLine struct {
	LineNo int
	InvoiceLine
}

// CommittableLines returns lines that carry an item name, in document
// order, and a warning for each line that was skipped.
func (d *Draft) CommittableLines() ([]IndexedLine, []shared.Warning) {
	var (
		lines    []IndexedLine
		warnings []shared.Warning
	)
	for i, l := range d.Lines {
		if strings.TrimSpace(l.Name) == "" {
			warnings = append(warnings, shared.Warning{
				Code:    shared.WarnSkippedLine,
				Line:    i + 1,
				Message: "line has no item name and was not added to stock",
			})
			continue
		}
		lines = append(lines, IndexedLine{LineNo: i + 1, InvoiceLine: l})
	}
	return lines, warnings
}

// TotalAmount is the amount booked for the invoice: net when totals were
// computed, otherwise the sum of the line snapshot.
func (d *Draft) TotalAmount() decimal.Decimal {
	if d.Totals.Net.IsPositive() || d.Totals.Gross.IsPositive() {
		return d.Totals.Net
	}
	return LineSum(d.Lines)
}
