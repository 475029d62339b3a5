// Package tax computes GST totals for a set of order lines.
//
// All arithmetic is carried in decimal; rounding to two fraction digits
// happens only when a value crosses a presentation boundary (Display),
// never mid-computation, so repeated recomputation as items change does
// not compound rounding error.
package tax

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is one order line as the engine sees it. Callers exclude cancelled
// items before invocation; the engine is unaware of status.
type Line struct {
	Price        decimal.Decimal
	Quantity     int32
	IncludeInGST bool
}

// Totals is the GST breakdown for a set of lines.
type Totals struct {
	SubTotal      decimal.Decimal
	TaxableAmount decimal.Decimal
	SGSTAmount    decimal.Decimal
	CGSTAmount    decimal.Decimal
	TotalAmount   decimal.Decimal
}

// DisplayTotals is Totals rendered for presentation, rounded to two
// fraction digits.
type DisplayTotals struct {
	SubTotal      string
	TaxableAmount string
	SGSTAmount    string
	CGSTAmount    string
	TotalAmount   string
}

// Compute returns the totals for the given lines. Rates are percentages
// (2.5 means 2.5%). No side effects; safe to call on every item mutation.
func Compute(lines []Line, sgstRate, cgstRate decimal.Decimal) Totals {
	subTotal := decimal.Zero
	taxable := decimal.Zero
	for _, l := range lines {
		lineTotal := l.Price.Mul(decimal.NewFromInt32(l.Quantity))
		subTotal = subTotal.Add(lineTotal)
		if l.IncludeInGST {
			taxable = taxable.Add(lineTotal)
		}
	}
	sgst := taxable.Mul(sgstRate).Div(hundred)
	cgst := taxable.Mul(cgstRate).Div(hundred)
	return Totals{
		SubTotal:      subTotal,
		TaxableAmount: taxable,
		SGSTAmount:    sgst,
		CGSTAmount:    cgst,
		TotalAmount:   subTotal.Add(sgst).Add(cgst),
	}
}

// Display renders the totals with two-digit rounding. This is the only
// place the engine rounds.
func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		SubTotal:      t.SubTotal.StringFixed(2),
		TaxableAmount: t.TaxableAmount.StringFixed(2),
		SGSTAmount:    t.SGSTAmount.StringFixed(2),
		CGSTAmount:    t.CGSTAmount.StringFixed(2),
		TotalAmount:   t.TotalAmount.StringFixed(2),
	}
}
