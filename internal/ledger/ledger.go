// Package ledger turns purchase line items into per-row and order-level money figures.
// Compute is a pure function: callers recompute from the draft whenever they need totals
// instead of caching them.
package ledger

import "github.com/shopspring/decimal"

var (
	hundred     = decimal.NewFromInt(100)
	twoHundred  = decimal.NewFromInt(200)
	half        = decimal.New(5, -1)
	minusHalf   = decimal.New(-5, -1)
	currencyExp = int32(2)
)

// Line is one purchase row as entered by the operator. Quantity and UnitPrice are
// invalid until the operator types a value.
type Line struct {
	ItemID          int64
	Quantity        decimal.NullDecimal
	UnitPrice       decimal.NullDecimal
	DiscountPercent decimal.Decimal
}

// RateLookup returns the catalog GST percentage for an item.
type RateLookup func(itemID int64) (decimal.Decimal, bool)

// Row holds the computed figures for one line.
type Row struct {
	Base       decimal.Decimal `json:"base_amount"`
	Discount   decimal.Decimal `json:"item_discount_amount"`
	Discounted decimal.Decimal `json:"discounted_amount"`
	GSTRate    decimal.Decimal `json:"gst_percentage"`
	CGST       decimal.Decimal `json:"cgst_amount"`
	SGST       decimal.Decimal `json:"sgst_amount"`
	Total      decimal.Decimal `json:"row_total"`
}

// Totals is the computed order.
type Totals struct {
	Rows                  []Row           `json:"rows"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	TotalDiscount         decimal.Decimal `json:"total_discount"`
	SubtotalAfterDiscount decimal.Decimal `json:"subtotal_after_discount"`
	CGSTTotal             decimal.Decimal `json:"cgst_total"`
	SGSTTotal             decimal.Decimal `json:"sgst_total"`
	TotalWithGST          decimal.Decimal `json:"total_with_gst"`
	RoundingOff           decimal.Decimal `json:"rounding_off"`
	GrandTotal            decimal.Decimal `json:"grand_total"`
	OverallDiscount       decimal.Decimal `json:"overall_discount"`
}

// ComputeRow applies discount and the CGST/SGST split to a single line.
func ComputeRow(line Line, gstRate decimal.Decimal) Row {
	qty := valueOrZero(line.Quantity)
	price := valueOrZero(line.UnitPrice)

	base := qty.Mul(price)
	discount := base.Mul(line.DiscountPercent).Div(hundred)
	discounted := base.Sub(discount)
	cgst := discounted.Mul(gstRate).Div(twoHundred)
	sgst := cgst
	return Row{
		Base:       base,
		Discount:   discount,
		Discounted: discounted,
		GSTRate:    gstRate,
		CGST:       cgst,
		SGST:       sgst,
		Total:      discounted.Add(cgst).Add(sgst),
	}
}

// Compute derives every figure of the order from scratch. A nil lookup or a lookup
// miss taxes the row at 0%. overallDiscount is reported back unchanged; it reaches the
// figures only through the per-row discounts it was copied into.
func Compute(lines []Line, overallDiscount decimal.Decimal, rates RateLookup) Totals {
	t := Totals{
		Rows:            make([]Row, 0, len(lines)),
		Subtotal:        decimal.Zero,
		TotalDiscount:   decimal.Zero,
		CGSTTotal:       decimal.Zero,
		SGSTTotal:       decimal.Zero,
		OverallDiscount: overallDiscount,
	}
	for _, line := range lines {
		rate := decimal.Zero
		if rates != nil {
			if r, ok := rates(line.ItemID); ok {
				rate = r
			}
		}
		row := ComputeRow(line, rate)
		t.Rows = append(t.Rows, row)
		t.Subtotal = t.Subtotal.Add(row.Base)
		t.TotalDiscount = t.TotalDiscount.Add(row.Discount)
		t.CGSTTotal = t.CGSTTotal.Add(row.CGST)
		t.SGSTTotal = t.SGSTTotal.Add(row.SGST)
	}
	t.SubtotalAfterDiscount = t.Subtotal.Sub(t.TotalDiscount)
	t.TotalWithGST = t.SubtotalAfterDiscount.Add(t.CGSTTotal).Add(t.SGSTTotal)
	t.GrandTotal, t.RoundingOff = Round(t.TotalWithGST)
	return t
}

// Round rounds amount half-up to a whole currency unit and returns the adjustment to
// two decimal places. The adjustment always lies in (-0.5, 0.5].
func Round(amount decimal.Decimal) (rounded, off decimal.Decimal) {
	rounded = amount.Add(half).Floor()
	exact := rounded.Sub(amount)
	off = exact.Round(currencyExp)
	if off.LessThanOrEqual(minusHalf) {
		off = exact.Truncate(currencyExp)
	}
	return rounded, off
}

func valueOrZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
