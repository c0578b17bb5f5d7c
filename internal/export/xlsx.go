package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

const sheetName = "Purchase"

var lineHeader = []any{"#", "Item", "SKU", "HSN", "Unit", "Quantity", "Unit Price", "Discount %", "GST %", "CGST", "SGST", "Total"}

// Workbook writes the purchase to a single-sheet XLSX workbook. Amounts are stored as
// numbers so the sheet can be summed.
func Workbook(rec purchase.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	header := [][]any{
		{"Purchase", rec.ID},
		{"Supplier", rec.SupplierName},
		{"GSTIN", rec.SupplierGSTIN},
		{"Invoice", rec.InvoiceNumber},
		{"Date", rec.PurchaseDate.Format(purchase.DateLayout)},
	}
	row := 1
	for _, values := range header {
		if err := setRow(f, row, values); err != nil {
			return nil, err
		}
		row++
	}

	row++
	if err := setRow(f, row, lineHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheetName, row, row, bold); err != nil {
		return nil, err
	}
	row++

	for i, l := range rec.Lines {
		values := []any{
			i + 1, l.ItemName, l.SKU, l.HSNCode, l.Unit,
			number(l.Quantity), number(l.UnitPrice), number(l.DiscountPercent), number(l.GSTPercentage),
			number(l.CGSTAmount), number(l.SGSTAmount), number(l.TotalPrice),
		}
		if err := setRow(f, row, values); err != nil {
			return nil, err
		}
		row++
	}

	row++
	totals := [][]any{
		{"CGST", number(rec.CGSTTotal)},
		{"SGST", number(rec.SGSTTotal)},
		{"Rounding", number(rec.RoundingOff)},
		{"Grand Total", number(rec.TotalAmount)},
	}
	for _, values := range totals {
		if err := setRow(f, row, values); err != nil {
			return nil, err
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

func number(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
