// Package export renders extraction runs as spreadsheets.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// SheetName is the worksheet holding one row per run.
const SheetName = "Invoices"

var headers = []string{
	"File",
	"Invoice Number",
	"Amount",
	"Currency",
	"Provider",
	"Billing Date",
	"Due Date",
	"Category",
	"Method",
	"Model Used",
	"Extracted At",
}

// WriteRunsXLSX returns an XLSX workbook (as bytes) with one row per run.
func WriteRunsXLSX(runs []*entity.ExtractionRun, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet so the workbook has exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, style)
	}

	row := 2
	for _, r := range runs {
		if r == nil {
			continue
		}
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, r.Filename)
		write(2, r.Fields.InvoiceNumber)
		if r.Fields.Amount != nil {
			amt, _ := r.Fields.Amount.Float64()
			write(3, amt)
		} else {
			write(3, "")
		}
		write(4, r.Fields.Currency)
		write(5, r.Fields.Provider)
		write(6, r.Fields.BillingDate)
		write(7, r.Fields.DueDate)
		write(8, r.Fields.Category)
		write(9, r.Method)
		write(10, yesNo(r.ModelUsed))
		if !r.CreatedAt.IsZero() {
			write(11, r.CreatedAt.UTC().Format(time.RFC3339))
		}
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetName, "A", "A", 36) // file
	_ = f.SetColWidth(SheetName, "B", "B", 22) // invoice number
	_ = f.SetColWidth(SheetName, "C", "D", 12) // amount, currency
	_ = f.SetColWidth(SheetName, "E", "E", 28) // provider
	_ = f.SetColWidth(SheetName, "F", "G", 14) // dates
	_ = f.SetColWidth(SheetName, "H", "H", 24) // category
	_ = f.SetColWidth(SheetName, "I", "K", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
