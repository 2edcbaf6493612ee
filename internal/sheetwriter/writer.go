// =============================================================================
// Receipt Reconciler - Workbook Writer
// =============================================================================
//
// This module writes a reconciled receipt to a two-sheet XLSX workbook:
//   - the raw sheet holds the item table, the trailer rows below it, the
//     divided-price column and one header cell per participant;
//   - the summary sheet holds each participant's discount-adjusted sum and a
//     merged grand total.
//
// Every address comes from formula.Layout through the formula.Generator, so
// the writer never computes a cell reference of its own.
//
// =============================================================================

package sheetwriter

import (
	"fmt"

	"github.com/ginjaninja78/receipt-reconciler/internal/formula"
	"github.com/ginjaninja78/receipt-reconciler/internal/reconciler"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls workbook presentation.
type Options struct {
	// RightToLeft renders both sheets right to left.
	RightToLeft bool

	// FreezeHeader freezes the first row of the raw sheet.
	FreezeHeader bool

	// WriteTrailer writes the receipt's trailer rows below the item table.
	WriteTrailer bool
}

// DefaultOptions matches the original receipt sheet: RTL, frozen header and
// trailer rows kept for reading.
func DefaultOptions() Options {
	return Options{
		RightToLeft:  true,
		FreezeHeader: true,
		WriteTrailer: true,
	}
}

// =============================================================================
// WRITER
// =============================================================================

// Writer builds one workbook in memory.
type Writer struct {
	file   *excelize.File
	layout formula.Layout
	opts   Options
}

// New creates a workbook with the raw and summary sheets of layout.
func New(layout formula.Layout, opts Options) (*Writer, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), layout.RawSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name raw sheet: %w", err)
	}
	if _, err := f.NewSheet(layout.SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	w := &Writer{file: f, layout: layout, opts: opts}

	if opts.RightToLeft {
		for _, sheet := range []string{layout.RawSheet, layout.SummarySheet} {
			rtl := true
			if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set RTL view on %s: %w", sheet, err)
			}
		}
	}

	if opts.FreezeHeader {
		err := f.SetPanes(layout.RawSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to freeze header row: %w", err)
		}
	}

	return w, nil
}

// Write places the receipt and every derived formula in the workbook.
//
// PARAMETERS:
//   - receipt: the reconciled receipt.
//   - participants: display names, in column order.
//
// RETURNS:
//   - An error if the layout cannot address the participants or a cell
//     cannot be written.
func (w *Writer) Write(receipt reconciler.Receipt, participants []string) error {
	gen, err := formula.NewGenerator(w.layout, participants, len(receipt.Items))
	if err != nil {
		return err
	}

	// =========================================================================
	// RAW SHEET: ITEM TABLE AND TRAILER
	// =========================================================================

	row := 1
	for _, r := range receipt.Items {
		if err := w.writeRow(w.layout.RawSheet, row, r.Cells); err != nil {
			return err
		}
		row++
	}

	if w.opts.WriteTrailer {
		for _, r := range receipt.Trailer {
			if err := w.writeRow(w.layout.RawSheet, row, r.Cells); err != nil {
				return err
			}
			row++
		}
	}

	// =========================================================================
	// RAW SHEET: HEADERS AND DIVIDED PRICES
	// =========================================================================

	for cell, value := range gen.Headers() {
		if err := w.file.SetCellStr(w.layout.RawSheet, cell, value); err != nil {
			return fmt.Errorf("failed to write header %s: %w", cell, err)
		}
	}

	for _, f := range gen.DividedPrices() {
		if err := w.setFormula(f); err != nil {
			return err
		}
	}

	// =========================================================================
	// SUMMARY SHEET
	// =========================================================================

	for _, name := range gen.SummaryNames() {
		if err := w.file.SetCellStr(name.Sheet, name.Cell, name.Expr); err != nil {
			return fmt.Errorf("failed to write summary name %s: %w", name.Cell, err)
		}
	}

	for _, f := range gen.ParticipantSums() {
		if err := w.setFormula(f); err != nil {
			return err
		}
	}

	start, end := gen.TotalRange()
	if start != end {
		if err := w.file.MergeCell(w.layout.SummarySheet, start, end); err != nil {
			return fmt.Errorf("failed to merge %s:%s: %w", start, end, err)
		}
	}
	return w.setFormula(gen.GrandTotal())
}

// Save writes the workbook to path.
func (w *Writer) Save(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Close releases the workbook.
func (w *Writer) Close() error {
	return w.file.Close()
}

// =============================================================================
// HELPERS
// =============================================================================

func (w *Writer) writeRow(sheet string, row int, cells []string) error {
	if len(cells) == 0 {
		return nil
	}

	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func (w *Writer) setFormula(f formula.Formula) error {
	if err := w.file.SetCellFormula(f.Sheet, f.Cell, f.Expr); err != nil {
		return fmt.Errorf("failed to write formula %s!%s: %w", f.Sheet, f.Cell, err)
	}
	return nil
}
