// =============================================================================
// Receipt Reconciler - Sheet Layout
// =============================================================================
//
// Layout describes where the reconciled receipt lands in the workbook. Both the
// formula generator and the sheet writer address cells through it, so the two
// always agree.
//
// RAW SHEET:
//
//   | A    | B     | C      | D     | E             | F ... R            |
//   |------|-------|--------|-------|---------------|--------------------|
//   | item table header row  |       | divided price | participant names  |
//   | name | price | weight | total | =D2/COUNTA()  | "v" marks per user |
//
// SUMMARY SHEET:
//   - participant names on row 7 from column D
//   - per-participant sums on row 8
//   - merged grand total on row 10
//
// =============================================================================

package formula

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Layout holds sheet names, column letters and row numbers.
type Layout struct {
	// RawSheet receives the item table.
	RawSheet string

	// SummarySheet receives the per-participant totals.
	SummarySheet string

	// HeaderRows is the number of item-table rows before the first priced
	// item. The receipt's own header row counts here.
	HeaderRows int

	// TotalColumn holds each row's total price.
	TotalColumn string

	// DividedColumn receives the divided-price formula.
	DividedColumn string

	// DividedHeader is written above the divided-price column.
	DividedHeader string

	// FirstMarkColumn and LastMarkColumn bound the participant mark range.
	// Participant i marks its rows in FirstMarkColumn+i.
	FirstMarkColumn string
	LastMarkColumn  string

	// MarkValue is the text a participant enters to claim a row.
	MarkValue string

	// SummaryColumn is the first summary column; participant i uses
	// SummaryColumn+i.
	SummaryColumn string

	SummaryNameRow  int
	SummarySumRow   int
	SummaryTotalRow int
}

// DefaultLayout returns the workbook layout of the original receipt sheet.
func DefaultLayout() Layout {
	return Layout{
		RawSheet:        "תשלום גולמי",
		SummarySheet:    "סיכום",
		HeaderRows:      1,
		TotalColumn:     "D",
		DividedColumn:   "E",
		DividedHeader:   "סהכ מחולק",
		FirstMarkColumn: "F",
		LastMarkColumn:  "R",
		MarkValue:       "v",
		SummaryColumn:   "D",
		SummaryNameRow:  7,
		SummarySumRow:   8,
		SummaryTotalRow: 10,
	}
}

// Validate checks that every address in the layout resolves and that
// participants fit in the mark range.
func (l Layout) Validate(participants int) error {
	var errs []error

	if l.RawSheet == "" || l.SummarySheet == "" {
		errs = append(errs, errors.New("sheet names must not be empty"))
	}
	if l.RawSheet == l.SummarySheet {
		errs = append(errs, fmt.Errorf("raw and summary sheets share the name %q", l.RawSheet))
	}
	if l.HeaderRows < 0 {
		errs = append(errs, fmt.Errorf("header_rows must not be negative, got %d", l.HeaderRows))
	}

	cols := map[string]string{
		"total_column":      l.TotalColumn,
		"divided_column":    l.DividedColumn,
		"first_mark_column": l.FirstMarkColumn,
		"last_mark_column":  l.LastMarkColumn,
		"summary_column":    l.SummaryColumn,
	}
	for name, col := range cols {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if first, err := excelize.ColumnNameToNumber(l.FirstMarkColumn); err == nil {
		if last, err := excelize.ColumnNameToNumber(l.LastMarkColumn); err == nil {
			if width := last - first + 1; participants > width {
				errs = append(errs, fmt.Errorf("%d participants do not fit in mark columns %s:%s", participants, l.FirstMarkColumn, l.LastMarkColumn))
			}
		}
	}

	for name, row := range map[string]int{
		"summary_name_row":  l.SummaryNameRow,
		"summary_sum_row":   l.SummarySumRow,
		"summary_total_row": l.SummaryTotalRow,
	} {
		if row < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", name, row))
		}
	}
	if l.SummaryNameRow == l.SummarySumRow || l.SummarySumRow == l.SummaryTotalRow || l.SummaryNameRow == l.SummaryTotalRow {
		errs = append(errs, errors.New("summary rows must be distinct"))
	}

	if l.MarkValue == "" {
		errs = append(errs, errors.New("mark_value must not be empty"))
	}

	return errors.Join(errs...)
}

// FirstDataRow is the 1-based sheet row of the first priced item.
func (l Layout) FirstDataRow() int {
	return l.HeaderRows + 1
}

// Column returns the column letter offset places to the right of col.
func Column(col string, offset int) (string, error) {
	n, err := excelize.ColumnNameToNumber(col)
	if err != nil {
		return "", err
	}
	return excelize.ColumnNumberToName(n + offset)
}

// Cell joins a column letter and a 1-based row.
func Cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
