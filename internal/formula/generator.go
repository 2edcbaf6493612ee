// =============================================================================
// Receipt Reconciler - Derived Formula Generator
// =============================================================================
//
// The generator derives spreadsheet expressions from the shape of a reconciled
// receipt: how many item rows it has and who shares it. It holds no state
// beyond the inputs and cannot fail once constructed.
//
// FORMULAS:
//   - divided price (raw sheet, one per item row):
//       =IF(COUNTA(F2:R2)=0,"",D2/COUNTA(F2:R2))
//   - participant sum (summary sheet, one per participant):
//       =IF(D7="","",ROUNDDOWN(SUMIF('raw'!F2:F9,"v",'raw'!E2:E9),0))
//   - grand total (summary sheet, merged cell):
//       =SUM(D8:G8)
//
// Sums only cover item rows, so discount rows count and the trailer rows
// written below the items never do.
//
// =============================================================================

package formula

import (
	"fmt"
	"slices"
	"strings"
)

// Formula is an expression addressed to a cell.
type Formula struct {
	Sheet string
	Cell  string
	Expr  string
}

// Generator produces the derived formulas for one receipt.
type Generator struct {
	layout       Layout
	participants []string
	dataRows     int

	markColumns    []string
	summaryColumns []string
}

// NewGenerator validates the layout against the participant list and
// precomputes column letters.
//
// PARAMETERS:
//   - layout: the workbook layout.
//   - participants: display names, order-significant.
//   - itemRows: number of rows in the reconciled item table, header included.
func NewGenerator(layout Layout, participants []string, itemRows int) (*Generator, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("at least one participant is required")
	}
	if err := layout.Validate(len(participants)); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	g := &Generator{
		layout:       layout,
		participants: slices.Clone(participants),
		dataRows:     max(0, itemRows-layout.HeaderRows),
	}

	for i := range participants {
		mark, err := Column(layout.FirstMarkColumn, i)
		if err != nil {
			return nil, fmt.Errorf("mark column for participant %d: %w", i, err)
		}
		summary, err := Column(layout.SummaryColumn, i)
		if err != nil {
			return nil, fmt.Errorf("summary column for participant %d: %w", i, err)
		}
		g.markColumns = append(g.markColumns, mark)
		g.summaryColumns = append(g.summaryColumns, summary)
	}

	return g, nil
}

// DataRows returns the number of priced item rows.
func (g *Generator) DataRows() int {
	return g.dataRows
}

// LastDataRow is the 1-based sheet row of the last priced item. It is one
// less than FirstDataRow when the receipt has no priced items.
func (g *Generator) LastDataRow() int {
	return g.layout.HeaderRows + g.dataRows
}

// =============================================================================
// RAW SHEET
// =============================================================================

// DividedPrice returns the divided-price expression for a 1-based sheet row.
func (g *Generator) DividedPrice(row int) string {
	marks := fmt.Sprintf("COUNTA(%s:%s)", Cell(g.layout.FirstMarkColumn, row), Cell(g.layout.LastMarkColumn, row))
	return fmt.Sprintf(`=IF(%s=0,"",%s/%s)`, marks, Cell(g.layout.TotalColumn, row), marks)
}

// DividedPrices returns one divided-price formula per item row.
func (g *Generator) DividedPrices() []Formula {
	out := make([]Formula, 0, g.dataRows)
	for row := g.layout.FirstDataRow(); row <= g.LastDataRow(); row++ {
		out = append(out, Formula{
			Sheet: g.layout.RawSheet,
			Cell:  Cell(g.layout.DividedColumn, row),
			Expr:  g.DividedPrice(row),
		})
	}
	return out
}

// Headers returns the raw sheet header cells: the divided-price header and
// one cell per participant.
func (g *Generator) Headers() map[string]string {
	headers := map[string]string{
		Cell(g.layout.DividedColumn, 1): g.layout.DividedHeader,
	}
	for i, name := range g.participants {
		headers[Cell(g.markColumns[i], 1)] = name
	}
	return headers
}

// =============================================================================
// SUMMARY SHEET
// =============================================================================

// SummaryNames returns the summary-sheet name cells in participant order.
func (g *Generator) SummaryNames() []Formula {
	out := make([]Formula, len(g.participants))
	for i, name := range g.participants {
		out[i] = Formula{
			Sheet: g.layout.SummarySheet,
			Cell:  Cell(g.summaryColumns[i], g.layout.SummaryNameRow),
			Expr:  name,
		}
	}
	return out
}

// ParticipantSum returns the discount-adjusted sum expression for the
// participant at ordinal.
func (g *Generator) ParticipantSum(ordinal int) string {
	nameCell := Cell(g.summaryColumns[ordinal], g.layout.SummaryNameRow)

	if g.dataRows == 0 {
		return fmt.Sprintf(`=IF(%s="","",0)`, nameCell)
	}

	sheet := quoteSheet(g.layout.RawSheet)
	first, last := g.layout.FirstDataRow(), g.LastDataRow()
	mark := g.markColumns[ordinal]
	criteria := fmt.Sprintf("%s!%s:%s", sheet, Cell(mark, first), Cell(mark, last))
	values := fmt.Sprintf("%s!%s:%s", sheet, Cell(g.layout.DividedColumn, first), Cell(g.layout.DividedColumn, last))

	return fmt.Sprintf(`=IF(%s="","",ROUNDDOWN(SUMIF(%s,%s,%s),0))`,
		nameCell, criteria, quoteString(g.layout.MarkValue), values)
}

// ParticipantSums returns one sum formula per participant.
func (g *Generator) ParticipantSums() []Formula {
	out := make([]Formula, len(g.participants))
	for i := range g.participants {
		out[i] = Formula{
			Sheet: g.layout.SummarySheet,
			Cell:  Cell(g.summaryColumns[i], g.layout.SummarySumRow),
			Expr:  g.ParticipantSum(i),
		}
	}
	return out
}

// TotalRange returns the first and last cell of the merged grand-total
// range.
func (g *Generator) TotalRange() (string, string) {
	last := g.summaryColumns[len(g.summaryColumns)-1]
	return Cell(g.layout.SummaryColumn, g.layout.SummaryTotalRow), Cell(last, g.layout.SummaryTotalRow)
}

// GrandTotal returns the sum of every participant sum, addressed to the
// first cell of TotalRange.
func (g *Generator) GrandTotal() Formula {
	start, _ := g.TotalRange()
	last := g.summaryColumns[len(g.summaryColumns)-1]
	return Formula{
		Sheet: g.layout.SummarySheet,
		Cell:  start,
		Expr: fmt.Sprintf("=SUM(%s:%s)",
			Cell(g.layout.SummaryColumn, g.layout.SummarySumRow),
			Cell(last, g.layout.SummarySumRow)),
	}
}

// =============================================================================
// QUOTING
// =============================================================================

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func quoteString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
