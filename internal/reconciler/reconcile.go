// =============================================================================
// Receipt Reconciler - Row Reconciliation Pass
// =============================================================================
//
// Reconcile turns the raw rows of a receipt table into the item table. It is a
// single forward pass that builds a new slice; the raw rows are never mutated.
//
// RULES (applied per position, in order):
//   1. A row whose first cell contains the trailer marker ends the item table.
//      It and every later row go to Receipt.Trailer.
//   2. A 2-cell row followed by a row of at least 3 cells is a weighted item.
//      Both collapse into [name, unit_price, weight, total] and the scan
//      skips the consumed price row.
//   3. Any other row is copied as is.
//   4. After the scan, a trailing row equal to the footer pattern is dropped,
//      from the trailer when there is one and from the item table otherwise.
//
// =============================================================================

package reconciler

import (
	"slices"
	"strings"
)

// Reconcile applies the reconciliation rules to raw rows.
//
// RETURNS:
//   - The receipt with its item table and trailer rows.
//   - ErrMalformedTable (wrapped in *TableError) when a 2-cell row has no
//     price row to merge with: it is the last row or the trailer follows it.
//   - ErrEmptyTable when no item rows remain.
func Reconcile(raw Table, opts Options) (Receipt, error) {
	items := make(Table, 0, len(raw))
	var trailer Table

	for i := 0; i < len(raw); i++ {
		row := raw[i]

		if opts.isTrailer(row) {
			trailer = cloneTable(raw[i:])
			break
		}

		if len(row.Cells) != 2 {
			items = append(items, Row{Kind: row.Kind, Cells: slices.Clone(row.Cells)})
			continue
		}

		// Weighted item: the price row follows the name row.
		if i+1 >= len(raw) {
			return Receipt{}, malformed(i, "weighted item %q has no price row", row.First())
		}
		next := raw[i+1]
		if opts.isTrailer(next) {
			return Receipt{}, malformed(i, "weighted item %q is followed by the trailer", row.First())
		}
		if len(next.Cells) < 3 {
			// Two-column item line (name, price); nothing to merge.
			items = append(items, Row{Kind: row.Kind, Cells: slices.Clone(row.Cells)})
			continue
		}

		items = append(items, Row{
			Kind:  RowWeighted,
			Cells: []string{row.Cells[0], next.Cells[0], next.Cells[1], next.Cells[2]},
		})
		i++
	}

	items = opts.dropFooter(items)
	trailer = opts.dropFooter(trailer)

	if len(items) == 0 {
		return Receipt{}, empty("no item rows before the trailer marker")
	}

	return Receipt{Items: items, Trailer: trailer}, nil
}

func (o Options) isTrailer(row Row) bool {
	return o.TrailerMarker != "" && len(row.Cells) > 0 && strings.Contains(row.Cells[0], o.TrailerMarker)
}

// dropFooter removes the last row of t when it equals the footer pattern.
func (o Options) dropFooter(t Table) Table {
	if n := len(t); n > 0 && len(o.FooterRow) > 0 && t[n-1].Equal(o.FooterRow) {
		return t[:n-1]
	}
	return t
}

func cloneTable(t Table) Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = Row{Kind: row.Kind, Cells: slices.Clone(row.Cells)}
	}
	return out
}
