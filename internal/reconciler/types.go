// =============================================================================
// Receipt Reconciler - Core Types
// =============================================================================
//
// This file defines the row and table shapes produced by the reconciler, plus
// the immutable Options that carry every receipt-specific marker string.
//
// ROW SHAPES:
//   - RowSimple   : one markup row, cells as parsed
//   - RowWeighted : two markup rows merged into [name, unit_price, weight, total]
//   - RowDiscount : a flagged row, label followed by two blank placeholders
//
// =============================================================================

package reconciler

import (
	"slices"

	"golang.org/x/net/html"
)

// =============================================================================
// ROW KIND
// =============================================================================

// RowKind classifies a row by the shape it had in the source markup.
type RowKind int

const (
	// RowSimple is a row produced from a single markup row.
	RowSimple RowKind = iota

	// RowWeighted is a scale-priced item merged from a name row and a
	// price/weight row.
	RowWeighted

	// RowDiscount is a discount line padded to the common column layout.
	RowDiscount
)

// String returns a short name for the row kind.
func (k RowKind) String() string {
	switch k {
	case RowSimple:
		return "simple"
	case RowWeighted:
		return "weighted"
	case RowDiscount:
		return "discount"
	default:
		return "unknown"
	}
}

// =============================================================================
// ROW AND TABLE
// =============================================================================

// Row is an ordered sequence of sanitized cell values.
type Row struct {
	// Kind records how the row was classified.
	Kind RowKind

	// Cells holds the text values in document column order.
	Cells []string
}

// First returns the first cell, or "" for a row without cells.
func (r Row) First() string {
	if len(r.Cells) == 0 {
		return ""
	}
	return r.Cells[0]
}

// Equal reports whether the row's cells match the given values exactly.
func (r Row) Equal(cells []string) bool {
	return slices.Equal(r.Cells, cells)
}

// Table is an ordered sequence of rows.
type Table []Row

// Values returns the table as plain string rows, the shape a spreadsheet
// writer consumes.
func (t Table) Values() [][]string {
	out := make([][]string, len(t))
	for i, row := range t {
		out[i] = slices.Clone(row.Cells)
	}
	return out
}

// Width returns the largest cell count across all rows.
func (t Table) Width() int {
	width := 0
	for _, row := range t {
		width = max(width, len(row.Cells))
	}
	return width
}

// Count returns the number of rows of the given kind.
func (t Table) Count(kind RowKind) int {
	n := 0
	for _, row := range t {
		if row.Kind == kind {
			n++
		}
	}
	return n
}

// Receipt is the reconciled output of one receipt table.
type Receipt struct {
	// Items is the normalized item table. It never contains the trailer
	// marker row or anything after it.
	Items Table

	// Trailer holds the summary rows from the trailer marker onward. They are
	// kept for display only and never take part in formulas.
	Trailer Table
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options carries the receipt-specific markers the reconciler matches on.
// Options are treated as immutable once a Scanner is built.
type Options struct {
	// TrailerMarker is the substring that marks the first summary row.
	TrailerMarker string

	// FooterRow is the repeated header row the page appends at the end.
	FooterRow []string

	// DiscountAttrs is the exact attribute list carried by discount <tr> tags.
	DiscountAttrs []html.Attribute

	// CurrencyGlyph is stripped from every cell.
	CurrencyGlyph string
}

// DefaultOptions returns the markers used by the Yohananof online receipt.
func DefaultOptions() Options {
	return Options{
		TrailerMarker: "סהכ הנחות",
		FooterRow:     []string{"קוד", "כמות", "שם"},
		DiscountAttrs: []html.Attribute{
			{Key: "class", Val: "spaceUnder"},
			{Key: "style", Val: "color:red"},
		},
		CurrencyGlyph: "₪",
	}
}

// clone returns a deep copy so callers cannot mutate a scanner's markers.
func (o Options) clone() Options {
	o.FooterRow = slices.Clone(o.FooterRow)
	o.DiscountAttrs = slices.Clone(o.DiscountAttrs)
	return o
}

// isDiscountMarker reports whether attrs exactly match the discount marker,
// order included.
func (o Options) isDiscountMarker(attrs []html.Attribute) bool {
	if len(o.DiscountAttrs) == 0 || len(attrs) != len(o.DiscountAttrs) {
		return false
	}
	for i, a := range attrs {
		want := o.DiscountAttrs[i]
		if a.Namespace != want.Namespace || a.Key != want.Key || a.Val != want.Val {
			return false
		}
	}
	return true
}
