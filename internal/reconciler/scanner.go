// =============================================================================
// Receipt Reconciler - Markup Event Scanner
// =============================================================================
//
// The Scanner consumes tag-open, tag-close and text events in document order
// and assembles raw rows. When the receipt table closes it runs the
// reconciliation pass (reconcile.go) exactly once.
//
// STATE MACHINE:
//
//   outside ──<table>──► table ──<tr>──► row ──<td|th>──► cell
//      ▲                   │  ◄──</tr>──  │  ◄──</td|th>──  │
//      │                   └──────────</table>──────────────┴──► done
//
// Tags outside this set are ignored and counted. Text is only kept while the
// scanner is in a cell.
//
// =============================================================================

package reconciler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// =============================================================================
// SCANNER STATE
// =============================================================================

type scanState int

const (
	stateOutside scanState = iota
	stateTable
	stateRow
	stateCell
	stateDone
)

func (s scanState) String() string {
	switch s {
	case stateOutside:
		return "outside"
	case stateTable:
		return "table"
	case stateRow:
		return "row"
	case stateCell:
		return "cell"
	case stateDone:
		return "done"
	default:
		return "invalid"
	}
}

// Stats counts what the scanner saw.
type Stats struct {
	// RawRows is the number of markup rows assembled before reconciliation.
	RawRows int

	// IgnoredTags is the number of tags outside the table/row/cell set,
	// including everything inside nested tables.
	IgnoredTags int
}

// =============================================================================
// SCANNER
// =============================================================================

// Scanner is a single-use, single-goroutine consumer of markup events.
type Scanner struct {
	opts  Options
	state scanState

	// depth counts tables nested inside the receipt table. While it is
	// non-zero only text reaches the enclosing cell.
	depth int

	row     Row
	raw     Table
	receipt Receipt
	stats   Stats
	err     error
}

// NewScanner creates a Scanner that matches rows against opts.
func NewScanner(opts Options) *Scanner {
	return &Scanner{opts: opts.clone()}
}

// Stats returns the scanner counters.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Done reports whether the receipt table has been closed or scanning failed.
func (s *Scanner) Done() bool {
	return s.state == stateDone || s.err != nil
}

// StartTag handles a tag-open event. Names are expected in lower case, as
// produced by the html tokenizer.
func (s *Scanner) StartTag(name string, attrs []html.Attribute) {
	if s.Done() {
		return
	}

	if s.depth > 0 {
		if name == "table" {
			s.depth++
		}
		s.stats.IgnoredTags++
		return
	}

	switch name {
	case "table":
		if s.state == stateOutside {
			s.state = stateTable
			return
		}
		s.depth = 1
		s.stats.IgnoredTags++

	case "tr":
		switch s.state {
		case stateTable:
			s.beginRow(attrs)
		case stateRow, stateCell:
			// An unclosed row ends where the next one starts.
			s.endRow()
			if s.err == nil {
				s.beginRow(attrs)
			}
		default:
			s.stats.IgnoredTags++
		}

	case "td", "th":
		switch s.state {
		case stateRow:
			s.state = stateCell
		case stateCell:
			// Unclosed cell; keep collecting into the same row.
		default:
			s.stats.IgnoredTags++
		}

	default:
		s.stats.IgnoredTags++
	}
}

// EndTag handles a tag-close event.
func (s *Scanner) EndTag(name string) {
	if s.Done() {
		return
	}

	if s.depth > 0 {
		if name == "table" {
			s.depth--
		}
		s.stats.IgnoredTags++
		return
	}

	switch name {
	case "td", "th":
		if s.state == stateCell {
			s.state = stateRow
		}

	case "tr":
		if s.state == stateRow || s.state == stateCell {
			s.endRow()
		}

	case "table":
		switch s.state {
		case stateRow, stateCell:
			s.endRow()
			if s.err != nil {
				return
			}
			s.finish()
		case stateTable:
			s.finish()
		}

	default:
		s.stats.IgnoredTags++
	}
}

// Text handles a text event. Text outside a cell is dropped.
func (s *Scanner) Text(data string) {
	if s.Done() || s.state != stateCell {
		return
	}

	s.row.Cells = append(s.row.Cells, Sanitize(data, s.opts.CurrencyGlyph))

	// Discount rows omit two columns after the label.
	if s.row.Kind == RowDiscount && len(s.row.Cells) == 1 {
		s.row.Cells = append(s.row.Cells, "", "")
	}
}

// Result returns the reconciled receipt. It fails when scanning failed, when
// no table was seen, or when the table was never closed.
func (s *Scanner) Result() (Receipt, error) {
	if s.err != nil {
		return Receipt{}, s.err
	}

	switch s.state {
	case stateDone:
		return s.receipt, nil
	case stateOutside:
		return Receipt{}, empty("no table found in document")
	default:
		return Receipt{}, malformed(-1, "table not closed (scanner stopped in %s state)", s.state)
	}
}

// Feed tokenizes r and drives the scanner until the receipt table closes or
// the input ends.
func (s *Scanner) Feed(r io.Reader) error {
	z := html.NewTokenizer(r)

	for !s.Done() {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return fmt.Errorf("tokenizing receipt markup: %w", err)
			}
			return nil

		case html.StartTagToken:
			tok := z.Token()
			s.StartTag(tok.Data, tok.Attr)

		case html.SelfClosingTagToken:
			tok := z.Token()
			s.StartTag(tok.Data, tok.Attr)
			s.EndTag(tok.Data)

		case html.EndTagToken:
			tok := z.Token()
			s.EndTag(tok.Data)

		case html.TextToken:
			s.Text(string(z.Text()))
		}
	}

	return nil
}

// =============================================================================
// ROW BOUNDARIES
// =============================================================================

func (s *Scanner) beginRow(attrs []html.Attribute) {
	s.row = Row{Kind: RowSimple}
	if s.opts.isDiscountMarker(attrs) {
		s.row.Kind = RowDiscount
	}
	s.state = stateRow
}

func (s *Scanner) endRow() {
	if s.row.Kind == RowDiscount && len(s.row.Cells) == 0 {
		s.err = malformed(len(s.raw), "discount row has no label")
		return
	}

	s.raw = append(s.raw, s.row)
	s.stats.RawRows++
	s.row = Row{}
	s.state = stateTable
}

func (s *Scanner) finish() {
	s.state = stateDone

	receipt, err := Reconcile(s.raw, s.opts)
	if err != nil {
		s.err = err
		return
	}
	s.receipt = receipt
}

// =============================================================================
// CONVENIENCE
// =============================================================================

// Parse scans a complete HTML document and returns the reconciled receipt.
func Parse(r io.Reader, opts Options) (Receipt, Stats, error) {
	s := NewScanner(opts)
	if err := s.Feed(r); err != nil {
		return Receipt{}, s.Stats(), err
	}

	receipt, err := s.Result()
	return receipt, s.Stats(), err
}

// ParseString is Parse over an in-memory document.
func ParseString(doc string, opts Options) (Receipt, Stats, error) {
	return Parse(strings.NewReader(doc), opts)
}
