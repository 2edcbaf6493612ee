package reconciler

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sanitize cleans raw cell text: double quotes and the currency glyph are
// removed, the rest is NFC-normalized and trimmed. Applying it twice gives the
// same result as applying it once.
func Sanitize(data, currencyGlyph string) string {
	s := strings.ReplaceAll(data, `"`, "")
	if currencyGlyph != "" {
		s = strings.ReplaceAll(s, currencyGlyph, "")
	}
	// Normalize after stripping so a removed glyph cannot leave a
	// decomposed sequence behind.
	return strings.TrimSpace(norm.NFC.String(s))
}
