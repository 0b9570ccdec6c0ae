package quote

import (
	"strings"
	"unicode/utf8"

	"github.com/jmcder000/semantic-diff/internal/textnorm"
)

// normalizedExactSpan finds the lowercased normalized query inside the
// lowercased normalized document and returns the normalized rune range.
func normalizedExactSpan(doc, q textnorm.Form) (int, int, bool) {
	if q.Empty() || doc.Empty() {
		return 0, 0, false
	}
	idx := strings.Index(doc.Lower, q.Lower)
	if idx < 0 {
		return 0, 0, false
	}
	start := utf8.RuneCountInString(doc.Lower[:idx])
	return start, start + len(q.LowerRunes), true
}
