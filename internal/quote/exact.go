package quote

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// quoteTrimSet is stripped from both ends of a query by the trimmed tier,
// along with Unicode whitespace.
const quoteTrimSet = "\"'“”‘’"

// TrimQuery strips surrounding quote marks and whitespace.
func TrimQuery(q string) string {
	return strings.TrimFunc(q, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(quoteTrimSet, r)
	})
}

// exactSpan finds the first literal occurrence of q in doc.
func exactSpan(doc, q string) (int, int, bool) {
	if q == "" {
		return 0, 0, false
	}
	idx := strings.Index(doc, q)
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(q), true
}

// foldedText is a per-rune lowercase copy of raw text that remembers the
// byte offset of every rune, so matches on the folded copy cover exactly the
// raw runes they came from.
type foldedText struct {
	text    string
	offsets []int // offsets[i] is the raw byte offset of rune i; last entry is len(raw)
}

func foldText(raw string) foldedText {
	var b strings.Builder
	b.Grow(len(raw))
	offsets := make([]int, 0, len(raw)+1)
	for i, r := range raw {
		offsets = append(offsets, i)
		b.WriteRune(unicode.ToLower(r))
	}
	offsets = append(offsets, len(raw))
	return foldedText{text: b.String(), offsets: offsets}
}

func foldString(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// index returns the raw range of the first folded occurrence of q.
func (f foldedText) index(q string) (int, int, bool) {
	fq := foldString(q)
	if fq == "" {
		return 0, 0, false
	}
	idx := strings.Index(f.text, fq)
	if idx < 0 {
		return 0, 0, false
	}
	startRune := utf8.RuneCountInString(f.text[:idx])
	endRune := startRune + utf8.RuneCountInString(fq)
	return f.offsets[startRune], f.offsets[endRune], true
}
