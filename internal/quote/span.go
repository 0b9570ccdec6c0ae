package quote

import (
	"strings"
	"unicode/utf8"

	sderrors "github.com/jmcder000/semantic-diff/internal/errors"
)

// LineCol returns the 1-based line and rune column of a byte offset. A line
// break is "\n", optionally preceded by "\r".
func LineCol(doc string, offset int) (line, col int, err error) {
	if offset < 0 || offset > len(doc) {
		return 0, 0, sderrors.NewLocateError(sderrors.ErrorTypeInvalidOffset, sderrors.ErrInvalidOffset)
	}
	prefix := doc[:offset]
	line = strings.Count(prefix, "\n") + 1
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	col = utf8.RuneCountInString(prefix[lineStart:]) + 1
	return line, col, nil
}

// newResult builds a match from a raw byte range of doc.
func newResult(doc string, start, end int, method Method, confidence float64) (MatchResult, error) {
	if start < 0 || end < start || end > len(doc) {
		return MatchResult{}, sderrors.NewLocateError(sderrors.ErrorTypeInvalidOffset, sderrors.ErrInvalidOffset).
			WithTier(string(method))
	}
	line, col, err := LineCol(doc, start)
	if err != nil {
		return MatchResult{}, err
	}
	return MatchResult{
		Span: Span{
			StartOffset: start,
			EndOffset:   end,
			Line:        line,
			Col:         col,
		},
		Method:      method,
		Confidence:  confidence,
		MatchedText: doc[start:end],
	}, nil
}

// Snippet returns up to window bytes of context either side of the match,
// widened to rune boundaries.
func (r MatchResult) Snippet(doc string, window int) (before, match, after string) {
	if r.EndOffset > len(doc) || r.StartOffset < 0 || r.StartOffset > r.EndOffset {
		return "", "", ""
	}
	from := max(0, r.StartOffset-window)
	for from > 0 && !utf8.RuneStart(doc[from]) {
		from--
	}
	to := min(len(doc), r.EndOffset+window)
	for to < len(doc) && !utf8.RuneStart(doc[to]) {
		to++
	}
	return doc[from:r.StartOffset], doc[r.StartOffset:r.EndOffset], doc[r.EndOffset:to]
}
