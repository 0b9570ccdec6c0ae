package display

import (
	"sort"

	"github.com/jmcder000/semantic-diff/internal/quote"
)

// Highlight marks a byte range of a document.
type Highlight struct {
	Start, End int
	Score      float64
	Label      string
}

// Segment is a run of document text, either plain or highlighted.
type Segment struct {
	Text   string
	Start  int
	End    int
	Marked bool
	Score  float64 // set only when Marked
	Label  string
	Index  int // position of the highlight in the input, -1 for plain text
}

// Segments splits text into consecutive plain and highlighted runs.
// Highlights are ordered by start; empty or inverted ones are dropped and a
// highlight overlapping an earlier one keeps only its uncovered tail, so
// the segments tile text exactly once.
func Segments(text string, highlights []Highlight) []Segment {
	type indexed struct {
		Highlight
		idx int
	}
	cleaned := make([]indexed, 0, len(highlights))
	for i, h := range highlights {
		if h.End > h.Start {
			cleaned = append(cleaned, indexed{h, i})
		}
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Start < cleaned[j].Start })

	var segments []Segment
	cursor := 0
	for _, h := range cleaned {
		start := clamp(h.Start, cursor, len(text))
		end := clamp(h.End, 0, len(text))
		if end <= start {
			continue
		}
		if start > cursor {
			segments = append(segments, Segment{Text: text[cursor:start], Start: cursor, End: start, Index: -1})
		}
		segments = append(segments, Segment{
			Text:   text[start:end],
			Start:  start,
			End:    end,
			Marked: true,
			Score:  h.Score,
			Label:  h.Label,
			Index:  h.idx,
		})
		cursor = end
	}
	if cursor < len(text) {
		segments = append(segments, Segment{Text: text[cursor:], Start: cursor, End: len(text), Index: -1})
	}
	return segments
}

// Snippet returns up to window bytes of context either side of span,
// widened to rune boundaries.
func Snippet(text string, span quote.Span, window int) (before, mid, after string) {
	return quote.MatchResult{Span: span}.Snippet(text, window)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
