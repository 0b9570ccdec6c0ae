package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcder000/semantic-diff/internal/quote"
)

func joinSegments(segs []Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func TestSegments_Basic(t *testing.T) {
	text := "the cat sat on the mat"
	segs := Segments(text, []Highlight{
		{Start: 15, End: 22, Score: 0.5, Label: "b"},
		{Start: 4, End: 7, Score: 1, Label: "a"},
	})

	require.Len(t, segs, 4)
	assert.Equal(t, Segment{Text: "the ", Start: 0, End: 4, Index: -1}, segs[0])
	assert.Zero(t, segs[0].Score)
	assert.True(t, segs[1].Marked)
	assert.Equal(t, "cat", segs[1].Text)
	assert.Equal(t, 1, segs[1].Index)
	assert.Equal(t, " sat on ", segs[2].Text)
	assert.Equal(t, "the mat", segs[3].Text)
	assert.Equal(t, "b", segs[3].Label)
	assert.Equal(t, text, joinSegments(segs))
}

func TestSegments_OverlapAndInvalid(t *testing.T) {
	text := "abcdefghij"
	segs := Segments(text, []Highlight{
		{Start: 2, End: 6, Label: "x"},
		{Start: 4, End: 8, Label: "y"}, // overlaps x, keeps "gh"
		{Start: 5, End: 5},             // empty
		{Start: 9, End: 3},             // inverted
		{Start: 3, End: 5},             // fully covered by x
		{Start: 8, End: 50, Label: "z"},
	})

	marked := []string{}
	for _, s := range segs {
		if s.Marked {
			marked = append(marked, s.Label+":"+s.Text)
		}
	}
	assert.Equal(t, []string{"x:cdef", "y:gh", "z:ij"}, marked)
	assert.Equal(t, text, joinSegments(segs))
}

func TestSegments_NoHighlights(t *testing.T) {
	segs := Segments("plain", nil)
	require.Len(t, segs, 1)
	assert.False(t, segs[0].Marked)
	assert.Empty(t, Segments("", nil))
}

func TestSnippet(t *testing.T) {
	before, mid, after := Snippet("0123456789", quote.Span{StartOffset: 4, EndOffset: 6}, 3)
	assert.Equal(t, "123", before)
	assert.Equal(t, "45", mid)
	assert.Equal(t, "678", after)
}
