package textnorm

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Form is the normalized rendition of a raw string together with the
// mapping from every normalized rune back to the raw byte offset of the
// rune that produced it.
type Form struct {
	// Text is the normalized string.
	Text string
	// Lower is Text lowercased rune by rune, so it shares PositionMap.
	Lower string

	Runes      []rune
	LowerRunes []rune

	// PositionMap[i] is the byte offset in the raw string of the rune that
	// produced Runes[i]. Entries are non-decreasing.
	PositionMap []int

	// RawLen is len(raw) in bytes.
	RawLen int

	raw string
}

// Len returns the number of normalized runes.
func (f Form) Len() int {
	return len(f.Runes)
}

// Empty reports whether normalization produced no runes.
func (f Form) Empty() bool {
	return len(f.Runes) == 0
}

// Raw returns the string the form was built from.
func (f Form) Raw() string {
	return f.raw
}

// Normalize folds typographic punctuation, applies NFKC per rune, collapses
// whitespace runs to a single space and trims both ends, recording where
// each output rune came from.
func Normalize(text string) Form {
	runes := make([]rune, 0, len(text))
	positions := make([]int, 0, len(text))

	spaceAt := -1
	var scratch [8]rune

	for i, r := range text {
		for _, out := range expand(scratch[:0], r) {
			if unicode.IsSpace(out) {
				if spaceAt < 0 {
					spaceAt = i
				}
				continue
			}
			// A pending space is only emitted between two non-space runes,
			// which trims leading and trailing whitespace for free.
			if spaceAt >= 0 {
				if len(runes) > 0 {
					runes = append(runes, ' ')
					positions = append(positions, spaceAt)
				}
				spaceAt = -1
			}
			runes = append(runes, out)
			positions = append(positions, i)
		}
	}

	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	return Form{
		Text:        string(runes),
		Lower:       string(lower),
		Runes:       runes,
		LowerRunes:  lower,
		PositionMap: positions,
		RawLen:      len(text),
		raw:         text,
	}
}

// RawRange maps the normalized half-open range [normStart, normEnd) to a
// half-open raw byte range. The end extends to the end of the raw rune that
// produced the last normalized rune and is clamped to RawLen.
func (f Form) RawRange(normStart, normEnd int) (int, int) {
	n := len(f.PositionMap)
	if n == 0 {
		return 0, 0
	}
	normStart = clamp(normStart, 0, n-1)
	normEnd = clamp(normEnd, normStart, n)

	start := f.PositionMap[normStart]
	if normEnd == normStart {
		return start, start
	}

	last := f.PositionMap[normEnd-1]
	_, size := utf8.DecodeRuneInString(f.raw[last:])
	end := last + size
	if end > f.RawLen {
		end = f.RawLen
	}
	if end < start {
		end = start
	}
	return start, end
}

// unify folds curly quotes and long dashes to their ASCII forms.
func unify(r rune) rune {
	switch r {
	case '“', '”':
		return '"'
	case '‘', '’':
		return '\''
	case '–', '—':
		return '-'
	}
	return r
}

// expand appends the NFKC rendition of a single rune to dst.
func expand(dst []rune, r rune) []rune {
	r = unify(r)
	if r < utf8.RuneSelf {
		return append(dst, r)
	}

	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	if norm.NFKC.IsNormal(buf[:n]) {
		return append(dst, r)
	}
	for _, out := range norm.NFKC.String(string(buf[:n])) {
		dst = append(dst, unify(out))
	}
	return dst
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
