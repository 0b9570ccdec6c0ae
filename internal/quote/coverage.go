package quote

import (
	"sort"

	"github.com/jmcder000/semantic-diff/internal/textnorm"
)

// tokenIndex maps a token key to the ascending positions of document tokens
// carrying it.
type tokenIndex map[string][]int

func buildTokenIndex(tokens []textnorm.Token, key func(string) string) tokenIndex {
	idx := make(tokenIndex, len(tokens)/2+1)
	for i, t := range tokens {
		k := key(t.Text)
		idx[k] = append(idx[k], i)
	}
	return idx
}

// coverageWindow is a word coverage alignment in normalized runes.
type coverageWindow struct {
	start, end int
	coverage   float64
	matched    int
}

// bestCoverage greedily aligns query tokens to document tokens in order,
// trying each of the first `trials` query tokens as the alignment start.
// A query token with no later occurrence is skipped. The best trial has the
// highest coverage, then the narrowest window.
func bestCoverage(docTokens []textnorm.Token, idx tokenIndex, queryKeys []string, trials int) (coverageWindow, bool) {
	if len(docTokens) == 0 || len(queryKeys) == 0 {
		return coverageWindow{}, false
	}
	trials = min(trials, len(queryKeys))

	var best coverageWindow
	found := false

	for offset := 0; offset < trials; offset++ {
		last := -1
		first := -1
		matched := 0

		for _, key := range queryKeys[offset:] {
			positions := idx[key]
			k := sort.SearchInts(positions, last+1)
			if k == len(positions) {
				continue
			}
			last = positions[k]
			if first < 0 {
				first = last
			}
			matched++
		}

		if matched == 0 {
			continue
		}

		w := coverageWindow{
			start:    docTokens[first].NormStart,
			end:      docTokens[last].NormEnd,
			coverage: float64(matched) / float64(len(queryKeys)),
			matched:  matched,
		}
		if !found || w.coverage > best.coverage ||
			(w.coverage == best.coverage && w.end-w.start < best.end-best.start) {
			best = w
			found = true
		}
	}

	return best, found
}
