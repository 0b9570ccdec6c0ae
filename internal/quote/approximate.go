package quote

// dpCell is one entry of an alignment row: the best cost of aligning a
// query prefix against a document substring ending here, and the document
// index where that substring starts.
type dpCell struct {
	cost   int
	origin int
}

// approxWindow is the best approximate alignment in normalized runes.
type approxWindow struct {
	start, end int
	distance   int
	ratio      float64
}

// bestApproximate runs a semi-global edit distance alignment of pattern
// against every substring of text. The substring start is free, the pattern
// must be fully consumed. Only two rows are kept.
//
// On equal cost the predecessor order is substitution, then insertion, then
// deletion, and a later recorded origin replaces an earlier one unless
// preferEarlier is set. The earliest end with the minimal final cost wins.
func bestApproximate(text, pattern []rune, preferEarlier bool) (approxWindow, bool) {
	n, m := len(text), len(pattern)
	if n == 0 || m == 0 {
		return approxWindow{}, false
	}

	prev := make([]dpCell, m+1)
	curr := make([]dpCell, m+1)
	for j := range prev {
		prev[j] = dpCell{cost: j}
	}

	better := func(c, than dpCell) bool {
		if c.cost != than.cost {
			return c.cost < than.cost
		}
		if preferEarlier {
			return c.origin < than.origin
		}
		return c.origin > than.origin
	}

	bestEnd, bestStart, bestDist := -1, 0, m+1
	for i := 1; i <= n; i++ {
		curr[0] = dpCell{cost: 0, origin: i}
		ti := text[i-1]

		for j := 1; j <= m; j++ {
			cell := prev[j-1]
			if ti != pattern[j-1] {
				cell.cost++
			}
			if ins := (dpCell{cost: curr[j-1].cost + 1, origin: curr[j-1].origin}); better(ins, cell) {
				cell = ins
			}
			if del := (dpCell{cost: prev[j].cost + 1, origin: prev[j].origin}); better(del, cell) {
				cell = del
			}
			curr[j] = cell
		}

		if curr[m].cost < bestDist {
			bestEnd, bestStart, bestDist = i, curr[m].origin, curr[m].cost
		}

		prev, curr = curr, prev
	}

	if bestEnd < 0 {
		return approxWindow{}, false
	}

	start := min(max(bestStart, 0), n)
	end := max(start, min(bestEnd, n))

	return approxWindow{
		start:    start,
		end:      end,
		distance: bestDist,
		ratio:    1 - float64(bestDist)/float64(max(1, m)),
	}, true
}
