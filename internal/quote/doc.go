// Package quote locates a claimed excerpt inside a reference document.
//
// Excerpts produced by people or by text generators are often not quite
// verbatim: quotes get re-punctuated, recased, Unicode-substituted, trimmed
// or paraphrased. Resolve finds the best contiguous span of the document
// for such a query and reports it as exact byte offsets into the original
// string, a 1-based line and column, and a confidence in [0, 1].
//
// # Matching Tiers
//
// Tiers are tried in order and the first literal hit wins:
//
//  1. Exact - first literal occurrence of the query
//  2. Exact Trimmed - the query with surrounding quote marks and spaces removed
//  3. Case Insensitive - per-rune lowercase comparison on raw text
//  4. Normalized Exact - NFKC, typographic quotes and dashes folded, whitespace collapsed
//  5. Approximate Edit - semi-global Levenshtein alignment over the normalized text
//  6. Word Coverage - greedy in-order alignment of query words to document words
//
// Tiers 1 to 4 score 1.0. Tier 5 scores 1 - distance/len(query) and is
// accepted outright at or above Options.HighConfidenceThreshold. Tier 6
// scores the fraction of query words matched and is likewise accepted at the
// threshold. When neither clears it the higher score is returned, with word
// coverage winning a tie. Approximate alignment is skipped for inputs larger
// than the configured guards.
//
// # Offsets
//
// StartOffset and EndOffset are byte offsets into the document exactly as
// given, always on rune boundaries, and MatchedText is always
// document[StartOffset:EndOffset]. Col counts runes from the start of the
// line.
//
// # Usage Example
//
//	doc := quote.Prepare(text)
//	res, err := doc.Resolve("cat sat", quote.DefaultOptions())
//	if errors.Is(err, sderrors.ErrNoCandidate) {
//		// render as unlocated
//	}
//	fmt.Println(res.StartOffset, res.EndOffset, res.Method, res.Confidence)
package quote
