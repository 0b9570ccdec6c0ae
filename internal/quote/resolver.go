package quote

import (
	"sync"

	"github.com/jmcder000/semantic-diff/internal/debug"
	sderrors "github.com/jmcder000/semantic-diff/internal/errors"
	"github.com/jmcder000/semantic-diff/internal/textnorm"
)

// Resolve locates query in document. It is shorthand for
// Prepare(document).Resolve(query, opts).
func Resolve(document, query string, opts Options) (MatchResult, error) {
	return Prepare(document).Resolve(query, opts)
}

// Resolve locates query in the prepared document, returning ErrEmptyQuery
// for an empty query and ErrNoCandidate when every tier fails.
func (p *Prepared) Resolve(query string, opts Options) (MatchResult, error) {
	res, _, err := p.Explain(query, opts)
	return res, err
}

// candidate is a fuzzy tier result mapped to raw offsets.
type candidate struct {
	method     Method
	start, end int
	score      float64
	ok         bool
}

// Explain is Resolve that also reports every tier it consulted, in order.
func (p *Prepared) Explain(query string, opts Options) (MatchResult, []Attempt, error) {
	opts = opts.withDefaults()
	theta := opts.HighConfidenceThreshold

	if query == "" {
		return MatchResult{}, nil, sderrors.NewLocateError(sderrors.ErrorTypeEmptyQuery, sderrors.ErrEmptyQuery)
	}

	attempts := make([]Attempt, 0, len(Methods))
	note := func(a Attempt) {
		attempts = append(attempts, a)
		debug.LogLocate("%s found=%t accepted=%t score=%.4f skipped=%t\n", a.Method, a.Found, a.Accepted, a.Score, a.Skipped)
	}
	literal := func(method Method, start, end int) (MatchResult, []Attempt, error) {
		note(Attempt{Method: method, Score: 1, Found: true, Accepted: true})
		res, err := newResult(p.doc, start, end, method, 1)
		return res, attempts, err
	}

	if start, end, ok := exactSpan(p.doc, query); ok {
		return literal(MethodExact, start, end)
	}
	note(Attempt{Method: MethodExact})

	trimmed := TrimQuery(query)
	if trimmed != "" && trimmed != query {
		if start, end, ok := exactSpan(p.doc, trimmed); ok {
			return literal(MethodExactTrimmed, start, end)
		}
		note(Attempt{Method: MethodExactTrimmed})
	}

	q := trimmed
	if q == "" {
		q = query
	}

	if start, end, ok := p.foldedText().index(q); ok {
		return literal(MethodCaseInsensitive, start, end)
	}
	note(Attempt{Method: MethodCaseInsensitive})

	form := p.Form()
	qf := textnorm.Normalize(q)
	if ns, ne, ok := normalizedExactSpan(form, qf); ok {
		start, end := form.RawRange(ns, ne)
		return literal(MethodNormalizedExact, start, end)
	}
	note(Attempt{Method: MethodNormalizedExact})

	var approx, cover candidate
	var approxAttempt, coverAttempt Attempt

	if opts.Parallel {
		// neither tier can fail, so there is no error to collect
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			approx, approxAttempt = p.approximateTier(form, qf, opts)
		}()
		go func() {
			defer wg.Done()
			cover, coverAttempt = p.coverageTier(form, qf, opts)
		}()
		wg.Wait()
	} else {
		approx, approxAttempt = p.approximateTier(form, qf, opts)
		if approx.ok && approx.score >= theta {
			approxAttempt.Accepted = true
			note(approxAttempt)
			return p.finish(approx, attempts)
		}
		cover, coverAttempt = p.coverageTier(form, qf, opts)
	}

	if approx.ok && approx.score >= theta {
		approxAttempt.Accepted = true
		note(approxAttempt)
		return p.finish(approx, attempts)
	}
	note(approxAttempt)

	if cover.ok && cover.score >= theta {
		coverAttempt.Accepted = true
		note(coverAttempt)
		return p.finish(cover, attempts)
	}
	note(coverAttempt)

	// Below threshold: keep the stronger fuzzy candidate. Coverage wins ties.
	switch {
	case approx.ok && cover.ok:
		if cover.score >= approx.score {
			attempts[len(attempts)-1].Accepted = true
			return p.finish(cover, attempts)
		}
		attempts[len(attempts)-2].Accepted = true
		return p.finish(approx, attempts)
	case cover.ok:
		attempts[len(attempts)-1].Accepted = true
		return p.finish(cover, attempts)
	case approx.ok:
		attempts[len(attempts)-2].Accepted = true
		return p.finish(approx, attempts)
	}

	return MatchResult{}, attempts, sderrors.NewLocateError(sderrors.ErrorTypeNoCandidate, sderrors.ErrNoCandidate).
		WithQuery(query)
}

func (p *Prepared) finish(c candidate, attempts []Attempt) (MatchResult, []Attempt, error) {
	res, err := newResult(p.doc, c.start, c.end, c.method, c.score)
	return res, attempts, err
}

// approximateTier aligns the normalized query against the normalized
// document. A window without a single matching rune is not a candidate.
func (p *Prepared) approximateTier(form, qf textnorm.Form, opts Options) (candidate, Attempt) {
	attempt := Attempt{Method: MethodApproximateEdit}
	if form.Empty() || qf.Empty() {
		return candidate{}, attempt
	}
	if form.Len() > opts.MaxDocLenForDP || qf.Len() > opts.MaxQueryLenForDP {
		attempt.Skipped = true
		attempt.Err = sderrors.NewLocateError(sderrors.ErrorTypeInputTooLarge, sderrors.ErrInputTooLarge).
			WithTier(string(MethodApproximateEdit))
		return candidate{}, attempt
	}

	w, ok := bestApproximate(form.LowerRunes, qf.LowerRunes, opts.PreferEarlierOrigin)
	if !ok || w.ratio <= 0 || w.end <= w.start {
		return candidate{}, attempt
	}

	start, end := form.RawRange(w.start, w.end)
	attempt.Found = true
	attempt.Score = w.ratio
	return candidate{method: MethodApproximateEdit, start: start, end: end, score: w.ratio, ok: true}, attempt
}

// coverageTier aligns query words to document words in order.
func (p *Prepared) coverageTier(form, qf textnorm.Form, opts Options) (candidate, Attempt) {
	attempt := Attempt{Method: MethodWordCoverage}

	qTokens := textnorm.Tokenize(qf.LowerRunes)
	keys := make([]string, len(qTokens))
	for i, t := range qTokens {
		if opts.StemTokens {
			keys[i] = coverageStemmer.Key(t.Text)
		} else {
			keys[i] = t.Text
		}
	}

	w, ok := bestCoverage(p.Tokens(), p.tokenIndex(opts.StemTokens), keys, opts.CoverageTrials)
	if !ok {
		return candidate{}, attempt
	}

	start, end := form.RawRange(w.start, w.end)
	attempt.Found = true
	attempt.Score = w.coverage
	return candidate{method: MethodWordCoverage, start: start, end: end, score: w.coverage, ok: true}, attempt
}

// PreferredText is the text callers should display for a located quote: the
// verbatim document text when the match is trusted, otherwise the query.
func PreferredText(res MatchResult, query string, threshold float64) string {
	if threshold <= 0 {
		threshold = DefaultHighConfidenceThreshold
	}
	if res.Method != "" && res.Confidence >= threshold {
		return res.MatchedText
	}
	return query
}
