// Package batch locates many quotes against one document and applies the
// answer-selection rule to each result.
package batch

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/hbollon/go-edlib"
	"golang.org/x/sync/errgroup"

	"github.com/jmcder000/semantic-diff/internal/cache"
	"github.com/jmcder000/semantic-diff/internal/debug"
	sderrors "github.com/jmcder000/semantic-diff/internal/errors"
	"github.com/jmcder000/semantic-diff/internal/logger"
	"github.com/jmcder000/semantic-diff/internal/metrics"
	"github.com/jmcder000/semantic-diff/internal/quote"
	"github.com/jmcder000/semantic-diff/internal/textnorm"
)

// Quote is one query to locate.
type Quote struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Item is the outcome for one quote. Offsets are nil when the quote was not
// located.
type Item struct {
	ID          string  `json:"id"`
	Query       string  `json:"query"`
	Answer      string  `json:"answer"`
	Located     bool    `json:"located"`
	StartOffset *int    `json:"start_offset"`
	EndOffset   *int    `json:"end_offset"`
	Line        *int    `json:"line"`
	Col         *int    `json:"col"`
	Method      string  `json:"method"`
	Confidence  float64 `json:"confidence"`
	MatchedText string  `json:"matched_text"`
	Fidelity    float64 `json:"fidelity"`
	Error       string  `json:"error,omitempty"`
}

// Span returns the located span, or false for an unlocated item.
func (it Item) Span() (quote.Span, bool) {
	if !it.Located || it.StartOffset == nil || it.EndOffset == nil {
		return quote.Span{}, false
	}
	s := quote.Span{StartOffset: *it.StartOffset, EndOffset: *it.EndOffset}
	if it.Line != nil && it.Col != nil {
		s.Line, s.Col = *it.Line, *it.Col
	}
	return s, true
}

type Config struct {
	Options quote.Options
	Workers int // 0 = GOMAXPROCS

	Cache   *cache.DocumentCache // optional
	Metrics *metrics.Metrics     // optional
	Logger  *logger.Logger       // optional
}

// Locator resolves batches of quotes. It is safe for concurrent use.
type Locator struct {
	opts    quote.Options
	workers int
	cache   *cache.DocumentCache
	metrics *metrics.Metrics
	log     *logger.Logger
}

func New(cfg Config) *Locator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Locator{
		opts:    cfg.Options,
		workers: workers,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		log:     log.Component("batch"),
	}
}

// Options returns the resolution options the locator applies.
func (l *Locator) Options() quote.Options {
	return l.opts
}

// Workers returns the concurrency bound of Run.
func (l *Locator) Workers() int {
	return l.workers
}

// WithThreshold returns a copy of l using a different confidence threshold.
// A non-positive threshold keeps the current one.
func (l *Locator) WithThreshold(threshold float64) *Locator {
	if threshold <= 0 {
		return l
	}
	cp := *l
	cp.opts.HighConfidenceThreshold = threshold
	return &cp
}

// Threshold returns the effective confidence threshold.
func (l *Locator) Threshold() float64 {
	if l.opts.HighConfidenceThreshold > 0 {
		return l.opts.HighConfidenceThreshold
	}
	return quote.DefaultHighConfidenceThreshold
}

// Run locates every quote in document. Results are in input order whatever
// the worker count. Unlocated quotes are items with Located false, not
// errors; the only error is the context's.
func (l *Locator) Run(ctx context.Context, document string, quotes []Quote) ([]Item, error) {
	started := time.Now()
	prepared := l.cache.Get(document)
	items := make([]Item, len(quotes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, q := range quotes {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = l.Locate(prepared, q)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// gctx is always canceled once Wait returns; only the caller's ctx
	// tells whether the loop stopped early
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	located := 0
	for _, it := range items {
		if it.Located {
			located++
		}
	}
	l.log.LogBatch(len(items), located, time.Since(started))
	debug.LogBatch("%d quotes, %d located in %v\n", len(items), located, time.Since(started))

	return items, nil
}

// Locate resolves a single quote against a prepared document.
func (l *Locator) Locate(p *quote.Prepared, q Quote) Item {
	started := time.Now()
	res, attempts, err := p.Explain(q.Text, l.opts)
	elapsed := time.Since(started)

	l.metrics.RecordLocate(res, attempts, elapsed)
	l.log.LogLocate(q.ID, string(res.Method), res.Confidence, elapsed, err)

	item := Item{
		ID:     q.ID,
		Query:  q.Text,
		Answer: q.Text,
	}
	if err != nil {
		item.Method = string(quote.MethodNone)
		item.Error = errorCode(err)
		return item
	}

	start, end, line, col := res.StartOffset, res.EndOffset, res.Line, res.Col
	item.Located = true
	item.StartOffset, item.EndOffset = &start, &end
	item.Line, item.Col = &line, &col
	item.Method = string(res.Method)
	item.Confidence = res.Confidence
	item.MatchedText = res.MatchedText
	item.Answer = quote.PreferredText(res, q.Text, l.Threshold())
	item.Fidelity = Fidelity(q.Text, res.MatchedText)
	return item
}

func errorCode(err error) string {
	var le *sderrors.LocateError
	if errors.As(err, &le) {
		return string(le.Type)
	}
	return err.Error()
}

// Fidelity is the Levenshtein similarity of the normalized lowercase forms
// of query and matched, in [0, 1].
func Fidelity(query, matched string) float64 {
	a := textnorm.Normalize(query).Lower
	b := textnorm.Normalize(matched).Lower
	switch {
	case a == b:
		return 1
	case a == "" || b == "":
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(sim)
}
