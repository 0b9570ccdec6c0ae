package quote

// Method identifies the tier that produced a match
type Method string

const (
	MethodExact           Method = "exact"
	MethodExactTrimmed    Method = "exact-trimmed"
	MethodCaseInsensitive Method = "case-insensitive"
	MethodNormalizedExact Method = "normalized-exact"
	MethodApproximateEdit Method = "approx-levenshtein"
	MethodWordCoverage    Method = "word-coverage"
	MethodNone            Method = "no_match"
)

// Methods lists every tier in fallback order.
var Methods = []Method{
	MethodExact,
	MethodExactTrimmed,
	MethodCaseInsensitive,
	MethodNormalizedExact,
	MethodApproximateEdit,
	MethodWordCoverage,
}

// IsLiteral reports whether the method only ever matches exact text
// (possibly after case folding or normalization) and so always scores 1.0.
func (m Method) IsLiteral() bool {
	switch m {
	case MethodExact, MethodExactTrimmed, MethodCaseInsensitive, MethodNormalizedExact:
		return true
	}
	return false
}

// Span is a half-open byte range of the document plus the 1-based line and
// rune column of its start.
type Span struct {
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
	Line        int `json:"line"`
	Col         int `json:"col"`
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.EndOffset - s.StartOffset
}

// MatchResult is the located span of a quote.
type MatchResult struct {
	Span
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`

	// MatchedText is always document[StartOffset:EndOffset].
	MatchedText string `json:"matched_text"`
}

// Options tunes resolution. Zero fields take the package defaults.
type Options struct {
	// HighConfidenceThreshold is the score at which an approximate match is
	// accepted without consulting later tiers.
	HighConfidenceThreshold float64

	// Guards on the approximate tier, in normalized runes.
	MaxDocLenForDP   int
	MaxQueryLenForDP int

	// PreferEarlierOrigin flips the DP tie-break so that, on equal cost, the
	// alignment starting earlier in the document wins.
	PreferEarlierOrigin bool

	// CoverageTrials bounds how many leading query tokens word coverage
	// tries as alignment starts.
	CoverageTrials int

	// StemTokens compares words by Porter2 stem in word coverage.
	StemTokens bool

	// Parallel computes the approximate and coverage tiers concurrently.
	Parallel bool
}

const (
	DefaultHighConfidenceThreshold = 0.95
	DefaultMaxDocLenForDP          = 60000
	DefaultMaxQueryLenForDP        = 1000
	DefaultCoverageTrials          = 5
)

// DefaultOptions returns the standard resolution settings.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.HighConfidenceThreshold <= 0 {
		o.HighConfidenceThreshold = DefaultHighConfidenceThreshold
	}
	if o.MaxDocLenForDP <= 0 {
		o.MaxDocLenForDP = DefaultMaxDocLenForDP
	}
	if o.MaxQueryLenForDP <= 0 {
		o.MaxQueryLenForDP = DefaultMaxQueryLenForDP
	}
	if o.CoverageTrials <= 0 {
		o.CoverageTrials = DefaultCoverageTrials
	}
	return o
}

// Attempt records what one tier did during a resolution.
type Attempt struct {
	Method   Method  `json:"method"`
	Score    float64 `json:"score"`
	Found    bool    `json:"found"`
	Accepted bool    `json:"accepted"`
	Skipped  bool    `json:"skipped,omitempty"`
	Err      error   `json:"-"`
}
