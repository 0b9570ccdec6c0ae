package textnorm

import (
	"strings"

	"github.com/surgebase/porter2"
)

// Stemmer maps tokens to a comparison key. When disabled the key is the
// token itself, which keeps word matching exact.
type Stemmer struct {
	enabled    bool
	minLength  int
	exclusions map[string]bool // never stemmed
}

// NewStemmer creates a stemmer. minLength below zero defaults to 3.
func NewStemmer(enabled bool, minLength int, exclusions []string) *Stemmer {
	if minLength < 0 {
		minLength = 3
	}
	ex := make(map[string]bool, len(exclusions))
	for _, w := range exclusions {
		ex[strings.ToLower(w)] = true
	}
	return &Stemmer{
		enabled:    enabled,
		minLength:  minLength,
		exclusions: ex,
	}
}

// IsEnabled reports whether stemming is applied.
func (s *Stemmer) IsEnabled() bool {
	return s != nil && s.enabled
}

// Key returns the comparison key for a lowercase token.
func (s *Stemmer) Key(token string) string {
	if !s.IsEnabled() {
		return token
	}
	if s.exclusions[token] || len(token) < s.minLength || !isASCIILetters(token) {
		return token
	}
	return porter2.Stem(token)
}

// porter2 is an English stemmer and mangles anything else.
func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
