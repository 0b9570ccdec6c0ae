// Package textnorm turns raw document text into a comparison-friendly form
// without losing track of where each rune came from.
//
// Normalize folds curly quotes and long dashes to ASCII, applies NFKC one
// rune at a time, collapses whitespace runs to a single space and trims the
// ends. Every normalized rune keeps the byte offset of the raw rune that
// produced it, so a match found in normalized space can be reported as an
// exact range of the original text via Form.RawRange.
//
// Tokenize splits a normalized rune sequence into words for coverage
// matching, and Stemmer optionally reduces those words to Porter2 stems.
package textnorm
