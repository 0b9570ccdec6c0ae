package textnorm

import "unicode"

// Token is a word in a normalized rune sequence. NormStart and NormEnd are
// rune indices into that sequence, half-open.
type Token struct {
	Text      string
	NormStart int
	NormEnd   int
}

// Tokenize scans runes once and returns every maximal word: a letter or
// digit followed by any run of letters, digits, apostrophes (straight or
// curly) and hyphens. Everything else separates words.
func Tokenize(runes []rune) []Token {
	tokens := make([]Token, 0, len(runes)/5+1)

	i := 0
	for i < len(runes) {
		if !isWordStart(runes[i]) {
			i++
			continue
		}
		start := i
		i++
		for i < len(runes) && isWordPart(runes[i]) {
			i++
		}
		tokens = append(tokens, Token{
			Text:      string(runes[start:i]),
			NormStart: start,
			NormEnd:   i,
		})
	}

	return tokens
}

// Words is Tokenize for a plain string, returning only token texts.
func Words(s string) []string {
	tokens := Tokenize([]rune(s))
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Text
	}
	return words
}

func isWordStart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isWordPart(r rune) bool {
	return isWordStart(r) || r == '\'' || r == '’' || r == '-'
}
