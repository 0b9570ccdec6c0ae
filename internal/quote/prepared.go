package quote

import (
	"sync"

	"github.com/jmcder000/semantic-diff/internal/textnorm"
)

var coverageStemmer = textnorm.NewStemmer(true, 3, nil)

// Prepared holds a document and the derived forms the matchers need. The
// derived forms are computed on first use and never change afterwards, so a
// Prepared value can be shared between goroutines.
type Prepared struct {
	doc string

	foldOnce sync.Once
	folded   foldedText

	normOnce sync.Once
	form     textnorm.Form
	tokens   []textnorm.Token
	words    tokenIndex

	stemOnce sync.Once
	stems    tokenIndex
}

// Prepare wraps a document for repeated resolution.
func Prepare(document string) *Prepared {
	return &Prepared{doc: document}
}

// Document returns the raw document text.
func (p *Prepared) Document() string {
	return p.doc
}

// Form returns the normalized document.
func (p *Prepared) Form() textnorm.Form {
	p.normalize()
	return p.form
}

// Tokens returns the words of the normalized document.
func (p *Prepared) Tokens() []textnorm.Token {
	p.normalize()
	return p.tokens
}

func (p *Prepared) foldedText() foldedText {
	p.foldOnce.Do(func() {
		p.folded = foldText(p.doc)
	})
	return p.folded
}

func (p *Prepared) normalize() {
	p.normOnce.Do(func() {
		p.form = textnorm.Normalize(p.doc)
		p.tokens = textnorm.Tokenize(p.form.LowerRunes)
		p.words = buildTokenIndex(p.tokens, func(s string) string { return s })
	})
}

func (p *Prepared) tokenIndex(stemmed bool) tokenIndex {
	p.normalize()
	if !stemmed {
		return p.words
	}
	p.stemOnce.Do(func() {
		p.stems = buildTokenIndex(p.tokens, coverageStemmer.Key)
	})
	return p.stems
}
