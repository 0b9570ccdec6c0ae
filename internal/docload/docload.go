// Package docload reads source documents as text. PDF files are converted
// to plain text page by page; anything else is read as UTF-8.
package docload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	sderrors "github.com/jmcder000/semantic-diff/internal/errors"
)

const (
	FormatText = "text"
	FormatPDF  = "pdf"
)

// DefaultMaxBytes bounds text documents read from disk or a request.
const DefaultMaxBytes = 32 << 20

// ErrTooLarge reports a document over the byte limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Document is loaded source text. Offsets reported by the resolver refer
// to Text.
type Document struct {
	Path   string
	Format string
	Text   string
	Pages  int
}

// Options tunes loading.
type Options struct {
	MaxBytes int64 // 0 = DefaultMaxBytes
	MaxPages int   // PDF pages to read, 0 = all
}

// Load reads the document at path, choosing the format by extension.
func Load(path string, opts Options) (*Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, pages, err := loadPDF(path, opts.MaxPages)
		if err != nil {
			return nil, err
		}
		return &Document{Path: path, Format: FormatPDF, Text: text, Pages: pages}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, sderrors.NewFileError("open", path, err)
	}
	defer f.Close()

	text, err := ReadText(f, opts.MaxBytes)
	if err != nil {
		return nil, sderrors.NewFileError("read", path, err)
	}
	return &Document{Path: path, Format: FormatText, Text: text, Pages: 1}, nil
}

// ReadText reads r as UTF-8 text. A leading byte order mark is dropped and
// invalid sequences become U+FFFD so every offset lands on a rune boundary.
func ReadText(r io.Reader, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return Clean(data), nil
}

// Clean converts raw bytes into the text form the resolver works on.
func Clean(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

func loadPDF(path string, maxPages int) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return "", 0, sderrors.NewFileError("open", path, err)
		}
		return "", 0, sderrors.NewFileError("parse pdf", path, err)
	}
	defer f.Close()

	pages := r.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var buf strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, sderrors.NewFileError("extract pdf text", path, fmt.Errorf("page %d: %w", i, err))
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}

	return Clean([]byte(buf.String())), pages, nil
}
