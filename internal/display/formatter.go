package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/quote"
)

// FormatterOptions controls result formatting
type FormatterOptions struct {
	Format        string // "text", "json", "compact"
	ContextWindow int    // bytes of context either side of a match
	Threshold     float64
	ShowSummary   bool
	Color         bool
}

// Formatter renders batch results for a terminal or a pipe
type Formatter struct {
	options FormatterOptions
	colors  map[string]*color.Color
}

// NewFormatter creates a new result formatter
func NewFormatter(options FormatterOptions) *Formatter {
	if options.ContextWindow < 0 {
		options.ContextWindow = 0
	}
	if options.Threshold <= 0 {
		options.Threshold = quote.DefaultHighConfidenceThreshold
	}
	f := &Formatter{
		options: options,
		colors: map[string]*color.Color{
			"id":     color.New(color.FgCyan, color.Bold),
			"method": color.New(color.FgBlue),
			"dim":    color.New(color.FgHiBlack),
			"label":  color.New(color.FgMagenta),
			"header": color.New(color.FgWhite, color.Bold),
		},
	}
	for _, c := range f.colors {
		f.applyMode(c)
	}
	return f
}

func (f *Formatter) applyMode(c *color.Color) *color.Color {
	if f.options.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// confidence returns the color for a score on the red to green ramp
func (f *Formatter) confidence(score float64, extra ...color.Attribute) *color.Color {
	return f.applyMode(color.New(append([]color.Attribute{ConfidenceAttribute(score)}, extra...)...))
}

// Format formats results for display
func (f *Formatter) Format(doc string, items []batch.Item) (string, error) {
	switch f.options.Format {
	case "json":
		return f.formatJSON(items)
	case "compact":
		return f.formatCompact(items), nil
	default:
		return f.formatText(doc, items), nil
	}
}

func (f *Formatter) formatText(doc string, items []batch.Item) string {
	var sb strings.Builder

	for i, it := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		f.appendItem(&sb, doc, it)
	}

	if f.options.ShowSummary && len(items) > 0 {
		sb.WriteString("\n")
		f.appendSummary(&sb, batch.Summarize(items, f.options.Threshold))
	}

	return sb.String()
}

func (f *Formatter) appendItem(sb *strings.Builder, doc string, it batch.Item) {
	sb.WriteString(f.colors["id"].Sprintf("[%s]", it.ID))
	sb.WriteString(" ")

	span, ok := it.Span()
	if !ok {
		reason := it.Error
		if reason == "" {
			reason = "no_candidate"
		}
		sb.WriteString(f.confidence(NoScore()).Sprintf("not located (%s)", reason))
		sb.WriteString("\n")
		fmt.Fprintf(sb, "  query:  %s\n", oneLine(it.Query))
		return
	}

	sb.WriteString(f.colors["method"].Sprint(it.Method))
	sb.WriteString(" ")
	sb.WriteString(f.confidence(it.Confidence, color.Bold).Sprintf("%.1f%% %s", it.Confidence*100, ConfidenceLevel(it.Confidence)))
	sb.WriteString(f.colors["dim"].Sprintf("  line %d, col %d  [%d:%d]", span.Line, span.Col, span.StartOffset, span.EndOffset))
	sb.WriteString("\n")

	before, mid, after := Snippet(doc, span, f.options.ContextWindow)
	sb.WriteString("  ")
	if len(before) < span.StartOffset {
		sb.WriteString(f.colors["dim"].Sprint("..."))
	}
	sb.WriteString(oneLine(before))
	sb.WriteString(f.confidence(it.Confidence, color.Underline).Sprint(oneLine(mid)))
	sb.WriteString(oneLine(after))
	if span.EndOffset+len(after) < len(doc) {
		sb.WriteString(f.colors["dim"].Sprint("..."))
	}
	sb.WriteString("\n")

	if it.Answer != it.MatchedText {
		fmt.Fprintf(sb, "  answer: %s %s\n", oneLine(it.Answer), f.colors["dim"].Sprint("(below threshold, query kept)"))
	}
	if it.Fidelity < 1 {
		sb.WriteString(f.colors["dim"].Sprintf("  fidelity: %.3f\n", it.Fidelity))
	}
}

func (f *Formatter) appendSummary(sb *strings.Builder, s batch.Summary) {
	sb.WriteString(f.colors["header"].Sprint("Summary"))
	fmt.Fprintf(sb, ": %d/%d located, %d above threshold", s.Located, s.Total, s.Trusted)
	if s.Located > 0 {
		fmt.Fprintf(sb, ", mean confidence %.1f%%", s.MeanConfidence*100)
	}
	sb.WriteString("\n")
	for _, m := range s.Methods() {
		fmt.Fprintf(sb, "  %-20s %d\n", m, s.ByMethod[m])
	}
}

// formatCompact writes one tab-separated line per item
func (f *Formatter) formatCompact(items []batch.Item) string {
	var sb strings.Builder
	for _, it := range items {
		span, ok := it.Span()
		if !ok {
			fmt.Fprintf(&sb, "%s\t%s\t-\t-\t%q\n", it.ID, it.Method, it.Query)
			continue
		}
		fmt.Fprintf(&sb, "%s\t%s\t%.4f\t%d:%d\t%q\n", it.ID, it.Method, it.Confidence, span.Line, span.Col, it.MatchedText)
	}
	return sb.String()
}

func (f *Formatter) formatJSON(items []batch.Item) (string, error) {
	if items == nil {
		items = []batch.Item{}
	}
	out := struct {
		Results []batch.Item   `json:"results"`
		Summary *batch.Summary `json:"summary,omitempty"`
	}{Results: items}
	if f.options.ShowSummary {
		s := batch.Summarize(items, f.options.Threshold)
		out.Summary = &s
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return string(data) + "\n", nil
}

// Highlight renders the whole document with every located item marked in
// its confidence color and tagged with its id.
func (f *Formatter) Highlight(doc string, items []batch.Item) string {
	highlights := make([]Highlight, 0, len(items))
	for _, it := range items {
		if span, ok := it.Span(); ok {
			highlights = append(highlights, Highlight{Start: span.StartOffset, End: span.EndOffset, Score: it.Confidence, Label: it.ID})
		}
	}

	var sb strings.Builder
	for _, seg := range Segments(doc, highlights) {
		if !seg.Marked {
			sb.WriteString(seg.Text)
			continue
		}
		if f.options.Color {
			sb.WriteString(f.confidence(seg.Score, color.Underline).Sprint(seg.Text))
		} else {
			sb.WriteString("[" + seg.Text + "]")
		}
		sb.WriteString(f.colors["label"].Sprintf("{%s}", seg.Label))
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for w.
// Auto enables color only on a terminal and honors NO_COLOR.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of w when it is a terminal, else 80.
func TerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// Rule returns a horizontal separator sized for w.
func Rule(w io.Writer) string {
	return strings.Repeat("─", min(TerminalWidth(w), 120))
}
