package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/config"
	"github.com/jmcder000/semantic-diff/internal/display"
	"github.com/jmcder000/semantic-diff/internal/docload"
	"github.com/jmcder000/semantic-diff/internal/quote"
)

// locateCommand resolves the quotes given as arguments. It exits 1 when
// none of them is located.
func locateCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return usageError("%v", err)
	}
	if c.NArg() == 0 {
		return usageError("at least one quote is required")
	}

	doc, err := docload.Load(c.String("doc"), docload.Options{})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log, closeLog, err := newLogger(c, cfg, false)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeLog()

	quotes := make([]batch.Quote, c.NArg())
	for i, text := range c.Args().Slice() {
		quotes[i] = batch.Quote{ID: fmt.Sprintf("q%d", i+1), Text: text}
	}

	locator := newLocator(cfg, log)
	items, err := locator.Run(c.Context, doc.Text, quotes)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if err := render(c, cfg, doc.Text, items, len(items) > 1); err != nil {
		return err
	}
	if c.Bool("explain") {
		writeExplain(c.App.Writer, doc.Text, quotes, locator.Options())
	}

	for _, it := range items {
		if it.Located {
			return nil
		}
	}
	return cli.Exit("", exitNotLocated)
}

// batchCommand resolves every quote of a quotes file
func batchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return usageError("%v", err)
	}

	doc, quotes, err := loadInputs(c.App.Reader, c.String("doc"), c.String("quotes"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(quotes) == 0 {
		return usageError("quotes file %s contains no quotes", c.String("quotes"))
	}

	log, closeLog, err := newLogger(c, cfg, false)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeLog()

	items, err := newLocator(cfg, log).Run(c.Context, doc.Text, quotes)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return render(c, cfg, doc.Text, items, true)
}

// loadInputs reads the document and the quotes file, "-" meaning stdin
func loadInputs(stdin io.Reader, docPath, quotesPath string) (*docload.Document, []batch.Quote, error) {
	doc, err := docload.Load(docPath, docload.Options{})
	if err != nil {
		return nil, nil, err
	}

	var r io.Reader = stdin
	if quotesPath != "-" {
		f, err := os.Open(quotesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open quotes file: %w", err)
		}
		defer f.Close()
		r = f
	}

	quotes, err := batch.ReadQuotes(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", quotesPath, err)
	}
	return doc, quotes, nil
}

func outputFormat(c *cli.Context) string {
	if f := c.String("format"); f != "" {
		return f
	}
	if c.Bool("json") {
		return "json"
	}
	return "text"
}

func render(c *cli.Context, cfg *config.Config, doc string, items []batch.Item, summary bool) error {
	format := outputFormat(c)
	switch format {
	case "text", "json", "compact":
	default:
		return usageError("unknown format %q", format)
	}

	formatter := display.NewFormatter(display.FormatterOptions{
		Format:        format,
		ContextWindow: cfg.Display.ContextWindow,
		Threshold:     cfg.Locate.HighConfidenceThreshold,
		ShowSummary:   summary,
		Color:         display.ColorEnabled(cfg.Display.Color, c.App.Writer),
	})

	if c.Bool("highlight") && format == "text" {
		fmt.Fprintln(c.App.Writer, formatter.Highlight(doc, items))
		return nil
	}

	out, err := formatter.Format(doc, items)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

// writeExplain lists the tiers consulted for each quote, in order
func writeExplain(w io.Writer, doc string, quotes []batch.Quote, opts quote.Options) {
	prepared := quote.Prepare(doc)
	for _, q := range quotes {
		_, attempts, err := prepared.Explain(q.Text, opts)
		fmt.Fprintf(w, "\n%s tiers:\n", q.ID)
		for _, a := range attempts {
			state := "miss"
			switch {
			case a.Skipped:
				state = "skipped"
			case a.Accepted:
				state = "accepted"
			case a.Found:
				state = "found"
			}
			fmt.Fprintf(w, "  %-20s %-8s %.4f\n", a.Method, state, a.Score)
		}
		if err != nil {
			fmt.Fprintf(w, "  %s\n", strings.TrimSpace(err.Error()))
		}
	}
}
