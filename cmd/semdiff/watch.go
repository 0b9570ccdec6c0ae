package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/cache"
	"github.com/jmcder000/semantic-diff/internal/display"
	"github.com/jmcder000/semantic-diff/internal/watch"
)

// watchCommand runs a batch, then runs it again every time the document or
// the quotes file changes, until interrupted
func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return usageError("%v", err)
	}

	log, closeLog, err := newLogger(c, cfg, false)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeLog()

	// keeps the prepared document across runs when only the quotes change
	docs := cache.New(cache.Config{MaxEntries: 2}, nil)
	defer docs.Close()

	locator := batch.New(batch.Config{
		Options: cfg.Locate.Options(),
		Workers: cfg.Batch.Workers,
		Cache:   docs,
		Logger:  log,
	})

	docPath, quotesPath := c.String("doc"), c.String("quotes")
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	run := func() {
		mu.Lock()
		defer mu.Unlock()

		doc, quotes, err := loadInputs(c.App.Reader, docPath, quotesPath)
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "semdiff watch: %v\n", err)
			return
		}
		items, err := locator.Run(ctx, doc.Text, quotes)
		if err != nil {
			return
		}
		fmt.Fprintln(c.App.Writer, display.Rule(c.App.Writer))
		if err := render(c, cfg, doc.Text, items, true); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "semdiff watch: %v\n", err)
		}
	}

	run()

	fw, err := watch.NewFileWatcher([]string{docPath, quotesPath}, c.Duration("debounce"), func([]string) { run() }, log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := fw.Start(); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer fw.Stop()

	fmt.Fprintf(c.App.ErrWriter, "watching %s and %s (Ctrl-C to stop)\n", docPath, quotesPath)
	<-ctx.Done()
	return nil
}
