package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/config"
	"github.com/jmcder000/semantic-diff/internal/debug"
	"github.com/jmcder000/semantic-diff/internal/logger"
	"github.com/jmcder000/semantic-diff/internal/version"
)

// Exit codes
const (
	exitNotLocated = 1
	exitUsage      = 2
)

func main() {
	app := newApp(os.Stdout, os.Stderr, os.Stdin)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer, stdin io.Reader) *cli.App {
	return &cli.App{
		Name:                   "semdiff",
		Usage:                  "Find where quoted text occurs in a document, tolerating typos and paraphrase",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Reader:                 stdin,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.kdl or .toml)",
				Value:   config.KDLFileName,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write debug output to a file under the temp dir",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: `Color output: "auto", "always" or "never" (overrides config)`,
			},
		},
		Before: func(c *cli.Context) error {
			switch {
			case c.Bool("debug-log"):
				debug.EnableDebug = "true"
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Fprintf(c.App.ErrWriter, "debug log: %s\n", path)
			case c.Bool("verbose"):
				debug.EnableDebug = "true"
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			{
				Name:      "locate",
				Aliases:   []string{"l"},
				Usage:     "Locate one or more quotes in a document",
				ArgsUsage: "QUOTE...",
				Flags: append(documentFlags(),
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Show every matching tier consulted",
					},
				),
				Action: locateCommand,
			},
			{
				Name:    "batch",
				Aliases: []string{"b"},
				Usage:   "Locate every quote of a JSON quotes file in a document",
				Flags: append(documentFlags(),
					&cli.StringFlag{
						Name:     "quotes",
						Aliases:  []string{"q"},
						Usage:    `Quotes JSON file, or "-" for stdin`,
						Required: true,
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent quotes (0 = config)",
					},
				),
				Action: batchCommand,
			},
			{
				Name:  "watch",
				Usage: "Re-run a batch whenever the document or quotes file changes",
				Flags: append(documentFlags(),
					&cli.StringFlag{
						Name:     "quotes",
						Aliases:  []string{"q"},
						Usage:    "Quotes JSON file",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before re-running",
						Value: 200 * time.Millisecond,
					},
				),
				Action: watchCommand,
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP locate service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   `Listen address, "host:port" or "unix:/path" (overrides config)`,
					},
				},
				Action: serveCommand,
			},
			{
				Name:  "status",
				Usage: "Show the status of a running service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Service address (overrides config)",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: statusCommand,
			},
			{
				Name:  "shutdown",
				Usage: "Ask a running service to shut down",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Service address (overrides config)",
					},
				},
				Action: shutdownCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve locate tools over MCP stdio",
				Action: mcpCommand,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration as TOML",
				Action: configCommand,
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
	}
}

// documentFlags are shared by every command that reads a document and
// renders results
func documentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "doc",
			Aliases:  []string{"d"},
			Usage:    "Document file (.pdf or text)",
			Required: true,
		},
		&cli.Float64Flag{
			Name:    "threshold",
			Aliases: []string{"t"},
			Usage:   "Confidence at which the document text becomes the answer (overrides config)",
		},
		&cli.IntFlag{
			Name:  "context",
			Usage: "Bytes of context around each match (overrides config)",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: `Output format: "text", "json" or "compact"`,
		},
		&cli.BoolFlag{
			Name:  "highlight",
			Usage: "Print the whole document with matches marked",
		},
	}
}

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.IsSet("config") {
		cfg, err = config.Load(c.String("config"))
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("threshold") {
		cfg.Locate.HighConfidenceThreshold = c.Float64("threshold")
	}
	if c.IsSet("workers") {
		cfg.Batch.Workers = c.Int("workers")
	}
	if c.IsSet("context") {
		cfg.Display.ContextWindow = c.Int("context")
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("color") {
		cfg.Display.Color = c.String("color")
	}
	if c.Bool("verbose") {
		cfg.Logging.Level = "debug"
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	debug.Printf("config: threshold=%.2f workers=%d cache=%t addr=%s\n",
		cfg.Locate.HighConfidenceThreshold, cfg.Batch.Workers, cfg.Cache.Enabled, cfg.Server.Addr)
	return cfg, nil
}

// newLogger builds the service logger. One-shot commands stay quiet unless
// --verbose is given.
func newLogger(c *cli.Context, cfg *config.Config, service bool) (*logger.Logger, func(), error) {
	if !service && !c.Bool("verbose") {
		return logger.Nop(), func() {}, nil
	}

	out := c.App.ErrWriter
	closeFn := func() {}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}

	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: out,
	}), closeFn, nil
}

func newLocator(cfg *config.Config, log *logger.Logger) *batch.Locator {
	return batch.New(batch.Config{
		Options: cfg.Locate.Options(),
		Workers: cfg.Batch.Workers,
		Logger:  log,
	})
}

// usageError reports bad invocation with exit code 2
func usageError(format string, args ...interface{}) error {
	return cli.Exit(fmt.Sprintf(format, args...), exitUsage)
}
