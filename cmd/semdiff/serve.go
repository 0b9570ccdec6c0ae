package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jmcder000/semantic-diff/internal/config"
	"github.com/jmcder000/semantic-diff/internal/debug"
	"github.com/jmcder000/semantic-diff/internal/mcp"
	"github.com/jmcder000/semantic-diff/internal/server"
)

// serveCommand runs the HTTP service until a signal or a /shutdown request
func serveCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return usageError("%v", err)
	}

	log, closeLog, err := newLogger(c, cfg, true)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeLog()

	srv := server.NewLocateServer(cfg, server.WithLogger(log))
	if err := srv.Start(); err != nil {
		return cli.Exit(fmt.Sprintf("failed to start server: %v", err), 1)
	}
	fmt.Fprintf(c.App.Writer, "semdiff listening on %s\n", srv.Addr())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.App.Writer, "\nReceived signal, shutting down...")
	case <-srv.Done():
		fmt.Fprintln(c.App.Writer, "Server shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cli.Exit(fmt.Sprintf("shutdown error: %v", err), 1)
	}

	fmt.Fprintln(c.App.Writer, "Server shut down cleanly")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeoutSec > 0 {
		return time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second
	}
	return 5 * time.Second
}

// statusCommand prints the status of a running service
func statusCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return usageError("%v", err)
	}

	ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
	defer cancel()

	status, err := server.NewClient(cfg.Server.Addr).Status(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("no server reachable at %s: %v", cfg.Server.Addr, err), 1)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "semdiff %s (build %s)\n", status.Version, status.BuildID)
	fmt.Fprintf(w, "  uptime:     %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
	fmt.Fprintf(w, "  requests:   %d\n", status.Requests)
	fmt.Fprintf(w, "  quotes:     %d seen, %d located\n", status.QuotesSeen, status.QuotesLocated)
	fmt.Fprintf(w, "  threshold:  %.2f\n", status.Threshold)
	fmt.Fprintf(w, "  workers:    %d\n", status.Workers)
	fmt.Fprintf(w, "  cache:      %s, %d/%d entries, hit rate %.1f%%\n",
		status.Cache.Health, status.Cache.Entries, status.Cache.MaxEntries, status.Cache.HitRate*100)
	fmt.Fprintf(w, "  memory:     %.1f MB, %d goroutines\n", status.MemoryAllocMB, status.NumGoroutines)
	return nil
}

// shutdownCommand asks a running service to stop
func shutdownCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return usageError("%v", err)
	}

	ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
	defer cancel()

	if err := server.NewClient(cfg.Server.Addr).Shutdown(ctx, "semdiff shutdown"); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "Shutdown requested for %s\n", cfg.Server.Addr)
	return nil
}

// mcpCommand serves MCP over stdio. Nothing but protocol traffic may reach
// stdout, so diagnostics go to a log file.
func mcpCommand(c *cli.Context) error {
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}

	logDir := ""
	if cfg.Logging.File != "" {
		logDir = filepath.Dir(cfg.Logging.File)
	}
	dl := mcp.NewDiagnosticLogger(logDir, cfg.Logging.Level)
	srv := mcp.NewServer(cfg, dl)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		debug.LogMCP("shutdown error: %v\n", err)
	}

	if runErr != nil && ctx.Err() == nil {
		return debug.Fatal("MCP server error: %v\n", runErr)
	}
	return nil
}

// configCommand prints the effective configuration
func configCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return usageError("%v", err)
	}
	data, err := config.MarshalTOML(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	_, err = c.App.Writer.Write(data)
	return err
}
