package mcp

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmcder000/semantic-diff/internal/logger"
)

// DiagnosticLogger handles all diagnostic output for the MCP server.
// Output goes to a file, never to stdout or stderr, since the protocol owns
// stdio.
type DiagnosticLogger struct {
	mu       sync.Mutex
	file     *os.File
	log      *logger.Logger
	filePath string
}

// NewDiagnosticLogger creates a JSON logger writing to a timestamped file in
// dir. An empty dir uses the system temp directory. When no file can be
// created, output is discarded rather than breaking the server.
func NewDiagnosticLogger(dir, level string) *DiagnosticLogger {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "semdiff-mcp-logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		dir = filepath.Join(home, ".semdiff-mcp-logs")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return NewDiagnosticLoggerWithWriter(io.Discard, level)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("mcp-%s.log", time.Now().Format("2006-01-02T150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return NewDiagnosticLoggerWithWriter(io.Discard, level)
	}

	dl := NewDiagnosticLoggerWithWriter(file, level)
	dl.file = file
	dl.filePath = path
	return dl
}

// NewDiagnosticLoggerWithWriter logs to w. Tests use it with a buffer.
func NewDiagnosticLoggerWithWriter(w io.Writer, level string) *DiagnosticLogger {
	return &DiagnosticLogger{
		log: logger.New(logger.Config{Level: level, Output: w}).Component("mcp"),
	}
}

// Logger returns the structured logger behind the diagnostic output.
func (dl *DiagnosticLogger) Logger() *logger.Logger {
	if dl == nil {
		return logger.Nop()
	}
	return dl.log
}

func (dl *DiagnosticLogger) Printf(format string, v ...interface{}) {
	if dl == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.log.Info(fmt.Sprintf(format, v...)).Send()
}

func (dl *DiagnosticLogger) Errorf(format string, v ...interface{}) {
	if dl == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.log.Error(fmt.Sprintf(format, v...)).Send()
}

// Close closes the log file if one is open.
func (dl *DiagnosticLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file != nil {
		err := dl.file.Close()
		dl.file = nil
		return err
	}
	return nil
}

// LogPath returns the path of the log file, or "" when not writing to one.
func (dl *DiagnosticLogger) LogPath() string {
	if dl == nil {
		return ""
	}
	return dl.filePath
}
