// Package logger provides structured logging for semdiff
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with semdiff-specific helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // trace, debug, info, warn, error, disabled
	Pretty     bool   // console output for humans
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "semdiff").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Zerolog returns the underlying zerolog logger
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// Component returns a child logger tagged with the component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", name).Logger()}
}

// LogRequest logs a completed HTTP request
func (l *Logger) LogRequest(method, path string, status int, duration time.Duration) {
	event := l.zlog.Info()
	if status >= 500 {
		event = l.zlog.Error()
	} else if status >= 400 {
		event = l.zlog.Warn()
	}

	event.
		Str("component", "http").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("request completed")
}

// LogLocate logs the outcome of resolving one quote
func (l *Logger) LogLocate(id, method string, confidence float64, duration time.Duration, err error) {
	if err != nil {
		l.zlog.Warn().
			Str("component", "locate").
			Str("id", id).
			Dur("duration_ms", duration).
			Err(err).
			Msg("quote not located")
		return
	}

	l.zlog.Debug().
		Str("component", "locate").
		Str("id", id).
		Str("method", method).
		Float64("confidence", confidence).
		Dur("duration_ms", duration).
		Msg("quote located")
}

// LogBatch logs a completed batch run
func (l *Logger) LogBatch(quotes, located int, duration time.Duration) {
	l.zlog.Info().
		Str("component", "batch").
		Int("quotes", quotes).
		Int("located", located).
		Dur("duration_ms", duration).
		Msg("batch completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(addr string) {
	l.zlog.Info().
		Str("event", "server_start").
		Str("addr", addr).
		Msg("semdiff server starting")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown(reason string) {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Str("reason", reason).
		Msg("semdiff server shutting down")
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitGlobal initializes the global logger
func InitGlobal(cfg Config) *Logger {
	l := New(cfg)
	globalMu.Lock()
	globalLogger = l
	log.Logger = l.zlog
	globalMu.Unlock()
	return l
}

// Global returns the global logger, initializing it with defaults if unset
func Global() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	return InitGlobal(Config{Level: "info"})
}
