package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/cache"
	"github.com/jmcder000/semantic-diff/internal/config"
	"github.com/jmcder000/semantic-diff/internal/debug"
	"github.com/jmcder000/semantic-diff/internal/logger"
	"github.com/jmcder000/semantic-diff/internal/metrics"
	"github.com/jmcder000/semantic-diff/internal/version"
)

// LocateServer serves quote localization over HTTP
type LocateServer struct {
	cfg     *config.Config
	locator *batch.Locator
	cache   *cache.DocumentCache
	metrics *metrics.Metrics
	log     *logger.Logger

	listener     net.Listener
	server       *http.Server
	startTime    time.Time
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool

	requests      int64
	quotesSeen    int64
	quotesLocated int64
}

// Option customizes a LocateServer
type Option func(*LocateServer)

// WithLogger sets the service logger
func WithLogger(l *logger.Logger) Option {
	return func(s *LocateServer) { s.log = l }
}

// WithMetrics replaces the server's metrics registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LocateServer) { s.metrics = m }
}

// NewLocateServer creates a server from configuration. The document cache
// runs a background cleanup goroutine that Shutdown stops.
func NewLocateServer(cfg *config.Config, opts ...Option) *LocateServer {
	s := &LocateServer{
		cfg:          cfg,
		startTime:    time.Now(),
		shutdownChan: make(chan struct{}),
		log:          logger.Nop(),
	}
	if cfg.Server.EnableMetrics {
		s.metrics = metrics.New()
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Component("http")

	if cfg.Cache.Enabled {
		cc := cache.DefaultConfig()
		if cfg.Cache.MaxDocuments > 0 {
			cc.MaxEntries = cfg.Cache.MaxDocuments
		}
		s.cache = cache.New(cc, s.metrics)
	}

	s.locator = batch.New(batch.Config{
		Options: cfg.Locate.Options(),
		Workers: cfg.Batch.Workers,
		Cache:   s.cache,
		Metrics: s.metrics,
		Logger:  s.log,
	})

	return s
}

// Handler returns the HTTP handler with every endpoint registered
func (s *LocateServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHandlers(mux)
	return mux
}

// registerHandlers sets up the API endpoints
func (s *LocateServer) registerHandlers(mux *http.ServeMux) {
	mux.Handle("POST /api/locate", s.instrument("/api/locate", s.handleLocate))
	mux.Handle("GET /ping", s.instrument("/ping", s.handlePing))
	mux.Handle("GET /status", s.instrument("/status", s.handleStatus))
	mux.Handle("POST /shutdown", s.instrument("/shutdown", s.handleShutdown))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with the request timeout, metrics and the
// access log line
func (s *LocateServer) instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		done := s.metrics.TrackInFlight()
		defer done()
		atomic.AddInt64(&s.requests, 1)

		if timeout := time.Duration(s.cfg.Server.RequestTimeoutSec) * time.Second; timeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			r = r.WithContext(ctx)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		elapsed := time.Since(started)
		s.metrics.RecordHTTPRequest(path, rec.status, elapsed)
		s.log.LogRequest(r.Method, path, rec.status, elapsed)
	})
}

// handleLocate resolves a batch of quotes against one document
func (s *LocateServer) handleLocate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var req LocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.validateLocate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.locator.WithThreshold(req.Threshold).Run(r.Context(), *req.Document, req.Quotes)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, "locate aborted: "+err.Error())
		return
	}

	summary := batch.Summarize(items, s.threshold(req.Threshold))
	atomic.AddInt64(&s.quotesSeen, int64(summary.Total))
	atomic.AddInt64(&s.quotesLocated, int64(summary.Located))

	writeJSON(w, http.StatusOK, LocateResponse{
		Results:    items,
		Summary:    summary,
		DurationMs: float64(time.Since(started).Microseconds()) / 1000,
	})
}

func (s *LocateServer) validateLocate(req *LocateRequest) error {
	if req.Document == nil {
		return errors.New(`"document" is required`)
	}
	if len(req.Quotes) == 0 {
		return errors.New(`"quotes" must contain at least one quote`)
	}
	if limit := s.cfg.Server.MaxQuotesPerRequest; limit > 0 && len(req.Quotes) > limit {
		return fmt.Errorf("too many quotes: %d (limit %d)", len(req.Quotes), limit)
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return fmt.Errorf(`"threshold" must be in (0, 1], got %v`, req.Threshold)
	}
	for i := range req.Quotes {
		if req.Quotes[i].ID == "" {
			req.Quotes[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return nil
}

func (s *LocateServer) threshold(override float64) float64 {
	if override > 0 {
		return override
	}
	return s.locator.Threshold()
}

// handlePing responds to health check requests
func (s *LocateServer) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{
		Uptime:  time.Since(s.startTime).Seconds(),
		Version: version.Version,
		BuildID: version.BuildID(),
	})
}

// handleStatus reports counters, cache health and memory usage
func (s *LocateServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	writeJSON(w, http.StatusOK, StatusResponse{
		Ready:         true,
		Version:       version.Version,
		BuildID:       version.BuildID(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Requests:      atomic.LoadInt64(&s.requests),
		QuotesSeen:    atomic.LoadInt64(&s.quotesSeen),
		QuotesLocated: atomic.LoadInt64(&s.quotesLocated),
		Threshold:     s.locator.Threshold(),
		Workers:       s.locator.Workers(),
		Cache:         s.cache.Stats(),
		NumGoroutines: runtime.NumGoroutine(),
		MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
	})
}

// handleShutdown signals Wait to return once the response is written
func (s *LocateServer) handleShutdown(w http.ResponseWriter, r *http.Request) {
	var req ShutdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// empty body is fine
		req = ShutdownRequest{}
	}
	reason := req.Reason
	if reason == "" {
		reason = "shutdown requested"
	}

	writeJSON(w, http.StatusOK, ShutdownResponse{
		Success: true,
		Message: "Server shutting down",
	})

	s.log.LogServerShutdown(reason)
	s.signalShutdown()
}

func (s *LocateServer) signalShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
}

// Start listens on the configured address. An address of the form
// "unix:/path" listens on a Unix socket.
func (s *LocateServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	network, address := splitAddr(s.cfg.Server.Addr)
	if network == "unix" {
		os.Remove(address)
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	if network == "unix" {
		os.Chmod(address, 0o600)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve failed").Err(err).Send()
		}
	}()

	s.log.LogServerStart(listener.Addr().String())
	debug.Log("HTTP", "listening on %s (pid %d)\n", listener.Addr(), os.Getpid())
	return nil
}

// Addr returns the bound listener address, useful with port 0
func (s *LocateServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	if s.listener.Addr().Network() == "unix" {
		return "unix:" + s.listener.Addr().String()
	}
	return s.listener.Addr().String()
}

// Done is closed when a client requests shutdown
func (s *LocateServer) Done() <-chan struct{} {
	return s.shutdownChan
}

// Wait blocks until a client requests shutdown
func (s *LocateServer) Wait() {
	<-s.shutdownChan
}

// Shutdown stops the HTTP server and the cache cleanup goroutine
func (s *LocateServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()

	defer s.cache.Close()
	defer s.signalShutdown()

	if !running {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.wg.Wait()

	if network, address := splitAddr(s.cfg.Server.Addr); network == "unix" {
		os.Remove(address)
	}

	debug.Log("HTTP", "server shut down cleanly\n")
	return nil
}

func splitAddr(addr string) (network, address string) {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		return "unix", path
	}
	return "tcp", addr
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Log("HTTP", "failed to encode response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
