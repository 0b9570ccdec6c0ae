package server

import (
	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/cache"
)

// Request/response types for the HTTP API

// LocateRequest asks for every quote to be located in Document
type LocateRequest struct {
	Document  *string       `json:"document"`
	Quotes    []batch.Quote `json:"quotes"`
	Threshold float64       `json:"threshold,omitempty"` // 0 = server default
}

// LocateResponse returns one result per quote, in request order
type LocateResponse struct {
	Results    []batch.Item  `json:"results"`
	Summary    batch.Summary `json:"summary"`
	DurationMs float64       `json:"duration_ms"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse describes the running server
type StatusResponse struct {
	Ready         bool        `json:"ready"`
	Version       string      `json:"version"`
	BuildID       string      `json:"build_id"`
	UptimeSeconds float64     `json:"uptime_seconds"`
	Requests      int64       `json:"requests"`
	QuotesSeen    int64       `json:"quotes_seen"`
	QuotesLocated int64       `json:"quotes_located"`
	Threshold     float64     `json:"threshold"`
	Workers       int         `json:"workers"`
	Cache         cache.Stats `json:"cache"`
	NumGoroutines int         `json:"num_goroutines"`
	MemoryAllocMB float64     `json:"memory_alloc_mb"`
}

// ShutdownRequest is for graceful shutdown
type ShutdownRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ShutdownResponse is the response to a shutdown request
type ShutdownResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PingResponse is the response to a health check
type PingResponse struct {
	Uptime  float64 `json:"uptime_seconds"`
	Version string  `json:"version"`
	BuildID string  `json:"build_id"`
}
