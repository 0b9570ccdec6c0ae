package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jmcder000/semantic-diff/internal/batch"
)

// Client talks to a running LocateServer
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for addr, which is either a host:port, a full
// http URL, or "unix:/path/to/socket".
func NewClient(addr string) *Client {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		return &Client{
			httpClient: &http.Client{
				Transport: &http.Transport{
					DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
						var d net.Dialer
						return d.DialContext(ctx, "unix", path)
					},
				},
				Timeout: 30 * time.Second,
			},
			baseURL: "http://unix",
		}
	}

	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		if strings.HasPrefix(base, ":") {
			base = "127.0.0.1" + base
		}
		base = "http://" + base
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(base, "/"),
	}
}

// IsServerRunning checks if the server is accessible
func (c *Client) IsServerRunning(ctx context.Context) bool {
	_, err := c.Ping(ctx)
	return err == nil
}

// Ping sends a health check to the server
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var resp PingResponse
	if err := c.do(ctx, http.MethodGet, "/ping", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to ping server: %w", err)
	}
	return &resp, nil
}

// Status retrieves the server status
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &resp, nil
}

// Locate resolves quotes in document on the server. A threshold of 0 uses
// the server default.
func (c *Client) Locate(ctx context.Context, document string, quotes []batch.Quote, threshold float64) (*LocateResponse, error) {
	req := LocateRequest{
		Document:  &document,
		Quotes:    quotes,
		Threshold: threshold,
	}
	var resp LocateResponse
	if err := c.do(ctx, http.MethodPost, "/api/locate", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to locate: %w", err)
	}
	return &resp, nil
}

// Shutdown requests graceful server shutdown
func (c *Client) Shutdown(ctx context.Context, reason string) error {
	var resp ShutdownResponse
	if err := c.do(ctx, http.MethodPost, "/shutdown", ShutdownRequest{Reason: reason}, &resp); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("shutdown failed: %s", resp.Message)
	}
	return nil
}

// StatusError is a non-2xx reply from the server
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		var errResp ErrorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
