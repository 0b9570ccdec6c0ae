// Package mcp exposes quote localization as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/cache"
	"github.com/jmcder000/semantic-diff/internal/config"
	sderrors "github.com/jmcder000/semantic-diff/internal/errors"
	"github.com/jmcder000/semantic-diff/internal/quote"
	"github.com/jmcder000/semantic-diff/internal/version"
)

const serverName = "semdiff-mcp-server"

// Server serves the locate tools to one MCP client
type Server struct {
	cfg              *config.Config
	server           *mcp.Server
	locator          *batch.Locator
	cache            *cache.DocumentCache
	diagnosticLogger *DiagnosticLogger
	startTime        time.Time
}

// LocateQuoteParams are the arguments of the locate_quote tool
type LocateQuoteParams struct {
	Document  string  `json:"document"`
	Quote     string  `json:"quote"`
	Threshold float64 `json:"threshold,omitempty"`
	Context   int     `json:"context,omitempty"`
	Explain   bool    `json:"explain,omitempty"`
}

// LocateQuotesParams are the arguments of the locate_quotes tool. Quotes
// may be plain strings or {"id", "text"} objects.
type LocateQuotesParams struct {
	Document  string          `json:"document"`
	Quotes    json.RawMessage `json:"quotes"`
	Threshold float64         `json:"threshold,omitempty"`
}

// InfoParams are the arguments of the info tool
type InfoParams struct {
	Tool string `json:"tool,omitempty"`
}

// LocateQuoteResponse is one located item with its surrounding text
type LocateQuoteResponse struct {
	batch.Item
	Before   string          `json:"before,omitempty"`
	After    string          `json:"after,omitempty"`
	Attempts []quote.Attempt `json:"attempts,omitempty"`
}

// LocateQuotesResponse is the result of a locate_quotes call
type LocateQuotesResponse struct {
	Results []batch.Item  `json:"results"`
	Summary batch.Summary `json:"summary"`
}

// NewServer creates an MCP server from configuration. dl receives every
// diagnostic line; pass nil to discard them.
func NewServer(cfg *config.Config, dl *DiagnosticLogger) *Server {
	if dl == nil {
		dl = NewDiagnosticLoggerWithWriter(io.Discard, "disabled")
	}

	s := &Server{
		cfg:              cfg,
		diagnosticLogger: dl,
		startTime:        time.Now(),
	}

	if cfg.Cache.Enabled {
		cc := cache.DefaultConfig()
		if cfg.Cache.MaxDocuments > 0 {
			cc.MaxEntries = cfg.Cache.MaxDocuments
		}
		// the server is stdio-bound to one client; no cleanup goroutine
		cc.CleanupInterval = 0
		s.cache = cache.New(cc, nil)
	}

	s.locator = batch.New(batch.Config{
		Options: cfg.Locate.Options(),
		Workers: cfg.Batch.Workers,
		Cache:   s.cache,
		Logger:  dl.Logger(),
	})

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version.Version,
	}, nil)
	s.registerTools()

	dl.Printf("MCP server initialized (threshold %.2f, workers %d)", s.locator.Threshold(), s.locator.Workers())
	return s
}

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: "Describe the available tools and the server version. Use {\"tool\": \"locate_quote\"} for parameter details.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tool": {
					Type:        "string",
					Description: "Tool name to describe (locate_quote, locate_quotes, version)",
				},
			},
		},
	}, s.handleInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        "locate_quote",
		Description: "Find where a possibly paraphrased or mistyped quote occurs in a document. Returns byte offsets, line/col, the matching method, a confidence in [0,1] and the document's own text for the span.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"document": {
					Type:        "string",
					Description: "Full document text",
				},
				"quote": {
					Type:        "string",
					Description: "Text to locate",
				},
				"threshold": {
					Type:        "number",
					Description: "Confidence at or above which the document text replaces the quote as the answer (default from config)",
				},
				"context": {
					Type:        "integer",
					Description: "Bytes of surrounding text to return on each side",
				},
				"explain": {
					Type:        "boolean",
					Description: "Include every matching tier consulted",
				},
			},
			Required: []string{"document", "quote"},
		},
	}, s.handleLocateQuote)

	s.server.AddTool(&mcp.Tool{
		Name:        "locate_quotes",
		Description: "Locate many quotes in one document. Results keep input order; unlocated quotes are reported with located=false.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"document": {
					Type:        "string",
					Description: "Full document text",
				},
				"quotes": {
					Type:        "array",
					Description: "Quotes as strings or {\"id\", \"text\"} objects",
				},
				"threshold": {
					Type:        "number",
					Description: "Confidence threshold for answer selection",
				},
			},
			Required: []string{"document", "quotes"},
		},
	}, s.handleLocateQuotes)
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params InfoParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return createErrorResponse("info", fmt.Errorf("invalid parameters: %w", err))
		}
	}

	switch strings.ToLower(strings.TrimSpace(params.Tool)) {
	case "version":
		return createJSONResponse(map[string]interface{}{
			"server_name":    serverName,
			"server_version": version.FullInfo(),
			"build_id":       version.BuildID(),
			"go_version":     runtime.Version(),
			"platform":       runtime.GOOS + "/" + runtime.GOARCH,
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		})
	case "locate_quote":
		return createJSONResponse(map[string]interface{}{
			"name":        "locate_quote",
			"parameters":  []string{"document (required)", "quote (required)", "threshold", "context", "explain"},
			"methods":     quote.Methods,
			"threshold":   s.locator.Threshold(),
			"example":     map[string]interface{}{"document": "The quick brown fox.", "quote": "quick brwn fox"},
			"answer_rule": "answer is the document text when confidence >= threshold, otherwise the quote as given",
		})
	case "locate_quotes":
		return createJSONResponse(map[string]interface{}{
			"name":       "locate_quotes",
			"parameters": []string{"document (required)", "quotes (required)", "threshold"},
			"example":    map[string]interface{}{"document": "The quick brown fox.", "quotes": []string{"quick", "fox"}},
		})
	case "":
		return createJSONResponse(map[string]interface{}{
			"server": serverName,
			"tools":  []string{"info", "locate_quote", "locate_quotes"},
		})
	default:
		return createErrorResponse("info", fmt.Errorf("unknown tool %q", params.Tool))
	}
}

func (s *Server) handleLocateQuote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("locate_quote", func() (*mcp.CallToolResult, error) {
		var params LocateQuoteParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if err := validateThreshold(params.Threshold); err != nil {
			return nil, err
		}
		if params.Quote == "" {
			return nil, sderrors.NewLocateError(sderrors.ErrorTypeEmptyQuery, sderrors.ErrEmptyQuery)
		}

		items, err := s.locator.WithThreshold(params.Threshold).Run(ctx, params.Document, []batch.Quote{{ID: "q1", Text: params.Quote}})
		if err != nil {
			return nil, err
		}

		resp := LocateQuoteResponse{Item: items[0]}
		if span, ok := resp.Span(); ok && params.Context > 0 {
			res := quote.MatchResult{Span: span}
			resp.Before, _, resp.After = res.Snippet(params.Document, params.Context)
		}
		if params.Explain {
			_, resp.Attempts, _ = s.cache.Get(params.Document).Explain(params.Quote, s.locator.WithThreshold(params.Threshold).Options())
		}

		s.diagnosticLogger.Printf("locate_quote method=%s located=%t confidence=%.3f", resp.Method, resp.Located, resp.Confidence)
		return createJSONResponse(resp)
	})
}

func (s *Server) handleLocateQuotes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("locate_quotes", func() (*mcp.CallToolResult, error) {
		var params LocateQuotesParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if err := validateThreshold(params.Threshold); err != nil {
			return nil, err
		}
		if len(params.Quotes) == 0 {
			return nil, fmt.Errorf("quotes is required")
		}

		quotes, err := batch.ReadQuotes(strings.NewReader(string(params.Quotes)))
		if err != nil {
			return nil, err
		}

		locator := s.locator.WithThreshold(params.Threshold)
		items, err := locator.Run(ctx, params.Document, quotes)
		if err != nil {
			return nil, err
		}

		summary := batch.Summarize(items, locator.Threshold())
		s.diagnosticLogger.Printf("locate_quotes total=%d located=%d", summary.Total, summary.Located)
		return createJSONResponse(LocateQuotesResponse{Results: items, Summary: summary})
	})
}

func validateThreshold(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", t)
	}
	return nil
}

// recoverFromPanic runs handler, turning both errors and panics into
// IsError results
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnosticLogger.Errorf("PANIC RECOVERED in %s: %v\n%s", operation, r, debug.Stack())
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		s.diagnosticLogger.Errorf("error in %s: %v", operation, err)
		return createErrorResponse(operation, err)
	}
	return result, nil
}

// Start serves tools over stdio until ctx is cancelled or the client
// disconnects
func (s *Server) Start(ctx context.Context) error {
	s.diagnosticLogger.Printf("Starting MCP server with stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves tools on an arbitrary transport, used by tests with
// in-memory transports
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Shutdown releases the document cache and flushes the diagnostic log
func (s *Server) Shutdown(ctx context.Context) error {
	s.diagnosticLogger.Printf("MCP server shutdown complete")
	s.cache.Close()
	return s.diagnosticLogger.Close()
}

// GetHandlerForTesting returns a tool handler by name
func (s *Server) GetHandlerForTesting(toolName string) mcp.ToolHandler {
	switch toolName {
	case "info":
		return s.handleInfo
	case "locate_quote":
		return s.handleLocateQuote
	case "locate_quotes":
		return s.handleLocateQuotes
	default:
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return createErrorResponse("GetHandlerForTesting", fmt.Errorf("unknown tool: %s", toolName))
		}
	}
}
