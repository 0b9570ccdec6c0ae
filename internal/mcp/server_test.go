package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcder000/semantic-diff/internal/config"
)

const testDoc = "The quick brown fox jumps over the lazy dog.\nSecond line here."

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Batch.Workers = 2
	s := NewServer(cfg, nil)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *mcp.CallToolResult {
	t.Helper()
	paramsJSON, err := json.Marshal(args)
	require.NoError(t, err)

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: paramsJSON,
		},
	}
	result, err := s.GetHandlerForTesting(name)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func decodeText(t *testing.T, result *mcp.CallToolResult, out interface{}) {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	require.NoError(t, json.Unmarshal([]byte(text.Text), out), text.Text)
}

func TestLocateQuote_Exact(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "locate_quote", map[string]interface{}{
		"document": testDoc,
		"quote":    "brown fox",
		"context":  6,
	})
	assert.False(t, result.IsError)

	var resp LocateQuoteResponse
	decodeText(t, result, &resp)
	assert.True(t, resp.Located)
	assert.Equal(t, "exact", resp.Method)
	assert.Equal(t, 10, *resp.StartOffset)
	assert.Equal(t, 19, *resp.EndOffset)
	assert.Equal(t, "brown fox", resp.Answer)
	assert.Equal(t, "quick ", resp.Before)
	assert.Equal(t, " jumps", resp.After)
	assert.Empty(t, resp.Attempts)
}

func TestLocateQuote_ExplainListsTiers(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "locate_quote", map[string]interface{}{
		"document": testDoc,
		"quote":    "SECOND LINE",
		"explain":  true,
	})
	require.False(t, result.IsError)

	var resp LocateQuoteResponse
	decodeText(t, result, &resp)
	assert.Equal(t, "case-insensitive", resp.Method)
	require.Len(t, resp.Attempts, 2)
	assert.Equal(t, "exact", string(resp.Attempts[0].Method))
	assert.True(t, resp.Attempts[1].Accepted)
}

func TestLocateQuote_UnlocatedIsNotAnError(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "locate_quote", map[string]interface{}{
		"document": testDoc,
		"quote":    "123456",
	})
	assert.False(t, result.IsError)

	var resp LocateQuoteResponse
	decodeText(t, result, &resp)
	assert.False(t, resp.Located)
	assert.Nil(t, resp.StartOffset)
	assert.Equal(t, "no_match", resp.Method)
	assert.Equal(t, "no_candidate", resp.Error)
	assert.Equal(t, "123456", resp.Answer)
}

func TestLocateQuote_InvalidInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"empty quote", map[string]interface{}{"document": testDoc, "quote": ""}, "empty_query"},
		{"bad threshold", map[string]interface{}{"document": testDoc, "quote": "fox", "threshold": 2}, "threshold"},
		{"wrong type", map[string]interface{}{"document": 42, "quote": "fox"}, "invalid parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, s, "locate_quote", tt.args)
			assert.True(t, result.IsError)

			var body map[string]interface{}
			decodeText(t, result, &body)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "locate_quote", body["operation"])
			assert.NotEmpty(t, body["help"])

			raw, _ := json.Marshal(body)
			assert.Contains(t, string(raw), tt.want)
		})
	}
}

func TestLocateQuotes(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "locate_quotes", map[string]interface{}{
		"document": testDoc,
		"quotes": []interface{}{
			"lazy dog",
			map[string]string{"id": "second", "text": "Second line"},
			"123456",
		},
	})
	require.False(t, result.IsError)

	var resp LocateQuotesResponse
	decodeText(t, result, &resp)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "q1", resp.Results[0].ID)
	assert.Equal(t, "second", resp.Results[1].ID)
	assert.False(t, resp.Results[2].Located)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 2, resp.Summary.Located)
}

func TestLocateQuotes_MissingQuotes(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "locate_quotes", map[string]interface{}{"document": testDoc})
	assert.True(t, result.IsError)
}

func TestInfo(t *testing.T) {
	s := newTestServer(t)

	var overview map[string]interface{}
	decodeText(t, callTool(t, s, "info", map[string]interface{}{}), &overview)
	assert.ElementsMatch(t, []interface{}{"info", "locate_quote", "locate_quotes"}, overview["tools"])

	var ver map[string]interface{}
	decodeText(t, callTool(t, s, "info", map[string]interface{}{"tool": "Version"}), &ver)
	assert.Equal(t, serverName, ver["server_name"])
	assert.NotEmpty(t, ver["build_id"])

	assert.True(t, callTool(t, s, "info", map[string]interface{}{"tool": "nope"}).IsError)
}

func TestUnknownHandler(t *testing.T) {
	s := newTestServer(t)
	assert.True(t, callTool(t, s, "missing", map[string]interface{}{}).IsError)
}

func TestInMemorySession(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "semdiff-test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"info", "locate_quote", "locate_quotes"}, names)

	result, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "locate_quote",
		Arguments: map[string]interface{}{"document": testDoc, "quote": "over the lazy"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp LocateQuoteResponse
	decodeText(t, result, &resp)
	assert.Equal(t, 26, *resp.StartOffset)

	require.NoError(t, cs.Close())
	ss.Wait()
}

func TestDiagnosticLogger_WritesToFile(t *testing.T) {
	dir := t.TempDir()
	dl := NewDiagnosticLogger(dir, "info")
	require.NotEmpty(t, dl.LogPath())
	assert.Equal(t, dir, filepath.Dir(dl.LogPath()))

	dl.Printf("hello %d", 1)
	dl.Errorf("bad %s", "thing")
	require.NoError(t, dl.Close())
	require.NoError(t, dl.Close())

	data, err := os.ReadFile(dl.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello 1"`)
	assert.Contains(t, string(data), `"level":"error"`)
	assert.Contains(t, string(data), `"component":"mcp"`)
}

func TestDiagnosticLogger_Writer(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDiagnosticLoggerWithWriter(&buf, "warn")
	dl.Printf("dropped")
	dl.Errorf("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	var nilLogger *DiagnosticLogger
	nilLogger.Printf("no panic")
	assert.Empty(t, nilLogger.LogPath())
	assert.NoError(t, nilLogger.Close())
}
