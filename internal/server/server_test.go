package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testDoc = "The quick brown fox jumps over the lazy dog.\nSecond line here."

func newTestServer(t *testing.T, mutate func(*config.Config)) (*LocateServer, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Batch.Workers = 2
	if mutate != nil {
		mutate(cfg)
	}
	s := NewLocateServer(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, s.Shutdown(context.Background()))
	})
	return s, ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHandleLocate(t *testing.T) {
	_, ts := newTestServer(t, nil)

	body := `{"document": ` + mustJSON(t, testDoc) + `, "quotes": [
		{"id": "a", "text": "lazy dog"},
		{"text": "SECOND LINE"},
		{"id": "c", "text": "123456"}
	]}`
	resp, data := postJSON(t, ts.URL+"/api/locate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var raw struct {
		Results []map[string]interface{} `json:"results"`
		Summary batch.Summary            `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Results, 3)

	a := raw.Results[0]
	assert.Equal(t, "a", a["id"])
	assert.Equal(t, true, a["located"])
	assert.Equal(t, "exact", a["method"])
	assert.EqualValues(t, 35, a["start_offset"])
	assert.EqualValues(t, 43, a["end_offset"])
	assert.Equal(t, "lazy dog", a["answer"])

	b := raw.Results[1]
	assert.Equal(t, "q2", b["id"])
	assert.Equal(t, "case-insensitive", b["method"])
	assert.EqualValues(t, 2, b["line"])
	assert.Equal(t, "Second line", b["matched_text"])

	c := raw.Results[2]
	assert.Equal(t, false, c["located"])
	assert.Nil(t, c["start_offset"])
	assert.Nil(t, c["end_offset"])
	assert.Equal(t, "123456", c["answer"])

	assert.Equal(t, 3, raw.Summary.Total)
	assert.Equal(t, 2, raw.Summary.Located)
}

func TestHandleLocate_Validation(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) {
		c.Server.MaxQuotesPerRequest = 2
	})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"document": `, "invalid JSON body"},
		{"missing document", `{"quotes": [{"text": "x"}]}`, `"document" is required`},
		{"no quotes", `{"document": "abc", "quotes": []}`, "at least one quote"},
		{"too many quotes", `{"document": "abc", "quotes": [{"text": "a"}, {"text": "b"}, {"text": "c"}]}`, "too many quotes"},
		{"bad threshold", `{"document": "abc", "quotes": [{"text": "a"}], "threshold": 1.5}`, "threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := postJSON(t, ts.URL+"/api/locate", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(data, &errResp))
			assert.Contains(t, errResp.Error, tt.want)
		})
	}
}

func TestHandleLocate_EmptyDocumentIsNotAnError(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, data := postJSON(t, ts.URL+"/api/locate", `{"document": "", "quotes": [{"text": "anything"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out LocateResponse
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Results, 1)
	assert.False(t, out.Results[0].Located)
}

func TestHandleLocate_BodyLimit(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) {
		c.Server.MaxBodyBytes = 64
	})

	body := `{"document": "` + strings.Repeat("x", 200) + `", "quotes": [{"text": "x"}]}`
	resp, _ := postJSON(t, ts.URL+"/api/locate", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHandleLocate_ThresholdOverride(t *testing.T) {
	_, ts := newTestServer(t, nil)

	body := `{"document": ` + mustJSON(t, testDoc) + `, "quotes": [{"text": "quick brwn fx jumped"}], "threshold": 0.5}`
	resp, data := postJSON(t, ts.URL+"/api/locate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out LocateResponse
	require.NoError(t, json.Unmarshal(data, &out))
	it := out.Results[0]
	require.True(t, it.Located)
	assert.Equal(t, it.MatchedText, it.Answer)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/locate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPingStatusAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, data := postJSON(t, ts.URL+"/api/locate", `{"document": "hello world", "quotes": [{"text": "world"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	client := NewClient(ts.URL)
	ctx := context.Background()

	ping, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, ping.Version)
	assert.NotEmpty(t, ping.BuildID)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Equal(t, int64(1), status.QuotesSeen)
	assert.Equal(t, int64(1), status.QuotesLocated)
	assert.Equal(t, 2, status.Workers)
	assert.Equal(t, int64(1), status.Cache.Misses)

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	metricsBody, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metricsBody), `semdiff_locate_total{method="exact"} 1`)
	assert.Contains(t, string(metricsBody), `semdiff_http_requests_total{path="/api/locate",status="200"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) {
		c.Server.EnableMetrics = false
		c.Cache.Enabled = false
	})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	status, err := NewClient(ts.URL).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disabled", status.Cache.Health)
}

func TestClientLocate(t *testing.T) {
	_, ts := newTestServer(t, nil)
	client := NewClient(ts.URL)

	out, err := client.Locate(context.Background(), testDoc, []batch.Quote{{ID: "x", Text: "brown fox"}}, 0)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 10, *out.Results[0].StartOffset)

	_, err = client.Locate(context.Background(), testDoc, nil, 0)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, "at least one quote")
}

func TestShutdownEndpoint(t *testing.T) {
	s, ts := newTestServer(t, nil)

	require.NoError(t, NewClient(ts.URL).Shutdown(context.Background(), "test"))

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done to be closed after /shutdown")
	}
}

func TestStartAndShutdown_TCP(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	s := NewLocateServer(cfg)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second Start should fail")

	client := NewClient(s.Addr())
	assert.True(t, client.IsServerRunning(context.Background()))

	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
	http.DefaultTransport.(*http.Transport).CloseIdleConnections()

	assert.False(t, client.IsServerRunning(context.Background()))
}

func TestStartAndShutdown_UnixSocket(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "unix:" + filepath.Join(t.TempDir(), "semdiff.sock")
	s := NewLocateServer(cfg)

	require.NoError(t, s.Start())
	assert.Equal(t, cfg.Server.Addr, s.Addr())

	client := NewClient(s.Addr())
	out, err := client.Locate(context.Background(), "abc def", []batch.Quote{{Text: "def"}}, 0)
	require.NoError(t, err)
	assert.True(t, out.Results[0].Located)
	client.httpClient.CloseIdleConnections()

	require.NoError(t, s.Shutdown(context.Background()))
}

func TestNewClient_Addresses(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:5001", NewClient(":5001").baseURL)
	assert.Equal(t, "http://example.com:80", NewClient("example.com:80").baseURL)
	assert.Equal(t, "https://x.test", NewClient("https://x.test/").baseURL)
	assert.Equal(t, "http://unix", NewClient("unix:/tmp/s.sock").baseURL)
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return strings.TrimSpace(buf.String())
}
