package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/jmcder000/semantic-diff/internal/batch"
	"github.com/jmcder000/semantic-diff/internal/config"
	"github.com/jmcder000/semantic-diff/internal/debug"
	"github.com/jmcder000/semantic-diff/internal/server"
)

const sampleDoc = "The quick brown fox jumps over the lazy dog.\nSecond line here."

type runResult struct {
	stdout string
	stderr string
	err    error
}

// exitCode returns the code an ExitCoder error would exit with, 0 for nil
func (r runResult) exitCode() int {
	if r.err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(r.err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

// runCLI runs the app in-process with a config path that does not exist so
// only defaults apply
func runCLI(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr, strings.NewReader(stdin))
	app.ExitErrHandler = func(*cli.Context, error) {}

	cfgPath := filepath.Join(t.TempDir(), "absent.kdl")
	argv := append([]string{"semdiff", "--config", cfgPath, "--color", "never"}, args...)
	err := app.Run(argv)
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocate_TextOutput(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, "", "locate", "--doc", doc, "--context", "4", "lazy dog")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "[q1] exact 100.0% HIGH")
	assert.Contains(t, r.stdout, "line 1, col 36  [35:43]")
	assert.Contains(t, r.stdout, "...the lazy dog. Se...")
}

func TestLocate_JSONOutput(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, "", "locate", "--doc", doc, "--json", "brown fox", "123456")
	require.NoError(t, r.err)

	var out struct {
		Results []batch.Item  `json:"results"`
		Summary batch.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &out), r.stdout)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "q1", out.Results[0].ID)
	assert.Equal(t, 10, *out.Results[0].StartOffset)
	assert.False(t, out.Results[1].Located)
	assert.Equal(t, 1, out.Summary.Located)
}

func TestLocate_ExitCodes(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, "", "locate", "--doc", doc)
	assert.Equal(t, exitUsage, r.exitCode())

	r = runCLI(t, "", "locate", "--doc", doc, "123456")
	assert.Equal(t, exitNotLocated, r.exitCode())
	assert.Contains(t, r.stdout, "not located (no_candidate)")

	r = runCLI(t, "", "locate", "--doc", filepath.Join(t.TempDir(), "missing.txt"), "fox")
	assert.Equal(t, 1, r.exitCode())
	assert.Contains(t, r.err.Error(), "missing.txt")

	r = runCLI(t, "", "locate", "--doc", doc, "--threshold", "1.5", "fox")
	assert.Equal(t, exitUsage, r.exitCode())

	r = runCLI(t, "", "locate", "--doc", doc, "--format", "yaml", "fox")
	assert.Equal(t, exitUsage, r.exitCode())
}

func TestLocate_ThresholdControlsAnswer(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, "", "locate", "--doc", doc, "--json", "quick brwn fx jumped")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"answer": "quick brwn fx jumped"`)

	r = runCLI(t, "", "locate", "--doc", doc, "--json", "--threshold", "0.5", "quick brwn fx jumped")
	require.NoError(t, r.err)
	assert.NotContains(t, r.stdout, `"answer": "quick brwn fx jumped"`)
}

func TestLocate_Explain(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, "", "locate", "--doc", doc, "--explain", "SECOND LINE")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "q1 tiers:")
	assert.Regexp(t, `exact\s+miss`, r.stdout)
	assert.Regexp(t, `case-insensitive\s+accepted`, r.stdout)
}

func TestLocate_Highlight(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, "", "locate", "--doc", doc, "--highlight", "lazy dog", "Second")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "[lazy dog]{q1}")
	assert.Contains(t, r.stdout, "[Second]{q2} line here.")
}

func TestBatch_QuotesFile(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)
	quotes := writeFile(t, "quotes.json", `{"quotes": [{"id": "a", "text": "jumps over"}, "Second line"]}`)

	r := runCLI(t, "", "batch", "--doc", doc, "--quotes", quotes, "--workers", "2", "--format", "compact")
	require.NoError(t, r.err)

	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "a\texact\t1.0000\t1:21\t"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "q2\texact\t1.0000\t2:1\t"), lines[1])
}

func TestBatch_Stdin(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, `["fox", "123456"]`, "batch", "--doc", doc, "--quotes", "-")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Summary: 1/2 located")
	assert.Contains(t, r.stdout, "[q2] not located")
}

func TestBatch_InvalidInputs(t *testing.T) {
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, `[]`, "batch", "--doc", doc, "--quotes", "-")
	assert.Equal(t, exitUsage, r.exitCode())

	r = runCLI(t, `{not json`, "batch", "--doc", doc, "--quotes", "-")
	assert.Equal(t, 1, r.exitCode())
}

func TestConfigCommand(t *testing.T) {
	r := runCLI(t, "", "config")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "high_confidence_threshold = 0.95")
	assert.Contains(t, r.stdout, "[server]")
}

func TestConfigFileIsApplied(t *testing.T) {
	cfgPath := writeFile(t, config.TOMLFileName, "[locate]\nhigh_confidence_threshold = 0.7\n")

	var stdout bytes.Buffer
	app := newApp(&stdout, &bytes.Buffer{}, strings.NewReader(""))
	app.ExitErrHandler = func(*cli.Context, error) {}
	require.NoError(t, app.Run([]string{"semdiff", "-c", cfgPath, "config"}))
	assert.Contains(t, stdout.String(), "high_confidence_threshold = 0.7")
}

func TestVersionCommand(t *testing.T) {
	r := runCLI(t, "", "version")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "semdiff")
}

func TestDebugLogFlag(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	t.Cleanup(func() { debug.EnableDebug = "false" })
	doc := writeFile(t, "doc.txt", sampleDoc)

	r := runCLI(t, "", "--debug-log", "locate", "--doc", doc, "lazy dog")
	require.NoError(t, r.err)

	line := strings.TrimSpace(r.stderr)
	require.True(t, strings.HasPrefix(line, "debug log: "), r.stderr)
	content, err := os.ReadFile(strings.TrimPrefix(line, "debug log: "))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[DEBUG] config: threshold=0.95")
	assert.NotContains(t, r.stdout, "[DEBUG]")
}

func TestStatusAndShutdownCommands(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	srv := server.NewLocateServer(cfg)
	require.NoError(t, srv.Start())
	defer srv.Shutdown(context.Background())

	r := runCLI(t, "", "status", "--addr", srv.Addr())
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "threshold:  0.95")

	r = runCLI(t, "", "status", "--addr", srv.Addr(), "--json")
	require.NoError(t, r.err)
	var status server.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &status))
	assert.True(t, status.Ready)

	r = runCLI(t, "", "shutdown", "--addr", srv.Addr())
	require.NoError(t, r.err)
	<-srv.Done()
}

func TestStatusCommand_NoServer(t *testing.T) {
	r := runCLI(t, "", "status", "--addr", "127.0.0.1:1")
	assert.Equal(t, 1, r.exitCode())
}
