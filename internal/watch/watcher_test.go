package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFileWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.txt")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(doc, []byte("v1"), 0o644))

	changes := make(chan []string, 4)
	fw, err := NewFileWatcher([]string{doc}, 50*time.Millisecond, func(paths []string) {
		changes <- paths
	}, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(doc, []byte("v2"), 0o644))
	}

	select {
	case paths := <-changes:
		abs, _ := filepath.Abs(doc)
		assert.Equal(t, []string{abs}, paths)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}

	// the three writes collapse into one batch
	select {
	case paths := <-changes:
		t.Fatalf("unexpected second batch: %v", paths)
	case <-time.After(200 * time.Millisecond):
	}

	stats := fw.Stats()
	assert.Equal(t, int64(1), stats.Batches)
	assert.GreaterOrEqual(t, stats.EventsProcessed, int64(1))
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o644))

	fw, err := NewFileWatcher([]string{doc}, 0, func([]string) {}, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	require.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}

func TestNewFileWatcher_NoPaths(t *testing.T) {
	_, err := NewFileWatcher(nil, 0, func([]string) {}, nil)
	assert.Error(t, err)
}

func TestEventDebouncer_StopDropsPending(t *testing.T) {
	called := make(chan struct{}, 1)
	d := newEventDebouncer(10*time.Millisecond, func([]string) { called <- struct{}{} })
	d.addEvent("/a")
	d.stop()
	d.addEvent("/b")

	select {
	case <-called:
		t.Fatal("flush after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventDebouncer_FlushSorted(t *testing.T) {
	var got []string
	d := newEventDebouncer(time.Hour, func(p []string) { got = p })
	d.addEvent("/b")
	d.addEvent("/a")
	d.addEvent("/b")
	d.flush()
	d.stop()
	assert.Equal(t, []string{"/a", "/b"}, got)
}
