// Package watch re-runs work when a fixed set of files changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmcder000/semantic-diff/internal/debug"
	"github.com/jmcder000/semantic-diff/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher monitors a set of files and calls onChange with the paths that
// changed once events stop arriving for the debounce interval.
//
// Parent directories are watched rather than the files themselves, so
// editors that save by rename-and-replace keep triggering events.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	files     map[string]struct{}
	dirs      []string
	debouncer *eventDebouncer
	log       *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once

	eventsProcessed int64
	errorCount      int64
	batches         int64
}

// Stats reports watch activity
type Stats struct {
	EventsProcessed int64
	Errors          int64
	Batches         int64
}

// NewFileWatcher creates a watcher for paths. A non-positive debounce uses
// DefaultDebounce. Watching starts with Start.
func NewFileWatcher(paths []string, debounce time.Duration, onChange func(paths []string), log *logger.Logger) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Nop()
	}

	files := make(map[string]struct{}, len(paths))
	dirSet := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", p, err)
		}
		files[abs] = struct{}{}
		dirSet[filepath.Dir(abs)] = struct{}{}
	}
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	fw := &FileWatcher{
		watcher: watcher,
		files:   files,
		dirs:    dirs,
		log:     log.Component("watch"),
		ctx:     ctx,
		cancel:  cancel,
	}
	fw.debouncer = newEventDebouncer(debounce, func(changed []string) {
		atomic.AddInt64(&fw.batches, 1)
		onChange(changed)
	})
	return fw, nil
}

// Start begins watching
func (fw *FileWatcher) Start() error {
	for _, dir := range fw.dirs {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		debug.Log("WATCH", "watching directory %s\n", dir)
	}

	fw.wg.Add(1)
	go fw.processEvents()

	fw.log.Info("file watcher started").Int("files", len(fw.files)).Send()
	return nil
}

// Stop stops the watcher. Events still pending in the debouncer are dropped.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.cancel()
		fw.debouncer.stop()
		err = fw.watcher.Close()
		fw.wg.Wait()
		fw.log.Info("file watcher stopped").Send()
	})
	return err
}

// Stats returns a snapshot of watch activity
func (fw *FileWatcher) Stats() Stats {
	return Stats{
		EventsProcessed: atomic.LoadInt64(&fw.eventsProcessed),
		Errors:          atomic.LoadInt64(&fw.errorCount),
		Batches:         atomic.LoadInt64(&fw.batches),
	}
}

// processEvents processes file system events from fsnotify
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			atomic.AddInt64(&fw.errorCount, 1)
			fw.log.Warn("file watcher error").Err(err).Send()
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if _, ok := fw.files[path]; !ok {
		return
	}
	// chmod alone does not change content
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	debug.Log("WATCH", "event %v for %s\n", event.Op, path)
	atomic.AddInt64(&fw.eventsProcessed, 1)
	fw.debouncer.addEvent(path)
}

// eventDebouncer batches file events to avoid re-running on every write
type eventDebouncer struct {
	mu       sync.Mutex
	pending  map[string]struct{}
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	flushFn  func(paths []string)
}

func newEventDebouncer(debounce time.Duration, flushFn func(paths []string)) *eventDebouncer {
	return &eventDebouncer{
		pending:  make(map[string]struct{}),
		debounce: debounce,
		flushFn:  flushFn,
	}
}

// addEvent records path and restarts the quiet-period timer
func (d *eventDebouncer) addEvent(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// flush hands every accumulated path to flushFn in sorted order
func (d *eventDebouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(paths)
	d.flushFn(paths)
}
