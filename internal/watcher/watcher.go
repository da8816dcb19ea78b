// Package watcher observes root directories on disk and reports per-file
// add, change and remove notifications for the files the index cares about.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/procindex-mcp/internal/events"
)

// DefaultDebounce is the quiet period before WatcherChanged fires
const DefaultDebounce = 300 * time.Millisecond

// ErrClosed is returned when adding roots to a closed watcher
var ErrClosed = errors.New("watcher closed")

// DefaultIgnore lists directory names that are never descended into
var DefaultIgnore = []string{"node_modules", ".git"}

// Publisher receives watcher events
type Publisher interface {
	Publish(event events.Event)
}

// Config contains configuration for the watcher
type Config struct {
	Debounce time.Duration          // Default: DefaultDebounce
	Filter   func(path string) bool // Files reported; nil accepts every file
	Ignore   []string               // Directory names to skip; nil uses DefaultIgnore
	Logger   *slog.Logger
}

// Watcher tracks roots recursively. The OS watch is created lazily on the
// first root; WatcherReady is published once, when every scan started before
// it has completed.
type Watcher struct {
	cfg       Config
	publisher Publisher
	logger    *slog.Logger
	ignore    map[string]bool

	mu     sync.Mutex
	closed bool
	fsw    *fsnotify.Watcher
	done   chan struct{} // closed when the event loop exits
	roots  map[string]struct{}
	dirs   map[string]struct{}
	files  map[string]struct{}

	initialScans int
	ready        bool

	timer    *time.Timer
	timerSeq uint64

	scans sync.WaitGroup
}

// New creates an idle watcher
func New(publisher Publisher, cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Ignore == nil {
		cfg.Ignore = DefaultIgnore
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ignore := make(map[string]bool, len(cfg.Ignore))
	for _, name := range cfg.Ignore {
		ignore[name] = true
	}

	return &Watcher{
		cfg:       cfg,
		publisher: publisher,
		logger:    cfg.Logger.With("component", "watcher"),
		ignore:    ignore,
		roots:     make(map[string]struct{}),
		dirs:      make(map[string]struct{}),
		files:     make(map[string]struct{}),
	}
}

// AddRoot starts watching root recursively. Adding a tracked root is a no-op.
// The initial scan runs in the background and reports every matching file.
func (w *Watcher) AddRoot(root string) error {
	root = filepath.Clean(root)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if _, ok := w.roots[root]; ok {
		w.mu.Unlock()
		return nil
	}

	if w.fsw == nil {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.mu.Unlock()
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		w.fsw = fsw
		w.done = make(chan struct{})
		go w.processEvents(fsw, w.done)
	}

	w.roots[root] = struct{}{}
	initial := !w.ready
	if initial {
		w.initialScans++
	}
	w.scans.Add(1)
	w.mu.Unlock()

	w.logger.Info("watching root", "root", root)

	go func() {
		defer w.scans.Done()
		w.scan(root)
		if initial {
			w.finishInitialScan()
		}
	}()

	return nil
}

// RemoveRoot stops watching root. Files below it are forgotten without
// remove notifications. Removing an untracked root is a no-op.
func (w *Watcher) RemoveRoot(root string) {
	root = filepath.Clean(root)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.roots[root]; !ok {
		return
	}
	delete(w.roots, root)

	for dir := range w.dirs {
		if within(dir, root) && !w.coveredLocked(dir) {
			_ = w.fsw.Remove(dir)
			delete(w.dirs, dir)
		}
	}
	for file := range w.files {
		if within(file, root) && !w.coveredLocked(file) {
			delete(w.files, file)
		}
	}

	w.logger.Info("stopped watching root", "root", root)
}

// Files returns a sorted snapshot of the known matching files
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Roots returns a sorted snapshot of the watched roots
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	roots := make([]string, 0, len(w.roots))
	for r := range w.roots {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// Close releases the OS watch. It is idempotent and not resumable.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	fsw, done := w.fsw, w.done
	w.mu.Unlock()

	var err error
	if fsw != nil {
		err = fsw.Close()
		<-done
	}
	w.scans.Wait()

	return err
}

// scan walks dir, watching every directory and reporting every file
func (w *Watcher) scan(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped
			return nil
		}

		if d.IsDir() {
			if path != dir && w.ignore[d.Name()] {
				return filepath.SkipDir
			}
			return w.watchDir(path)
		}

		w.handle(events.OpAdd, path)
		return nil
	})
	if err != nil {
		w.logger.Warn("failed to scan directory", "dir", dir, "err", err)
	}
}

func (w *Watcher) watchDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return filepath.SkipAll
	}
	if !w.coveredLocked(path) {
		return filepath.SkipDir
	}
	if _, ok := w.dirs[path]; ok {
		return nil
	}

	if err := w.fsw.Add(path); err != nil {
		// non-fatal, the rest of the tree is still watched
		w.logger.Warn("failed to watch directory", "dir", path, "err", err)
		return nil
	}
	w.dirs[path] = struct{}{}
	return nil
}

func (w *Watcher) finishInitialScan() {
	w.mu.Lock()
	w.initialScans--
	fire := w.initialScans == 0 && !w.ready && !w.closed
	if fire {
		w.ready = true
	}
	w.mu.Unlock()

	if fire {
		w.logger.Info("initial scan complete")
		w.publisher.Publish(events.Signal(events.WatcherReady))
	}
}

// processEvents translates raw fsnotify events until the OS watch is closed
func (w *Watcher) processEvents(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if !w.ignore[info.Name()] {
				w.scan(path)
			}
			return
		}
		w.handle(events.OpAdd, path)

	case event.Has(fsnotify.Write):
		w.handle(events.OpChange, path)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.removePath(path)
	}
}

// removePath reports the removal of a file, or of every known file below a directory
func (w *Watcher) removePath(path string) {
	w.mu.Lock()
	_, isDir := w.dirs[path]
	var removed []string
	if isDir {
		for dir := range w.dirs {
			if within(dir, path) {
				_ = w.fsw.Remove(dir)
				delete(w.dirs, dir)
			}
		}
		for file := range w.files {
			if within(file, path) {
				removed = append(removed, file)
			}
		}
	}
	w.mu.Unlock()

	if !isDir {
		w.handle(events.OpRemove, path)
		return
	}

	sort.Strings(removed)
	for _, file := range removed {
		w.handle(events.OpRemove, file)
	}
}

// handle filters path, updates the known files and publishes the notification
func (w *Watcher) handle(op events.WatchOp, path string) {
	if w.cfg.Filter != nil && !w.cfg.Filter(path) {
		w.logger.Debug("ignoring file", "path", path)
		return
	}

	w.mu.Lock()
	if w.closed || !w.coveredLocked(path) {
		w.mu.Unlock()
		return
	}

	_, known := w.files[path]
	switch op {
	case events.OpAdd:
		if known {
			op = events.OpChange
		}
		w.files[path] = struct{}{}
	case events.OpChange:
		if !known {
			op = events.OpAdd
		}
		w.files[path] = struct{}{}
	case events.OpRemove:
		if !known {
			w.mu.Unlock()
			return
		}
		delete(w.files, path)
	}
	w.scheduleChangedLocked()
	w.mu.Unlock()

	w.publisher.Publish(events.PathEvent{Op: op, Path: path})
}

// scheduleChangedLocked (re)arms the shared debounce timer. w.mu must be held.
func (w *Watcher) scheduleChangedLocked() {
	w.timerSeq++
	seq := w.timerSeq

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() { w.fireChanged(seq) })
}

func (w *Watcher) fireChanged(seq uint64) {
	w.mu.Lock()
	// a later reset or Close invalidates this timer
	if w.closed || seq != w.timerSeq {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	w.publisher.Publish(events.Signal(events.WatcherChanged))
}

// coveredLocked reports whether path lies below some watched root. w.mu must be held.
func (w *Watcher) coveredLocked(path string) bool {
	for root := range w.roots {
		if within(path, root) {
			return true
		}
	}
	return false
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
