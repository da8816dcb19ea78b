package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/procindex-mcp/internal/config"
	"github.com/dshills/procindex-mcp/internal/events"
	"github.com/dshills/procindex-mcp/internal/indexer"
	"github.com/dshills/procindex-mcp/internal/processor"
	"github.com/dshills/procindex-mcp/internal/storage"
	"github.com/dshills/procindex-mcp/internal/watcher"
	"github.com/dshills/procindex-mcp/internal/workqueue"
	"github.com/dshills/procindex-mcp/pkg/types"
)

// Option customises a Workspace
type Option func(*options)

type options struct {
	reader   indexer.Reader
	registry *processor.Registry
	logger   *slog.Logger
}

// WithReader replaces the file system reader used by pipelines
func WithReader(r indexer.Reader) Option {
	return func(o *options) { o.reader = r }
}

// WithProcessors replaces the built-in processor registry
func WithProcessors(r *processor.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets the logger shared by every component
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Workspace wires the indexer, watcher, workqueue, processor registry and
// catalog together and derives the ready signal from them
type Workspace struct {
	bus      *events.Bus
	queue    *workqueue.Queue
	registry *processor.Registry
	indexer  *indexer.Indexer
	watcher  *watcher.Watcher // nil when watching is disabled
	catalog  *storage.SQLiteStorage
	logger   *slog.Logger

	mu            sync.Mutex
	watcherIsDone bool
	unsubscribe   []func()

	ready            chan struct{}
	readyOnce        sync.Once
	watcherReady     chan struct{}
	watcherReadyOnce sync.Once
	closeOnce        sync.Once
	closeErr         error
}

// New creates a workspace. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Workspace, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	o := options{reader: indexer.FileSystemReader{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = processor.Default(o.logger)
	}

	catalog, err := storage.NewMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}

	ws := &Workspace{
		bus:          events.NewBus(),
		registry:     o.registry,
		catalog:      catalog,
		logger:       o.logger,
		ready:        make(chan struct{}),
		watcherReady: make(chan struct{}),
	}

	ws.queue = workqueue.New(func() {
		ws.bus.Publish(events.Signal(events.WorkqueueEmpty))
	})

	ws.indexer = indexer.New(o.reader, o.registry, ws.queue, ws.bus, indexer.Config{
		Workers:   cfg.Workers,
		CacheSize: cfg.CacheSize,
		Logger:    o.logger,
	})

	if cfg.Watch {
		ws.watcher = watcher.New(ws.bus, watcher.Config{
			Debounce: cfg.Debounce,
			Filter:   o.registry.Handles,
			Ignore:   cfg.Ignore,
			Logger:   o.logger,
		})
	}

	ws.wire()
	return ws, nil
}

func (ws *Workspace) wire() {
	subs := []func(){
		storage.Sync(ws.bus, ws.catalog, ws.logger),
		ws.bus.Subscribe(events.WatcherReady, ws.onWatcherReady),
		ws.bus.Subscribe(events.WorkqueueEmpty, ws.onWorkqueueEmpty),
	}

	if ws.watcher != nil {
		subs = append(subs,
			ws.bus.Subscribe(events.RootAdded, ws.onRootAdded),
			ws.bus.Subscribe(events.RootRemoved, ws.onRootRemoved),
			ws.bus.Subscribe(events.WatcherAdd, ws.onFileDiscovered),
			ws.bus.Subscribe(events.WatcherChange, ws.onFileDiscovered),
			ws.bus.Subscribe(events.WatcherRemove, ws.onFileDeleted),
		)
	}

	ws.mu.Lock()
	ws.unsubscribe = subs
	ws.mu.Unlock()
}

func (ws *Workspace) onRootAdded(e events.Event) {
	uri := e.(events.RootEvent).URI
	if err := ws.watcher.AddRoot(indexer.URIToPath(uri)); err != nil {
		ws.logger.Error("failed to watch root", "uri", uri, "err", err)
	}
}

func (ws *Workspace) onRootRemoved(e events.Event) {
	ws.watcher.RemoveRoot(indexer.URIToPath(e.(events.RootEvent).URI))
}

func (ws *Workspace) onFileDiscovered(e events.Event) {
	ws.indexer.Add(indexer.PathToURI(e.(events.PathEvent).Path), "")
}

func (ws *Workspace) onFileDeleted(e events.Event) {
	ws.indexer.Remove(indexer.PathToURI(e.(events.PathEvent).Path))
}

// onWatcherReady runs after the initial scan has published every add, so all
// pipelines it started are already tracked by the queue
func (ws *Workspace) onWatcherReady(events.Event) {
	ws.watcherReadyOnce.Do(func() { close(ws.watcherReady) })

	ws.mu.Lock()
	ws.watcherIsDone = true
	ws.mu.Unlock()

	if ws.queue.Len() == 0 {
		ws.fireReady()
	}
}

func (ws *Workspace) onWorkqueueEmpty(events.Event) {
	ws.mu.Lock()
	scanned := ws.watcherIsDone || ws.watcher == nil
	ws.mu.Unlock()

	if scanned {
		ws.fireReady()
	}
}

func (ws *Workspace) fireReady() {
	fired := false
	ws.readyOnce.Do(func() {
		close(ws.ready)
		fired = true
	})
	if fired {
		ws.logger.Info("workspace ready")
		ws.bus.Publish(events.Signal(events.Ready))
	}
}

// Ready is closed once the initial scan has been fully indexed. Without a
// watcher it closes the first time the workqueue drains.
func (ws *Workspace) Ready() <-chan struct{} { return ws.ready }

// WatcherReady is closed once the initial scan of the first roots completes
func (ws *Workspace) WatcherReady() <-chan struct{} { return ws.watcherReady }

// Subscribe registers handler for events of the given kind
func (ws *Workspace) Subscribe(kind events.Kind, handler events.Handler) (unsubscribe func()) {
	return ws.bus.Subscribe(kind, handler)
}

// AddRoot registers a directory. With watching enabled its matching files are indexed.
func (ws *Workspace) AddRoot(uri string) {
	ws.indexer.AddRoot(uri)
}

// RemoveRoot unregisters a directory. Items already indexed below it are kept.
func (ws *Workspace) RemoveRoot(uri string) {
	ws.indexer.RemoveRoot(uri)
}

// AddFile indexes uri, optionally with an in-memory value overriding the disk contents
func (ws *Workspace) AddFile(uri, value string) *indexer.Pipeline {
	return ws.indexer.Add(uri, value)
}

// AddFileWithProcessor indexes uri with an explicit processor
func (ws *Workspace) AddFileWithProcessor(uri, value, processorID string) *indexer.Pipeline {
	return ws.indexer.AddWithProcessor(uri, value, processorID)
}

// AddFiles indexes every uri and waits for all pipelines.
// It returns the first pipeline error; every pipeline is awaited regardless.
func (ws *Workspace) AddFiles(ctx context.Context, uris []string) error {
	var g errgroup.Group
	for _, uri := range uris {
		p := ws.indexer.Add(uri, "")
		g.Go(func() error {
			_, err := p.Wait(ctx)
			return err
		})
	}
	return g.Wait()
}

// RemoveFile deletes uri from the index and reports whether it was present
func (ws *Workspace) RemoveFile(uri string) bool {
	return ws.indexer.Remove(uri)
}

// FileOpened records that an editor opened uri with value
func (ws *Workspace) FileOpened(uri, value string) *indexer.Pipeline {
	return ws.indexer.FileOpened(uri, value)
}

// FileUpdated records an unsaved edit of uri
func (ws *Workspace) FileUpdated(uri, value string) *indexer.Pipeline {
	return ws.indexer.FileContentChanged(uri, value)
}

// FileClosed reverts uri to its disk contents. It returns nil for unknown items.
func (ws *Workspace) FileClosed(uri string) *indexer.Pipeline {
	return ws.indexer.FileClosed(uri)
}

// Get waits for the item's current pipeline and returns the item
func (ws *Workspace) Get(ctx context.Context, uri string) (types.Item, error) {
	return ws.indexer.Get(ctx, uri)
}

// Items returns a snapshot of every item ordered by URI
func (ws *Workspace) Items() []types.Item {
	return ws.indexer.Items()
}

// Roots returns the registered roots as URIs
func (ws *Workspace) Roots() []string {
	return ws.indexer.Roots()
}

// Watching reports whether disk watching is enabled
func (ws *Workspace) Watching() bool {
	return ws.watcher != nil
}

// Files returns the matching files the watcher knows about
func (ws *Workspace) Files() []string {
	if ws.watcher == nil {
		return nil
	}
	return ws.watcher.Files()
}

// Extensions returns every file extension a registered processor handles
func (ws *Workspace) Extensions() []string {
	return ws.registry.Extensions()
}

// Settled blocks until no pipeline is in flight or ctx is done
func (ws *Workspace) Settled(ctx context.Context) error {
	return ws.queue.Wait(ctx)
}

// Catalog exposes the query side of the index
func (ws *Workspace) Catalog() storage.Storage {
	return ws.catalog
}

// Close stops watching and releases the catalog. It is idempotent.
func (ws *Workspace) Close() error {
	ws.closeOnce.Do(func() {
		var errs []error
		if ws.watcher != nil {
			if err := ws.watcher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close watcher: %w", err))
			}
		}

		ws.mu.Lock()
		subs := ws.unsubscribe
		ws.unsubscribe = nil
		ws.mu.Unlock()
		for _, unsub := range subs {
			unsub()
		}

		if err := ws.catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close catalog: %w", err))
		}
		ws.closeErr = errors.Join(errs...)
	})
	return ws.closeErr
}
