package indexer

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/dshills/procindex-mcp/internal/events"
	"github.com/dshills/procindex-mcp/internal/processor"
	"github.com/dshills/procindex-mcp/internal/workqueue"
	"github.com/dshills/procindex-mcp/pkg/types"
)

// ErrNotFound is returned when a URI was never added or has been removed
var ErrNotFound = errors.New("item not found")

// Processor extracts metadata for the parse phase
type Processor interface {
	Process(ctx context.Context, in processor.Input) (*types.Metadata, error)
}

// Publisher receives indexer events
type Publisher interface {
	Publish(event events.Event)
}

// Tracker registers pipelines for quiescence detection
type Tracker interface {
	Track(op workqueue.Operation) workqueue.Operation
}

// Config contains configuration for the indexer
type Config struct {
	Workers   int          // Concurrent parse phases (default: runtime.NumCPU())
	CacheSize int          // Cached parse results (default: DefaultCacheSize, negative disables)
	Logger    *slog.Logger // Default: slog.Default()
}

// Indexer owns the set of roots and the map of indexed items.
// All mutation goes through its methods; events are published outside the lock.
type Indexer struct {
	reader    Reader
	processor Processor
	tracker   Tracker
	publisher Publisher
	parseSem  *semaphore.Weighted
	cache     *parseCache
	logger    *slog.Logger

	mu      sync.Mutex
	roots   map[string]struct{}
	items   map[string]*entry
	nextGen uint64 // source of generations; never reused, even after remove and re-add

	// pubMu orders item events so a stale commit is never published after a
	// newer update or a removal. Item event handlers must not call Remove.
	pubMu sync.Mutex
}

// entry is the mutable state behind one item
type entry struct {
	item       types.Item
	generation uint64
	pipeline   *Pipeline
}

type discardPublisher struct{}

func (discardPublisher) Publish(events.Event) {}

// New creates an Indexer. publisher may be nil.
func New(reader Reader, proc Processor, tracker Tracker, publisher Publisher, cfg Config) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if publisher == nil {
		publisher = discardPublisher{}
	}

	return &Indexer{
		reader:    reader,
		processor: proc,
		tracker:   tracker,
		publisher: publisher,
		parseSem:  semaphore.NewWeighted(int64(cfg.Workers)),
		cache:     newParseCache(cfg.CacheSize),
		logger:    cfg.Logger.With("component", "indexer"),
		roots:     make(map[string]struct{}),
		items:     make(map[string]*entry),
	}
}

// AddRoot registers a directory for watching. It is idempotent.
func (idx *Indexer) AddRoot(uri string) {
	uri = CanonicalURI(uri)

	idx.mu.Lock()
	_, exists := idx.roots[uri]
	idx.roots[uri] = struct{}{}
	idx.mu.Unlock()

	if !exists {
		idx.publisher.Publish(events.RootEvent{URI: uri})
	}
}

// RemoveRoot unregisters a directory. Items discovered under it are kept.
func (idx *Indexer) RemoveRoot(uri string) {
	uri = CanonicalURI(uri)

	idx.mu.Lock()
	_, exists := idx.roots[uri]
	delete(idx.roots, uri)
	idx.mu.Unlock()

	if exists {
		idx.publisher.Publish(events.RootEvent{URI: uri, Removed: true})
	}
}

// Add creates or updates the item for uri and starts a fresh pipeline for it.
// A non-empty localValue overrides the disk contents; an empty one clears any
// previous override. Any pipeline already in flight for uri is superseded.
func (idx *Indexer) Add(uri, localValue string) *Pipeline {
	uri = CanonicalURI(uri)

	idx.mu.Lock()
	e, ok := idx.items[uri]
	if !ok {
		e = &entry{item: types.Item{URI: uri}}
		idx.items[uri] = e
	}
	p := idx.restartLocked(e, localValue)
	idx.mu.Unlock()

	return p
}

// AddWithProcessor is Add with an explicit processor id pinned on the item.
// An empty processorID clears a previous pin.
func (idx *Indexer) AddWithProcessor(uri, localValue, processorID string) *Pipeline {
	uri = CanonicalURI(uri)

	idx.mu.Lock()
	e, ok := idx.items[uri]
	if !ok {
		e = &entry{item: types.Item{URI: uri}}
		idx.items[uri] = e
	}
	e.item.ProcessorID = processorID
	p := idx.restartLocked(e, localValue)
	idx.mu.Unlock()

	return p
}

// Remove deletes the item for uri and reports whether it existed
func (idx *Indexer) Remove(uri string) bool {
	uri = CanonicalURI(uri)

	idx.pubMu.Lock()
	defer idx.pubMu.Unlock()

	idx.mu.Lock()
	e, ok := idx.items[uri]
	if !ok {
		idx.mu.Unlock()
		return false
	}
	delete(idx.items, uri)
	e.pipeline = nil
	snapshot := e.item.Clone()
	idx.mu.Unlock()

	idx.publisher.Publish(events.ItemEvent{Item: snapshot, Removed: true})
	return true
}

// RemoveLocal drops the in-memory override for uri and re-parses it from disk.
// It returns nil when uri is not indexed.
func (idx *Indexer) RemoveLocal(uri string) *Pipeline {
	uri = CanonicalURI(uri)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	e, ok := idx.items[uri]
	if !ok {
		return nil
	}
	e.pipeline = nil
	return idx.restartLocked(e, "")
}

// FileOpened records that an editor opened uri with value and re-indexes it
func (idx *Indexer) FileOpened(uri, value string) *Pipeline {
	uri = CanonicalURI(uri)
	idx.publisher.Publish(events.FileEvent{URI: uri, Value: value})
	return idx.Add(uri, value)
}

// FileContentChanged records an unsaved edit of uri and re-indexes it
func (idx *Indexer) FileContentChanged(uri, value string) *Pipeline {
	uri = CanonicalURI(uri)
	idx.publisher.Publish(events.FileEvent{URI: uri, Value: value, Changed: true})
	return idx.Add(uri, value)
}

// FileClosed reverts uri to its on-disk contents
func (idx *Indexer) FileClosed(uri string) *Pipeline {
	return idx.RemoveLocal(uri)
}

// Get returns the item for uri once its current pipeline has settled.
// A failed pipeline still yields the item, without metadata.
func (idx *Indexer) Get(ctx context.Context, uri string) (types.Item, error) {
	uri = CanonicalURI(uri)

	for {
		idx.mu.Lock()
		e, ok := idx.items[uri]
		if !ok {
			idx.mu.Unlock()
			return types.Item{}, ErrNotFound
		}
		p := e.pipeline
		if p == nil {
			p = idx.restartLocked(e, e.item.LocalValue)
		}
		idx.mu.Unlock()

		if _, err := p.Wait(ctx); err != nil && ctx.Err() != nil {
			return types.Item{}, ctx.Err()
		}

		idx.mu.Lock()
		e, ok = idx.items[uri]
		if ok && e.pipeline == p {
			snapshot := e.item.Clone()
			idx.mu.Unlock()
			return snapshot, nil
		}
		idx.mu.Unlock()
		// superseded or removed while waiting: look again
	}
}

// Items returns a snapshot of all items ordered by URI
func (idx *Indexer) Items() []types.Item {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	items := make([]types.Item, 0, len(idx.items))
	for _, e := range idx.items {
		items = append(items, e.item.Clone())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].URI < items[j].URI })
	return items
}

// Roots returns a sorted snapshot of the registered roots
func (idx *Indexer) Roots() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	roots := make([]string, 0, len(idx.roots))
	for r := range idx.roots {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// restartLocked bumps the item generation and starts its pipeline.
// idx.mu must be held.
func (idx *Indexer) restartLocked(e *entry, localValue string) *Pipeline {
	e.item.LocalValue = localValue
	idx.nextGen++
	e.generation = idx.nextGen

	p := newPipeline(e.item.URI, e.generation)
	e.pipeline = p

	idx.tracker.Track(p)
	go idx.run(p, localValue, e.item.ProcessorID)

	return p
}

// run executes the read and parse phases and commits the result if the
// pipeline is still current
func (idx *Indexer) run(p *Pipeline, localValue, processorID string) {
	defer close(p.done)

	ctx := context.Background()
	path := URIToPath(p.uri)

	file, err := idx.reader.ReadFile(ctx, path)
	if err != nil {
		// a missing file is indexed as empty
		idx.logger.Debug("read failed, using empty file", "uri", p.uri, "err", err)
		file = types.File{Path: path}
	}

	contents := file.Contents
	if localValue != "" {
		contents = localValue
	}

	md, procErr := idx.parse(ctx, processor.Input{
		URI:         p.uri,
		Path:        path,
		Contents:    contents,
		ProcessorID: processorID,
	})

	idx.mu.Lock()
	e, ok := idx.items[p.uri]
	current := ok && e.generation == p.generation
	if current {
		e.item.File = file
		e.item.Metadata = md
	}
	if ok {
		p.item = e.item.Clone()
	}
	idx.mu.Unlock()

	if procErr != nil {
		idx.logger.Error("failed to process item", "uri", p.uri, "err", procErr)
		p.err = procErr
	}

	if current {
		idx.publishCommitted(p, procErr != nil)
	}
}

// publishCommitted announces p's commit unless a newer add or a removal has
// happened since. A failed commit is published as ItemFailed.
func (idx *Indexer) publishCommitted(p *Pipeline, failed bool) {
	idx.pubMu.Lock()
	defer idx.pubMu.Unlock()

	idx.mu.Lock()
	e, ok := idx.items[p.uri]
	current := ok && e.generation == p.generation
	idx.mu.Unlock()

	if current {
		idx.publisher.Publish(events.ItemEvent{Item: p.item.Clone(), Failed: failed})
	}
}

func (idx *Indexer) parse(ctx context.Context, in processor.Input) (*types.Metadata, error) {
	key := parseKey(in.ProcessorID, filepath.Ext(in.Path), in.Contents)
	if md, ok := idx.cache.get(key); ok {
		return md, nil
	}

	if err := idx.parseSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer idx.parseSem.Release(1)

	md, err := idx.processor.Process(ctx, in)
	if err == nil {
		idx.cache.add(key, md)
	}
	return md, err
}
