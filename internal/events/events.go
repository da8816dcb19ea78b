// Package events provides the typed event channel shared by the indexing components.
//
// Every event is a concrete struct identified by its Kind. Subscribers register
// per kind and are called synchronously, in subscription order, on the
// publisher's goroutine.
package events

import (
	"sync"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// Kind identifies an event type
type Kind int

const (
	RootAdded Kind = iota
	RootRemoved
	FileOpened
	FileContentChanged
	ItemUpdated
	ItemRemoved
	ItemFailed
	WatcherAdd
	WatcherChange
	WatcherRemove
	WatcherReady
	WatcherChanged
	WorkqueueEmpty
	Ready
)

var kindNames = map[Kind]string{
	RootAdded:          "roots:add",
	RootRemoved:        "roots:remove",
	FileOpened:         "indexer:file-opened",
	FileContentChanged: "indexer:file-content-changed",
	ItemUpdated:        "indexer:updated",
	ItemRemoved:        "indexer:removed",
	ItemFailed:         "indexer:failed",
	WatcherAdd:         "watcher:add",
	WatcherChange:      "watcher:change",
	WatcherRemove:      "watcher:remove",
	WatcherReady:       "watcher:ready",
	WatcherChanged:     "watcher:changed",
	WorkqueueEmpty:     "workqueue:empty",
	Ready:              "ready",
}

// String returns the namespaced event name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is implemented by every event type
type Event interface {
	Kind() Kind
}

// RootEvent is published when a root is added to or removed from the indexer
type RootEvent struct {
	URI     string
	Removed bool
}

func (e RootEvent) Kind() Kind {
	if e.Removed {
		return RootRemoved
	}
	return RootAdded
}

// FileEvent signals an editor-level intent (open or edit) before the item is re-added
type FileEvent struct {
	URI     string
	Value   string
	Changed bool // false: opened, true: content changed
}

func (e FileEvent) Kind() Kind {
	if e.Changed {
		return FileContentChanged
	}
	return FileOpened
}

// ItemEvent carries a snapshot of an item that was (re)parsed or removed.
// A failed parse is published with Failed set and the item's metadata cleared.
type ItemEvent struct {
	Item    types.Item
	Removed bool
	Failed  bool
}

func (e ItemEvent) Kind() Kind {
	switch {
	case e.Removed:
		return ItemRemoved
	case e.Failed:
		return ItemFailed
	default:
		return ItemUpdated
	}
}

// WatchOp is the disk-level operation a PathEvent reports
type WatchOp int

const (
	OpAdd WatchOp = iota
	OpChange
	OpRemove
)

// PathEvent is a raw per-file disk notification
type PathEvent struct {
	Op   WatchOp
	Path string
}

func (e PathEvent) Kind() Kind {
	switch e.Op {
	case OpChange:
		return WatcherChange
	case OpRemove:
		return WatcherRemove
	default:
		return WatcherAdd
	}
}

// Signal is a payload-free event (ready, changed, empty)
type Signal Kind

func (s Signal) Kind() Kind { return Kind(s) }

// Handler receives published events
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events to per-kind subscriber lists
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers handler for events of the given kind.
// The returned function removes the subscription; it is safe to call more than once.
func (b *Bus) Subscribe(kind Kind, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[kind]
		for i, s := range list {
			if s.id == id {
				// copy so in-flight Publish snapshots stay intact
				next := make([]subscription, 0, len(list)-1)
				next = append(next, list[:i]...)
				b.subs[kind] = append(next, list[i+1:]...)
				return
			}
		}
	}
}

// SubscribeOnce registers handler for at most one event of the given kind
func (b *Bus) SubscribeOnce(kind Kind, handler Handler) (unsubscribe func()) {
	var once sync.Once
	var unsub func()
	var mu sync.Mutex

	mu.Lock()
	unsub = b.Subscribe(kind, func(e Event) {
		once.Do(func() {
			mu.Lock()
			u := unsub
			mu.Unlock()
			u()
			handler(e)
		})
	})
	mu.Unlock()

	return unsub
}

// Publish delivers event to the current subscribers of its kind
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	list := b.subs[event.Kind()]
	b.mu.RUnlock()

	for _, s := range list {
		s.handler(event)
	}
}
