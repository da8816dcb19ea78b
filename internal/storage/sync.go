package storage

import (
	"context"
	"log/slog"

	"github.com/dshills/procindex-mcp/internal/events"
)

// Subscriber is the part of the event bus the catalog listens on
type Subscriber interface {
	Subscribe(kind events.Kind, handler events.Handler) (unsubscribe func())
}

// Sync keeps w in step with the index: ItemUpdated upserts the item's rows,
// ItemFailed replaces them with an unparsed item and ItemRemoved deletes them.
// Handlers run on the publishing goroutine, so a pipeline settles only after
// its catalog write. The returned func stops syncing.
func Sync(bus Subscriber, w Writer, logger *slog.Logger) (stop func()) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	upsert := func(e events.Event) {
		ev, ok := e.(events.ItemEvent)
		if !ok {
			return
		}
		if err := w.UpsertItem(context.Background(), ev.Item); err != nil {
			logger.Error("failed to update catalog", "uri", ev.Item.URI, "err", err)
		}
	}
	offUpdated := bus.Subscribe(events.ItemUpdated, upsert)
	offFailed := bus.Subscribe(events.ItemFailed, upsert)

	offRemoved := bus.Subscribe(events.ItemRemoved, func(e events.Event) {
		ev, ok := e.(events.ItemEvent)
		if !ok {
			return
		}
		if err := w.DeleteItem(context.Background(), ev.Item.URI); err != nil {
			logger.Error("failed to remove from catalog", "uri", ev.Item.URI, "err", err)
		}
	})

	return func() {
		offUpdated()
		offFailed()
		offRemoved()
	}
}
