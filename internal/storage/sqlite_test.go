package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/procindex-mcp/internal/events"
	"github.com/dshills/procindex-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	storage, err := NewMemory()
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func orderItem() types.Item {
	return types.Item{
		URI: "file:///proj/order.bpmn",
		Metadata: &types.Metadata{
			Type:                     types.TypeBPMN,
			ExecutionPlatform:        "Camunda Cloud",
			ExecutionPlatformVersion: "8.5.0",
			Processes:                []types.Element{{ID: "order", Name: "Order Handling"}},
			References: []types.Reference{
				{Kind: types.RefProcess, TargetID: "shipping", SourceID: "CallShipping"},
				{Kind: types.RefDecision, TargetID: "discount", SourceID: "Decide"},
				{Kind: types.RefForm, TargetID: "review", SourceID: "Review"},
			},
		},
	}
}

func shippingItem() types.Item {
	return types.Item{
		URI: "file:///proj/shipping.bpmn",
		Metadata: &types.Metadata{
			Type:      types.TypeBPMN,
			Processes: []types.Element{{ID: "shipping", Name: "Ship Order"}},
		},
	}
}

func TestMigrations(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, BuildMode, status.BuildMode)

	t.Run("reapplying is a no-op", func(t *testing.T) {
		require.NoError(t, ApplyMigrations(ctx, storage.db))

		var n int
		require.NoError(t, storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&n))
		assert.Equal(t, len(AllMigrations), n)
	})

	t.Run("rollback removes the latest migration", func(t *testing.T) {
		require.NoError(t, RollbackMigration(ctx, storage.db))

		version, err := schemaVersion(ctx, storage.db)
		require.NoError(t, err)
		assert.Equal(t, AllMigrations[len(AllMigrations)-2].Version, version.String())

		require.NoError(t, ApplyMigrations(ctx, storage.db))
		version, err = schemaVersion(ctx, storage.db)
		require.NoError(t, err)
		assert.Equal(t, CurrentSchemaVersion, version.String())
	})
}

func TestUpsertItem(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertItem(ctx, orderItem()))

	rec, err := storage.GetItem(ctx, "file:///proj/order.bpmn")
	require.NoError(t, err)
	assert.Equal(t, types.TypeBPMN, rec.Type)
	assert.Equal(t, "Camunda Cloud", rec.ExecutionPlatform)
	assert.Equal(t, "8.5.0", rec.ExecutionPlatformVersion)
	assert.Equal(t, 1, rec.ElementCount)
	assert.Equal(t, 3, rec.ReferenceCount)
	assert.False(t, rec.IndexedAt.IsZero())

	t.Run("replaces previous rows", func(t *testing.T) {
		item := orderItem()
		item.Metadata.Processes = []types.Element{{ID: "order-v2"}}
		item.Metadata.References = nil
		require.NoError(t, storage.UpsertItem(ctx, item))

		rec, err := storage.GetItem(ctx, item.URI)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.ElementCount)
		assert.Equal(t, 0, rec.ReferenceCount)

		defs, err := storage.FindElements(ctx, types.RefProcess, "order")
		require.NoError(t, err)
		assert.Empty(t, defs)
	})

	t.Run("item without metadata keeps its row only", func(t *testing.T) {
		require.NoError(t, storage.UpsertItem(ctx, types.Item{URI: "file:///proj/order.bpmn"}))

		rec, err := storage.GetItem(ctx, "file:///proj/order.bpmn")
		require.NoError(t, err)
		assert.Empty(t, rec.Type)
		assert.Zero(t, rec.ElementCount)
		assert.Zero(t, rec.ReferenceCount)
	})
}

func TestDeleteItem(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertItem(ctx, orderItem()))
	require.NoError(t, storage.DeleteItem(ctx, "file:///proj/order.bpmn"))

	_, err := storage.GetItem(ctx, "file:///proj/order.bpmn")
	assert.ErrorIs(t, err, ErrNotFound)

	refs, err := storage.FindReferences(ctx, types.RefProcess, "shipping")
	require.NoError(t, err)
	assert.Empty(t, refs, "references cascade with the item")

	// unknown items are ignored
	assert.NoError(t, storage.DeleteItem(ctx, "file:///proj/missing.bpmn"))
}

func TestGetItem_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetItem(context.Background(), "file:///nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListItems(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertItem(ctx, shippingItem()))
	require.NoError(t, storage.UpsertItem(ctx, orderItem()))
	require.NoError(t, storage.UpsertItem(ctx, types.Item{
		URI:      "file:///other/review.form",
		Metadata: &types.Metadata{Type: types.TypeForm, Forms: []types.Element{{ID: "review"}}},
	}))

	tests := []struct {
		name   string
		filter *ItemFilter
		want   []string
	}{
		{
			name:   "all sorted by uri",
			filter: nil,
			want:   []string{"file:///other/review.form", "file:///proj/order.bpmn", "file:///proj/shipping.bpmn"},
		},
		{
			name:   "by type",
			filter: &ItemFilter{Type: types.TypeForm},
			want:   []string{"file:///other/review.form"},
		},
		{
			name:   "by prefix",
			filter: &ItemFilter{URIPrefix: "file:///proj/"},
			want:   []string{"file:///proj/order.bpmn", "file:///proj/shipping.bpmn"},
		},
		{
			name:   "prefix wildcards are literal",
			filter: &ItemFilter{URIPrefix: "file:///pro_/"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := storage.ListItems(ctx, tt.filter)
			require.NoError(t, err)

			var got []string
			for _, item := range items {
				got = append(got, item.URI)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindElementsAndReferences(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertItem(ctx, orderItem()))
	require.NoError(t, storage.UpsertItem(ctx, shippingItem()))

	defs, err := storage.FindElements(ctx, types.RefProcess, "shipping")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, ElementRecord{
		URI:  "file:///proj/shipping.bpmn",
		Kind: types.RefProcess,
		ID:   "shipping",
		Name: "Ship Order",
	}, defs[0])

	defs, err = storage.FindElements(ctx, types.RefDecision, "shipping")
	require.NoError(t, err)
	assert.Empty(t, defs, "kind must match")

	defs, err = storage.FindElements(ctx, "", "shipping")
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	refs, err := storage.FindReferences(ctx, types.RefProcess, "shipping")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ReferenceRecord{
		URI:      "file:///proj/order.bpmn",
		Kind:     types.RefProcess,
		TargetID: "shipping",
		SourceID: "CallShipping",
	}, refs[0])

	refs, err = storage.FindReferences(ctx, "", "discount")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, types.RefDecision, refs[0].Kind)
}

func TestSearchElements(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertItem(ctx, orderItem()))
	require.NoError(t, storage.UpsertItem(ctx, shippingItem()))

	t.Run("matches ids", func(t *testing.T) {
		hits, err := storage.SearchElements(ctx, "ship", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "shipping", hits[0].ID)
	})

	t.Run("matches names case-insensitively", func(t *testing.T) {
		hits, err := storage.SearchElements(ctx, "handling", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "order", hits[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		hits, err := storage.SearchElements(ctx, "order", 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		hits, err := storage.SearchElements(ctx, "%", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.UpsertItem(ctx, orderItem()))
		require.NoError(t, tx.Rollback())

		_, err = storage.GetItem(ctx, orderItem().URI)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("commit applies writes", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.UpsertItem(ctx, orderItem()))
		require.NoError(t, tx.UpsertItem(ctx, shippingItem()))
		require.NoError(t, tx.DeleteItem(ctx, shippingItem().URI))
		require.NoError(t, tx.Commit())

		items, err := storage.ListItems(ctx, nil)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, orderItem().URI, items[0].URI)
	})
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertItem(ctx, orderItem()))
	require.NoError(t, storage.UpsertItem(ctx, shippingItem()))
	require.NoError(t, storage.UpsertItem(ctx, types.Item{URI: "file:///proj/broken.dmn"}))

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.ItemsCount)
	assert.Equal(t, 2, status.ElementsCount)
	assert.Equal(t, 3, status.ReferencesCount)
	assert.Equal(t, 1, status.Unparsed)
	assert.Equal(t, map[types.MetadataType]int{types.TypeBPMN: 2}, status.ItemsByType)
	assert.Greater(t, status.IndexSizeMB, 0.0)
}

func TestSync(t *testing.T) {
	storage := setupTestDB(t)
	bus := events.NewBus()
	ctx := context.Background()

	stop := Sync(bus, storage, nil)

	bus.Publish(events.ItemEvent{Item: orderItem()})
	rec, err := storage.GetItem(ctx, orderItem().URI)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ElementCount)

	// a failed re-parse drops the old elements and references
	failed := orderItem()
	failed.Metadata = nil
	bus.Publish(events.ItemEvent{Item: failed, Failed: true})
	rec, err = storage.GetItem(ctx, failed.URI)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ElementCount)
	assert.Equal(t, 0, rec.ReferenceCount)
	refs, err := storage.FindReferences(ctx, types.RefProcess, "shipping")
	require.NoError(t, err)
	assert.Empty(t, refs)
	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Unparsed)

	bus.Publish(events.ItemEvent{Item: orderItem()})
	rec, err = storage.GetItem(ctx, orderItem().URI)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ElementCount)

	bus.Publish(events.ItemEvent{Item: orderItem(), Removed: true})
	_, err = storage.GetItem(ctx, orderItem().URI)
	assert.ErrorIs(t, err, ErrNotFound)

	stop()
	bus.Publish(events.ItemEvent{Item: shippingItem()})
	_, err = storage.GetItem(ctx, shippingItem().URI)
	assert.ErrorIs(t, err, ErrNotFound, "no writes after stop")
}
