package storage

import (
	"context"
	"time"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// Writer mutates the catalog. Both Storage and Tx implement it.
type Writer interface {
	// UpsertItem replaces every row derived from item.URI with item's metadata.
	// An item without metadata keeps its row but loses its elements and references.
	UpsertItem(ctx context.Context, item types.Item) error
	DeleteItem(ctx context.Context, uri string) error
}

// Storage defines the query side of the index: a relational projection of
// every item's metadata
type Storage interface {
	Writer

	// Item operations
	GetItem(ctx context.Context, uri string) (*ItemRecord, error)
	ListItems(ctx context.Context, filter *ItemFilter) ([]*ItemRecord, error)

	// Element and reference lookups
	FindElements(ctx context.Context, kind types.ReferenceKind, id string) ([]ElementRecord, error)
	FindReferences(ctx context.Context, kind types.ReferenceKind, targetID string) ([]ReferenceRecord, error)
	SearchElements(ctx context.Context, query string, limit int) ([]ElementRecord, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Writer
}

// ItemRecord is the catalog row for one indexed item
type ItemRecord struct {
	URI                      string             `json:"uri"`
	Type                     types.MetadataType `json:"type,omitempty"`
	ProcessorID              string             `json:"processor_id,omitempty"`
	ExecutionPlatform        string             `json:"execution_platform,omitempty"`
	ExecutionPlatformVersion string             `json:"execution_platform_version,omitempty"`
	ElementCount             int                `json:"element_count"`
	ReferenceCount           int                `json:"reference_count"`
	IndexedAt                time.Time          `json:"indexed_at"`
}

// ItemFilter narrows ListItems. Zero fields match everything.
type ItemFilter struct {
	Type      types.MetadataType
	URIPrefix string
}

// ElementRecord is an element definition and the item that declares it
type ElementRecord struct {
	URI  string              `json:"uri"`
	Kind types.ReferenceKind `json:"kind"`
	ID   string              `json:"id"`
	Name string              `json:"name,omitempty"`
}

// ReferenceRecord is a reference and the item that makes it
type ReferenceRecord struct {
	URI      string              `json:"uri"`
	Kind     types.ReferenceKind `json:"kind"`
	TargetID string              `json:"target_id"`
	SourceID string              `json:"source_id,omitempty"`
}

// Status summarises catalog contents
type Status struct {
	ItemsCount      int                        `json:"items_count"`
	ElementsCount   int                        `json:"elements_count"`
	ReferencesCount int                        `json:"references_count"`
	ItemsByType     map[types.MetadataType]int `json:"items_by_type"`
	Unparsed        int                        `json:"unparsed"`
	IndexSizeMB     float64                    `json:"index_size_mb"`
	BuildMode       string                     `json:"build_mode"`
	SchemaVersion   string                     `json:"schema_version"`
}
