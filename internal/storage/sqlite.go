package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// DefaultSearchLimit caps SearchElements when no limit is given
const DefaultSearchLimit = 50

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps an in-memory database alive and serialises writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != MemoryDSN {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// NewMemory creates a catalog backed by a private in-memory database
func NewMemory() (*SQLiteStorage, error) {
	return NewSQLiteStorage(MemoryDSN)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) UpsertItem(ctx context.Context, item types.Item) error {
	return t.storage.upsertItemWithQuerier(ctx, t.tx, item)
}

func (t *sqliteTx) DeleteItem(ctx context.Context, uri string) error {
	return t.storage.deleteItemWithQuerier(ctx, t.tx, uri)
}

// Item operations

// UpsertItem replaces the item row and all of its elements and references in one transaction
func (s *SQLiteStorage) UpsertItem(ctx context.Context, item types.Item) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := tx.UpsertItem(ctx, item); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// upsertItemWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertItemWithQuerier(ctx context.Context, q querier, item types.Item) error {
	md := item.Metadata
	if md == nil {
		md = &types.Metadata{}
	}

	query := `
		INSERT INTO items (uri, type, processor_id, execution_platform, execution_platform_version, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			type = excluded.type,
			processor_id = excluded.processor_id,
			execution_platform = excluded.execution_platform,
			execution_platform_version = excluded.execution_platform_version,
			indexed_at = excluded.indexed_at
	`
	_, err := q.ExecContext(ctx, query,
		item.URI, string(md.Type), item.ProcessorID,
		md.ExecutionPlatform, md.ExecutionPlatformVersion, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM elements WHERE uri = ?", item.URI); err != nil {
		return fmt.Errorf("failed to clear elements: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM refs WHERE uri = ?", item.URI); err != nil {
		return fmt.Errorf("failed to clear references: %w", err)
	}

	for kind, elements := range md.Elements() {
		for _, el := range elements {
			_, err := q.ExecContext(ctx,
				"INSERT INTO elements (uri, kind, element_id, name) VALUES (?, ?, ?, ?)",
				item.URI, string(kind), el.ID, el.Name)
			if err != nil {
				return fmt.Errorf("failed to insert element %s: %w", el.ID, err)
			}
		}
	}

	for _, ref := range md.References {
		_, err := q.ExecContext(ctx,
			"INSERT INTO refs (uri, kind, target_id, source_element) VALUES (?, ?, ?, ?)",
			item.URI, string(ref.Kind), ref.TargetID, ref.SourceID)
		if err != nil {
			return fmt.Errorf("failed to insert reference %s: %w", ref.TargetID, err)
		}
	}

	return nil
}

// DeleteItem removes an item and everything derived from it.
// Deleting an unknown item is not an error.
func (s *SQLiteStorage) DeleteItem(ctx context.Context, uri string) error {
	return s.deleteItemWithQuerier(ctx, s.db, uri)
}

func (s *SQLiteStorage) deleteItemWithQuerier(ctx context.Context, q querier, uri string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM items WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

const itemColumns = `
	i.uri, i.type, i.processor_id, i.execution_platform, i.execution_platform_version, i.indexed_at,
	(SELECT COUNT(*) FROM elements e WHERE e.uri = i.uri),
	(SELECT COUNT(*) FROM refs r WHERE r.uri = i.uri)
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (*ItemRecord, error) {
	var rec ItemRecord
	var typ string
	var indexedAt int64
	err := row.Scan(&rec.URI, &typ, &rec.ProcessorID, &rec.ExecutionPlatform,
		&rec.ExecutionPlatformVersion, &indexedAt, &rec.ElementCount, &rec.ReferenceCount)
	if err != nil {
		return nil, err
	}
	rec.Type = types.MetadataType(typ)
	rec.IndexedAt = time.Unix(0, indexedAt)
	return &rec, nil
}

func (s *SQLiteStorage) GetItem(ctx context.Context, uri string) (*ItemRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items i WHERE i.uri = ?", uri)
	rec, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStorage) ListItems(ctx context.Context, filter *ItemFilter) ([]*ItemRecord, error) {
	var where []string
	var args []interface{}
	if filter != nil {
		if filter.Type != "" {
			where = append(where, "i.type = ?")
			args = append(args, string(filter.Type))
		}
		if filter.URIPrefix != "" {
			where = append(where, `i.uri LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(filter.URIPrefix)+"%")
		}
	}

	query := "SELECT " + itemColumns + " FROM items i"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.uri"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*ItemRecord
	for rows.Next() {
		rec, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// Lookups

// FindElements returns every definition of id. An empty kind matches all kinds.
func (s *SQLiteStorage) FindElements(ctx context.Context, kind types.ReferenceKind, id string) ([]ElementRecord, error) {
	query := `
		SELECT uri, kind, element_id, name
		FROM elements
		WHERE element_id = ? AND (? = '' OR kind = ?)
		ORDER BY uri, kind
	`
	return s.queryElements(ctx, query, id, string(kind), string(kind))
}

// FindReferences returns every item that refers to targetID. An empty kind matches all kinds.
func (s *SQLiteStorage) FindReferences(ctx context.Context, kind types.ReferenceKind, targetID string) ([]ReferenceRecord, error) {
	query := `
		SELECT uri, kind, target_id, source_element
		FROM refs
		WHERE target_id = ? AND (? = '' OR kind = ?)
		ORDER BY uri, source_element
	`
	rows, err := s.db.QueryContext(ctx, query, targetID, string(kind), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to find references: %w", err)
	}
	defer rows.Close()

	var refs []ReferenceRecord
	for rows.Next() {
		var ref ReferenceRecord
		var k string
		if err := rows.Scan(&ref.URI, &k, &ref.TargetID, &ref.SourceID); err != nil {
			return nil, err
		}
		ref.Kind = types.ReferenceKind(k)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SearchElements matches query as a case-insensitive substring of element ids and names
func (s *SQLiteStorage) SearchElements(ctx context.Context, query string, limit int) ([]ElementRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	pattern := "%" + escapeLike(query) + "%"
	sqlQuery := `
		SELECT uri, kind, element_id, name
		FROM elements
		WHERE element_id LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\'
		ORDER BY element_id, uri
		LIMIT ?
	`
	return s.queryElements(ctx, sqlQuery, pattern, pattern, limit)
}

func (s *SQLiteStorage) queryElements(ctx context.Context, query string, args ...interface{}) ([]ElementRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	defer rows.Close()

	var elements []ElementRecord
	for rows.Next() {
		var el ElementRecord
		var k string
		if err := rows.Scan(&el.URI, &k, &el.ID, &el.Name); err != nil {
			return nil, err
		}
		el.Kind = types.ReferenceKind(k)
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// escapeLike escapes LIKE wildcards so query is matched literally
func escapeLike(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(query)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{
		ItemsByType: make(map[types.MetadataType]int),
		BuildMode:   BuildMode,
	}

	rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM items GROUP BY type")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			rows.Close()
			return nil, err
		}
		status.ItemsCount += n
		if typ == "" {
			status.Unparsed = n
			continue
		}
		status.ItemsByType[types.MetadataType(typ)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM elements").Scan(&status.ElementsCount)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM refs").Scan(&status.ReferencesCount)
	if err != nil {
		return nil, err
	}

	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}
