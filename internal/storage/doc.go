// Package storage provides the SQLite-backed catalog: a relational projection
// of the metadata held by the index, used to answer cross-file questions such
// as "which diagrams call process X".
//
// The catalog is derived state. It is rebuilt from scratch on every start and
// is normally kept in memory; the index itself remains the source of truth.
//
// # Database Schema
//
// Tables:
//   - items: One row per indexed URI (metadata type, processor, platform)
//   - elements: Processes, decisions and forms defined by an item
//   - refs: Process, decision and form ids an item references
//   - schema_version: Applied migrations
//
// elements and refs cascade on item deletion.
//
// # Basic Usage
//
//	db, err := storage.NewMemory()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	stop := storage.Sync(bus, db, logger)
//	defer stop()
//
// # Transactions
//
// UpsertItem replaces an item's rows atomically. Use a transaction to apply
// several changes together:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertItem(ctx, itemA)
//	_ = tx.DeleteItem(ctx, staleURI)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Query Patterns
//
//	// Where is the process "invoice" defined?
//	defs, err := db.FindElements(ctx, types.RefProcess, "invoice")
//
//	// Which items call it?
//	refs, err := db.FindReferences(ctx, types.RefProcess, "invoice")
//
//	// Substring search over element ids and names
//	hits, err := db.SearchElements(ctx, "approv", 20)
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
package storage
