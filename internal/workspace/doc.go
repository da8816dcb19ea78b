// Package workspace is the entry point to the index. A Workspace owns the
// event bus, the workqueue, the processor registry, the indexer, the disk
// watcher and the catalog, and connects them:
//
//   - roots added to the indexer are watched on disk
//   - files reported by the watcher are added to or removed from the indexer
//   - updated and removed items are mirrored into the catalog
//
// # Readiness
//
// Two signals order startup. WatcherReady closes when the initial scan of
// the roots added first has been reported. Ready closes after that, once
// every pipeline the scan started has settled, so a caller that waits on
// Ready sees the scanned files indexed rather than merely discovered:
//
//	ws, err := workspace.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer ws.Close()
//
//	ws.AddRoot("/work/diagrams")
//	<-ws.Ready()
//	for _, item := range ws.Items() {
//	    // ...
//	}
//
// With watching disabled, Ready closes the first time the workqueue drains.
package workspace
