// Package indexer owns the index: the set of watched roots and one item per file URI.
//
// Every add starts a per-item pipeline (read -> parse -> store) that runs on its
// own goroutine and is registered with a workqueue so callers can detect when
// all indexing work has settled.
//
// # Basic Usage
//
//	queue := workqueue.New(onEmpty)
//	idx := indexer.New(indexer.FileSystemReader{}, processor.Default(logger), queue, bus, indexer.Config{})
//
//	p := idx.Add("/work/order.bpmn", "")
//	item, err := p.Wait(ctx)
//	if err != nil {
//	    // *types.ParseError or *types.NoProcessorError; the item stays indexed
//	}
//
// # Pipeline
//
//  1. Read: the file is read through the injected Reader. A failed read is
//     logged and the pipeline continues with an empty file.
//  2. Parse: the item's effective value (local override, else disk contents)
//     is handed to the processor. At most Config.Workers parse phases run at once.
//     Successful results are cached by a hash of the contents and the
//     processor selection, so saving an unchanged file skips the processor.
//  3. Store: on success the metadata is stored and ItemUpdated is published.
//     On failure the error is logged, the metadata is cleared, ItemFailed is
//     published and the pipeline resolves with the error. Nothing is retried.
//
// # Generations
//
// Each add gives the item a fresh generation from a counter shared by all items,
// so removing and re-adding a file never reuses one. A pipeline only commits when the
// generation it captured at start is still current, so re-adding a file while
// its pipeline is in flight supersedes the old run instead of queueing behind
// it, and a stale result can never overwrite fresher state:
//
//	p1 := idx.Add(uri, "v1")
//	p2 := idx.Add(uri, "v2")
//	// the stored metadata is derived from "v2" whichever finishes first
//
// Get waits for the item's current pipeline rather than starting another one.
//
// # Local Overrides
//
// FileOpened and FileContentChanged set an in-memory value that wins over the
// disk contents. FileClosed clears it and re-parses from disk; the item is
// kept. Remove deletes the item outright and publishes ItemRemoved.
//
// # Roots
//
// AddRoot and RemoveRoot only maintain the root set and publish RootAdded and
// RootRemoved for the watcher. Removing a root does not remove items that
// were discovered under it.
package indexer
