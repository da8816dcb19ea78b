// Package types provides shared type definitions for the procindex server.
//
// This package defines domain types used across the indexing components,
// including indexed items, extracted metadata and the pipeline error taxonomy.
//
// # Core Types
//
// Item represents one indexed file, identified by its canonical file:// URI:
//
//	item := types.Item{
//	    URI:        "file:///work/order.bpmn",
//	    LocalValue: unsavedBuffer,
//	    File:       types.File{Path: "/work/order.bpmn", Contents: onDisk},
//	}
//
// An in-memory edit always wins over the on-disk copy:
//
//	item.EffectiveValue() // unsavedBuffer when non-empty, onDisk otherwise
//
// Metadata is the result of processing a file. Processors fill the element
// lists they know about and record the identifiers the file references:
//
//	md := &types.Metadata{
//	    Type:      types.TypeBPMN,
//	    Processes: []types.Element{{ID: "order", Name: "Order"}},
//	    References: []types.Reference{
//	        {Kind: types.RefDecision, TargetID: "discount", SourceID: "Task_1"},
//	    },
//	}
//
// # Errors
//
// Pipeline failures are either a *NoProcessorError (no processor matches the
// file, matched by errors.Is(err, ErrNoProcessorFound)) or a *ParseError
// wrapping the processor's cause. A *ReadError is recovered locally by the
// indexer and never surfaces as a pipeline failure.
package types
