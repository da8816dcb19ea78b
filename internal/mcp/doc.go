// Package mcp exposes a workspace over the Model Context Protocol (MCP).
//
// The server speaks JSON-RPC 2.0 over stdio and offers these tools:
//   - add_root, remove_root: watch or stop watching a directory
//   - index_file, index_files: index files on demand, optionally with unsaved content
//   - list_items, get_item: inspect indexed items and their extracted metadata
//   - find_references: locate a process, decision or form and its callers
//   - search_elements: substring search over element ids and names
//   - get_status: readiness, roots and catalog statistics
//
// # Basic Usage
//
//	ws, err := workspace.New(cfg, workspace.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer ws.Close()
//
//	srv := mcp.NewServer(ws, logger)
//	return srv.Serve(ctx)
//
// # Tool: find_references
//
//	Request:
//	{
//	  "name": "find_references",
//	  "arguments": {"id": "ShippingProcess", "kind": "process"}
//	}
//
//	Response:
//	{
//	  "id": "ShippingProcess",
//	  "kind": "process",
//	  "definitions": [
//	    {"uri": "file:///work/shipping.bpmn", "kind": "process", "id": "ShippingProcess", "name": "Shipping"}
//	  ],
//	  "references": [
//	    {"uri": "file:///work/order.bpmn", "kind": "process", "target_id": "ShippingProcess", "source_id": "CallShipping"}
//	  ]
//	}
//
// # Error Handling
//
// Handlers return *MCPError values that the framework encodes as JSON-RPC errors:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (catalog, cancelled request)
//   - -32001: Path not found or not a directory
//   - -32003: File not indexed
//   - -32004: Empty search query
//
// A file that fails to parse is not an error at the protocol level. index_file
// returns the item without metadata together with the parse error.
//
// # Logging
//
// stdout carries the protocol, so all logging goes to stderr.
package mcp
