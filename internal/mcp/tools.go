package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/procindex-mcp/internal/indexer"
	"github.com/dshills/procindex-mcp/internal/storage"
	"github.com/dshills/procindex-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodePathNotFound  = -32001 // Specified path does not exist or is not a directory
	ErrorCodeNotIndexed    = -32003 // File not indexed
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleAddRoot handles the add_root tool invocation
func (s *Server) handleAddRoot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	if err := validateDir(path); err != nil {
		return nil, newMCPError(ErrorCodePathNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	s.ws.AddRoot(path)

	response := map[string]interface{}{
		"root":     indexer.PathToURI(path),
		"watching": s.ws.Watching(),
	}

	if getBoolDefault(args, "wait", true) && s.ws.Watching() {
		settled := s.waitReady(ctx) == nil
		response["settled"] = settled
		response["items"] = len(s.ws.Items())
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// waitReady waits for the initial scan to be indexed and any later work to drain
func (s *Server) waitReady(ctx context.Context) error {
	select {
	case <-s.ws.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.ws.Settled(ctx)
}

// handleRemoveRoot handles the remove_root tool invocation
func (s *Server) handleRemoveRoot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	uri := indexer.PathToURI(path)
	watched := false
	for _, root := range s.ws.Roots() {
		if root == uri {
			watched = true
			break
		}
	}

	s.ws.RemoveRoot(path)

	response := map[string]interface{}{
		"root":    uri,
		"removed": watched,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexFile handles the index_file tool invocation
func (s *Server) handleIndexFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	uri, err := requireURI(args, "path")
	if err != nil {
		return nil, err
	}

	content := getStringDefault(args, "content", "")
	processorID := getStringDefault(args, "processor", "")

	p := s.ws.AddFileWithProcessor(uri, content, processorID)
	item, err := p.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing interrupted", map[string]interface{}{
			"error": ctxErr.Error(),
		})
	}

	response := map[string]interface{}{
		"item": newItemView(item),
	}
	if err != nil {
		// the item stays indexed without metadata
		response["error"] = err.Error()
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexFiles handles the index_files tool invocation
func (s *Server) handleIndexFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, ok := args["paths"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "paths parameter is required", map[string]interface{}{
			"param":  "paths",
			"reason": "missing or empty",
		})
	}

	uris := make([]string, 0, len(raw))
	for i, v := range raw {
		str, _ := v.(string)
		uri, err := toURI(str)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  fmt.Sprintf("paths[%d]", i),
				"reason": err.Error(),
			})
		}
		uris = append(uris, uri)
	}

	err := s.ws.AddFiles(ctx, uris)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing interrupted", map[string]interface{}{
			"error": ctxErr.Error(),
		})
	}

	response := map[string]interface{}{
		"files_indexed": len(uris),
	}
	if err != nil {
		response["error"] = err.Error()
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListItems handles the list_items tool invocation
func (s *Server) handleListItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	typ := types.MetadataType(getStringDefault(args, "type", ""))
	prefix := getStringDefault(args, "prefix", "")
	if prefix != "" {
		uri, err := toURI(prefix)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid prefix", map[string]interface{}{
				"param":  "prefix",
				"reason": err.Error(),
			})
		}
		prefix = uri
	}

	items := []map[string]interface{}{}
	for _, item := range s.ws.Items() {
		if prefix != "" && !strings.HasPrefix(item.URI, prefix) {
			continue
		}
		var itemType types.MetadataType
		if item.Metadata != nil {
			itemType = item.Metadata.Type
		}
		if typ != "" && itemType != typ {
			continue
		}
		items = append(items, map[string]interface{}{
			"uri":             item.URI,
			"type":            itemType,
			"parsed":          item.Metadata != nil,
			"has_local_value": item.HasLocalValue(),
		})
	}

	response := map[string]interface{}{
		"count": len(items),
		"items": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetItem handles the get_item tool invocation
func (s *Server) handleGetItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	uri, err := requireURI(args, "path")
	if err != nil {
		return nil, err
	}

	item, err := s.ws.Get(ctx, uri)
	if errors.Is(err, indexer.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "file not indexed", map[string]interface{}{
			"uri": uri,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get item", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"item": newItemView(item),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindReferences handles the find_references tool invocation
func (s *Server) handleFindReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	kind := types.ReferenceKind(getStringDefault(args, "kind", ""))
	switch kind {
	case "", types.RefProcess, types.RefDecision, types.RefForm:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":   "kind",
			"value":   kind,
			"allowed": kindEnum,
		})
	}

	catalog := s.ws.Catalog()
	defs, err := catalog.FindElements(ctx, kind, id)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to find definitions", map[string]interface{}{
			"error": err.Error(),
		})
	}
	refs, err := catalog.FindReferences(ctx, kind, id)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to find references", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if defs == nil {
		defs = []storage.ElementRecord{}
	}
	if refs == nil {
		refs = []storage.ReferenceRecord{}
	}

	response := map[string]interface{}{
		"id":          id,
		"definitions": defs,
		"references":  refs,
	}
	if kind != "" {
		response["kind"] = kind
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchElements handles the search_elements tool invocation
func (s *Server) handleSearchElements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	hits, err := s.ws.Catalog().SearchElements(ctx, query, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if hits == nil {
		hits = []storage.ElementRecord{}
	}

	response := map[string]interface{}{
		"query":   query,
		"count":   len(hits),
		"results": hits,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.ws.Catalog().GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ready := false
	select {
	case <-s.ws.Ready():
		ready = true
	default:
	}

	items := s.ws.Items()
	unparsed := 0
	for _, item := range items {
		if item.Metadata == nil {
			unparsed++
		}
	}

	response := map[string]interface{}{
		"ready":      ready,
		"watching":   s.ws.Watching(),
		"roots":      s.ws.Roots(),
		"extensions": s.ws.Extensions(),
		"statistics": map[string]interface{}{
			"items_count":      len(items),
			"unparsed_count":   unparsed,
			"watched_files":    len(s.ws.Files()),
			"elements_count":   status.ElementsCount,
			"references_count": status.ReferencesCount,
			"items_by_type":    status.ItemsByType,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"catalog": map[string]interface{}{
			"build_mode":     status.BuildMode,
			"schema_version": status.SchemaVersion,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// itemView is the JSON shape of an item. Contents are left out.
type itemView struct {
	URI           string          `json:"uri"`
	Path          string          `json:"path"`
	ProcessorID   string          `json:"processor_id,omitempty"`
	HasLocalValue bool            `json:"has_local_value"`
	Parsed        bool            `json:"parsed"`
	Metadata      *types.Metadata `json:"metadata,omitempty"`
}

func newItemView(item types.Item) itemView {
	return itemView{
		URI:           item.URI,
		Path:          indexer.URIToPath(item.URI),
		ProcessorID:   item.ProcessorID,
		HasLocalValue: item.HasLocalValue(),
		Parsed:        item.Metadata != nil,
		Metadata:      item.Metadata,
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requirePath extracts the absolute "path" argument
func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if strings.HasPrefix(path, "file://") {
		path = indexer.URIToPath(indexer.CanonicalURI(path))
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}
	return filepath.Clean(path), nil
}

// requireURI extracts key as a canonical file URI
func requireURI(args map[string]interface{}, key string) (string, error) {
	raw, _ := args[key].(string)
	if raw == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	uri, err := toURI(raw)
	if err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid "+key, map[string]interface{}{
			"param":  key,
			"reason": err.Error(),
		})
	}
	return uri, nil
}

// toURI accepts a file:// URI or an absolute path
func toURI(s string) (string, error) {
	if s == "" {
		return "", ErrPathRequired
	}
	if strings.HasPrefix(s, "file://") {
		return indexer.CanonicalURI(s), nil
	}
	if !filepath.IsAbs(s) {
		return "", ErrPathNotAbsolute
	}
	return indexer.PathToURI(s), nil
}

// validateDir checks that path is an existing, readable directory
func validateDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
