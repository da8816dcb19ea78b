package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var kindEnum = []string{"process", "decision", "form"}

// addRootTool returns the tool definition for add_root
func addRootTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_root",
		Description: "Watch a directory and index every BPMN, DMN, form and process application file below it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory",
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, respond only after pending indexing work has settled",
					"default":     true,
				},
			},
			Required: []string{"path"},
		},
	}
}

// removeRootTool returns the tool definition for remove_root
func removeRootTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_root",
		Description: "Stop watching a directory. Items already indexed below it are kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a watched directory",
				},
			},
			Required: []string{"path"},
		},
	}
}

// indexFileTool returns the tool definition for index_file
func indexFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_file",
		Description: "Index or re-index a single file, optionally with unsaved content",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute file path or file:// URI",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "In-memory content that overrides the file on disk",
				},
				"processor": map[string]interface{}{
					"type":        "string",
					"description": "Processor id to use instead of extension matching",
					"enum":        []string{"bpmn", "dmn", "form", "processApplication"},
				},
			},
			Required: []string{"path"},
		},
	}
}

// indexFilesTool returns the tool definition for index_files
func indexFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_files",
		Description: "Index several files and wait until all of them have been processed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"description": "Absolute file paths or file:// URIs",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"paths"},
		},
	}
}

// listItemsTool returns the tool definition for list_items
func listItemsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_items",
		Description: "List indexed items",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Only items of this metadata type",
					"enum":        []string{"bpmn", "dmn", "form", "processApplication"},
				},
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Only items whose path starts with this absolute path",
				},
			},
		},
	}
}

// getItemTool returns the tool definition for get_item
func getItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_item",
		Description: "Return the extracted metadata of one indexed file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute file path or file:// URI",
				},
			},
			Required: []string{"path"},
		},
	}
}

// findReferencesTool returns the tool definition for find_references
func findReferencesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_references",
		Description: "Find where a process, decision or form is defined and which files reference it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Process, decision or form id",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one kind of element",
					"enum":        kindEnum,
				},
			},
			Required: []string{"id"},
		},
	}
}

// searchElementsTool returns the tool definition for search_elements
func searchElementsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_elements",
		Description: "Search process, decision and form definitions by id or name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of an id or name",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report watched roots, readiness and index statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
