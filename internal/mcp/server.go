package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/procindex-mcp/internal/workspace"
)

const (
	// ServerName is the MCP server name
	ServerName = "procindex-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	ws     *workspace.Workspace
	logger *slog.Logger
}

// NewServer creates a new MCP server over ws. The caller keeps ownership of ws.
func NewServer(ws *workspace.Workspace, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:    mcpServer,
		ws:     ws,
		logger: logger.With("component", "mcp"),
	}

	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Roots
	s.mcp.AddTool(addRootTool(), s.handleAddRoot)
	s.mcp.AddTool(removeRootTool(), s.handleRemoveRoot)

	// Files
	s.mcp.AddTool(indexFileTool(), s.handleIndexFile)
	s.mcp.AddTool(indexFilesTool(), s.handleIndexFiles)
	s.mcp.AddTool(listItemsTool(), s.handleListItems)
	s.mcp.AddTool(getItemTool(), s.handleGetItem)

	// Catalog queries
	s.mcp.AddTool(findReferencesTool(), s.handleFindReferences)
	s.mcp.AddTool(searchElementsTool(), s.handleSearchElements)

	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
