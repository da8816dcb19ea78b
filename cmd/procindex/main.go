package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/procindex-mcp/internal/config"
	"github.com/dshills/procindex-mcp/internal/mcp"
	"github.com/dshills/procindex-mcp/internal/storage"
	"github.com/dshills/procindex-mcp/internal/workspace"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default: user config dir)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ProcIndex MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "procindex: %v\n", err)
		os.Exit(1)
	}
}

// run serves the workspace until a shutdown signal arrives. Extra
// arguments are registered as roots in addition to the configured ones.
func run(configPath string, roots []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// stdout is reserved for the MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("procindex MCP server starting",
		"version", version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"watch", cfg.Watch,
		"workers", cfg.Workers)

	ws, err := workspace.New(cfg, workspace.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Error("failed to close workspace", "err", err)
		}
	}()

	for _, root := range append(cfg.Roots, roots...) {
		ws.AddRoot(root)
	}

	go func() {
		<-ws.Ready()
		logger.Info("initial index complete", "items", len(ws.Items()))
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(ws, logger)
	logger.Info("MCP server ready, listening on stdio")
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
