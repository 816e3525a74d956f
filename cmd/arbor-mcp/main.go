package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "arbor/internal/adapters/mcp"
	"arbor/internal/app"
	"arbor/internal/config"
)

const version = "0.1.0"

func main() {
	configFlag := flag.String("config", "", "path to config.toml (default ~/.arbor/config.toml)")
	verbose := flag.Bool("verbose", false, "log debug output to stderr")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr only
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("arbor-mcp: %v", err)
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("arbor-mcp: %v", err)
	}
	defer a.Close()

	mcpServer := mcpadapter.NewServer(a, version)
	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("arbor-mcp: %v", err)
	}
}
