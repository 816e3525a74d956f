package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"arbor/internal/adapters/tui"
	"arbor/internal/app"
	"arbor/internal/config"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default ~/.arbor/config.toml)")
	logFile := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	if err := run(*cfgFile, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgFile, logFile string) error {
	// the terminal belongs to the UI, so logs go to a file or nowhere
	var out io.Writer = io.Discard
	level := slog.LevelInfo
	if logFile != "" {
		f, err := tea.LogToFile(logFile, "arbor")
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(tui.NewApp(ctx, a), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
