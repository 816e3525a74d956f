package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"arbor/internal/app"
	"arbor/internal/config"
)

var (
	cfgFile  string
	verbose  bool
	assumeOK bool
	cfg      *config.Config
	logger   *slog.Logger
	current  *app.App
)

var rootCmd = &cobra.Command{
	Use:   "arbor-cli",
	Short: "CLI for editing an arbor content tree",
	Long: `arbor-cli is a command-line interface for editing a hierarchical
content tree kept by an arbor authority server.

It provides commands to browse, create, edit, move, share, encrypt and
delete nodes, and to retry delivery of encryption keys to the people a
node is shared with.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current != nil {
			return current.Close()
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.arbor/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&assumeOK, "yes", "y", false, "answer yes to confirmations")
}

// GetApp connects to the authority on first use
func GetApp(ctx context.Context) (*app.App, error) {
	if current != nil {
		return current, nil
	}
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	current = a
	return a, nil
}

// confirm asks a yes/no question on stdin unless --yes was given.
func confirm(in io.Reader, out io.Writer, title, prompt string) bool {
	if assumeOK {
		return true
	}
	if title != "" {
		fmt.Fprintln(out, title)
	}
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// confirmCmd is confirm on the command's own streams.
func confirmCmd(cmd *cobra.Command, title, prompt string) bool {
	return confirm(cmd.InOrStdin(), cmd.OutOrStdout(), title, prompt)
}
