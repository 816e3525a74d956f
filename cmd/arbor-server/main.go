package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arbor/internal/api"
	"arbor/internal/authority"
	"arbor/internal/authority/sqlstore"
	"arbor/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "arbor-server",
	Short: "Reference authority server for arbor content trees",
	Long: `arbor-server keeps a content tree in SQLite and serves the authority
operations over HTTP. Accounts are created for every user named in
[server.api_keys] and [server.test_accounts].`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := sqlstore.Open(cfg.ServerDatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	svc := authority.NewService(store).WithLogger(logger).WithBooksDir(cfg.Server.BooksDir)
	if err := svc.Bootstrap(ctx, cfg.Server.AdminUser); err != nil {
		return fmt.Errorf("failed to bootstrap repository: %w", err)
	}
	if err := ensureAccounts(ctx, svc, cfg.Server); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer := api.NewServer(cfg.Server, svc, logger)
	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	fmt.Printf("arbor-server started\n")
	fmt.Printf("  API server: http://%s\n", net.JoinHostPort(cfg.Server.BindAddr, strconv.Itoa(cfg.Server.Port)))
	fmt.Printf("  Database: %s\n", cfg.ServerDatabasePath())
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}
	return nil
}

// ensureAccounts creates the configured accounts and refreshes their
// public keys.
func ensureAccounts(ctx context.Context, svc *authority.Service, cfg config.ServerConfig) error {
	users := cfg.Users()
	for _, name := range cfg.TestAccounts {
		if !slices.Contains(users, name) {
			users = append(users, name)
		}
	}
	for name := range cfg.PublicKeys {
		if !slices.Contains(users, name) {
			users = append(users, name)
		}
	}
	slices.Sort(users)

	for _, name := range users {
		opts := authority.AccountOptions{
			PublicKey: cfg.PublicKeys[name],
			Admin:     name == cfg.AdminUser,
			Test:      slices.Contains(cfg.TestAccounts, name),
		}
		if _, err := svc.EnsureUser(ctx, name, opts); err != nil {
			return fmt.Errorf("failed to create account %s: %w", name, err)
		}
	}
	return nil
}

func main() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ~/.arbor/config.toml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
