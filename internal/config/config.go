// Package config handles loading and managing arbor configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ClientConfig holds the connection to the authority server.
type ClientConfig struct {
	Server        string `toml:"server"`         // Authority base URL
	User          string `toml:"user"`           // Account name
	APIKey        string `toml:"api_key"`        // Sent as X-API-Key
	AllowInsecure bool   `toml:"allow_insecure"` // Permit plain http
	Timeout       string `toml:"timeout"`        // Request timeout, e.g. "30s"
	TestAccount   bool   `toml:"test_account"`   // Gets truncated sample books
}

// KeysConfig locates the local key pair.
type KeysConfig struct {
	PrivateKey string `toml:"private_key"`
	PublicKey  string `toml:"public_key"`
}

// PreferencesConfig holds the initial editing preferences.
type PreferencesConfig struct {
	EditMode     bool `toml:"edit_mode"`
	ShowReadOnly bool `toml:"show_read_only"`
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// ServerConfig holds the reference authority server configuration.
type ServerConfig struct {
	BindAddr     string            `toml:"bind_addr"`
	Port         int               `toml:"port"`
	APIKeys      map[string]string `toml:"api_keys"`    // API key -> user name
	PublicKeys   map[string]string `toml:"public_keys"` // user name -> public key
	AdminUser    string            `toml:"admin_user"`
	DatabasePath string            `toml:"database_path"`
	BooksDir     string            `toml:"books_dir"`
	RateLimitRPS float64           `toml:"rate_limit_rps"`
	RateBurst    int               `toml:"rate_burst"`
	TestAccounts []string          `toml:"test_accounts"`
}

// RetryConfig schedules retries of undelivered content keys.
type RetryConfig struct {
	Schedule string `toml:"schedule"` // Cron expression
}

// Config represents the arbor configuration.
type Config struct {
	Client      ClientConfig      `toml:"client"`
	Keys        KeysConfig        `toml:"keys"`
	Preferences PreferencesConfig `toml:"preferences"`
	Data        DataConfig        `toml:"data"`
	Server      ServerConfig      `toml:"server"`
	Retry       RetryConfig       `toml:"retry"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default arbor home directory.
// Respects ARBOR_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("ARBOR_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".arbor"
	}
	return filepath.Join(home, ".arbor")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.arbor/config.toml).
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		// Defaults
		Client: ClientConfig{
			Server:  "http://127.0.0.1:8080",
			Timeout: "30s",
		},
		Keys: KeysConfig{
			PrivateKey: filepath.Join(homeDir, "keys", "private.key"),
			PublicKey:  filepath.Join(homeDir, "keys", "public.key"),
		},
		Preferences: PreferencesConfig{
			EditMode: true,
		},
		Data: DataConfig{
			DataDir: homeDir,
		},
		Server: ServerConfig{
			BindAddr:     "127.0.0.1",
			Port:         8080,
			AdminUser:    "admin",
			RateLimitRPS: 10,
			RateBurst:    20,
		},
		Retry: RetryConfig{
			Schedule: "*/5 * * * *",
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	cfg.applyEnv()

	// Expand ~ in paths
	cfg.Keys.PrivateKey = expandPath(cfg.Keys.PrivateKey)
	cfg.Keys.PublicKey = expandPath(cfg.Keys.PublicKey)
	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)
	cfg.Server.DatabasePath = expandPath(cfg.Server.DatabasePath)
	cfg.Server.BooksDir = expandPath(cfg.Server.BooksDir)

	if _, err := cfg.RequestTimeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides single client values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("ARBOR_SERVER"); v != "" {
		c.Client.Server = v
	}
	if v := os.Getenv("ARBOR_USER"); v != "" {
		c.Client.User = v
	}
	if v := os.Getenv("ARBOR_API_KEY"); v != "" {
		c.Client.APIKey = v
	}
}

// RequestTimeout parses the client timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Client.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Client.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid client timeout %q: %w", c.Client.Timeout, err)
	}
	return d, nil
}

// QueuePath returns the path to the pending key queue database.
func (c *Config) QueuePath() string {
	return filepath.Join(c.Data.DataDir, "pending-keys.db")
}

// ServerDatabasePath returns the path to the authority database.
func (c *Config) ServerDatabasePath() string {
	if c.Server.DatabasePath != "" {
		return c.Server.DatabasePath
	}
	return filepath.Join(c.Data.DataDir, "authority.db")
}

// Users returns the distinct user names that own an API key.
func (s ServerConfig) Users() []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range s.APIKeys {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
