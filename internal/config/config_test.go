package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ARBOR_HOME", home)
	t.Setenv("ARBOR_SERVER", "")
	t.Setenv("ARBOR_USER", "")
	t.Setenv("ARBOR_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HomeDir != home {
		t.Errorf("expected home %s, got %s", home, cfg.HomeDir)
	}
	if cfg.Client.Server != "http://127.0.0.1:8080" {
		t.Errorf("unexpected server %q", cfg.Client.Server)
	}
	if !cfg.Preferences.EditMode {
		t.Error("expected edit mode on by default")
	}
	if got := cfg.QueuePath(); got != filepath.Join(home, "pending-keys.db") {
		t.Errorf("unexpected queue path %s", got)
	}
	if got := cfg.ServerDatabasePath(); got != filepath.Join(home, "authority.db") {
		t.Errorf("unexpected database path %s", got)
	}
	if d, _ := cfg.RequestTimeout(); d != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", d)
	}
	if cfg.Retry.Schedule != "*/5 * * * *" {
		t.Errorf("unexpected retry schedule %q", cfg.Retry.Schedule)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ARBOR_HOME", home)
	t.Setenv("ARBOR_SERVER", "")
	t.Setenv("ARBOR_USER", "carol")
	t.Setenv("ARBOR_API_KEY", "")

	path := filepath.Join(home, "config.toml")
	data := `
[client]
server = "https://arbor.example:9443"
user = "ann"
api_key = "k-ann"
timeout = "5s"

[preferences]
edit_mode = false
show_read_only = true

[server]
port = 9090
books_dir = "~/books"

[server.api_keys]
k-ann = "ann"
k-ann2 = "ann"
k-bob = "bob"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Client.Server != "https://arbor.example:9443" || cfg.Client.APIKey != "k-ann" {
		t.Errorf("unexpected client %+v", cfg.Client)
	}
	if cfg.Client.User != "carol" {
		t.Errorf("expected env to override user, got %q", cfg.Client.User)
	}
	if cfg.Preferences.EditMode || !cfg.Preferences.ShowReadOnly {
		t.Errorf("unexpected preferences %+v", cfg.Preferences)
	}
	if cfg.Server.Port != 9090 || cfg.Server.AdminUser != "admin" {
		t.Errorf("expected file values merged over defaults, got %+v", cfg.Server)
	}
	userHome, _ := os.UserHomeDir()
	if cfg.Server.BooksDir != filepath.Join(userHome, "books") {
		t.Errorf("expected ~ expanded, got %s", cfg.Server.BooksDir)
	}
	if d, _ := cfg.RequestTimeout(); d != 5*time.Second {
		t.Errorf("expected 5s, got %v", d)
	}

	users := cfg.Server.Users()
	if len(users) != 2 {
		t.Errorf("expected 2 distinct users, got %v", users)
	}
	want := map[string]string{"k-ann": "ann", "k-ann2": "ann", "k-bob": "bob"}
	if diff := cmp.Diff(want, cfg.Server.APIKeys); diff != "" {
		t.Errorf("api keys mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ARBOR_HOME", home)

	tests := []struct {
		name string
		data string
	}{
		{"bad toml", "[client\nserver = 1"},
		{"bad timeout", "[client]\ntimeout = \"soon\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(home, "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
