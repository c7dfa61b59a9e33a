package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/flowsync/pkg/store"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Point XDG at an empty directory so no real config leaks in.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Serve.Listen != "127.0.0.1:8735" {
		t.Errorf("listen = %q, want default", cfg.Serve.Listen)
	}
	if cfg.Store.Backend != store.BackendFile {
		t.Errorf("backend = %q, want file", cfg.Store.Backend)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
debounce_ms = 100

[serve]
listen = "0.0.0.0:9000"

[store]
backend = "memory"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.DebounceMs != 100 {
		t.Errorf("debounce_ms = %d, want 100", cfg.DebounceMs)
	}
	if cfg.Serve.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q", cfg.Serve.Listen)
	}
	if cfg.Store.Backend != store.BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Store.Backend)
	}
}

func TestLoadConfigPartialFileBackfillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("debounce_ms = 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Serve.Listen != "127.0.0.1:8735" {
		t.Errorf("listen = %q, want default backfill", cfg.Serve.Listen)
	}
	if cfg.Store.Backend != store.BackendFile {
		t.Errorf("backend = %q, want default backfill", cfg.Store.Backend)
	}
}

func TestLoadConfigXDGLocation(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir := filepath.Join(xdg, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[serve]\nlisten = \"127.0.0.1:7000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Serve.Listen != "127.0.0.1:7000" {
		t.Errorf("listen = %q, want value from XDG config", cfg.Serve.Listen)
	}
}

func TestOpenStoreBackends(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := openStore(context.Background(), StoreConfig{Backend: store.BackendMemory})
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		defer s.Close()
		if store.BackendName(s) != store.BackendMemory {
			t.Errorf("backend = %q", store.BackendName(s))
		}
	})

	t.Run("file with explicit path", func(t *testing.T) {
		s, err := openStore(context.Background(), StoreConfig{Backend: store.BackendFile, Path: t.TempDir()})
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		defer s.Close()
		if store.BackendName(s) != store.BackendFile {
			t.Errorf("backend = %q", store.BackendName(s))
		}
	})
}
