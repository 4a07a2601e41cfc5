package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirHonorsOverride(t *testing.T) {
	t.Setenv("VIMO_DATA_DIR", "/tmp/custom-vimo")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if dir != "/tmp/custom-vimo" {
		t.Errorf("got %q, want override path", dir)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.LogLevel != "info" {
		t.Errorf("default log level = %q, want info", cfg.LogLevel)
	}
	if !cfg.Watch.Enabled {
		t.Error("watch should be enabled by default")
	}
	if cfg.Push.QueueSize != 256 {
		t.Errorf("default push queue size = %d, want 256", cfg.Push.QueueSize)
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("loaded default log level = %q, want info", cfg.LogLevel)
	}

	path, _ := Path()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config.json to be persisted: %v", err)
	}
}

func TestLoadFillsMissingKeysFromDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", tmpDir)

	if err := Save(Config{LogLevel: "debug"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug (preserved)", cfg.LogLevel)
	}
	if cfg.Push.QueueSize != 256 {
		t.Errorf("push queue size = %d, want default 256 filled in", cfg.Push.QueueSize)
	}
}

func TestWatchDebounceDuration(t *testing.T) {
	w := WatchConfig{Debounce: "5s"}
	if got := w.DebounceDuration(); got.Seconds() != 5 {
		t.Errorf("debounce = %v, want 5s", got)
	}

	w = WatchConfig{}
	if got := w.DebounceDuration(); got.Seconds() != 2 {
		t.Errorf("empty debounce default = %v, want 2s", got)
	}
}

func TestSocketAndDatabasePaths(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", tmpDir)

	sock, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath failed: %v", err)
	}
	if filepath.Base(sock) != "agent.sock" {
		t.Errorf("socket path = %q, want suffix agent.sock", sock)
	}

	dbPath, err := DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath failed: %v", err)
	}
	if filepath.Base(dbPath) != "sessions.db" {
		t.Errorf("db path = %q, want suffix sessions.db", dbPath)
	}
}
