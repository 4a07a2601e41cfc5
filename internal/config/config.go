// Package config resolves the on-disk data directory used by the Agent,
// the Client Library, and the CLIs, and persists small pieces of state
// (settings, live-instance bookkeeping) there.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config holds the Agent's tunable settings, persisted as config.json in
// the data directory.
type Config struct {
	LogLevel string      `json:"log_level"` // zerolog level name: debug/info/warn/error
	Watch    WatchConfig `json:"watch"`
	Push     PushConfig  `json:"push"`
}

// WatchConfig controls the Agent's filesystem watcher.
type WatchConfig struct {
	Enabled  bool   `json:"enabled"`
	Debounce string `json:"debounce"` // duration string, e.g. "2s"
}

// DebounceDuration returns the parsed debounce duration (default 2s).
func (w WatchConfig) DebounceDuration() time.Duration {
	if w.Debounce != "" {
		if d, err := time.ParseDuration(w.Debounce); err == nil {
			return d
		}
	}
	return 2 * time.Second
}

// PushConfig controls the Agent's outbound event queue per connection.
type PushConfig struct {
	QueueSize    int    `json:"queue_size"`
	BlockTimeout string `json:"block_timeout"` // duration string, e.g. "200ms"
}

// BlockTimeoutDuration returns the parsed block timeout (default 200ms).
func (p PushConfig) BlockTimeoutDuration() time.Duration {
	if p.BlockTimeout != "" {
		if d, err := time.ParseDuration(p.BlockTimeout); err == nil {
			return d
		}
	}
	return 200 * time.Millisecond
}

// Dir returns the path to the data directory (~/.vimo by default),
// overridable with the VIMO_DATA_DIR environment variable.
func Dir() (string, error) {
	if override := os.Getenv("VIMO_DATA_DIR"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vimo"), nil
}

// Path returns the path to the main config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// SocketPath returns the default Agent IPC endpoint, <data_dir>/agent.sock.
func SocketPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "agent.sock"), nil
}

// DatabasePath returns the default Storage file, <data_dir>/sessions.db.
func DatabasePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// Default returns a configuration with all defaults set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: "2s",
		},
		Push: PushConfig{
			QueueSize:    256,
			BlockTimeout: "200ms",
		},
	}
}

// Load reads the configuration from <data_dir>/config.json, creating it
// with defaults if absent. Keys missing from an existing file, and empty or
// zero-valued settings, are filled in from Default() so older config files
// don't disable new features; watch.enabled is taken as written.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := Save(cfg); saveErr != nil {
			return cfg, nil
		}
		return cfg, nil
	} else if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	def := Default()
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = def.Watch.Debounce
	}
	if cfg.Push.QueueSize <= 0 {
		cfg.Push.QueueSize = def.Push.QueueSize
	}
	if cfg.Push.BlockTimeout == "" {
		cfg.Push.BlockTimeout = def.Push.BlockTimeout
	}
	return cfg, nil
}

// Save writes the configuration to <data_dir>/config.json.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
