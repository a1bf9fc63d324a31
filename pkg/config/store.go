package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	configFileName = "mic_config.json"
	debounceDelay  = 500 * time.Millisecond
)

// Store is an atomic JSON file store with debounced writes. Load returns
// defaults for a missing or corrupt file; a half-written file can never
// replace a good one because writes go through a temp file and rename.
type Store struct {
	mu      sync.Mutex
	path    string
	timer   *time.Timer
	pending *Config
}

// NewStore creates a store rooted at the given config directory.
func NewStore(configDir string) *Store {
	return &Store{path: filepath.Join(configDir, configFileName)}
}

// Path returns the file path used by this store.
func (s *Store) Path() string { return s.path }

// Load reads the configuration from disk. Returns Default() on ENOENT or
// parse errors; the unreadable file is left in place for inspection.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	cfg, err := Decode(data)
	if err != nil {
		slog.Warn("config: corrupt JSON config, using defaults", "path", s.path, "err", err)
		return Default(), nil
	}
	return cfg, nil
}

// Save schedules a debounced write of the configuration to disk.
// The actual write happens after 500ms of no further Save calls.
func (s *Store) Save(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = cfg.Clone()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		cfg := s.pending
		s.mu.Unlock()
		if cfg != nil {
			if err := s.writeAtomic(cfg); err != nil {
				slog.Error("config: failed to write config", "path", s.path, "err", err)
			}
		}
	})
}

// Flush forces an immediate write of any pending configuration.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	cfg := s.pending
	s.mu.Unlock()
	if cfg == nil {
		return nil
	}
	return s.writeAtomic(cfg)
}

func (s *Store) writeAtomic(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
