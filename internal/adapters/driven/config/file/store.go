package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// FileName is the configuration file name inside the config directory.
const FileName = "config.toml"

// Ensure Store implements the interface.
var _ driven.SettingsProvider = (*Store)(nil)

// Store holds the current configuration and reloads it from disk.
type Store struct {
	mu       sync.RWMutex
	filePath string
	cfg      Config
	log      *zap.Logger
	onReload []func(Config)
}

// DefaultPath returns ~/.hrwatch/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".hrwatch", FileName), nil
}

// NewStore loads the configuration at path (DefaultPath when empty).
// A missing file yields the defaults; a malformed or invalid one is an error.
func NewStore(path string, log *zap.Logger) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	return &Store{
		filePath: path,
		cfg:      cfg,
		log:      log,
	}, nil
}

// load reads, decodes, overrides and validates the file at path.
func load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file yet - run on defaults
	case err != nil:
		return Config{}, fmt.Errorf("reading config: %w", err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}

// Config returns the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Polling implements driven.SettingsProvider.
func (s *Store) Polling() domain.PollingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.PollingConfig()
}

// UserSettings implements driven.SettingsProvider.
func (s *Store) UserSettings(userID string) domain.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.UserSettings(userID)
}

// OnReload registers fn to run after each successful reload.
func (s *Store) OnReload(fn func(Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload re-reads the file. On error the current configuration is kept.
func (s *Store) Reload() error {
	cfg, err := load(s.filePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	hooks := append([]func(Config){}, s.onReload...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(cfg)
	}
	s.log.Info("configuration reloaded", zap.String("path", s.filePath))
	return nil
}

// Marshal renders the current configuration as TOML with secrets masked.
func (s *Store) Marshal() ([]byte, error) {
	cfg := s.Config()
	if cfg.OAuth.ClientSecret != "" {
		cfg.OAuth.ClientSecret = "********"
	}
	if cfg.Notify.WebhookToken != "" {
		cfg.Notify.WebhookToken = "********"
	}
	return toml.Marshal(cfg)
}

// WriteDefault writes the default configuration to path unless a file
// already exists there.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(path, data, 0600)
}
