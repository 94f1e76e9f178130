package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
	"github.com/custodia-labs/holdings-sync/internal/core/ports/driven"
	"github.com/custodia-labs/holdings-sync/internal/logger"
)

// Ensure ConfigStore implements the interface.
var _ driven.TenantConfigStore = (*ConfigStore)(nil)

// FileName is the configuration file name inside the config directory.
const FileName = "config.toml"

// ConfigStore holds the configuration loaded from a TOML file.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	config   Config
}

// NewConfigStore loads the configuration from configDir.
// If configDir is empty, defaults to ~/.holdings-sync.
// A missing file yields the defaults.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".holdings-sync")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, FileName),
		config:   DefaultConfig(),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Config returns a copy of the current configuration.
func (s *ConfigStore) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.config
	cfg.Tenants = append([]TenantSection(nil), s.config.Tenants...)
	return cfg
}

// Load reads and validates the file. On error the previous configuration
// is kept.
func (s *ConfigStore) Load() error {
	cfg, err := readConfig(s.filePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}

func readConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to the file and makes it current.
func (s *ConfigStore) Save(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return err
	}
	s.config = cfg
	return nil
}

// ListTenants returns every configured tenant.
func (s *ConfigStore) ListTenants(_ context.Context) ([]domain.TenantConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants := make([]domain.TenantConfiguration, 0, len(s.config.Tenants))
	for _, t := range s.config.Tenants {
		tenants = append(tenants, t.TenantConfiguration())
	}
	return tenants, nil
}

// GetTenant returns the configuration of one tenant.
func (s *ConfigStore) GetTenant(_ context.Context, tenantID string) (*domain.TenantConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.config.Tenants {
		if t.ID == tenantID {
			tenant := t.TenantConfiguration()
			return &tenant, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Watch reloads the file whenever it changes and calls onChange with the
// new configuration. Invalid edits are logged and ignored. Watch blocks
// until ctx is cancelled.
func (s *ConfigStore) Watch(ctx context.Context, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.filePath), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigChange(event, s.filePath) {
				continue
			}
			if err := s.Load(); err != nil {
				logger.Warn("Ignoring config change: %v", err)
				continue
			}
			logger.Info("Reloaded configuration from %s", s.filePath)
			if onChange != nil {
				onChange(s.Config())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}

func isConfigChange(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != filepath.Clean(path) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
