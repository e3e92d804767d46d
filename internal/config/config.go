// Package config provides access to the mnemo configuration file and the
// settings that drive the plugin subsystem: where plugins live on disk,
// whether the sandbox is enforced, and which algorithms are selected.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyPluginsDir            = "plugins.dir"
	KeySandboxEnabled        = "plugins.sandbox.enabled"
	KeySandboxExecTimeout    = "plugins.sandbox.execTimeout"
	KeySandboxCallTimeout    = "plugins.sandbox.callTimeout"
	KeySandboxStartupTimeout = "plugins.sandbox.startupTimeout"
	KeyReviewAlgorithm       = "algorithms.review"
	KeyDiffAlgorithm         = "algorithms.diff"
	KeyLogLevel              = "log.level"
)

// Store is the persisted application configuration. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	v       *viper.Viper
	dataDir string
	path    string
}

// Option configures a Store.
type Option func(*Store)

// WithDataDir overrides the directory config and plugins live under.
func WithDataDir(dir string) Option {
	return func(s *Store) {
		s.dataDir = dir
	}
}

// New creates a Store with defaults applied. Call Load to read the config
// file from disk.
func New(opts ...Option) *Store {
	s := &Store{v: viper.New()}
	for _, opt := range opts {
		opt(s)
	}
	if s.dataDir == "" {
		s.dataDir = defaultDataDir()
	}
	s.path = filepath.Join(s.dataDir, "config.yaml")

	s.v.SetDefault(KeyPluginsDir, filepath.Join(s.dataDir, "plugins"))
	s.v.SetDefault(KeySandboxEnabled, true)
	s.v.SetDefault(KeySandboxExecTimeout, 5*time.Second)
	s.v.SetDefault(KeySandboxCallTimeout, 6*time.Second)
	s.v.SetDefault(KeySandboxStartupTimeout, 10*time.Second)
	s.v.SetDefault(KeyReviewAlgorithm, "")
	s.v.SetDefault(KeyDiffAlgorithm, "")
	s.v.SetDefault(KeyLogLevel, "info")

	s.v.SetEnvPrefix("MNEMO")
	s.v.AutomaticEnv()

	return s
}

func defaultDataDir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "mnemo")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mnemo")
}

// Load reads the config file if it exists. A missing file is not an
// error; defaults apply.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.SetConfigFile(s.path)
	if err := s.v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Save writes the current configuration to disk, creating the data
// directory if needed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Set stores a value and persists the file.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	s.v.Set(key, value)
	s.mu.Unlock()
	return s.Save()
}

// DataDir returns the root application data directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// PluginsDir returns the directory plugins are installed under.
func (s *Store) PluginsDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(KeyPluginsDir)
}

// SandboxEnabled reports whether plugin code must run isolated.
func (s *Store) SandboxEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(KeySandboxEnabled)
}

// SandboxTimeouts returns the execution, call, and startup timeouts.
func (s *Store) SandboxTimeouts() (exec, call, startup time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetDuration(KeySandboxExecTimeout),
		s.v.GetDuration(KeySandboxCallTimeout),
		s.v.GetDuration(KeySandboxStartupTimeout)
}

// ReviewAlgorithm returns the persisted review algorithm selection, or
// empty when the default applies.
func (s *Store) ReviewAlgorithm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(KeyReviewAlgorithm)
}

// DiffAlgorithm returns the persisted diff algorithm selection, or empty
// when the default applies.
func (s *Store) DiffAlgorithm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(KeyDiffAlgorithm)
}

// LogLevel returns the configured log level name.
func (s *Store) LogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(KeyLogLevel)
}

// GetString returns an arbitrary string setting.
func (s *Store) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key)
}
