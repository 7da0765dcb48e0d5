// Package config provides configuration management for GlobalHotKeys.
package config

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/fonaix/GlobalHotKeys/models"
)

//go:embed config.yaml
var defaultConfig embed.FS

// Config holds all library configuration.
type Config struct {
	Hotkeys  HotkeysConfig     `mapstructure:"hotkeys"`
	Bindings map[string]string `mapstructure:"bindings"`
	Logging  LoggingConfig     `mapstructure:"logging"`
}

// HotkeysConfig holds worker-related settings.
type HotkeysConfig struct {
	// PollInterval is how long the worker sleeps when the native queue is empty.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// HistorySize is how many fired events to keep for Manager.Recent.
	HistorySize int `mapstructure:"history_size"`
	// EventBuffer is the default channel buffer for new subscriptions.
	EventBuffer int `mapstructure:"event_buffer"`
}

// LoggingConfig holds logging-related settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `mapstructure:"level"`
	// ToFile enables logging to a file.
	ToFile bool `mapstructure:"to_file"`
	// FilePath is the path to the log file (relative to config dir if not absolute).
	FilePath string `mapstructure:"file_path"`
	// MaxFileSize is the maximum log file size before rotation.
	MaxFileSize string `mapstructure:"max_file_size"`
	// MaxAge is the maximum age of log files in days.
	MaxAge int `mapstructure:"max_age"`
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `mapstructure:"max_backups"`
}

// Manager handles configuration loading, saving and change notification.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	viper    *viper.Viper
	filePath string
	onChange []func(*Config)
	watching bool
}

var (
	instance *Manager
	once     sync.Once
)

// GetManager returns the singleton configuration manager instance.
func GetManager() *Manager {
	once.Do(func() {
		instance = &Manager{
			viper: viper.New(),
		}
	})
	return instance
}

// Load loads the configuration from the specified file path.
// If the file doesn't exist, it creates a default configuration.
// An empty path loads the embedded defaults without touching disk.
func (m *Manager) Load(configPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.filePath = configPath

	m.viper.SetConfigType("yaml")
	m.setDefaults()

	if configPath != "" {
		m.viper.SetConfigFile(configPath)
		if err := m.viper.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				if err := m.createDefaultConfig(configPath); err != nil {
					return fmt.Errorf("failed to create default config: %w", err)
				}
				if err := m.viper.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read config: %w", err)
				}
			} else {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
	} else {
		data, err := defaultConfig.ReadFile("config.yaml")
		if err != nil {
			return fmt.Errorf("failed to read embedded config: %w", err)
		}
		if err := m.viper.ReadConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to parse embedded config: %w", err)
		}
	}

	m.config = &Config{}
	if err := m.viper.Unmarshal(m.config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// Save saves the current configuration to the file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.filePath == "" {
		return fmt.Errorf("no config file path set")
	}

	return m.viper.WriteConfig()
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Update updates the configuration with a modifier function.
func (m *Manager) Update(modifier func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	modifier(m.config)

	m.viper.Set("hotkeys", m.config.Hotkeys)
	m.viper.Set("bindings", m.config.Bindings)
	m.viper.Set("logging", m.config.Logging)

	return nil
}

// Watch registers a callback invoked with the reloaded configuration whenever
// the config file changes on disk. The first call starts the file watcher.
func (m *Manager) Watch(onChange func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = append(m.onChange, onChange)
	if m.watching || m.filePath == "" {
		return
	}
	m.watching = true

	m.viper.OnConfigChange(func(fsnotify.Event) {
		m.reload()
	})
	m.viper.WatchConfig()
}

// reload re-unmarshals the config and notifies watchers.
func (m *Manager) reload() {
	m.mu.Lock()
	cfg := &Config{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		m.mu.Unlock()
		return
	}
	m.config = cfg
	callbacks := make([]func(*Config), len(m.onChange))
	copy(callbacks, m.onChange)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "GlobalHotKeys"), nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// DefaultHotkeys returns the built-in worker settings.
func DefaultHotkeys() *HotkeysConfig {
	return &HotkeysConfig{
		PollInterval: 5 * time.Millisecond,
		HistorySize:  64,
		EventBuffer:  16,
	}
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	m.viper.SetDefault("hotkeys.poll_interval", "5ms")
	m.viper.SetDefault("hotkeys.history_size", 64)
	m.viper.SetDefault("hotkeys.event_buffer", 16)

	m.viper.SetDefault("bindings", map[string]string{})

	m.viper.SetDefault("logging.level", "info")
	m.viper.SetDefault("logging.to_file", false)
	m.viper.SetDefault("logging.file_path", "logs/globalhotkeys.log")
	m.viper.SetDefault("logging.max_file_size", "10MB")
	m.viper.SetDefault("logging.max_age", 7)
	m.viper.SetDefault("logging.max_backups", 5)
}

// createDefaultConfig creates a default configuration file.
func (m *Manager) createDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := defaultConfig.ReadFile("config.yaml")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() []error {
	var errs []error

	if c.Hotkeys.PollInterval < time.Millisecond {
		errs = append(errs, fmt.Errorf("poll_interval must be at least 1ms"))
	}
	if c.Hotkeys.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("history_size must not be negative"))
	}
	if c.Hotkeys.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("event_buffer must be at least 1"))
	}

	for name, combo := range c.Bindings {
		if _, _, ok := models.ParseHotkey(combo); !ok {
			errs = append(errs, fmt.Errorf("invalid binding %q: cannot parse %q", name, combo))
		}
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}

	return errs
}
