package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // dedupd binary, discovered when empty
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`
}

// WorkersConfig sizes the worker pools.
type WorkersConfig struct {
	Scan int `mapstructure:"scan" validate:"gte=0"`
	Hash int `mapstructure:"hash" validate:"gte=0,lte=64"`
}

// DeleteConfig selects how duplicates are removed.
type DeleteConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=remove trash"`
}

// CacheConfig toggles the in-memory digest cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ManifestConfig controls the deletion audit trail.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=0"`
}

// Config represents the application configuration.
type Config struct {
	DefaultPath     string         `mapstructure:"default_path" validate:"required"`
	Recursive       bool           `mapstructure:"recursive"`
	MinSize         string         `mapstructure:"min_size"`
	Exclude         []string       `mapstructure:"exclude"`
	Workers         WorkersConfig  `mapstructure:"workers"`
	PublishInterval time.Duration  `mapstructure:"publish_interval" validate:"gte=0"`
	Delete          DeleteConfig   `mapstructure:"delete"`
	Watch           bool           `mapstructure:"watch"`
	Cache           CacheConfig    `mapstructure:"cache"`
	Manifest        ManifestConfig `mapstructure:"manifest"`
	Logging         LoggingConfig  `mapstructure:"logging"`
	Daemon          DaemonConfig   `mapstructure:"daemon"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that sizes parse.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := types.ParseSize(c.MinSize); err != nil {
		return fmt.Errorf("invalid config: min_size: %w", err)
	}
	if c.Logging.Rotation.MaxSize != "" {
		if _, err := types.ParseSize(c.Logging.Rotation.MaxSize); err != nil {
			return fmt.Errorf("invalid config: logging.rotation.max_size: %w", err)
		}
	}
	return nil
}

// MinSizeBytes returns MinSize in bytes. Call after Validate.
func (c *Config) MinSizeBytes() int64 {
	n, _ := types.ParseSize(c.MinSize)
	return n
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/dedupe/config.yaml
//   - $HOME/.config/dedupe/config.yaml
//
// Environment variables are prefixed with DEDUPE_ (e.g., DEDUPE_MIN_SIZE,
// DEDUPE_WORKERS_HASH).
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// Bind returns the viper instance Load would use, so cobra flags can be
// bound to keys before calling Unmarshal.
func Bind() (*viper.Viper, error) {
	return newViper()
}

// Unmarshal decodes and validates a viper instance obtained from Bind.
func Unmarshal(v *viper.Viper) (*Config, error) {
	return unmarshal(v)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "dedupe"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "dedupe"))

	v.SetEnvPrefix("DEDUPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, homeDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault("default_path", DefaultPath)
	v.SetDefault("recursive", true)
	v.SetDefault("min_size", DefaultMinSize)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("workers.scan", DefaultScanWorkers)
	v.SetDefault("workers.hash", DefaultHashWorkers)
	v.SetDefault("publish_interval", DefaultPublishInterval)
	v.SetDefault("delete.mode", DefaultDeleteMode)
	v.SetDefault("watch", true)
	v.SetDefault("cache.enabled", true)

	v.SetDefault("manifest.enabled", false)
	v.SetDefault("manifest.path", filepath.Join(homeDir, ".config", "dedupe", ".manifest"))
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"daemon":  "info",
		"watcher": "warn",
		"scanner": "info",
		"hasher":  "info",
		"job":     "info",
	})

	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.socket_path", "")
	v.SetDefault("daemon.pid_path", "")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	path, err := ExpandPath(cfg.Manifest.Path)
	if err != nil {
		return nil, err
	}
	cfg.Manifest.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "dedupe"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "dedupe"), nil
}

// ConfigPath returns the path of the config file, whether or not it exists.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	configDir := filepath.Dir(configPath)
	defaultConfig := fmt.Sprintf(`# dedupe configuration

# Path to scan when none is specified
default_path: %s

# Descend into subdirectories
recursive: true

# Smallest file considered; 0 includes empty files
min_size: "%s"

# Glob patterns matched against base names and full paths
exclude:
  - .git
  - .Trash
  - .DS_Store

# Worker pools (hash: 0 picks 2x CPUs, at most 64)
workers:
  scan: %d
  hash: %d

# How often partial duplicate groups are published while hashing
publish_interval: %s

# remove deletes files, trash moves them to the system trash
delete:
  mode: %s

# Drop group members that disappear from disk
watch: true

# Reuse digests of unchanged files within one process
cache:
  enabled: true

# Deletion audit trail
manifest:
  enabled: false
  path: %s
  retention_days: %d

logging:
  # debug, info, warn, error
  level: info
  # empty means $XDG_STATE_HOME/dedupe/dedupe.log
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30
    max_backups: 5
    daily: true
  components:
    daemon: info
    watcher: warn
    scanner: info
    hasher: info
    job: info

daemon:
  auto_start: true
  # empty means $XDG_DATA_HOME/dedupe/dedupe.sock
  socket_path: ""
  # empty means $XDG_DATA_HOME/dedupe/dedupe.pid
  pid_path: ""
`, DefaultPath, DefaultMinSize, DefaultScanWorkers, DefaultHashWorkers, DefaultPublishInterval,
		DefaultDeleteMode, filepath.Join(configDir, ".manifest"), DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/dedupe/ for the socket and pid files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "dedupe")
}

// StateDir returns $XDG_STATE_HOME/dedupe/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "dedupe")
}

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), "dedupe.sock")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "dedupe.pid")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "dedupe.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// DefaultBinaryPath returns the first existing dedupd binary among
// $GOBIN, $GOPATH/bin and $HOME/go/bin, or "" when there is none.
func DefaultBinaryPath() string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		dirs = append(dirs, filepath.Join(gopath, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, "dedupd")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
