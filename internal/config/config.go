// Package config loads procindex settings from a TOML file with PROCINDEX_*
// environment overrides.
//
// Precedence, highest first:
//   - Environment variables (PROCINDEX_*)
//   - The TOML file passed to Load, or DefaultPath when it exists
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig matches any error returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every tunable of the indexer and its server
type Config struct {
	// Watch enables the disk watcher. Without it only explicitly added files are indexed.
	Watch bool `toml:"watch"`

	// Debounce is the quiet period before an aggregate change notification
	Debounce time.Duration `toml:"debounce"`

	// Workers bounds concurrent parse phases
	Workers int `toml:"workers"`

	// CacheSize is the number of parse results kept by content hash. -1 disables the cache.
	CacheSize int `toml:"cache_size"`

	// Ignore lists directory names the watcher never descends into
	Ignore []string `toml:"ignore"`

	// Roots are registered at startup
	Roots []string `toml:"roots"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Watch:     true,
		Debounce:  300 * time.Millisecond,
		Workers:   runtime.NumCPU(),
		CacheSize: 1024,
		Ignore:    []string{"node_modules", ".git"},
		LogLevel:  "info",
	}
}

// DefaultPath returns ~/.config/procindex/config.toml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "procindex", "config.toml"), nil
}

// Load builds a configuration from defaults, the TOML file at path and the
// environment. An empty path falls back to DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		case explicit:
			return nil, fmt.Errorf("failed to load config from %s: %w", path, statErr)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys absent from the file keep their current value.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides:
//   - PROCINDEX_WATCH: overrides watch (true/false/1/0)
//   - PROCINDEX_DEBOUNCE: overrides debounce (Go duration, e.g. 500ms)
//   - PROCINDEX_WORKERS: overrides workers
//   - PROCINDEX_CACHE_SIZE: overrides cache_size
//   - PROCINDEX_IGNORE: comma separated directory names
//   - PROCINDEX_ROOTS: roots separated by the OS path list separator
//   - PROCINDEX_LOG_LEVEL: overrides log_level
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("PROCINDEX_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PROCINDEX_WATCH: %w", err)
		}
		c.Watch = watch
	}

	if v := os.Getenv("PROCINDEX_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROCINDEX_DEBOUNCE: %w", err)
		}
		c.Debounce = d
	}

	if v := os.Getenv("PROCINDEX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROCINDEX_WORKERS: %w", err)
		}
		c.Workers = n
	}

	if v := os.Getenv("PROCINDEX_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROCINDEX_CACHE_SIZE: %w", err)
		}
		c.CacheSize = n
	}

	if v := os.Getenv("PROCINDEX_IGNORE"); v != "" {
		c.Ignore = splitList(v, ",")
	}

	if v := os.Getenv("PROCINDEX_ROOTS"); v != "" {
		c.Roots = splitList(v, string(os.PathListSeparator))
	}

	if v := os.Getenv("PROCINDEX_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	return nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SetDefaults fills zero values that have a meaningful default
func (c *Config) SetDefaults() {
	defaults := Default()
	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
	if c.Debounce == 0 {
		c.Debounce = defaults.Debounce
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaults.CacheSize
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Ignore == nil {
		c.Ignore = defaults.Ignore
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Is reports whether target is ErrInvalidConfig
func (e ValidateErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate checks value ranges. It returns ValidateErrors listing every problem.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "workers",
			Message: fmt.Sprintf("must not be negative, got %d", c.Workers),
		})
	}

	if c.Debounce <= 0 {
		errs = append(errs, ValidationError{
			Field:   "debounce",
			Message: fmt.Sprintf("must be positive, got %s", c.Debounce),
		})
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: err.Error(),
		})
	}

	for _, name := range c.Ignore {
		if strings.ContainsRune(name, filepath.Separator) {
			errs = append(errs, ValidationError{
				Field:   "ignore",
				Message: fmt.Sprintf("%q must be a directory name, not a path", name),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SlogLevel returns LogLevel as a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q, must be one of: debug, info, warn, error", s)
	}
}
