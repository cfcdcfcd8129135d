package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/pantry/internal/errors"
)

// DefaultPageSize is how many recipes a search page shows unless asked otherwise.
const DefaultPageSize = 50

// Config represents the complete pantry configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ListenOn     string        `yaml:"listen_on" json:"listen_on"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	// PageSize is the default number of results per search page.
	PageSize int `yaml:"page_size" json:"page_size"`
}

// IndexConfig configures the search index worker.
type IndexConfig struct {
	// RecipeDir is the root of the recipe tree. Empty means resolve it
	// with ResolveRecipeDir.
	RecipeDir string `yaml:"recipe_dir" json:"recipe_dir"`
	// RequestTimeout bounds how long a caller waits for the worker to
	// accept a request. Zero waits indefinitely.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	ParseWorkers   int           `yaml:"parse_workers" json:"parse_workers"`
	// CacheSize is the number of search results the worker memoizes
	// between mutations. Zero disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// WatchConfig configures the recipe directory watcher.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	ForcePolling bool          `yaml:"force_polling" json:"force_polling"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File is where --debug writes JSON logs. Empty uses the default
	// location under the user's data directory.
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenOn:     "127.0.0.1:3000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			PageSize:     DefaultPageSize,
		},
		Index: IndexConfig{
			RequestTimeout: 10 * time.Second,
			ParseWorkers:   runtime.NumCPU(),
			CacheSize:      128,
		},
		Watch: WatchConfig{
			Enabled:      true,
			PollInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/pantry/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/pantry/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pantry", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "pantry", "config.yaml")
	}
	return filepath.Join(home, ".config", "pantry", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// DataDir returns pantry's data directory: $XDG_DATA_HOME/pantry, or
// ~/.local/share/pantry. The boolean is false when neither can be determined.
func DataDir() (string, bool) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "pantry"), true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".local", "share", "pantry"), true
}

// Load builds the configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/pantry/config.yaml)
//  3. The file at explicitPath, if not empty (it must exist)
//  4. Environment variables (PANTRY_*)
//
// Command line flags are applied by the caller on top of the result.
func Load(explicitPath string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return nil, errors.New(errors.ErrCodeConfigNotFound,
				"config file not found", nil).
				WithDetail("path", explicitPath).
				WithSuggestion("Run 'pantry config init' to create one")
		}
		if err := cfg.loadYAML(explicitPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUserConfig reads the user config file over the defaults, without
// environment overrides. Keys the file lacks keep their default values.
func LoadUserConfig() (*Config, error) {
	cfg := NewConfig()
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, errors.New(errors.ErrCodeConfigNotFound, "user config file not found", nil).
			WithDetail("path", path).
			WithSuggestion("Run 'pantry config init' to create one")
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges the file at path into c. Keys absent from the file keep
// their current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.IOError("failed to read config file", err).WithDetail("path", path)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.New(errors.ErrCodeConfigInvalid, "failed to parse config file", err).
			WithDetail("path", path)
	}
	return nil
}

// applyEnvOverrides applies PANTRY_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PANTRY_ADDRESS"); v != "" {
		c.Server.ListenOn = v
	}
	if v := os.Getenv("PANTRY_RECIPE_DIR"); v != "" {
		c.Index.RecipeDir = v
	}
	if v := os.Getenv("PANTRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PANTRY_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.New(errors.ErrCodeConfigInvalid, "PANTRY_PAGE_SIZE is not a number", err).
				WithDetail("value", v)
		}
		c.Server.PageSize = n
	}
	return nil
}

// ResolveRecipeDir returns the recipe directory to index: the configured
// one, else the data directory, else ~/.pantry. The result is absolute.
func (c *Config) ResolveRecipeDir() (string, error) {
	candidates := []string{c.Index.RecipeDir}
	if dir, ok := DataDir(); ok {
		candidates = append(candidates, dir)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".pantry"))
	}

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(expandHome(dir))
		if err != nil {
			return "", errors.ConfigError("failed to resolve recipe directory", err)
		}
		return abs, nil
	}
	return "", errors.New(errors.ErrCodeRecipeDirMissing,
		"unable to find a data directory", nil).
		WithSuggestion("Specify --recipe-dir or set PANTRY_RECIPE_DIR")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...), nil)
	}

	if _, _, err := net.SplitHostPort(c.Server.ListenOn); err != nil {
		return invalid("server.listen_on must be host:port, got %q", c.Server.ListenOn)
	}
	if c.Server.PageSize <= 0 {
		return invalid("server.page_size must be positive, got %d", c.Server.PageSize)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return invalid("server timeouts must not be negative")
	}
	if c.Index.RequestTimeout < 0 {
		return invalid("index.request_timeout must not be negative, got %s", c.Index.RequestTimeout)
	}
	if c.Index.ParseWorkers < 0 {
		return invalid("index.parse_workers must not be negative, got %d", c.Index.ParseWorkers)
	}
	if c.Index.CacheSize < 0 {
		return invalid("index.cache_size must not be negative, got %d", c.Index.CacheSize)
	}
	if c.Watch.PollInterval < 0 {
		return invalid("watch.poll_interval must not be negative, got %s", c.Watch.PollInterval)
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return invalid("logging.max_size_mb and logging.max_files must not be negative")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.InternalError("failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError("failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IOError("failed to write config file", err).WithDetail("path", path)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
