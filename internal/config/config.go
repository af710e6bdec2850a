package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// ExcludedLocations maps a category name to its exclusion rule. Built-in
	// categories are development, plugins_extensions, system and custom;
	// unknown category names are allowed and merged with the built-ins.
	ExcludedLocations map[string]CategoryRule `yaml:"excluded_locations"`

	// SearchRoots overrides the platform default search roots when non-empty.
	SearchRoots []string `yaml:"search_roots"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
	Cache    CacheConfig    `yaml:"cache"`

	// ForcedMode enables attribute-reset and elevated fallback during removal.
	ForcedMode bool `yaml:"forced_mode"`
	Verbose    bool `yaml:"verbose"`
}

// CategoryRule is one exclusion category: a switch plus the path fragments
// that category contributes. A disabled category contributes nothing.
type CategoryRule struct {
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"`
}

// SnapshotConfig holds snapshot creation and restore settings
type SnapshotConfig struct {
	// Enabled controls whether a snapshot is created before destructive removal.
	Enabled bool `yaml:"enabled"`

	// Dir is where sealed snapshot archives live.
	Dir string `yaml:"dir"`

	// HomePaths and SystemPaths are the source paths backed up under the
	// "home" and "system" snapshot categories. Entries may start with "~".
	HomePaths   []string `yaml:"home_paths"`
	SystemPaths []string `yaml:"system_paths"`
}

// CacheConfig holds metadata cache settings
type CacheConfig struct {
	// Path is the SQLite database file backing the size/mtime cache.
	Path string `yaml:"path"`
}

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	for name, rule := range c.ExcludedLocations {
		for _, frag := range rule.Paths {
			if frag == "" {
				return fmt.Errorf("category %q contains an empty path fragment", name)
			}
		}
	}

	for _, root := range c.SearchRoots {
		if root == "" {
			return fmt.Errorf("search root must not be empty")
		}
	}

	if c.Snapshot.Dir == "" {
		return fmt.Errorf("snapshot directory must be set")
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache database path must be set")
	}

	return nil
}

// ExpandedSearchRoots returns the configured search roots with "~" expanded,
// filtering out roots that do not exist. An empty result means the caller
// should fall back to the platform defaults.
func (c *Config) ExpandedSearchRoots() []string {
	roots := make([]string, 0, len(c.SearchRoots))
	for _, root := range c.SearchRoots {
		expanded := ExpandHome(root)
		if _, err := os.Stat(expanded); err == nil {
			roots = append(roots, expanded)
		}
	}
	return roots
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if path == "~" || (len(path) > 1 && path[0] == '~' && path[1] == '/') {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", "fspurge")
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := GetDefault()
		if err := Save(defaultConfig, configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}
