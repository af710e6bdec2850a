package config

import (
	"os"
	"path/filepath"
)

// GetDefault returns the default configuration
func GetDefault() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		ExcludedLocations: map[string]CategoryRule{
			"development": {
				Enabled: true,
				Paths: []string{
					"site-packages",
					"node_modules",
					"venv",
					"env",
					".virtualenv",
					"pip",
					"npm",
					"yarn",
					"composer",
					"gradle",
					"maven",
				},
			},
			"plugins_extensions": {
				Enabled: true,
				Paths: []string{
					"plugins",
					"extensions",
					"addons",
					"modules",
					"plug-ins",
				},
			},
			"system": {
				Enabled: true,
				Paths: []string{
					"System",
					"Private",
					"bin",
					"sbin",
					"usr/bin",
					"usr/sbin",
					"usr/local/bin",
				},
			},
			// User-managed category; merged with the built-ins at equal
			// precedence.
			"custom": {
				Enabled: true,
				Paths:   []string{},
			},
		},
		SearchRoots: []string{}, // empty means platform defaults
		Snapshot: SnapshotConfig{
			Enabled: true,
			Dir:     filepath.Join(homeDir, "fsPurge_Backups"),
			HomePaths: []string{
				"~/Documents",
				"~/Downloads",
				"~/Desktop",
				"~/Library/Application Support",
				"~/Library/Preferences",
			},
			SystemPaths: []string{
				"/Applications",
				"/usr/local/bin",
				"/Library/LaunchAgents",
				"/Library/LaunchDaemons",
			},
		},
		Cache: CacheConfig{
			Path: filepath.Join(homeDir, ".config", "fspurge", "filecache.db"),
		},
		ForcedMode: false,
		Verbose:    false,
	}
}
