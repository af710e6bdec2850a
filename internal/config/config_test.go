package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// GetDefault Tests
// =============================================================================

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()

	if cfg == nil {
		t.Fatal("GetDefault returned nil")
	}

	for _, category := range []string{"development", "plugins_extensions", "system", "custom"} {
		if _, ok := cfg.ExcludedLocations[category]; !ok {
			t.Errorf("expected default category %q", category)
		}
	}

	if !cfg.ExcludedLocations["development"].Enabled {
		t.Error("expected development exclusions enabled by default")
	}

	found := false
	for _, frag := range cfg.ExcludedLocations["development"].Paths {
		if frag == "node_modules" {
			found = true
		}
	}
	if !found {
		t.Error("expected node_modules in default development exclusions")
	}

	if len(cfg.ExcludedLocations["custom"].Paths) != 0 {
		t.Error("expected custom exclusions empty by default")
	}

	if !cfg.Snapshot.Enabled {
		t.Error("expected snapshots enabled by default")
	}
	if cfg.Snapshot.Dir == "" || cfg.Cache.Path == "" {
		t.Error("expected default snapshot dir and cache path")
	}
	if cfg.ForcedMode {
		t.Error("expected forced mode disabled by default")
	}
}

// =============================================================================
// Load / Save Tests
// =============================================================================

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load should not error for non-existent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if !cfg.ExcludedLocations["development"].Enabled {
		t.Error("expected default config for non-existent file")
	}
}

func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
excluded_locations:
  development:
    enabled: false
    paths: [node_modules]
  custom:
    enabled: true
    paths: [my-precious]
search_roots:
  - ` + tmpDir + `
snapshot:
  enabled: true
  dir: ~/backups
  home_paths: ["~/Library/Preferences"]
cache:
  path: ~/.config/fspurge/filecache.db
forced_mode: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ExcludedLocations["development"].Enabled {
		t.Error("development should be disabled")
	}
	if cfg.ExcludedLocations["custom"].Paths[0] != "my-precious" {
		t.Errorf("custom paths = %v", cfg.ExcludedLocations["custom"].Paths)
	}
	if !cfg.ForcedMode {
		t.Error("forced_mode not loaded")
	}

	roots := cfg.ExpandedSearchRoots()
	if len(roots) != 1 || roots[0] != tmpDir {
		t.Errorf("ExpandedSearchRoots = %v, want [%s]", roots, tmpDir)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("{{definitely: not: yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	original := GetDefault()
	original.ForcedMode = true
	original.ExcludedLocations["custom"] = CategoryRule{Enabled: true, Paths: []string{"keepme"}}

	if err := Save(original, configPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !loaded.ForcedMode {
		t.Error("ForcedMode lost in round trip")
	}
	if loaded.ExcludedLocations["custom"].Paths[0] != "keepme" {
		t.Errorf("custom rule lost: %v", loaded.ExcludedLocations["custom"])
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"empty fragment", func(c *Config) {
			c.ExcludedLocations["custom"] = CategoryRule{Enabled: true, Paths: []string{""}}
		}, "empty path fragment"},
		{"empty search root", func(c *Config) {
			c.SearchRoots = []string{""}
		}, "search root"},
		{"missing snapshot dir", func(c *Config) {
			c.Snapshot.Dir = ""
		}, "snapshot directory"},
		{"missing cache path", func(c *Config) {
			c.Cache.Path = ""
		}, "cache database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefault()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// ExpandHome Tests
// =============================================================================

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tilde", "~/Library", filepath.Join(home, "Library")},
		{"bare tilde", "~", home},
		{"absolute untouched", "/opt/thing", "/opt/thing"},
		{"relative untouched", "some/rel", "some/rel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandHome(tt.input); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
