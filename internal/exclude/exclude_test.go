package exclude

import (
	"testing"

	"github.com/fenilsonani/fspurge/internal/config"
)

func devCategories() map[string]config.CategoryRule {
	return map[string]config.CategoryRule{
		"development": {
			Enabled: true,
			Paths:   []string{"node_modules", "site-packages", "venv"},
		},
		"plugins_extensions": {
			Enabled: true,
			Paths:   []string{"plugins", "extensions"},
		},
		"system": {
			Enabled: true,
			Paths:   []string{"usr/bin", "System"},
		},
	}
}

func TestIsExcluded(t *testing.T) {
	engine := NewEngine(devCategories(), nil)

	tests := []struct {
		name     string
		path     string
		excluded bool
	}{
		{"node_modules subtree", "/Users/a/Library/node_modules/foo-plugin/readme", true},
		{"site-packages", "/Users/a/venv/lib/python3.11/site-packages/foo", true},
		{"case insensitive", "/Users/a/NODE_MODULES/foo", true},
		{"fragment inside longer segment", "/Users/a/my-venv-backup/foo", false},
		{"fragment as final segment", "/Users/a/project/venv", true},
		{"multi segment fragment", "/usr/bin/foo", true},
		{"multi segment requires boundary", "/Users/a/fakeusr/bin-tools", false},
		{"plugins dir", "/Library/Application Support/Foo/Plugins/bar", true},
		{"plain app path", "/Applications/Foo.app/Contents/Info.plist", false},
		{"caches path", "/Users/a/Library/Caches/com.foo.Foo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.IsExcluded(tt.path); got != tt.excluded {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.excluded)
			}
		})
	}
}

func TestShortFragmentsStayOnSegmentBoundaries(t *testing.T) {
	engine := NewEngine(nil, []string{"env", "pip"})

	tests := []struct {
		path     string
		excluded bool
	}{
		{"/Users/a/project/env/bin/python", true},
		{"/Users/a/.pip/cache", false},
		{"/Users/a/pip/cache", true},
		{"/Users/a/Library/Environments/Foo", false},
		{"/Users/a/Library/Application Support/Pippo", false},
	}

	for _, tt := range tests {
		if got := engine.IsExcluded(tt.path); got != tt.excluded {
			t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.excluded)
		}
	}
}

func TestDisabledCategoryContributesNothing(t *testing.T) {
	categories := devCategories()
	categories["development"] = config.CategoryRule{
		Enabled: false,
		Paths:   []string{"node_modules"},
	}

	engine := NewEngine(categories, nil)

	if engine.IsExcluded("/Users/a/Library/node_modules/foo") {
		t.Error("disabled category still excluded a path")
	}
}

func TestCustomFragmentsMerged(t *testing.T) {
	engine := NewEngine(devCategories(), []string{"MyStuff"})

	if !engine.IsExcluded("/Users/a/mystuff/file") {
		t.Error("custom fragment did not exclude")
	}

	category, ok := engine.MatchCategory("/Users/a/mystuff/file")
	if !ok || category != "custom" {
		t.Errorf("MatchCategory = %q, %v, want custom, true", category, ok)
	}
}

func TestEmptyEngine(t *testing.T) {
	engine := NewEngine(nil, nil)

	if engine.IsExcluded("/anything/at/all") {
		t.Error("empty engine excluded a path")
	}
	if engine.Len() != 0 {
		t.Errorf("Len() = %d, want 0", engine.Len())
	}
}

func TestMatchCategoryDeterministic(t *testing.T) {
	categories := map[string]config.CategoryRule{
		"b_cat": {Enabled: true, Paths: []string{"shared"}},
		"a_cat": {Enabled: true, Paths: []string{"shared"}},
	}

	for i := 0; i < 10; i++ {
		engine := NewEngine(categories, nil)
		category, ok := engine.MatchCategory("/x/shared/y")
		if !ok || category != "a_cat" {
			t.Fatalf("MatchCategory = %q, %v, want a_cat (sorted order)", category, ok)
		}
	}
}
