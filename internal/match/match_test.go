package match

import "testing"

func TestCleanName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "Foo", "Foo"},
		{"bundle suffix", "Foo.app", "Foo"},
		{"upper suffix", "Foo.APP", "Foo"},
		{"name with spaces", "Visual Studio Code", "Visual Studio Code"},
		{"dot in name", "Foo.Bar", "Foo.Bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanName(tt.input); got != tt.expected {
				t.Errorf("CleanName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMatchTiers(t *testing.T) {
	m := New("Foo")

	tests := []struct {
		name string
		path string
		tier Tier
		ok   bool
	}{
		{"bundle anchor", "/Applications/Foo.app", TierBundleAnchor, true},
		{"bundle anchor case", "/Applications/foo.APP", TierBundleAnchor, true},
		{"strict substring", "/Applications/Foo.app/Contents/FooHelper", TierStrictName, true},
		{"strict case insensitive", "/tmp/FOOBAR.log", TierStrictName, true},
		{"bundle id cache dir", "/Users/a/Library/Caches/com.foo.Foo", TierStrictName, true},
		{"no relation", "/Users/a/Library/Caches/com.example.Bar", TierNone, false},
		{"unrelated name", "/tmp/barbaz", TierNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, ok := m.Match(tt.path)
			if ok != tt.ok || tier != tt.tier {
				t.Errorf("Match(%q) = %v, %v, want %v, %v", tt.path, tier, ok, tt.tier, tt.ok)
			}
		})
	}
}

func TestMatchLooseAfterStrip(t *testing.T) {
	// Raw name keeps the bundle suffix, so the strict tier requires "Foo.app"
	// in the base name while the loose tier only requires "Foo".
	m := New("Foo.app")

	tier, ok := m.Match("/Users/a/Library/Preferences/Foo.plist")
	if !ok || tier != TierLooseName {
		t.Errorf("Match = %v, %v, want %v, true", tier, ok, TierLooseName)
	}

	tier, ok = m.Match("/Users/a/Library/Logs/Foo.app.log")
	if !ok || tier != TierStrictName {
		t.Errorf("Match = %v, %v, want %v, true", tier, ok, TierStrictName)
	}
}

func TestMatchGlobPatternTier(t *testing.T) {
	// "org.mozilla.*" artifacts carry no "firefox" substring, so only the
	// dedicated template table entry can accept them.
	m := New("Firefox")

	tier, ok := m.Match("/Users/a/Library/Caches/org.mozilla.plist-service")
	if !ok {
		t.Fatal("expected pattern template to match")
	}
	if tier != TierGlobPattern {
		t.Errorf("tier = %v, want %v", tier, TierGlobPattern)
	}
}

func TestBundlePath(t *testing.T) {
	m := New("Foo.app")
	if got := m.BundlePath("/Applications"); got != "/Applications/Foo.app" {
		t.Errorf("BundlePath = %q", got)
	}
}

func TestTemplatesFor(t *testing.T) {
	if got := TemplatesFor("chrome"); len(got) == 0 || got[1] != "com.google.{name}*" {
		t.Errorf("chrome templates = %v", got)
	}

	general := TemplatesFor("no-such-app")
	if len(general) != len(generalTemplates) {
		t.Errorf("fallback templates = %v", general)
	}
}

func TestRecallBiasMatchesUnrelatedSharedSubstring(t *testing.T) {
	// Documented behavior: short names over-match. "Go" matches "Google"
	// artifacts via the loose tier; the tier is surfaced, not suppressed.
	m := New("Go")

	tier, ok := m.Match("/Users/a/Library/Caches/Google")
	if !ok {
		t.Fatal("expected loose over-match for short name")
	}
	if tier != TierStrictName && tier != TierLooseName {
		t.Errorf("tier = %v, want a name tier", tier)
	}
}
