// Package match decides whether a single candidate path plausibly belongs to
// a named application. The policy is deliberately recall-biased: several OR'd
// tiers, any one of which is enough. Callers are expected to surface the
// results for confirmation rather than delete unseen.
package match

import (
	"path/filepath"
	"regexp"
	"strings"
)

// BundleExtension is the application bundle suffix stripped from display
// names and used to anchor the primary bundle match.
const BundleExtension = ".app"

// Tier records which matching tier accepted a path. Diagnostic only; no tier
// is ever filtered out.
type Tier int

const (
	TierNone Tier = iota
	TierBundleAnchor
	TierStrictName
	TierLooseName
	TierGlobPattern
	TierToken
)

// String returns a human-readable tier name
func (t Tier) String() string {
	switch t {
	case TierBundleAnchor:
		return "bundle"
	case TierStrictName:
		return "strict"
	case TierLooseName:
		return "loose"
	case TierGlobPattern:
		return "pattern"
	case TierToken:
		return "token"
	default:
		return "none"
	}
}

// Matcher holds the compiled patterns for one application name. Compile once,
// use from any number of goroutines.
type Matcher struct {
	appName   string
	cleanName string
	strict    *regexp.Regexp
	loose     *regexp.Regexp
	patterns  []string // lower-cased, templates already expanded
	tokens    []string // lower-cased
}

// New compiles a Matcher for the given application display name.
func New(appName string) *Matcher {
	cleanName := CleanName(appName)
	lower := strings.ToLower(cleanName)

	patterns := make([]string, 0, 4)
	for _, tmpl := range TemplatesFor(lower) {
		patterns = append(patterns, strings.ReplaceAll(tmpl, "{name}", lower))
	}

	return &Matcher{
		appName:   appName,
		cleanName: cleanName,
		strict:    regexp.MustCompile("(?i)" + regexp.QuoteMeta(appName)),
		loose:     regexp.MustCompile("(?i)" + regexp.QuoteMeta(cleanName)),
		patterns:  patterns,
		tokens: []string{
			lower,
			"com." + lower,
			"org." + lower,
			lower + ".plist",
		},
	}
}

// CleanName strips a trailing bundle extension from an application name.
func CleanName(appName string) string {
	if strings.HasSuffix(strings.ToLower(appName), BundleExtension) {
		return appName[:len(appName)-len(BundleExtension)]
	}
	return appName
}

// CleanName returns the matcher's cleaned application name.
func (m *Matcher) CleanName() string {
	return m.cleanName
}

// BundlePath returns the primary bundle anchor path under dir.
func (m *Matcher) BundlePath(dir string) string {
	return filepath.Join(dir, m.cleanName+BundleExtension)
}

// Match tests a candidate path against every tier and reports the first tier
// that accepts it. The bundle anchor is checked first; strict before loose so
// the reported tier reflects the strongest evidence.
func (m *Matcher) Match(path string) (Tier, bool) {
	base := filepath.Base(path)
	lowerBase := strings.ToLower(base)

	if lowerBase == strings.ToLower(m.cleanName)+BundleExtension {
		return TierBundleAnchor, true
	}

	if m.strict.MatchString(base) {
		return TierStrictName, true
	}

	if m.loose.MatchString(base) {
		return TierLooseName, true
	}

	for _, pattern := range m.patterns {
		// Patterns are evaluated against the base name; template globs do
		// not cross path separators.
		if ok, _ := filepath.Match(pattern, lowerBase); ok {
			return TierGlobPattern, true
		}
	}

	for _, token := range m.tokens {
		if strings.Contains(lowerBase, token) {
			return TierToken, true
		}
	}

	return TierNone, false
}
