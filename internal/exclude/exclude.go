// Package exclude compiles configured path-category exclusion rules into a
// flat matcher set used to prune traversal and veto matches.
package exclude

import (
	"sort"
	"strings"

	"github.com/fenilsonani/fspurge/internal/config"
)

// matcher is one compiled path fragment. fragment is kept for diagnostics;
// lowered is the lower-case form used for matching.
type matcher struct {
	category string
	fragment string
	lowered  string
}

// Engine answers IsExcluded for candidate paths. Categories are all-or-nothing:
// a disabled category contributes no matchers at all. Custom fragments share
// precedence with the built-in categories; ordering only affects which
// category is reported for a hit, never whether a path is excluded.
type Engine struct {
	matchers []matcher
}

// NewEngine compiles the enabled categories into an Engine. Extra fragments
// are merged into the rule set under the "custom" category.
func NewEngine(categories map[string]config.CategoryRule, extra []string) *Engine {
	e := &Engine{}

	// Stable order so MatchCategory is deterministic across runs.
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rule := categories[name]
		if !rule.Enabled {
			continue
		}
		for _, frag := range rule.Paths {
			e.add(name, frag)
		}
	}

	for _, frag := range extra {
		e.add("custom", frag)
	}

	return e
}

func (e *Engine) add(category, fragment string) {
	frag := strings.Trim(fragment, "/")
	if frag == "" {
		return
	}
	e.matchers = append(e.matchers, matcher{
		category: category,
		fragment: fragment,
		lowered:  strings.ToLower(frag),
	})
}

// IsExcluded reports whether any enabled category's fragment matches the path.
func (e *Engine) IsExcluded(path string) bool {
	_, ok := e.MatchCategory(path)
	return ok
}

// MatchCategory returns the first category whose fragment matches the path.
func (e *Engine) MatchCategory(path string) (string, bool) {
	if len(e.matchers) == 0 {
		return "", false
	}

	wrapped := "/" + strings.Trim(strings.ToLower(path), "/") + "/"

	for _, m := range e.matchers {
		if m.matches(wrapped) {
			return m.category, true
		}
	}
	return "", false
}

// matches tests one fragment against a path lowered and wrapped in separators.
// Fragments only hit on segment boundaries: "env" excludes "/a/env/b" and the
// "env" directory itself, but never "/a/Environments/b". Multi-segment
// fragments ("usr/bin") must appear as a contiguous subpath.
func (m matcher) matches(wrapped string) bool {
	return strings.Contains(wrapped, "/"+m.lowered+"/")
}

// Len returns the number of compiled matchers, used for diagnostics.
func (e *Engine) Len() int {
	return len(e.matchers)
}
