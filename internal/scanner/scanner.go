// Package scanner fans directory traversal out across search roots, applies
// the path matcher and exclusion rules, and merges the per-root results into
// one deduplicated candidate set.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/fenilsonani/fspurge/internal/exclude"
	"github.com/fenilsonani/fspurge/internal/match"
	"github.com/fenilsonani/fspurge/internal/progress"
	"github.com/fenilsonani/fspurge/internal/sizecache"
)

// MaxWorkers caps the scan worker pool regardless of available parallelism.
const MaxWorkers = 32

// Candidate is one filesystem entry plausibly belonging to the scanned
// application. Tier records which matching tier accepted it and is
// diagnostic only.
type Candidate struct {
	Path string
	Tier match.Tier
	Size int64
}

// Group buckets candidates under their parent directory for display.
type Group struct {
	Dir     string
	Entries []Candidate
	Size    int64
}

// Result is the merged outcome of one scan: a candidate set keyed by
// canonical path, aggregate size, and a deterministic directory grouping.
type Result struct {
	AppName    string
	Candidates []Candidate // sorted lexicographically by path
	Groups     []Group     // sorted lexicographically by directory
	TotalSize  int64
	Skipped    int // entries dropped due to read/permission errors
}

// Paths returns the candidate paths in lexicographic order.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		paths[i] = c.Path
	}
	return paths
}

// Scanner coordinates parallel discovery across search roots.
type Scanner struct {
	exclusions *exclude.Engine
	cache      *sizecache.Cache
	reporter   *progress.Reporter
	workers    int
}

// New creates a Scanner. The cache may be nil, in which case sizes are left
// at zero and only discovery runs.
func New(exclusions *exclude.Engine, cache *sizecache.Cache) *Scanner {
	workers := 2 * runtime.GOMAXPROCS(0)
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	if workers < 1 {
		workers = 1
	}

	return &Scanner{
		exclusions: exclusions,
		cache:      cache,
		reporter:   progress.NewReporter(),
		workers:    workers,
	}
}

// SetReporter sets a custom progress reporter
func (s *Scanner) SetReporter(r *progress.Reporter) {
	s.reporter = r
}

// Reporter returns the scanner's progress reporter
func (s *Scanner) Reporter() *progress.Reporter {
	return s.reporter
}

// rootResult is the local outcome of walking a single search root.
type rootResult struct {
	matches map[string]match.Tier
	skipped int
}

// entry pairs an as-walked path with its matching tier during the merge.
type entry struct {
	path string
	tier match.Tier
}

// Scan walks every search root concurrently, one traversal unit per root,
// bounded by the worker limit. Per-entry read failures are counted and
// skipped; they never abort a unit. The merged result is deduplicated by
// canonical path and grouped by parent directory.
func (s *Scanner) Scan(ctx context.Context, appName string, roots []string) (*Result, error) {
	matcher := match.New(appName)
	startTime := time.Now()

	s.reportScan(progress.PhaseScanning, appName, "", len(roots), 0, 0, 0, 0, startTime)

	results := make(chan rootResult, len(roots))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	var rootsDone int

	for _, root := range roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- s.walkRoot(ctx, root, matcher)
		}(root)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Canonical paths are the dedup key; the as-walked path is what gets
	// reported, so results stay in terms of the roots the caller named.
	merged := make(map[string]entry)
	skipped := 0
	for rr := range results {
		rootsDone++
		for path, tier := range rr.matches {
			canonical := canonicalPath(path)
			if prev, ok := merged[canonical]; !ok || tier < prev.tier {
				merged[canonical] = entry{path: path, tier: tier}
			}
		}
		skipped += rr.skipped
		s.reportScan(progress.PhaseScanning, appName, "", len(roots), rootsDone, len(merged), skipped, 0, startTime)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := s.aggregate(ctx, appName, merged, skipped, startTime)

	s.reportScan(progress.PhaseComplete, appName, "", len(roots), rootsDone, len(result.Candidates), skipped, result.TotalSize, startTime)

	return result, nil
}

// walkRoot performs one depth-first traversal unit. Excluded directories are
// pruned whole: the matcher never sees anything below them.
func (s *Scanner) walkRoot(ctx context.Context, root string, matcher *match.Matcher) rootResult {
	rr := rootResult{matches: make(map[string]match.Tier)}

	if _, err := os.Stat(root); err != nil {
		return rr
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}

		if err != nil {
			// Permission, vanished entry or symlink loop: count and move on.
			rr.skipped++
			return nil
		}

		if d.IsDir() {
			if s.exclusions != nil && path != root && s.exclusions.IsExcluded(path) {
				return filepath.SkipDir
			}

			// The bundle anchor is checked first for every directory
			// visited, independent of any other rule.
			anchor := matcher.BundlePath(path)
			if _, serr := os.Lstat(anchor); serr == nil {
				rr.matches[anchor] = match.TierBundleAnchor
			}
		}

		if path == root {
			return nil
		}

		if s.exclusions != nil && s.exclusions.IsExcluded(path) {
			// Excluded file entry; directories were pruned above.
			return nil
		}

		if tier, ok := matcher.Match(path); ok {
			if prev, seen := rr.matches[path]; !seen || tier < prev {
				rr.matches[path] = tier
			}
		}

		return nil
	})

	return rr
}

// aggregate computes sizes through the metadata cache and builds the sorted
// candidate list and directory grouping.
func (s *Scanner) aggregate(ctx context.Context, appName string, merged map[string]entry, skipped int, startTime time.Time) *Result {
	result := &Result{
		AppName:    appName,
		Candidates: make([]Candidate, 0, len(merged)),
		Skipped:    skipped,
	}

	entries := make([]entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	for _, e := range entries {
		s.reportScan(progress.PhaseAggregating, appName, e.path, 0, 0, len(merged), skipped, result.TotalSize, startTime)

		c := Candidate{Path: e.path, Tier: e.tier}
		if s.cache != nil {
			c.Size = s.cache.Size(ctx, e.path)
		}
		result.TotalSize += c.Size
		result.Candidates = append(result.Candidates, c)
	}

	result.Groups = groupByDir(result.Candidates)
	return result
}

// groupByDir buckets candidates by parent directory. Groups and entries are
// both in lexicographic order, so repeated scans of an unchanged filesystem
// render identically.
func groupByDir(candidates []Candidate) []Group {
	byDir := make(map[string][]Candidate)
	for _, c := range candidates {
		dir := filepath.Dir(c.Path)
		byDir[dir] = append(byDir[dir], c)
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	groups := make([]Group, 0, len(dirs))
	for _, dir := range dirs {
		entries := byDir[dir]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

		g := Group{Dir: dir, Entries: entries}
		for _, e := range entries {
			g.Size += e.Size
		}
		groups = append(groups, g)
	}
	return groups
}

// canonicalPath resolves the parent directory of a path so overlapping roots
// contribute one entry per filesystem object. The final component is left
// unresolved: a matched symlink stays a symlink.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	dir, base := filepath.Split(abs)
	resolved, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		return filepath.Clean(abs)
	}
	return filepath.Join(resolved, base)
}

func (s *Scanner) reportScan(phase progress.Phase, appName, current string, rootsTotal, rootsDone, matches, skipped int, totalSize int64, startTime time.Time) {
	if s.reporter == nil {
		return
	}

	s.reporter.UpdateScan(&progress.ScanProgress{
		Phase:       phase,
		AppName:     appName,
		CurrentRoot: current,
		RootsTotal:  rootsTotal,
		RootsDone:   rootsDone,
		Matches:     matches,
		Skipped:     skipped,
		TotalSize:   totalSize,
		StartTime:   startTime,
	})
}
