package scanner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/fspurge/internal/match"
	"github.com/fenilsonani/fspurge/internal/progress"
)

// QuickScan lists only the top level of each search root instead of walking
// the whole tree. It trades recall for speed: nested leftovers such as
// plugin payloads buried inside other applications are not found, but the
// common per-app directories and preference files under the standard
// locations are, in a fraction of the time.
func (s *Scanner) QuickScan(ctx context.Context, appName string, roots []string) (*Result, error) {
	matcher := match.New(appName)
	startTime := time.Now()

	merged := make(map[string]entry)
	skipped := 0

	for i, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.reportScan(progress.PhaseScanning, appName, root, len(roots), i, len(merged), skipped, 0, startTime)

		anchor := matcher.BundlePath(root)
		if _, err := os.Lstat(anchor); err == nil {
			merged[canonicalPath(anchor)] = entry{path: anchor, tier: match.TierBundleAnchor}
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			if !os.IsNotExist(err) {
				skipped++
			}
			continue
		}

		for _, de := range entries {
			path := filepath.Join(root, de.Name())
			if s.exclusions != nil && s.exclusions.IsExcluded(path) {
				continue
			}
			if tier, ok := matcher.Match(path); ok {
				canonical := canonicalPath(path)
				if prev, seen := merged[canonical]; !seen || tier < prev.tier {
					merged[canonical] = entry{path: path, tier: tier}
				}
			}
		}
	}

	result := s.aggregate(ctx, appName, merged, skipped, startTime)

	s.reportScan(progress.PhaseComplete, appName, "", len(roots), len(roots), len(result.Candidates), skipped, result.TotalSize, startTime)

	return result, nil
}
