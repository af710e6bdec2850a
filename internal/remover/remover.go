// Package remover deletes scan candidates in bounded parallel batches with
// per-entry outcomes. Standard mode stops at the first permission wall;
// forced mode strips write protection, retries, and finally hands the entry
// to an elevator.
package remover

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fenilsonani/fspurge/internal/progress"
	"github.com/fenilsonani/fspurge/internal/scanner"
)

// Mode selects how hard removal pushes against errors.
type Mode int

const (
	ModeStandard Mode = iota
	ModeForced
)

// String returns the mode name
func (m Mode) String() string {
	if m == ModeForced {
		return "forced"
	}
	return "standard"
}

// Outcome is the per-entry result of a removal batch.
type Outcome int

const (
	OutcomeRemoved Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomeRemoved:
		return "removed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Entry is one candidate's fate after a removal run.
type Entry struct {
	Path     string
	Outcome  Outcome
	Reason   string
	Size     int64
	Elevated bool
}

// Report is the complete account of one removal batch. Every candidate
// handed in appears exactly once.
type Report struct {
	Mode      Mode
	Entries   []Entry
	Removed   int
	Skipped   int
	Failed    int
	Elevated  int
	FreedSize int64
	Errors    []*EntryError
}

// maxWorkers caps the removal worker pool.
const maxWorkers = 32

// retryDelays paces retries for transient failures.
var retryDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}

// Remover executes removal batches.
type Remover struct {
	elevator  Elevator
	protected []string
	reporter  *progress.Reporter
	workers   int
}

// New creates a Remover. The elevator may be nil; forced mode then ends at
// the chmod-and-retry stage. Protected paths are refused outright.
func New(elevator Elevator, protected []string) *Remover {
	workers := 2 * runtime.GOMAXPROCS(0)
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if workers < 1 {
		workers = 1
	}

	return &Remover{
		elevator:  elevator,
		protected: protected,
		reporter:  progress.NewReporter(),
		workers:   workers,
	}
}

// SetReporter sets a custom progress reporter
func (r *Remover) SetReporter(rep *progress.Reporter) {
	r.reporter = rep
}

// Remove deletes the candidates. One entry's failure never stops the batch;
// cancellation is honored at entry boundaries and everything not yet
// attempted is reported as skipped.
func (r *Remover) Remove(ctx context.Context, candidates []scanner.Candidate, mode Mode) (*Report, error) {
	report := &Report{Mode: mode, Entries: make([]Entry, len(candidates))}
	startTime := time.Now()

	r.reportRemove(progress.PhaseRemoving, "", report, len(candidates), mode, startTime)

	var mu sync.Mutex
	var needElevation []int

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c scanner.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entry := Entry{Path: c.Path, Size: c.Size}

			var entryErr *EntryError

			switch {
			case ctx.Err() != nil:
				entry.Outcome = OutcomeSkipped
				entry.Reason = "canceled"
			case r.isProtected(c.Path):
				entry.Outcome = OutcomeSkipped
				entry.Reason = ReasonProtectedPath.String()
				entryErr = &EntryError{Path: c.Path, Reason: ReasonProtectedPath, Original: fmt.Errorf("protected path")}
			default:
				entryErr = r.removeOne(c.Path, mode)
				switch {
				case entryErr == nil:
					entry.Outcome = OutcomeRemoved
				case entryErr.Reason == ReasonNotFound:
					// Already absent counts as done.
					entry.Outcome = OutcomeRemoved
					entry.Reason = entryErr.Reason.String()
					entryErr = nil
				case mode == ModeForced && entryErr.NeedsElevation && r.elevator != nil && r.elevator.Available():
					mu.Lock()
					needElevation = append(needElevation, i)
					mu.Unlock()
					return // resolved in the elevation phase
				default:
					entry.Outcome = OutcomeFailed
					entry.Reason = entryErr.UserMessage()
				}
			}

			report.Entries[i] = entry

			mu.Lock()
			if entryErr != nil {
				report.Errors = append(report.Errors, entryErr)
			}
			tally(report, entry)
			r.reportRemove(progress.PhaseRemoving, c.Path, report, len(candidates), mode, startTime)
			mu.Unlock()
		}(i, c)
	}

	wg.Wait()

	if len(needElevation) > 0 {
		r.elevate(ctx, candidates, needElevation, report, startTime)
	}

	r.reportRemove(progress.PhaseComplete, "", report, len(candidates), mode, startTime)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// removeOne deletes a single entry, retrying transient failures. Forced
// mode clears write protection on the whole subtree before the last retry.
func (r *Remover) removeOne(path string, mode Mode) *EntryError {
	var lastErr *EntryError

	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		err := removePath(path)
		if err == nil {
			return nil
		}

		lastErr = Categorize(path, err)
		if lastErr.Reason == ReasonNotFound {
			return lastErr
		}

		if mode == ModeForced && lastErr.Reason == ReasonPermissionDenied {
			unprotectTree(path)
			if err := removePath(path); err == nil {
				return nil
			}
		}

		if !lastErr.Retryable || attempt == len(retryDelays) {
			break
		}
		time.Sleep(retryDelays[attempt])
	}

	return lastErr
}

// elevate hands the stubborn entries to the elevator in one go.
func (r *Remover) elevate(ctx context.Context, candidates []scanner.Candidate, indexes []int, report *Report, startTime time.Time) {
	paths := make([]string, len(indexes))
	byPath := make(map[string]int, len(indexes))
	for n, i := range indexes {
		paths[n] = candidates[i].Path
		byPath[candidates[i].Path] = i
	}

	fail := func(path string, reason string) {
		i := byPath[path]
		report.Entries[i] = Entry{Path: path, Size: candidates[i].Size, Outcome: OutcomeFailed, Reason: reason}
		tally(report, report.Entries[i])
	}

	if err := r.elevator.Authenticate(); err != nil {
		for _, path := range paths {
			fail(path, fmt.Sprintf("elevation declined: %v", err))
		}
		return
	}
	defer r.elevator.Clear()

	succeeded, failed := r.elevator.RemoveAll(ctx, paths)

	for _, path := range succeeded {
		i := byPath[path]
		report.Entries[i] = Entry{Path: path, Size: candidates[i].Size, Outcome: OutcomeRemoved, Elevated: true}
		tally(report, report.Entries[i])
		report.Elevated++
		r.reportRemove(progress.PhaseRemoving, path, report, len(candidates), report.Mode, startTime)
	}
	for path, err := range failed {
		report.Errors = append(report.Errors, Categorize(path, err))
		fail(path, fmt.Sprintf("elevated removal failed: %v", err))
	}
}

// isProtected reports whether a path is one the remover refuses to touch:
// a protected root itself, anything inside one, or any ancestor of one.
// "/" can only ever match exactly.
func (r *Remover) isProtected(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	abs = filepath.Clean(abs)

	if abs == "/" {
		return true
	}

	for _, p := range r.protected {
		if p == "/" || p == "" {
			continue
		}
		p = filepath.Clean(p)
		if abs == p ||
			strings.HasPrefix(abs+string(filepath.Separator), p+string(filepath.Separator)) ||
			strings.HasPrefix(p+string(filepath.Separator), abs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// removePath unlinks files and symlinks and recursively removes
// directories.
func removePath(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// unprotectTree force-opens permissions on a subtree so a retry can unlink
// it. Errors are ignored; the retry decides whether it helped.
func unprotectTree(path string) {
	os.Chmod(path, 0777)
	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err == nil {
			os.Chmod(p, 0777)
		}
		return nil
	})
}

func tally(report *Report, e Entry) {
	switch e.Outcome {
	case OutcomeRemoved:
		report.Removed++
		report.FreedSize += e.Size
	case OutcomeSkipped:
		report.Skipped++
	case OutcomeFailed:
		report.Failed++
	}
}

func (r *Remover) reportRemove(phase progress.Phase, current string, report *Report, total int, mode Mode, startTime time.Time) {
	if r.reporter == nil {
		return
	}

	r.reporter.UpdateRemove(&progress.RemoveProgress{
		Phase:        phase,
		CurrentPath:  current,
		Removed:      report.Removed,
		Failed:       report.Failed,
		Skipped:      report.Skipped,
		TotalEntries: total,
		FreedSize:    report.FreedSize,
		Forced:       mode == ModeForced,
		StartTime:    startTime,
	})
}
