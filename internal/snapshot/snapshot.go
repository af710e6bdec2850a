// Package snapshot creates and restores sealed restore points: per-category
// staged copies of configured paths, a manifest describing them, and a
// gzip-compressed tarball holding both.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fenilsonani/fspurge/internal/config"
	"github.com/fenilsonani/fspurge/internal/progress"
	"github.com/fenilsonani/fspurge/pkg/utils"
)

// The two fixed snapshot categories.
const (
	CategoryHome   = "home"
	CategorySystem = "system"
)

// checksumExt is the sidecar file carrying the sealed archive's SHA256.
const checksumExt = ".sha256"

// Info describes one sealed restore point on disk.
type Info struct {
	Name    string
	Path    string
	Size    int64
	Created time.Time
}

// CreateReport summarizes a sealed restore point: where the archive landed,
// how many source paths were staged and how many individual files failed
// along the way.
type CreateReport struct {
	Name        string
	ArchivePath string
	Staged      int
	Failed      int
}

// RestoreReport summarizes a restore: how many source paths came back and
// how many individual files failed along the way.
type RestoreReport struct {
	Name     string
	Restored int
	Failed   int
}

// Manager stages, seals, lists and restores restore points. Per-category
// locks serialize operations that touch the same trees.
type Manager struct {
	backupDir string
	sources   map[string][]string // category -> expanded source paths
	reporter  *progress.Reporter

	chunkThreshold int64

	locks map[string]*sync.Mutex
}

// NewManager builds a Manager from snapshot configuration. Paths starting
// with "~" are expanded against the current home directory.
func NewManager(cfg config.SnapshotConfig) *Manager {
	sources := map[string][]string{
		CategoryHome:   expandAll(cfg.HomePaths),
		CategorySystem: expandAll(cfg.SystemPaths),
	}

	return &Manager{
		backupDir:      config.ExpandHome(cfg.Dir),
		sources:        sources,
		reporter:       progress.NewReporter(),
		chunkThreshold: chunkThreshold,
		locks: map[string]*sync.Mutex{
			CategoryHome:   {},
			CategorySystem: {},
		},
	}
}

// SetReporter sets a custom progress reporter
func (m *Manager) SetReporter(r *progress.Reporter) {
	m.reporter = r
}

// BackupDir returns where sealed archives are written.
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// LockCategories acquires the named category locks in a fixed order and
// returns the release func. Removal uses this to stay mutually exclusive
// with snapshot and restore on the same trees.
func (m *Manager) LockCategories(categories ...string) func() {
	names := append([]string(nil), categories...)
	sort.Strings(names)

	var held []*sync.Mutex
	for _, name := range names {
		if mu, ok := m.locks[name]; ok {
			mu.Lock()
			held = append(held, mu)
		}
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Create stages every configured source path, writes the manifest, seals
// the tree into <name>_<timestamp>.tar.gz under the backup dir and removes
// the staging tree. A failed create leaves no partial archive behind; a
// successful one reports how many paths were staged and how many files
// could not be copied.
func (m *Manager) Create(ctx context.Context, name string) (*CreateReport, error) {
	name = sanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("restore point name is empty")
	}

	release := m.LockCategories(CategoryHome, CategorySystem)
	defer release()

	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%s", name, now.Format("20060102_150405"))
	stagingDir := filepath.Join(m.backupDir, base)
	archivePath := stagingDir + ".tar.gz"

	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	manifest := &Manifest{
		Name:       name,
		Timestamp:  now,
		Creator:    currentUser(),
		Categories: make(map[string][]string),
	}

	startTime := now
	report := &CreateReport{Name: name, ArchivePath: archivePath}

	for _, category := range []string{CategoryHome, CategorySystem} {
		categoryDir := filepath.Join(stagingDir, category)

		for _, src := range m.sources[category] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if _, err := os.Lstat(src); err != nil {
				continue
			}

			m.reportSnapshot(progress.PhaseStaging, name, category, src, report.Staged, report.Failed, startTime)

			dst := filepath.Join(categoryDir, filepath.Base(src))
			if err := os.MkdirAll(categoryDir, 0755); err != nil {
				return nil, err
			}

			if err := m.copyTree(ctx, src, dst, &report.Failed); err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return nil, err
				}
				report.Failed++
				continue
			}

			report.Staged++
			manifest.Categories[category] = append(manifest.Categories[category], src)
		}
	}

	if err := writeManifest(filepath.Join(stagingDir, manifestName), manifest); err != nil {
		return nil, err
	}

	m.reportSnapshot(progress.PhaseSealing, name, "", archivePath, report.Staged, report.Failed, startTime)

	if err := sealArchive(stagingDir, archivePath); err != nil {
		return nil, err
	}

	if sum, err := utils.HashFile(archivePath); err == nil {
		os.WriteFile(archivePath+checksumExt, []byte(sum+"  "+filepath.Base(archivePath)+"\n"), 0644)
	}

	m.reportSnapshot(progress.PhaseComplete, name, "", archivePath, report.Staged, report.Failed, startTime)

	return report, nil
}

// Restore brings a restore point's paths back onto the live filesystem. The
// archive is located and fully validated, manifest included, before any
// live file is touched. Individual file failures are skipped and counted.
func (m *Manager) Restore(ctx context.Context, name string) (*RestoreReport, error) {
	archivePath, err := m.findArchive(name)
	if err != nil {
		return nil, err
	}

	if err := m.verifyChecksum(archivePath); err != nil {
		return nil, err
	}

	release := m.LockCategories(CategoryHome, CategorySystem)
	defer release()

	extractDir, err := os.MkdirTemp("", "fspurge-restore-")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(extractDir)

	startTime := time.Now()
	m.reportSnapshot(progress.PhaseRestoring, name, "", archivePath, 0, 0, startTime)

	if err := extractArchive(archivePath, extractDir); err != nil {
		return nil, err
	}

	manifest, err := readManifest(filepath.Join(extractDir, manifestName))
	if err != nil {
		return nil, err
	}

	report := &RestoreReport{Name: manifest.Name}

	categories := make([]string, 0, len(manifest.Categories))
	for category := range manifest.Categories {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for _, original := range manifest.Categories[category] {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			m.reportSnapshot(progress.PhaseRestoring, name, category, original, report.Restored, report.Failed, startTime)

			staged := filepath.Join(extractDir, category, filepath.Base(original))
			if _, err := os.Lstat(staged); err != nil {
				report.Failed++
				continue
			}

			if err := os.MkdirAll(filepath.Dir(original), 0755); err != nil {
				report.Failed++
				continue
			}

			fileFailures := 0
			if err := m.copyTree(ctx, staged, original, &fileFailures); err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return report, err
				}
				report.Failed++
				continue
			}

			report.Failed += fileFailures
			report.Restored++
		}
	}

	m.reportSnapshot(progress.PhaseComplete, name, "", archivePath, report.Restored, report.Failed, startTime)

	return report, nil
}

// List enumerates sealed restore points, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tar.gz") {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}

		infos = append(infos, Info{
			Name:    strings.TrimSuffix(entry.Name(), ".tar.gz"),
			Path:    filepath.Join(m.backupDir, entry.Name()),
			Size:    fi.Size(),
			Created: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Created.After(infos[j].Created) })
	return infos, nil
}

// findArchive resolves a restore point name to its archive. Exact archive
// names win; otherwise the newest archive whose name starts with
// "<name>_" is used.
func (m *Manager) findArchive(name string) (string, error) {
	direct := filepath.Join(m.backupDir, filepath.Base(name))
	if strings.HasSuffix(name, ".tar.gz") {
		if _, err := os.Stat(direct); err == nil {
			return direct, nil
		}
	}

	infos, err := m.List()
	if err != nil {
		return "", err
	}

	for _, info := range infos {
		if info.Name == name || strings.HasPrefix(info.Name, sanitizeName(name)+"_") {
			return info.Path, nil
		}
	}

	return "", fmt.Errorf("restore point %q not found in %s", name, m.backupDir)
}

// verifyChecksum compares the archive against its sidecar checksum when one
// exists. Archives without a sidecar are accepted.
func (m *Manager) verifyChecksum(archivePath string) error {
	data, err := os.ReadFile(archivePath + checksumExt)
	if err != nil {
		return nil
	}

	want := strings.Fields(string(data))
	if len(want) == 0 {
		return nil
	}

	got, err := utils.HashFile(archivePath)
	if err != nil {
		return fmt.Errorf("failed to hash archive: %w", err)
	}

	if got != want[0] {
		return fmt.Errorf("archive %s does not match its recorded checksum", filepath.Base(archivePath))
	}
	return nil
}

func (m *Manager) reportSnapshot(phase progress.Phase, name, category, current string, copied, failed int, startTime time.Time) {
	if m.reporter == nil {
		return
	}

	m.reporter.UpdateSnapshot(&progress.SnapshotProgress{
		Phase:       phase,
		Name:        name,
		Category:    category,
		CurrentPath: current,
		FilesCopied: copied,
		FilesFailed: failed,
		StartTime:   startTime,
	})
}

// sanitizeName strips path separators and whitespace from a restore point
// name so it is always a single safe path component.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, string(filepath.Separator), "-")
	name = strings.ReplaceAll(name, "..", "-")
	return name
}

func expandAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, config.ExpandHome(p))
	}
	return out
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
