// Package testutil provides test helpers and fixtures for fspurge tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestFixture holds paths to a simulated home layout with the standard
// per-application leftover locations.
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)

	// Standard leftover locations
	Applications string
	AppSupport   string
	Caches       string
	Preferences  string
	Logs         string
	NodeModules  string
}

// NewFixture creates a new test fixture with standard directory structure
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	root := t.TempDir()

	f := &TestFixture{
		T:            t,
		RootDir:      root,
		Applications: filepath.Join(root, "Applications"),
		AppSupport:   filepath.Join(root, "Library", "Application Support"),
		Caches:       filepath.Join(root, "Library", "Caches"),
		Preferences:  filepath.Join(root, "Library", "Preferences"),
		Logs:         filepath.Join(root, "Library", "Logs"),
		NodeModules:  filepath.Join(root, "project", "node_modules"),
	}

	dirs := []string{
		f.Applications,
		f.AppSupport,
		f.Caches,
		f.Preferences,
		f.Logs,
		f.NodeModules,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateFileWithAge creates a file and sets its modification time to the past
func (f *TestFixture) CreateFileWithAge(relPath string, content []byte, age time.Duration) string {
	f.T.Helper()

	fullPath := f.CreateFile(relPath, content)
	oldTime := time.Now().Add(-age)

	if err := os.Chtimes(fullPath, oldTime, oldTime); err != nil {
		f.T.Fatalf("failed to set file time for %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateFileWithMode creates a file with specific permissions
func (f *TestFixture) CreateFileWithMode(relPath string, content []byte, mode os.FileMode) string {
	f.T.Helper()

	fullPath := f.CreateFile(relPath, content)
	if err := os.Chmod(fullPath, mode); err != nil {
		f.T.Fatalf("failed to chmod file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateRandomFile creates a file with random content of the given size
func (f *TestFixture) CreateRandomFile(relPath string, size int) string {
	f.T.Helper()
	content := make([]byte, size)
	rand.Read(content)
	return f.CreateFile(relPath, content)
}

// CreateAppBundle creates an application bundle skeleton
// (Name.app/Contents/Info.plist) under the given directory.
func (f *TestFixture) CreateAppBundle(relDir, appName string) string {
	f.T.Helper()

	bundle := filepath.Join(relDir, appName+".app")
	f.CreateFile(filepath.Join(bundle, "Contents", "Info.plist"), []byte("<plist/>"))
	return filepath.Join(f.RootDir, bundle)
}

// =============================================================================
// Directory Helpers
// =============================================================================

// CreateDir creates a directory and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateDirWithMode creates a directory with specific permissions
func (f *TestFixture) CreateDirWithMode(relPath string, mode os.FileMode) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, mode); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	// Set mode explicitly (MkdirAll might be affected by umask)
	if err := os.Chmod(fullPath, mode); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", fullPath, err)
	}

	return fullPath
}

// =============================================================================
// Symlink Helpers
// =============================================================================

// CreateSymlink creates a symbolic link
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLinkPath := filepath.Join(f.RootDir, linkPath)
	dir := filepath.Dir(fullLinkPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.Symlink(target, fullLinkPath); err != nil {
		f.T.Fatalf("failed to create symlink %s -> %s: %v", fullLinkPath, target, err)
	}

	return fullLinkPath
}

// CreateBrokenSymlink creates a symlink pointing to a non-existent target
func (f *TestFixture) CreateBrokenSymlink(linkPath string) string {
	f.T.Helper()
	return f.CreateSymlink("/nonexistent/target/"+randomString(8), linkPath)
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// AssertExists fails the test if the path does not exist
func (f *TestFixture) AssertExists(path string) {
	f.T.Helper()
	if _, err := os.Lstat(path); err != nil {
		f.T.Errorf("expected %s to exist: %v", path, err)
	}
}

// AssertNotExists fails the test if the path still exists
func (f *TestFixture) AssertNotExists(path string) {
	f.T.Helper()
	if _, err := os.Lstat(path); err == nil {
		f.T.Errorf("expected %s to be gone", path)
	}
}

func randomString(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return fmt.Sprintf("%x", b)[:n]
}
