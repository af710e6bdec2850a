package sizecache

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()

	cache, err := Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	return cache
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSizeFileAndDirectory(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.txt"), 100)
	writeFile(t, filepath.Join(root, "sub", "b.txt"), 200)
	writeFile(t, filepath.Join(root, "sub", "deep", "c.txt"), 50)

	if got := cache.Size(ctx, filepath.Join(root, "a.txt")); got != 100 {
		t.Errorf("file size = %d, want 100", got)
	}
	if got := cache.Size(ctx, root); got != 350 {
		t.Errorf("tree size = %d, want 350", got)
	}
}

func TestSizeServedFromCacheWithoutReread(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.txt"), 100)
	writeFile(t, filepath.Join(root, "b.txt"), 200)

	var readDirCalls int64
	inner := cache.readDir
	cache.readDir = func(dir string) ([]os.DirEntry, error) {
		atomic.AddInt64(&readDirCalls, 1)
		return inner(dir)
	}

	if got := cache.Size(ctx, root); got != 300 {
		t.Fatalf("first Size = %d, want 300", got)
	}
	first := atomic.LoadInt64(&readDirCalls)
	if first == 0 {
		t.Fatal("expected filesystem read on cold cache")
	}

	if got := cache.Size(ctx, root); got != 300 {
		t.Fatalf("second Size = %d, want 300", got)
	}
	if atomic.LoadInt64(&readDirCalls) != first {
		t.Error("fresh cache entry still re-read the directory")
	}
}

func TestSizeRecomputesWhenMtimeChanges(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")

	writeFile(t, path, 100)
	if got := cache.Size(ctx, path); got != 100 {
		t.Fatalf("Size = %d, want 100", got)
	}

	writeFile(t, path, 500)
	// Force a distinct mtime even on coarse filesystem clocks.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if got := cache.Size(ctx, path); got != 500 {
		t.Errorf("Size after modification = %d, want 500", got)
	}
}

func TestSizeRecomputesAfterFreshnessWindow(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.txt"), 100)
	if got := cache.Size(ctx, root); got != 100 {
		t.Fatalf("Size = %d, want 100", got)
	}

	var readDirCalls int64
	inner := cache.readDir
	cache.readDir = func(dir string) ([]os.DirEntry, error) {
		atomic.AddInt64(&readDirCalls, 1)
		return inner(dir)
	}

	cache.now = func() time.Time { return time.Now().Add(FreshnessWindow + time.Hour) }

	if got := cache.Size(ctx, root); got != 100 {
		t.Fatalf("Size = %d, want 100", got)
	}
	if atomic.LoadInt64(&readDirCalls) == 0 {
		t.Error("stale entry was served without re-reading the filesystem")
	}
}

func TestSizeSkipsUnreadableChildren(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "ok.txt"), 100)
	writeFile(t, filepath.Join(root, "bad.txt"), 200)

	inner := cache.readDir
	cache.readDir = func(dir string) ([]os.DirEntry, error) {
		entries, err := inner(dir)
		if err != nil {
			return nil, err
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Name() == "bad.txt" {
				filtered = append(filtered, failingEntry{e})
			} else {
				filtered = append(filtered, e)
			}
		}
		return filtered, nil
	}

	if got := cache.Size(ctx, root); got != 100 {
		t.Errorf("Size = %d, want 100 (bad child skipped)", got)
	}
}

// failingEntry wraps a DirEntry so Info always fails.
type failingEntry struct{ os.DirEntry }

func (f failingEntry) Info() (os.FileInfo, error) {
	return nil, os.ErrPermission
}

func TestSizeDoesNotFollowSymlinks(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	root := t.TempDir()

	target := filepath.Join(root, "target")
	writeFile(t, filepath.Join(target, "big.bin"), 4096)

	link := filepath.Join(root, "scan", "link")
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	got := cache.Size(ctx, filepath.Join(root, "scan"))
	if got >= 4096 {
		t.Errorf("Size = %d, symlink target was followed", got)
	}
}

func TestSweepEvictsOldEntries(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.txt"), 10)
	cache.Size(ctx, filepath.Join(root, "a.txt"))

	if n, err := cache.Len(ctx); err != nil || n == 0 {
		t.Fatalf("Len = %d, %v; want > 0", n, err)
	}

	// Nothing is old enough yet.
	removed, err := cache.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 0 {
		t.Errorf("premature sweep removed %d entries", removed)
	}

	cache.now = func() time.Time { return time.Now().Add(RetentionWindow + time.Hour) }

	removed, err = cache.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed == 0 {
		t.Error("sweep removed nothing past the retention window")
	}

	if n, _ := cache.Len(ctx); n != 0 {
		t.Errorf("Len after sweep = %d, want 0", n)
	}
}

func TestSizeDeepTreeSharesLockStripes(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	// More nesting levels than stripes forces some parent and child
	// directories onto the same stripe; holding one across recursion
	// would deadlock here.
	root := t.TempDir()
	dir := root
	for i := 0; i < 2*lockStripes; i++ {
		dir = filepath.Join(dir, "d")
	}
	writeFile(t, filepath.Join(dir, "leaf.txt"), 42)

	done := make(chan int64, 1)
	go func() { done <- cache.Size(ctx, root) }()

	select {
	case got := <-done:
		if got != 42 {
			t.Errorf("Size = %d, want 42", got)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Size deadlocked on a deeply nested tree")
	}
}

func TestSizeMissingPath(t *testing.T) {
	cache := openTestCache(t)

	if got := cache.Size(context.Background(), "/no/such/path"); got != 0 {
		t.Errorf("Size of missing path = %d, want 0", got)
	}
}
