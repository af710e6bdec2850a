package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fenilsonani/fspurge/pkg/utils"
)

const (
	// chunkThreshold is the size at which file copies switch from one
	// buffered read to fixed-size chunked streaming.
	chunkThreshold = 100 * utils.MB

	// chunkSize is the streaming chunk size for large files.
	chunkSize = 1 * utils.MB
)

// copyTree mirrors src into dst. Symlinks are recreated as links, empty
// directories are preserved, and regular files keep their mode and
// timestamps. Individual failures are counted and skipped.
func (m *Manager) copyTree(ctx context.Context, src, dst string, failed *int) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return copySymlink(src, dst)
	case info.IsDir():
		return m.copyDir(ctx, src, dst, failed)
	default:
		return m.copyFile(src, dst, info)
	}
}

func (m *Manager) copyDir(ctx context.Context, src, dst string, failed *int) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.copyTree(ctx, filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()), failed); err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				return err
			}
			*failed++
		}
	}
	return nil
}

// copyFile copies one regular file, preserving mode and times. Files at or
// above the chunk threshold are streamed in fixed-size chunks so a single
// huge file never occupies a matching amount of memory.
func (m *Manager) copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	threshold := m.chunkThreshold
	if threshold <= 0 {
		threshold = chunkThreshold
	}

	if info.Size() >= threshold {
		buf := make([]byte, chunkSize)
		_, err = io.CopyBuffer(out, in, buf)
	} else {
		_, err = io.Copy(out, in)
	}

	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	os.Remove(dst)
	return os.Symlink(target, dst)
}
