package fsio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OSFileSystem implements FileSystem over the real filesystem.
//
// Context is checked before each primitive; individual syscalls are not
// interruptible mid-flight, matching the engine's "no operation blocks
// indefinitely" model.
type OSFileSystem struct{}

// NewOS returns a FileSystem backed by the operating system.
func NewOS() *OSFileSystem {
	return &OSFileSystem{}
}

func (f *OSFileSystem) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info; skip it.
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(dir, de.Name()),
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			Mode:    info.Mode().Perm(),
			ModTime: info.ModTime(),
		})
	}

	return entries, nil
}

func (f *OSFileSystem) Stat(ctx context.Context, path string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Name:    filepath.Base(path),
		Path:    path,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime(),
	}, nil
}

func (f *OSFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (f *OSFileSystem) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func (f *OSFileSystem) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(path, perm)
}

func (f *OSFileSystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(oldPath, newPath)
}

func (f *OSFileSystem) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat copy source %s: %w", src, err)
	}

	if info.IsDir() {
		return f.copyDir(ctx, src, dst, info.Mode().Perm())
	}
	return copyFile(src, dst, info.Mode().Perm())
}

func (f *OSFileSystem) copyDir(ctx context.Context, src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(dst, perm); err != nil {
		return err
	}

	children, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}

		srcChild := filepath.Join(src, child.Name())
		dstChild := filepath.Join(dst, child.Name())

		if child.IsDir() {
			info, err := child.Info()
			if err != nil {
				return err
			}
			if err := f.copyDir(ctx, srcChild, dstChild, info.Mode().Perm()); err != nil {
				return err
			}
			continue
		}

		info, err := child.Info()
		if err != nil {
			return err
		}
		if err := copyFile(srcChild, dstChild, info.Mode().Perm()); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

func (f *OSFileSystem) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Rename failed (likely cross-device); fall back to copy+remove.
	if err := f.Copy(ctx, src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func (f *OSFileSystem) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.RemoveAll(path)
}

func (f *OSFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
