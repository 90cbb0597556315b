package fsio

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFileSystem is an in-memory FileSystem implementation.
//
// It exists primarily for tests: journal undo semantics, cache invalidation
// and pagination arithmetic can all be verified without touching the disk.
// Paths are slash-separated and cleaned; the root "/" always exists.
//
// Thread Safety:
// All operations are protected by a single RWMutex.
type MemFileSystem struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
}

type memNode struct {
	isDir   bool
	data    []byte
	mode    os.FileMode
	modTime time.Time
}

// NewMem returns an empty in-memory filesystem containing only the root.
func NewMem() *MemFileSystem {
	return &MemFileSystem{
		nodes: map[string]*memNode{
			"/": {isDir: true, mode: 0755, modTime: time.Now()},
		},
	}
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (f *MemFileSystem) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	dir = normalize(dir)
	node, ok := f.nodes[dir]
	if !ok {
		return nil, fmt.Errorf("directory %s: %w", dir, os.ErrNotExist)
	}
	if !node.isDir {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	var entries []Entry
	for p, n := range f.nodes {
		if p == dir || !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if strings.Contains(rest, "/") {
			continue // not a direct child
		}
		entries = append(entries, f.entryLocked(p, n))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (f *MemFileSystem) entryLocked(p string, n *memNode) Entry {
	return Entry{
		Name:    path.Base(p),
		Path:    p,
		IsDir:   n.isDir,
		Size:    int64(len(n.data)),
		Mode:    n.mode,
		ModTime: n.modTime,
	}
}

func (f *MemFileSystem) Stat(ctx context.Context, p string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	p = normalize(p)
	node, ok := f.nodes[p]
	if !ok {
		return Entry{}, fmt.Errorf("stat %s: %w", p, os.ErrNotExist)
	}
	return f.entryLocked(p, node), nil
}

func (f *MemFileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	p = normalize(p)
	node, ok := f.nodes[p]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, os.ErrNotExist)
	}
	if node.isDir {
		return nil, fmt.Errorf("read %s: is a directory", p)
	}

	data := make([]byte, len(node.data))
	copy(data, node.data)
	return data, nil
}

func (f *MemFileSystem) WriteFile(ctx context.Context, p string, data []byte, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p = normalize(p)
	parent, ok := f.nodes[path.Dir(p)]
	if !ok || !parent.isDir {
		return fmt.Errorf("write %s: parent directory: %w", p, os.ErrNotExist)
	}
	if existing, ok := f.nodes[p]; ok && existing.isDir {
		return fmt.Errorf("write %s: is a directory", p)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	f.nodes[p] = &memNode{data: buf, mode: perm, modTime: time.Now()}
	return nil
}

func (f *MemFileSystem) MkdirAll(ctx context.Context, p string, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p = normalize(p)
	return f.mkdirAllLocked(p, perm)
}

func (f *MemFileSystem) mkdirAllLocked(p string, perm os.FileMode) error {
	if node, ok := f.nodes[p]; ok {
		if !node.isDir {
			return fmt.Errorf("mkdir %s: not a directory", p)
		}
		return nil
	}
	if p != "/" {
		if err := f.mkdirAllLocked(path.Dir(p), perm); err != nil {
			return err
		}
	}
	f.nodes[p] = &memNode{isDir: true, mode: perm, modTime: time.Now()}
	return nil
}

func (f *MemFileSystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	oldPath = normalize(oldPath)
	newPath = normalize(newPath)

	if _, ok := f.nodes[oldPath]; !ok {
		return fmt.Errorf("rename %s: %w", oldPath, os.ErrNotExist)
	}
	if parent, ok := f.nodes[path.Dir(newPath)]; !ok || !parent.isDir {
		return fmt.Errorf("rename to %s: parent directory: %w", newPath, os.ErrNotExist)
	}

	f.moveSubtreeLocked(oldPath, newPath)
	return nil
}

// moveSubtreeLocked rewrites every key under src to the corresponding key
// under dst. Must be called with the write lock held.
func (f *MemFileSystem) moveSubtreeLocked(src, dst string) {
	prefix := src + "/"
	moved := make(map[string]*memNode)
	for p, n := range f.nodes {
		if p == src {
			moved[dst] = n
			delete(f.nodes, p)
		} else if strings.HasPrefix(p, prefix) {
			moved[dst+"/"+p[len(prefix):]] = n
			delete(f.nodes, p)
		}
	}
	for p, n := range moved {
		f.nodes[p] = n
	}
}

func (f *MemFileSystem) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	src = normalize(src)
	dst = normalize(dst)

	node, ok := f.nodes[src]
	if !ok {
		return fmt.Errorf("copy %s: %w", src, os.ErrNotExist)
	}
	if parent, ok := f.nodes[path.Dir(dst)]; !ok || !parent.isDir {
		return fmt.Errorf("copy to %s: parent directory: %w", dst, os.ErrNotExist)
	}

	// Collect sources before writing so the copy does not observe itself.
	pending := map[string]*memNode{dst: node}
	if node.isDir {
		prefix := src + "/"
		for p, n := range f.nodes {
			if strings.HasPrefix(p, prefix) {
				pending[dst+"/"+p[len(prefix):]] = n
			}
		}
	}

	for target, n := range pending {
		buf := make([]byte, len(n.data))
		copy(buf, n.data)
		f.nodes[target] = &memNode{isDir: n.isDir, data: buf, mode: n.mode, modTime: time.Now()}
	}
	return nil
}

func (f *MemFileSystem) Move(ctx context.Context, src, dst string) error {
	return f.Rename(ctx, src, dst)
}

func (f *MemFileSystem) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p = normalize(p)
	if p == "/" {
		return fmt.Errorf("refusing to remove root")
	}

	delete(f.nodes, p)
	prefix := p + "/"
	for key := range f.nodes {
		if strings.HasPrefix(key, prefix) {
			delete(f.nodes, key)
		}
	}
	return nil
}

func (f *MemFileSystem) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	_, ok := f.nodes[normalize(p)]
	return ok, nil
}
