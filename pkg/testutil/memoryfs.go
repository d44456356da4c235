package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFS implements types.FS with in-memory storage.
//
// Paths are cleaned and treated as absolute. WriteFile creates missing parent
// directories, which mirrors how the config and record writers are used.
type MemoryFS struct {
	mu      sync.RWMutex
	entries map[string]*memEntry

	// Error injection, keyed by cleaned path
	errorPaths map[string]error

	writes map[string]int
}

type memEntry struct {
	mode    os.FileMode
	modTime time.Time
	content []byte
	isDir   bool
}

// NewMemoryFS creates an empty filesystem holding only "/".
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		entries: map[string]*memEntry{
			"/": {mode: 0755 | os.ModeDir, modTime: time.Now(), isDir: true},
		},
		errorPaths: make(map[string]error),
		writes:     make(map[string]int),
	}
}

func clean(name string) string {
	if !filepath.IsAbs(name) {
		name = "/" + name
	}
	return filepath.Clean(name)
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

// Stat returns file info.
func (m *MemoryFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := clean(name)
	if err, ok := m.errorPaths[path]; ok {
		return nil, err
	}
	e, ok := m.entries[path]
	if !ok {
		return nil, notExist("stat", path)
	}
	return &memInfo{name: filepath.Base(path), entry: e}, nil
}

// Lstat is Stat; MemoryFS has no symlinks.
func (m *MemoryFS) Lstat(name string) (fs.FileInfo, error) {
	return m.Stat(name)
}

// ReadFile returns a copy of the file content.
func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := clean(name)
	if err, ok := m.errorPaths[path]; ok {
		return nil, err
	}
	e, ok := m.entries[path]
	if !ok {
		return nil, notExist("open", path)
	}
	if e.isDir {
		return nil, &fs.PathError{Op: "read", Path: path, Err: errors.New("is a directory")}
	}
	out := make([]byte, len(e.content))
	copy(out, e.content)
	return out, nil
}

// WriteFile writes data, creating the file and its parents if necessary.
func (m *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := clean(name)
	if err, ok := m.errorPaths[path]; ok {
		return err
	}
	if e, ok := m.entries[path]; ok && e.isDir {
		return &fs.PathError{Op: "write", Path: path, Err: errors.New("is a directory")}
	}
	if err := m.mkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	content := make([]byte, len(data))
	copy(content, data)
	m.entries[path] = &memEntry{mode: perm, modTime: time.Now(), content: content}
	m.writes[path]++
	return nil
}

// MkdirAll creates a directory and all necessary parents.
func (m *MemoryFS) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirAll(clean(path), perm)
}

func (m *MemoryFS) mkdirAll(path string, perm fs.FileMode) error {
	if err, ok := m.errorPaths[path]; ok {
		return err
	}
	if e, ok := m.entries[path]; ok {
		if !e.isDir {
			return &fs.PathError{Op: "mkdir", Path: path, Err: errors.New("not a directory")}
		}
		return nil
	}
	if parent := filepath.Dir(path); parent != path {
		if err := m.mkdirAll(parent, perm); err != nil {
			return err
		}
	}
	m.entries[path] = &memEntry{mode: perm | os.ModeDir, modTime: time.Now(), isDir: true}
	return nil
}

// Remove removes a file or an empty directory.
func (m *MemoryFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := clean(name)
	if err, ok := m.errorPaths[path]; ok {
		return err
	}
	e, ok := m.entries[path]
	if !ok {
		return notExist("remove", path)
	}
	if e.isDir {
		for p := range m.entries {
			if strings.HasPrefix(p, path+"/") {
				return &fs.PathError{Op: "remove", Path: path, Err: errors.New("directory not empty")}
			}
		}
	}
	delete(m.entries, path)
	return nil
}

// WithError makes every operation on path fail with err.
func (m *MemoryFS) WithError(path string, err error) *MemoryFS {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorPaths[clean(path)] = err
	return m
}

// WriteCount returns how many times path was written.
func (m *MemoryFS) WriteCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[clean(path)]
}

// Files lists regular file paths in sorted order.
func (m *MemoryFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for p, e := range m.entries {
		if !e.isDir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

type memInfo struct {
	name  string
	entry *memEntry
}

func (fi *memInfo) Name() string       { return fi.name }
func (fi *memInfo) Size() int64        { return int64(len(fi.entry.content)) }
func (fi *memInfo) Mode() fs.FileMode  { return fi.entry.mode }
func (fi *memInfo) ModTime() time.Time { return fi.entry.modTime }
func (fi *memInfo) IsDir() bool        { return fi.entry.isDir }
func (fi *memInfo) Sys() interface{}   { return nil }
