package vfs

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// memFile is a reference-counted in-memory file. Removing a file from
// its directory decrements refs but does not free data until every open
// handle has closed, matching POSIX unlink-while-open behavior.
type memFile struct {
	mu      sync.Mutex
	data    []byte
	modTime time.Time
	refs    int32
}

type memDirEntry struct {
	name  string
	isDir bool
	dir   *memDir
	file  *memFile
}

type memDir struct {
	mu      sync.Mutex
	entries map[string]*memDirEntry
	modTime time.Time
}

func newMemDir() *memDir {
	return &memDir{entries: make(map[string]*memDirEntry), modTime: modTimeNow()}
}

// MemFS is the Virtual Context backend: a single reference-counted
// directory tree rooted at "/".
type MemFS struct {
	mu   sync.Mutex
	root *memDir
}

// NewMemFS returns an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{root: newMemDir()}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// walk resolves every component but the last, returning the parent
// directory and the final component name.
func (m *MemFS) walk(path string) (*memDir, string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, "", ErrInvalidInput
	}
	dir := m.root
	for _, p := range parts[:len(parts)-1] {
		dir.mu.Lock()
		e, ok := dir.entries[p]
		dir.mu.Unlock()
		if !ok {
			return nil, "", ErrNotFound
		}
		if !e.isDir {
			return nil, "", ErrInvalidInput
		}
		dir = e.dir
	}
	return dir, parts[len(parts)-1], nil
}

func (m *MemFS) lookup(path string) (*memDirEntry, error) {
	parent, name, err := m.walk(path)
	if err != nil {
		return nil, err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	e, ok := parent.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *MemFS) CreateDir(path string) error {
	parent, name, err := m.walk(path)
	if err != nil {
		return err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	if _, ok := parent.entries[name]; ok {
		return ErrAlreadyExists
	}
	parent.entries[name] = &memDirEntry{name: name, isDir: true, dir: newMemDir()}
	return nil
}

func (m *MemFS) CreateDirAll(path string) error {
	parts := splitPath(path)
	dir := m.root
	built := ""
	for _, p := range parts {
		built += "/" + p
		dir.mu.Lock()
		e, ok := dir.entries[p]
		if !ok {
			e = &memDirEntry{name: p, isDir: true, dir: newMemDir()}
			dir.entries[p] = e
		}
		dir.mu.Unlock()
		if !e.isDir {
			return ErrInvalidInput
		}
		dir = e.dir
	}
	return nil
}

func (m *MemFS) DeleteDir(path string) error {
	parent, name, err := m.walk(path)
	if err != nil {
		return err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	e, ok := parent.entries[name]
	if !ok {
		return ErrNotFound
	}
	if !e.isDir {
		return ErrInvalidInput
	}
	e.dir.mu.Lock()
	empty := len(e.dir.entries) == 0
	e.dir.mu.Unlock()
	if !empty {
		return fmt.Errorf("vfs: directory %q not empty", path)
	}
	delete(parent.entries, name)
	return nil
}

func (m *MemFS) DeleteDirAll(path string) error {
	parent, name, err := m.walk(path)
	if err != nil {
		return err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	if _, ok := parent.entries[name]; !ok {
		return ErrNotFound
	}
	delete(parent.entries, name)
	return nil
}

func (m *MemFS) openHandle(f *memFile, readable, writable bool) File {
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
	return &memFileHandle{file: f, readable: readable, writable: writable}
}

func (m *MemFS) FCreateRW(path string) (File, error) {
	parent, name, err := m.walk(path)
	if err != nil {
		return nil, err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	if _, ok := parent.entries[name]; ok {
		return nil, ErrAlreadyExists
	}
	f := &memFile{modTime: modTimeNow(), refs: 1}
	parent.entries[name] = &memDirEntry{name: name, file: f}
	return m.openHandle(f, true, true), nil
}

func (m *MemFS) FOpenRW(path string) (File, error) {
	e, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if e.isDir {
		return nil, ErrInvalidInput
	}
	return m.openHandle(e.file, true, true), nil
}

func (m *MemFS) FOpenOrCreateRW(path string) (File, error) {
	h, err := m.FOpenRW(path)
	if err == ErrNotFound {
		return m.FCreateRW(path)
	}
	return h, err
}

func (m *MemFS) RemoveFile(path string) error {
	parent, name, err := m.walk(path)
	if err != nil {
		return err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	e, ok := parent.entries[name]
	if !ok {
		return ErrNotFound
	}
	if e.isDir {
		return ErrInvalidInput
	}
	delete(parent.entries, name)
	e.file.mu.Lock()
	e.file.refs--
	e.file.mu.Unlock()
	return nil
}

func (m *MemFS) Rename(oldPath, newPath string) error {
	oldParent, oldName, err := m.walk(oldPath)
	if err != nil {
		return err
	}
	newParent, newName, err := m.walk(newPath)
	if err != nil {
		return err
	}
	oldParent.mu.Lock()
	e, ok := oldParent.entries[oldName]
	if ok {
		delete(oldParent.entries, oldName)
	}
	oldParent.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.name = newName
	newParent.mu.Lock()
	newParent.entries[newName] = e
	newParent.mu.Unlock()
	return nil
}

func (m *MemFS) Copy(srcPath, dstPath string) error {
	e, err := m.lookup(srcPath)
	if err != nil {
		return err
	}
	if e.isDir {
		return ErrInvalidInput
	}
	e.file.mu.Lock()
	data := make([]byte, len(e.file.data))
	copy(data, e.file.data)
	e.file.mu.Unlock()

	parent, name, err := m.walk(dstPath)
	if err != nil {
		return err
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	parent.entries[name] = &memDirEntry{name: name, file: &memFile{data: data, modTime: modTimeNow(), refs: 0}}
	return nil
}

func (m *MemFS) CopyDirectory(srcPath, dstPath string) error {
	e, err := m.lookup(srcPath)
	if err != nil {
		return err
	}
	if !e.isDir {
		return ErrInvalidInput
	}
	if err := m.CreateDirAll(dstPath); err != nil {
		return err
	}
	e.dir.mu.Lock()
	names := make([]string, 0, len(e.dir.entries))
	for n := range e.dir.entries {
		names = append(names, n)
	}
	e.dir.mu.Unlock()
	for _, n := range names {
		src := srcPath + "/" + n
		dst := dstPath + "/" + n
		child, err := m.lookup(src)
		if err != nil {
			return err
		}
		if child.isDir {
			if err := m.CopyDirectory(src, dst); err != nil {
				return err
			}
			continue
		}
		if err := m.Copy(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// memFileHandle is one open reference to a memFile, carrying its own
// cursor and permission flags.
type memFileHandle struct {
	file               *memFile
	pos                int64
	readable, writable bool
	closed             bool
}

func (h *memFileHandle) Read(p []byte) (int, error) {
	if !h.readable {
		return 0, ErrPermissionDenied
	}
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	if h.pos >= int64(len(h.file.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.file.data[h.pos:])
	h.pos += int64(n)
	return n, nil
}

func (h *memFileHandle) Write(p []byte) (int, error) {
	if !h.writable {
		return 0, ErrPermissionDenied
	}
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	end := h.pos + int64(len(p))
	if end > int64(len(h.file.data)) {
		grown := make([]byte, end)
		copy(grown, h.file.data)
		h.file.data = grown
	}
	n := copy(h.file.data[h.pos:end], p)
	h.pos += int64(n)
	h.file.modTime = modTimeNow()
	return n, nil
}

func (h *memFileHandle) Seek(offset int64, whence int) (int64, error) {
	h.file.mu.Lock()
	size := int64(len(h.file.data))
	h.file.mu.Unlock()
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = h.pos + offset
	case io.SeekEnd:
		newPos = size + offset
	default:
		return 0, ErrInvalidInput
	}
	if newPos < 0 {
		return 0, ErrInvalidInput
	}
	h.pos = newPos
	return newPos, nil
}

func (h *memFileHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.file.mu.Lock()
	h.file.refs--
	h.file.mu.Unlock()
	return nil
}

func (h *memFileHandle) Truncate(size int64) error {
	if !h.writable {
		return ErrPermissionDenied
	}
	if size < 0 {
		return ErrInvalidInput
	}
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	if size <= int64(len(h.file.data)) {
		h.file.data = h.file.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, h.file.data)
		h.file.data = grown
	}
	h.file.modTime = modTimeNow()
	return nil
}

func (h *memFileHandle) Readable() bool { return h.readable }
func (h *memFileHandle) Writable() bool { return h.writable }

// Sync is a no-op: the virtual backend keeps all data in memory, so
// there is nothing to flush to stable storage.
func (h *memFileHandle) Sync() error { return nil }

func (h *memFileHandle) Stat() (os.FileInfo, error) {
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	return memFileInfo{size: int64(len(h.file.data)), modTime: h.file.modTime}, nil
}

// memFileInfo is a minimal os.FileInfo for virtual files.
type memFileInfo struct {
	size    int64
	modTime time.Time
}

func (i memFileInfo) Name() string       { return "" }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() os.FileMode  { return 0o644 }
func (i memFileInfo) ModTime() time.Time { return i.modTime }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() any           { return nil }
