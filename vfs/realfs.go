package vfs

import (
	"io"
	"os"
)

// RealFS backs the production Context: every operation is a thin pass
// through to the host OS.
type RealFS struct{}

// NewRealFS returns the host-OS-backed FS.
func NewRealFS() *RealFS { return &RealFS{} }

func (RealFS) CreateDir(path string) error {
	return os.Mkdir(path, 0o755)
}

func (RealFS) CreateDirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (RealFS) DeleteDir(path string) error {
	return os.Remove(path)
}

func (RealFS) DeleteDirAll(path string) error {
	return os.RemoveAll(path)
}

func (RealFS) FCreateRW(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &realFile{f: f, readable: true, writable: true}, nil
}

func (RealFS) FOpenRW(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &realFile{f: f, readable: true, writable: true}, nil
}

func (RealFS) FOpenOrCreateRW(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &realFile{f: f, readable: true, writable: true}, nil
}

func (RealFS) RemoveFile(path string) error {
	return os.Remove(path)
}

func (RealFS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (RealFS) Copy(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(dstPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (fsys RealFS) CopyDirectory(srcPath, dstPath string) error {
	entries, err := os.ReadDir(srcPath)
	if err != nil {
		return err
	}
	if err := fsys.CreateDirAll(dstPath); err != nil {
		return err
	}
	for _, e := range entries {
		src := srcPath + string(os.PathSeparator) + e.Name()
		dst := dstPath + string(os.PathSeparator) + e.Name()
		if e.IsDir() {
			if err := fsys.CopyDirectory(src, dst); err != nil {
				return err
			}
			continue
		}
		if err := fsys.Copy(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// realFile wraps an *os.File with the Readable/Writable flags the caller
// opened it with.
type realFile struct {
	f                  *os.File
	readable, writable bool
}

func (r *realFile) Read(p []byte) (int, error)  { return r.f.Read(p) }
func (r *realFile) Write(p []byte) (int, error) { return r.f.Write(p) }
func (r *realFile) Seek(offset int64, whence int) (int64, error) {
	return r.f.Seek(offset, whence)
}
func (r *realFile) Truncate(size int64) error {
	if !r.writable {
		return ErrPermissionDenied
	}
	if size < 0 {
		return ErrInvalidInput
	}
	return r.f.Truncate(size)
}
func (r *realFile) Close() error           { return r.f.Close() }
func (r *realFile) Readable() bool         { return r.readable }
func (r *realFile) Writable() bool         { return r.writable }
func (r *realFile) Stat() (os.FileInfo, error) { return r.f.Stat() }

// Sync commits r's buffered writes to stable storage. The actual fsync
// call is platform-specific; see realfs_unix.go/realfs_other.go.
func (r *realFile) Sync() error { return fsync(r.f) }
