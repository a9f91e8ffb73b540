// Package vfs implements the engine's filesystem abstraction: a
// single FS interface with two backends, the real host filesystem and a
// reference-counted in-memory tree for tests. No
// third-party filesystem abstraction library (e.g. afero) appears
// anywhere in the retrieved corpus, so both backends are built directly
// on top of the relevant primitives — os for the real one, a guarded tree
// for the virtual one.
package vfs

import (
	"io"
	"os"
	"time"
)

// Context selects which backend a caller's FS handle resolves against.
// Construction replaces a thread-local
// selector with an explicit parameter threaded through constructors.
type Context uint8

const (
	Local Context = iota
	Virtual
)

// FS is implemented by both backends.
type FS interface {
	CreateDir(path string) error
	CreateDirAll(path string) error
	DeleteDir(path string) error
	DeleteDirAll(path string) error
	FCreateRW(path string) (File, error)
	FOpenRW(path string) (File, error)
	FOpenOrCreateRW(path string) (File, error)
	RemoveFile(path string) error
	Rename(oldPath, newPath string) error
	Copy(srcPath, dstPath string) error
	CopyDirectory(srcPath, dstPath string) error
}

// File is an open handle with independent read/write permission flags and
// its own cursor.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	// Readable/Writable report which operations this handle permits;
	// handles from FCreateRW, FOpenRW and FOpenOrCreateRW return true for
	// both on either backend.
	Readable() bool
	Writable() bool
	Stat() (os.FileInfo, error)
	// Sync commits any buffered writes to stable storage (the fsync every
	// journal commit ends with). bytesio.TrackedWriter.Flush
	// calls this through an interface assertion after every journal
	// commit; the virtual backend has no disk to sync against, so it is
	// a no-op there.
	Sync() error
	// Truncate resizes the file to size bytes without moving the cursor;
	// journal recovery uses it to cut a partial final record before
	// reopening for append.
	Truncate(size int64) error
}

// modTimeNow is the Context-independent clock both backends stamp onto
// directory/file metadata; tests can't control wall-clock time, so the
// virtual backend stamps this at creation too rather than trying to
// freeze it.
func modTimeNow() time.Time { return time.Now() }

// New returns the backend for ctx.
func New(ctx Context) FS {
	switch ctx {
	case Virtual:
		return NewMemFS()
	default:
		return NewRealFS()
	}
}
