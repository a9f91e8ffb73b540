//go:build unix

package vfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsync calls unix.Fsync directly on the file descriptor rather than
// going through os.File.Sync, keeping OS-specific file operations in
// build-tagged files.
func fsync(f *os.File) error {
	if err := unix.Fsync(int(f.Fd())); err != nil {
		return &os.PathError{Op: "fsync", Path: f.Name(), Err: err}
	}
	return nil
}
