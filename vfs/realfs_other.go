//go:build !unix

package vfs

import "os"

// fsync falls back to os.File.Sync on non-unix hosts, where
// golang.org/x/sys/unix's Fsync is unavailable.
func fsync(f *os.File) error {
	return f.Sync()
}
