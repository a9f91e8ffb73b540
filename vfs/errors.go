package vfs

import (
	"io"
	"io/fs"
)

// Sentinel errors both backends return, so callers can use errors.Is
// regardless of which backend produced them. The real backend's errors
// already wrap these (os/io.fs returns them directly); the virtual
// backend returns them explicitly to match.
var (
	ErrNotFound        = fs.ErrNotExist
	ErrAlreadyExists   = fs.ErrExist
	ErrPermissionDenied = fs.ErrPermission
	ErrInvalidInput    = fs.ErrInvalid
	ErrUnexpectedEOF   = io.ErrUnexpectedEOF
)
