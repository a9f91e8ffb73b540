// Package ferr centralizes the engine's error taxonomy: typed marker
// errors wrapping a cause, queried with errors.As rather than string
// matching.
package ferr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the engine's named error categories.
type Kind string

const (
	// Lex
	LexInvalidInput    Kind = "LexInvalidInput"
	LexUnexpectedByte  Kind = "LexUnexpectedByte"

	// Parse
	QLUnexpectedEndOfStatement   Kind = "QLUnexpectedEndOfStatement"
	QLInvalidSyntax              Kind = "QLInvalidSyntax"
	QLUnknownStatement           Kind = "QLUnknownStatement"
	QLExpectedEntity             Kind = "QLExpectedEntity"
	QLExpectedStatement          Kind = "QLExpectedStatement"
	QLInvalidTypeDefinitionSyntax Kind = "QLInvalidTypeDefinitionSyntax"

	// Storage (header)
	FileDecodeHeaderCorrupted       Kind = "FileDecodeHeaderCorrupted"
	FileDecodeHeaderVersionMismatch Kind = "FileDecodeHeaderVersionMismatch"

	// Storage (journal)
	RawJournalCorrupted                Kind = "RawJournalCorrupted"
	RawJournalEventCorrupted           Kind = "RawJournalEventCorrupted"
	RawJournalRuntimeDirty              Kind = "RawJournalRuntimeDirty"
	V1DataBatchDecodeCorruptedBatch     Kind = "V1DataBatchDecodeCorruptedBatch"
	V1DataBatchDecodeCorruptedBatchFile Kind = "V1DataBatchDecodeCorruptedBatchFile"
	V1DataBatchDecodeCorruptedEntry     Kind = "V1DataBatchDecodeCorruptedEntry"

	// DDL
	StillInUse           Kind = "StillInUse"
	ObjectNotFound       Kind = "ObjectNotFound"
	ProtectedObject      Kind = "ProtectedObject"
	AlreadyExists        Kind = "AlreadyExists"
	NotReady             Kind = "NotReady"
	NotEmpty             Kind = "NotEmpty"
	WrongModel           Kind = "WrongModel"
	DdlTransactionFailure Kind = "DdlTransactionFailure"

	// Transaction restore
	OnRestoreDataMissing                Kind = "OnRestoreDataMissing"
	OnRestoreDataConflictMismatch       Kind = "OnRestoreDataConflictMismatch"
	OnRestoreDataConflictAlreadyExists  Kind = "OnRestoreDataConflictAlreadyExists"

	// Internal
	InternalDecodeStructureCorrupted Kind = "InternalDecodeStructureCorrupted"

	// Runtime
	DriverIffy Kind = "DriverIffy"
)

// fatalKinds lists kinds that, per the propagation policy, are
// fatal to the current boot rather than locally recoverable.
var fatalKinds = map[Kind]bool{
	FileDecodeHeaderCorrupted:           true,
	FileDecodeHeaderVersionMismatch:     true,
	RawJournalCorrupted:                 true,
	V1DataBatchDecodeCorruptedBatch:     true,
	V1DataBatchDecodeCorruptedBatchFile: true,
	OnRestoreDataConflictMismatch:       true,
	OnRestoreDataConflictAlreadyExists:  true,
	InternalDecodeStructureCorrupted:    true,
}

// Error is a typed, causally-chained engine error.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New constructs a bare Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates cause with kind and msg. Returns nil if cause is nil,
// mirroring github.com/pkg/errors.Wrap's nil-safety.
func Wrap(cause error, kind Kind, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, cause: cause}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(cause error, kind Kind, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap exposes the cause to errors.Is/errors.As, and to
// github.com/pkg/errors callers that still look for a Cause() method.
func (e *Error) Unwrap() error { return e.cause }

// Cause is the github.com/pkg/errors compatible accessor.
func (e *Error) Cause() error { return e.cause }

// Kind returns the error's taxonomy kind.
func (e *Error) Kind() Kind { return e.kind }

// Fatal reports whether this kind is fatal-to-boot.
func (e *Error) Fatal() bool { return fatalKinds[e.kind] }

// Is reports whether err (or any error in its chain) carries kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it (or its chain) is a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return "", false
}

// Fatal reports whether err should abort the current boot, per the
// propagation policy: corruption mid-batch, header/version mismatch, and
// restore conflicts are fatal; everything else is locally recoverable.
func Fatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Fatal()
	}
	return false
}
