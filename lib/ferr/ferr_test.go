package ferr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndIs(t *testing.T) {
	err := New(NotEmpty, "space default has models")
	require.True(t, Is(err, NotEmpty))
	require.False(t, Is(err, StillInUse))
}

func TestNewfFormats(t *testing.T) {
	err := Newf(ObjectNotFound, "model %q", "users")
	require.EqualError(t, err, `ObjectNotFound: model "users"`)
}

func TestWrapNilIsNil(t *testing.T) {
	require.NoError(t, Wrap(nil, NotEmpty, "whatever"))
	require.NoError(t, Wrapf(nil, NotEmpty, "whatever %d", 1))
}

func TestWrapChainsCauseAndUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, RawJournalCorrupted, "writing trailer")
	require.ErrorIs(t, wrapped, cause)

	var fe *Error
	require.True(t, errors.As(wrapped, &fe))
	require.Equal(t, cause, fe.Cause())
	require.Equal(t, cause, fe.Unwrap())
}

func TestKindOf(t *testing.T) {
	err := New(WrongModel, "pk field cannot be dropped")
	k, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, WrongModel, k)

	_, ok = KindOf(errors.New("plain"))
	require.False(t, ok)
}

func TestFatalClassification(t *testing.T) {
	require.True(t, Fatal(New(FileDecodeHeaderCorrupted, "x")))
	require.True(t, Fatal(New(RawJournalCorrupted, "x")))
	require.False(t, Fatal(New(NotEmpty, "x")))
	require.False(t, Fatal(errors.New("plain")))
}

func TestErrorStringIncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("eof")
	wrapped := Wrap(cause, RawJournalEventCorrupted, "reading event")
	require.Contains(t, wrapped.Error(), "eof")
	require.Contains(t, wrapped.Error(), "RawJournalEventCorrupted")

	bare := New(NotEmpty, "bare message")
	require.Equal(t, "NotEmpty: bare message", bare.Error())
}
