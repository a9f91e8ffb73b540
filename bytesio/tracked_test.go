package bytesio

import (
	"bytes"
	"hash/crc64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackedReaderAccumulatesChecksum(t *testing.T) {
	data := []byte("hello world")
	r := NewTrackedReader(bytes.NewReader(data))

	buf := make([]byte, len(data))
	require.NoError(t, r.TrackedRead(buf))
	require.Equal(t, data, buf)
	require.Equal(t, uint64(len(data)), r.Cursor())

	want := crc64.Checksum(data, crc64.MakeTable(crc64.ISO))
	require.Equal(t, want, r.CurrentChecksum())
}

func TestTrackedReaderResetChecksumIsolatesWindows(t *testing.T) {
	data := []byte("abcdef")
	r := NewTrackedReader(bytes.NewReader(data))

	first := make([]byte, 3)
	require.NoError(t, r.TrackedRead(first))
	partial1 := r.ResetChecksum()
	require.Equal(t, crc64.Checksum([]byte("abc"), crc64.MakeTable(crc64.ISO)), partial1)

	second := make([]byte, 3)
	require.NoError(t, r.TrackedRead(second))
	partial2 := r.ResetChecksum()
	require.Equal(t, crc64.Checksum([]byte("def"), crc64.MakeTable(crc64.ISO)), partial2)

	// Lifetime checksum covers both windows together.
	require.Equal(t, crc64.Checksum(data, crc64.MakeTable(crc64.ISO)), r.CurrentChecksum())
}

func TestTrackedReaderUntrackedReadBypassesChecksum(t *testing.T) {
	data := []byte("trailer")
	r := NewTrackedReader(bytes.NewReader(data))
	buf := make([]byte, len(data))
	require.NoError(t, r.UntrackedRead(buf))
	require.Equal(t, data, buf)
	require.Equal(t, uint64(0), r.CurrentChecksum())
	require.Equal(t, uint64(len(data)), r.Cursor())
}

func TestTrackedReaderAtEOF(t *testing.T) {
	r := NewTrackedReader(bytes.NewReader([]byte{0x01}))
	eof, err := r.AtEOF()
	require.NoError(t, err)
	require.False(t, eof)

	_, err = r.TrackedReadByte()
	require.NoError(t, err)

	eof, err = r.AtEOF()
	require.NoError(t, err)
	require.True(t, eof)
}

func TestTrackedWriterRoundTripsThroughReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewTrackedWriter(&buf)
	require.NoError(t, w.DTrackWriteU64LE(42))
	require.NoError(t, w.TrackedWrite([]byte("payload")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	r := NewTrackedReader(&buf)
	v, err := r.TrackedReadU64LE()
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)

	rest := make([]byte, len("payload"))
	require.NoError(t, r.TrackedRead(rest))
	require.Equal(t, "payload", string(rest))
}

func TestTrackedWriterUntrackedWriteDoesNotAffectChecksum(t *testing.T) {
	var buf bytes.Buffer
	w := NewTrackedWriter(&buf)
	require.NoError(t, w.DTrackWrite([]byte("x")))
	sum := w.CurrentChecksum()
	require.NoError(t, w.UntrackedWrite([]byte("y")))
	require.Equal(t, sum, w.CurrentChecksum())
	require.NoError(t, w.Close())
}

func TestTrackedWriterClosePanicsWhenDirtyAndFlagSet(t *testing.T) {
	var buf bytes.Buffer
	w := NewTrackedWriter(&buf)
	w.PanicOnUnflushed = true
	require.NoError(t, w.DTrackWrite([]byte("unflushed")))
	require.Panics(t, func() { _ = w.Close() })
}

func TestTrackedWriterAbandonSuppressesPanic(t *testing.T) {
	var buf bytes.Buffer
	w := NewTrackedWriter(&buf)
	w.PanicOnUnflushed = true
	require.NoError(t, w.DTrackWrite([]byte("discarded")))
	w.Abandon()
	require.NotPanics(t, func() { require.NoError(t, w.Close()) })
}

