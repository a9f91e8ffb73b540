package bytesio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScannerBasics(t *testing.T) {
	s := NewScanner([]byte{0x01, 0x02, 0x03, 0x04})
	require.Equal(t, 4, s.Remaining())
	require.True(t, s.HasLeft(4))
	require.False(t, s.HasLeft(5))
	require.False(t, s.EOF())

	b, ok := s.NextByte()
	require.True(t, ok)
	require.Equal(t, byte(0x01), b)
	require.Equal(t, 1, s.Cursor())

	chunk, ok := s.NextChunk(2)
	require.True(t, ok)
	require.Equal(t, []byte{0x02, 0x03}, chunk)

	require.False(t, s.EOF())
	last, ok := s.NextByte()
	require.True(t, ok)
	require.Equal(t, byte(0x04), last)
	require.True(t, s.EOF())

	_, ok = s.NextByte()
	require.False(t, ok)
}

func TestScannerNextU64LE(t *testing.T) {
	s := NewScanner([]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xAA})
	v, ok := s.NextU64LE()
	require.True(t, ok)
	require.Equal(t, uint64(1), v)
	require.Equal(t, 1, s.Remaining())

	// Not enough bytes left for another u64.
	_, ok = s.NextU64LE()
	require.False(t, ok)
}

func TestScannerNextU16LEAndU128LE(t *testing.T) {
	buf := make([]byte, 0, 18)
	buf = append(buf, 0x34, 0x12) // u16 = 0x1234
	buf = append(buf, 1, 0, 0, 0, 0, 0, 0, 0) // lo = 1
	buf = append(buf, 2, 0, 0, 0, 0, 0, 0, 0) // hi = 2
	s := NewScanner(buf)

	u16, ok := s.NextU16LE()
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), u16)

	lo, hi, ok := s.NextU128LE()
	require.True(t, ok)
	require.Equal(t, uint64(1), lo)
	require.Equal(t, uint64(2), hi)
}

func TestScannerPeekByteAndRest(t *testing.T) {
	s := NewScanner([]byte{0xAA, 0xBB, 0xCC})
	b, ok := s.PeekByte()
	require.True(t, ok)
	require.Equal(t, byte(0xAA), b)
	// Peek does not advance.
	require.Equal(t, 0, s.Cursor())

	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, s.Rest())
	s.NextByteUnchecked()
	require.Equal(t, []byte{0xBB, 0xCC}, s.Rest())
}

func TestScannerEmptyInputNeverPanics(t *testing.T) {
	s := NewScanner(nil)
	require.True(t, s.EOF())
	require.Equal(t, 0, s.Remaining())

	_, ok := s.NextByte()
	require.False(t, ok)
	_, ok = s.NextChunk(1)
	require.False(t, ok)
	_, ok = s.NextU64LE()
	require.False(t, ok)
	_, ok = s.PeekByte()
	require.False(t, ok)
}

func TestScannerNextByteUncheckedPanicsAtEOF(t *testing.T) {
	s := NewScanner(nil)
	require.Panics(t, func() { s.NextByteUnchecked() })
}
