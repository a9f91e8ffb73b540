// Package bytesio provides a forward-only cursor over a borrowed byte slice
// plus tracked, checksumming readers and writers used by the storage layer.
package bytesio

import "encoding/binary"

// Scanner is a forward cursor over a byte slice. It never copies the
// underlying slice; all returned sub-slices alias it.
type Scanner struct {
	buf []byte
	pos int
}

// NewScanner wraps buf for forward scanning starting at offset 0.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Remaining returns the number of unread bytes.
func (s *Scanner) Remaining() int {
	return len(s.buf) - s.pos
}

// HasLeft reports whether at least n unread bytes remain.
func (s *Scanner) HasLeft(n int) bool {
	return s.Remaining() >= n
}

// EOF reports whether the cursor has consumed the whole buffer.
func (s *Scanner) EOF() bool {
	return s.pos >= len(s.buf)
}

// Cursor returns the current read offset.
func (s *Scanner) Cursor() int {
	return s.pos
}

// NextByteUnchecked returns the next byte and advances the cursor.
//
// Precondition: HasLeft(1). Calling this at EOF panics.
func (s *Scanner) NextByteUnchecked() byte {
	b := s.buf[s.pos]
	s.pos++
	return b
}

// NextByte is the safe counterpart of NextByteUnchecked.
func (s *Scanner) NextByte() (byte, bool) {
	if !s.HasLeft(1) {
		return 0, false
	}
	return s.NextByteUnchecked(), true
}

// NextChunkUnchecked returns the next n bytes and advances the cursor.
//
// Precondition: HasLeft(n).
func (s *Scanner) NextChunkUnchecked(n int) []byte {
	chunk := s.buf[s.pos : s.pos+n]
	s.pos += n
	return chunk
}

// NextChunk is the safe counterpart of NextChunkUnchecked.
func (s *Scanner) NextChunk(n int) ([]byte, bool) {
	if !s.HasLeft(n) {
		return nil, false
	}
	return s.NextChunkUnchecked(n), true
}

// NextVariableBlock is an alias of NextChunk for variable-length reads
// (length-prefixed Bin/Str payloads).
func (s *Scanner) NextVariableBlock(n int) ([]byte, bool) {
	return s.NextChunk(n)
}

// NextU64LEUnchecked reads a little-endian u64 and advances the cursor.
//
// Precondition: HasLeft(8).
func (s *Scanner) NextU64LEUnchecked() uint64 {
	v := binary.LittleEndian.Uint64(s.buf[s.pos : s.pos+8])
	s.pos += 8
	return v
}

// NextU64LE is the safe counterpart of NextU64LEUnchecked.
func (s *Scanner) NextU64LE() (uint64, bool) {
	if !s.HasLeft(8) {
		return 0, false
	}
	return s.NextU64LEUnchecked(), true
}

// NextU16LE reads a little-endian u16.
func (s *Scanner) NextU16LE() (uint16, bool) {
	if !s.HasLeft(2) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(s.buf[s.pos : s.pos+2])
	s.pos += 2
	return v, true
}

// NextU128LE reads a little-endian u128 as (low64, high64).
func (s *Scanner) NextU128LE() (lo uint64, hi uint64, ok bool) {
	if !s.HasLeft(16) {
		return 0, 0, false
	}
	lo = binary.LittleEndian.Uint64(s.buf[s.pos : s.pos+8])
	hi = binary.LittleEndian.Uint64(s.buf[s.pos+8 : s.pos+16])
	s.pos += 16
	return lo, hi, true
}

// PeekByte returns the next byte without advancing the cursor.
func (s *Scanner) PeekByte() (byte, bool) {
	if !s.HasLeft(1) {
		return 0, false
	}
	return s.buf[s.pos], true
}

// Rest returns every unread byte without advancing the cursor.
func (s *Scanner) Rest() []byte {
	return s.buf[s.pos:]
}
