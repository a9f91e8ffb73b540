package bytesio

import (
	"bufio"
	"encoding/binary"
	"hash/crc64"
	"io"
)

// isoTable is the CRC-64 ISO-HDLC polynomial table every journal
// checksum uses. The standard library's hash/crc64 already
// implements this exact polynomial, so no third-party CRC-64 library is
// wired in here: crc64.ISO is the canonical table, there is nothing an
// external dependency would add.
var isoTable = crc64.MakeTable(crc64.ISO)

// TrackedReader wraps a buffered file reader and accumulates a running
// CRC-64 (ISO-HDLC) over every tracked read. Untracked reads (used to read
// the checksum trailer itself) bypass the accumulator.
type TrackedReader struct {
	r         *bufio.Reader
	cursor    uint64
	checksum  uint64
	partial   uint64
}

// NewTrackedReader buffers r and starts tracking from a zero checksum.
func NewTrackedReader(r io.Reader) *TrackedReader {
	return &TrackedReader{r: bufio.NewReader(r)}
}

// Cursor returns the number of bytes read so far (tracked + untracked).
func (t *TrackedReader) Cursor() uint64 { return t.cursor }

// CurrentChecksum returns the lifetime CRC-64 of every tracked byte read
// since construction. ResetChecksum does not clear it.
func (t *TrackedReader) CurrentChecksum() uint64 { return t.checksum }

// ResetChecksum returns the partial checksum accumulated since the last
// reset and clears it, starting a new accumulation window (used between
// journal events). The lifetime checksum is left untouched.
func (t *TrackedReader) ResetChecksum() uint64 {
	v := t.partial
	t.partial = 0
	return v
}

// TrackedRead reads exactly len(p) bytes, folding them into the running and
// partial checksums.
func (t *TrackedReader) TrackedRead(p []byte) error {
	if _, err := io.ReadFull(t.r, p); err != nil {
		return err
	}
	t.cursor += uint64(len(p))
	t.checksum = crc64.Update(t.checksum, isoTable, p)
	t.partial = crc64.Update(t.partial, isoTable, p)
	return nil
}

// UntrackedRead reads exactly len(p) bytes without touching the checksum
// (used to read a checksum trailer that must not checksum itself).
func (t *TrackedReader) UntrackedRead(p []byte) error {
	if _, err := io.ReadFull(t.r, p); err != nil {
		return err
	}
	t.cursor += uint64(len(p))
	return nil
}

// TrackedReadByte reads and tracks a single byte.
func (t *TrackedReader) TrackedReadByte() (byte, error) {
	var b [1]byte
	if err := t.TrackedRead(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// TrackedReadU64LE reads and tracks a little-endian u64.
func (t *TrackedReader) TrackedReadU64LE() (uint64, error) {
	var b [8]byte
	if err := t.TrackedRead(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// AtEOF reports whether the reader has no further bytes, without
// consuming or tracking anything: it reads one byte from the underlying
// buffered reader and immediately unreads it if present.
func (t *TrackedReader) AtEOF() (bool, error) {
	_, err := t.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, err
	}
	return false, t.r.UnreadByte()
}

// UntrackedReadU64LE reads an untracked little-endian u64 (checksum trailers).
func (t *TrackedReader) UntrackedReadU64LE() (uint64, error) {
	var b [8]byte
	if err := t.UntrackedRead(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// DefaultWriterBufSize is the default buffered-writer capacity (8 KiB per
// the journal formats require).
const DefaultWriterBufSize = 8 << 10

// TrackedWriter buffers writes up to SIZE bytes, tracks a write cursor, and
// distinguishes lifetime checksums from a resettable partial checksum.
// PanicOnUnflushed makes discarding a dirty writer a hard failure:
// callers that intend to discard a writer without flushing must call
// Abandon() first, otherwise Close() panics if dirty.
type TrackedWriter struct {
	w                io.Writer
	buf              *bufio.Writer
	cursor           uint64
	checksum         uint64
	partial          uint64
	dirty            bool
	PanicOnUnflushed bool
}

// NewTrackedWriter buffers w with DefaultWriterBufSize.
func NewTrackedWriter(w io.Writer) *TrackedWriter {
	return &TrackedWriter{w: w, buf: bufio.NewWriterSize(w, DefaultWriterBufSize)}
}

// Cursor returns the number of bytes handed to the writer so far.
func (t *TrackedWriter) Cursor() uint64 { return t.cursor }

// CurrentChecksum returns the lifetime checksum.
func (t *TrackedWriter) CurrentChecksum() uint64 { return t.checksum }

// ResetChecksum returns and clears the partial (resettable) checksum.
func (t *TrackedWriter) ResetChecksum() uint64 {
	v := t.partial
	t.partial = 0
	return v
}

// dtrackWrite updates both the lifetime and partial checksums.
func (t *TrackedWriter) dtrackWrite(p []byte) error {
	return t.write(p, true)
}

// trackedWrite updates only the lifetime checksum.
func (t *TrackedWriter) trackedWrite(p []byte) error {
	return t.write(p, false)
}

func (t *TrackedWriter) write(p []byte, partial bool) error {
	n, err := t.buf.Write(p)
	// On a partial write error, the bytes actually written are still
	// charged to the cursor and checksum.
	if n > 0 {
		t.cursor += uint64(n)
		t.checksum = crc64.Update(t.checksum, isoTable, p[:n])
		if partial {
			t.partial = crc64.Update(t.partial, isoTable, p[:n])
		}
		t.dirty = true
	}
	return err
}

// DTrackWrite writes p, folding it into both checksums.
func (t *TrackedWriter) DTrackWrite(p []byte) error { return t.dtrackWrite(p) }

// TrackedWrite writes p, folding it into the lifetime checksum only.
func (t *TrackedWriter) TrackedWrite(p []byte) error { return t.trackedWrite(p) }

// DTrackWriteU64LE writes a little-endian u64, tracked in both checksums.
func (t *TrackedWriter) DTrackWriteU64LE(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return t.dtrackWrite(b[:])
}

// UntrackedWrite writes p without updating either checksum (used to append
// a checksum trailer, which must not checksum itself).
func (t *TrackedWriter) UntrackedWrite(p []byte) error {
	n, err := t.buf.Write(p)
	if n > 0 {
		t.cursor += uint64(n)
	}
	return err
}

// Flush flushes the buffered writer, then fsyncs the underlying file if it
// exposes a Sync method.
func (t *TrackedWriter) Flush() error {
	if err := t.buf.Flush(); err != nil {
		return err
	}
	t.dirty = false
	if f, ok := t.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

// Abandon marks the writer clean without flushing, for callers that know
// the underlying file is being discarded (e.g. after a fatal write error).
func (t *TrackedWriter) Abandon() { t.dirty = false }

// Close flushes pending writes. If PanicOnUnflushed is set and the writer
// is dirty with no pending Flush/Abandon, Close panics instead of silently
// discarding buffered bytes.
func (t *TrackedWriter) Close() error {
	if t.dirty && t.PanicOnUnflushed {
		panic("bytesio: TrackedWriter closed with unflushed, tracked bytes")
	}
	if t.dirty {
		return t.Flush()
	}
	return nil
}
