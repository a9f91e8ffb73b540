// Package batchjournal implements the per-model row log: batches of insert/update/delete events, each terminated
// by a CRC-64 trailer, with primary-key and cell codecs shared with the
// in-memory model package so the wire layout and the live row layout never
// drift apart.
package batchjournal

import (
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
)

// Batch layout markers.
const (
	MarkerActualBatchEvent byte = 0x01
	MarkerRecoveryEvent    byte = 0x02
	MarkerBatchClosed      byte = 0xFE
	MarkerBatchReopen      byte = 0xFF
	MarkerEndOfBatch       byte = 0xFD
)

// RowOp discriminates one event's operation.
type RowOp byte

const (
	OpDelete RowOp = 0x00
	OpInsert RowOp = 0x01
	OpUpdate RowOp = 0x02
)

// Event is one row-level mutation recorded inside a batch.
type Event struct {
	Op    RowOp
	TxnID uint64
	PK    gns.PrimaryIndexKey
	// Cells holds the field values in model field-insertion order,
	// excluding the PK field; empty for Delete.
	Cells []gns.Datacell
}

// Batch is a decoded group of events sharing one schema version and an
// expected/actual commit pair used to detect a torn write.
type Batch struct {
	PKTag          gns.PrimaryIndexKeyTag
	ExpectedCommit uint64
	SchemaVersion  uint64
	ColumnCount    uint64
	Events         []Event
	ActualCommit   uint64
}

// EncodePrimaryKey appends the wire form of k.
func EncodePrimaryKey(dst []byte, k gns.PrimaryIndexKey) []byte {
	switch k.Tag {
	case gns.PKUInt:
		return appendU64LE(dst, k.UInt())
	case gns.PKSInt:
		return appendU64LE(dst, uint64(k.SInt()))
	default: // PKBin, PKStr
		b := k.Bytes()
		dst = appendU64LE(dst, uint64(len(b)))
		return append(dst, b...)
	}
}

// DecodePrimaryKey parses a wire-form primary key of the given tag, returning
// the key and the number of bytes consumed.
func DecodePrimaryKey(src []byte, tag gns.PrimaryIndexKeyTag) (gns.PrimaryIndexKey, int, error) {
	switch tag {
	case gns.PKUInt:
		if len(src) < 8 {
			return gns.PrimaryIndexKey{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "short uint primary key")
		}
		return gns.PKFromUInt(binary.LittleEndian.Uint64(src[:8])), 8, nil
	case gns.PKSInt:
		if len(src) < 8 {
			return gns.PrimaryIndexKey{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "short sint primary key")
		}
		return gns.PKFromSInt(int64(binary.LittleEndian.Uint64(src[:8]))), 8, nil
	case gns.PKBin, gns.PKStr:
		if len(src) < 8 {
			return gns.PrimaryIndexKey{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "short variable-length primary key length")
		}
		n := binary.LittleEndian.Uint64(src[:8])
		end := 8 + int(n)
		if uint64(len(src)) < uint64(end) {
			return gns.PrimaryIndexKey{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "truncated primary key payload")
		}
		payload := make([]byte, n)
		copy(payload, src[8:end])
		if tag == gns.PKStr {
			if !utf8.Valid(payload) {
				return gns.PrimaryIndexKey{}, 0, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "string primary key is not valid UTF-8")
			}
			return gns.PKFromStr(string(payload)), end, nil
		}
		return gns.PKFromBin(payload), end, nil
	default:
		return gns.PrimaryIndexKey{}, 0, ferr.Newf(ferr.V1DataBatchDecodeCorruptedEntry, "unknown primary key tag %d", tag)
	}
}

func appendU64LE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// WriteBatch serializes a batch through a tracked writer, computing the
// CRC-64 trailer over everything from MarkerActualBatchEvent onward.
func WriteBatch(w *bytesio.TrackedWriter, b Batch) error {
	w.ResetChecksum()
	if err := w.DTrackWrite([]byte{MarkerActualBatchEvent}); err != nil {
		return err
	}
	if err := w.DTrackWrite([]byte{byte(b.PKTag)}); err != nil {
		return err
	}
	if err := w.DTrackWriteU64LE(b.ExpectedCommit); err != nil {
		return err
	}
	if err := w.DTrackWriteU64LE(b.SchemaVersion); err != nil {
		return err
	}
	if err := w.DTrackWriteU64LE(b.ColumnCount); err != nil {
		return err
	}
	for _, ev := range b.Events {
		if err := w.DTrackWrite([]byte{byte(ev.Op)}); err != nil {
			return err
		}
		if err := w.DTrackWriteU64LE(ev.TxnID); err != nil {
			return err
		}
		var pkBuf []byte
		pkBuf = EncodePrimaryKey(pkBuf, ev.PK)
		if err := w.DTrackWrite(pkBuf); err != nil {
			return err
		}
		if ev.Op != OpDelete {
			var cellBuf []byte
			for _, c := range ev.Cells {
				cellBuf = gns.EncodeCell(cellBuf, c)
			}
			if err := w.DTrackWrite(cellBuf); err != nil {
				return err
			}
		}
	}
	if err := w.DTrackWrite([]byte{MarkerEndOfBatch}); err != nil {
		return err
	}
	if err := w.DTrackWriteU64LE(b.ActualCommit); err != nil {
		return err
	}
	sum := w.ResetChecksum()
	if err := w.UntrackedWrite(appendU64LE(nil, sum)); err != nil {
		return err
	}
	return w.Flush()
}

// ReadBatch parses one batch, including its recovery/reopen marker
// handling. Decoded Null cells carry a placeholder scalar
// kind (LayerKind(0)): the caller resolves the declared kind from the
// target model's field schema during apply, the same way ql/ast.bindCell
// fixes up an insert literal's Null kind.
func ReadBatch(r *bytesio.TrackedReader) (Batch, bool, error) {
	r.ResetChecksum()
	marker, err := r.TrackedReadByte()
	if err == io.EOF {
		return Batch{}, false, nil
	}
	if err != nil {
		return Batch{}, false, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatchFile, "failed to read batch marker")
	}

	switch marker {
	case MarkerBatchClosed:
		atEOF, aerr := r.AtEOF()
		if aerr != nil {
			return Batch{}, false, ferr.Wrap(aerr, ferr.V1DataBatchDecodeCorruptedBatchFile, "read failure after batch-closed marker")
		}
		if atEOF {
			return Batch{}, false, nil
		}
		reopen, rerr := r.TrackedReadByte()
		if rerr != nil {
			return Batch{}, false, ferr.Wrap(rerr, ferr.V1DataBatchDecodeCorruptedBatchFile, "failed to read reopen marker")
		}
		if reopen != MarkerBatchReopen {
			return Batch{}, false, ferr.New(ferr.V1DataBatchDecodeCorruptedBatchFile, "expected batch-reopen marker after batch-closed")
		}
		return ReadBatch(r)
	case MarkerRecoveryEvent:
		// A prior batch torn write; this single byte advances the reader
		// past it. Continue to the next batch.
		return ReadBatch(r)
	case MarkerActualBatchEvent:
		b, err := readBatchBody(r)
		if err != nil {
			return Batch{}, false, err
		}
		return b, true, nil
	default:
		return Batch{}, false, ferr.Newf(ferr.V1DataBatchDecodeCorruptedBatchFile, "unrecognized batch marker 0x%02x", marker)
	}
}

// readBatchBody decodes everything after a MarkerActualBatchEvent byte,
// finishing with the checksum trailer. The checksum window opened at the
// marker byte stays open across this call so the trailer covers it.
func readBatchBody(r *bytesio.TrackedReader) (Batch, error) {
	pkTagByte, err := r.TrackedReadByte()
	if err != nil {
		return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read pk tag")
	}
	expected, err := r.TrackedReadU64LE()
	if err != nil {
		return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read expected commit")
	}
	schemaVersion, err := r.TrackedReadU64LE()
	if err != nil {
		return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read schema version")
	}
	colCount, err := r.TrackedReadU64LE()
	if err != nil {
		return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read column count")
	}

	b := Batch{PKTag: gns.PrimaryIndexKeyTag(pkTagByte), ExpectedCommit: expected, SchemaVersion: schemaVersion, ColumnCount: colCount}

	for {
		opByte, err := r.TrackedReadByte()
		if err != nil {
			return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read event discriminant")
		}
		if opByte == MarkerEndOfBatch {
			break
		}
		txnID, err := r.TrackedReadU64LE()
		if err != nil {
			return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read txn id")
		}
		pk, err := readPrimaryKeyTracked(r, b.PKTag)
		if err != nil {
			return Batch{}, err
		}
		ev := Event{Op: RowOp(opByte), TxnID: txnID, PK: pk}
		if ev.Op != OpDelete {
			ev.Cells = make([]gns.Datacell, 0, colCount)
			for i := uint64(0); i < colCount; i++ {
				cell, err := readCellTracked(r)
				if err != nil {
					return Batch{}, err
				}
				ev.Cells = append(ev.Cells, cell)
			}
		}
		b.Events = append(b.Events, ev)
	}

	actualCommit, err := r.TrackedReadU64LE()
	if err != nil {
		return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read actual commit")
	}
	b.ActualCommit = actualCommit

	want := r.ResetChecksum()
	got, err := r.UntrackedReadU64LE()
	if err != nil {
		return Batch{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatch, "failed to read batch checksum trailer")
	}
	if got != want {
		return Batch{}, ferr.New(ferr.V1DataBatchDecodeCorruptedBatch, "batch checksum mismatch")
	}
	return b, nil
}

// readPrimaryKeyTracked reads a primary key byte-by-byte through the
// tracked reader so every byte folds into the batch checksum.
func readPrimaryKeyTracked(r *bytesio.TrackedReader, tag gns.PrimaryIndexKeyTag) (gns.PrimaryIndexKey, error) {
	switch tag {
	case gns.PKUInt:
		v, err := r.TrackedReadU64LE()
		if err != nil {
			return gns.PrimaryIndexKey{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "short uint primary key")
		}
		return gns.PKFromUInt(v), nil
	case gns.PKSInt:
		v, err := r.TrackedReadU64LE()
		if err != nil {
			return gns.PrimaryIndexKey{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "short sint primary key")
		}
		return gns.PKFromSInt(int64(v)), nil
	case gns.PKBin, gns.PKStr:
		n, err := r.TrackedReadU64LE()
		if err != nil {
			return gns.PrimaryIndexKey{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "short variable-length primary key length")
		}
		payload := make([]byte, n)
		if err := r.TrackedRead(payload); err != nil {
			return gns.PrimaryIndexKey{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "truncated primary key payload")
		}
		if tag == gns.PKStr {
			if !utf8.Valid(payload) {
				return gns.PrimaryIndexKey{}, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "string primary key is not valid UTF-8")
			}
			return gns.PKFromStr(string(payload)), nil
		}
		return gns.PKFromBin(payload), nil
	default:
		return gns.PrimaryIndexKey{}, ferr.Newf(ferr.V1DataBatchDecodeCorruptedEntry, "unknown primary key tag %d", tag)
	}
}

// readCellTracked mirrors gns.DecodeCell but reads through the tracked
// reader one piece at a time so the batch checksum covers every byte; it
// is not implemented on top of a raw byte slice because batches are
// streamed rather than loaded whole.
func readCellTracked(r *bytesio.TrackedReader) (gns.Datacell, error) {
	tagByte, err := r.TrackedReadByte()
	if err != nil {
		return gns.Datacell{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing discriminant")
	}
	if tagByte == 0x00 {
		return gns.NewNull(gns.LayerKind(0)), nil
	}
	kind := gns.LayerKind(tagByte)
	switch kind {
	case gns.LayerBin, gns.LayerStr:
		n, err := r.TrackedReadU64LE()
		if err != nil {
			return gns.Datacell{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing length")
		}
		payload := make([]byte, n)
		if err := r.TrackedRead(payload); err != nil {
			return gns.Datacell{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "truncated bin/str payload")
		}
		if kind == gns.LayerStr {
			if !utf8.Valid(payload) {
				return gns.Datacell{}, ferr.New(ferr.V1DataBatchDecodeCorruptedEntry, "string payload is not valid UTF-8")
			}
			return gns.NewStr(payload), nil
		}
		return gns.NewBin(payload), nil
	case gns.LayerList:
		n, err := r.TrackedReadU64LE()
		if err != nil {
			return gns.Datacell{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing list length")
		}
		elems := make([]gns.Datacell, 0, n)
		for i := uint64(0); i < n; i++ {
			e, err := readCellTracked(r)
			if err != nil {
				return gns.Datacell{}, err
			}
			elems = append(elems, e)
		}
		return gns.NewList(elems), nil
	default:
		bits, err := r.TrackedReadU64LE()
		if err != nil {
			return gns.Datacell{}, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedEntry, "short cell: missing scalar payload")
		}
		return gns.NewUInt(kind, bits), nil
	}
}
