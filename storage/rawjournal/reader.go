package rawjournal

import (
	"errors"
	"io"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/sdss"
)

// RestoreResult summarizes a completed recovery scan.
type RestoreResult struct {
	// LastEventID is the highest event_id successfully applied.
	LastEventID uint64
	// CleanClose reports whether the scan ended on Close immediately
	// followed by EOF. false means the journal
	// ended mid-stream (a Reopen without a matching Close, or a live
	// writer) and callers should OpenExisting rather than treat the file
	// as archived.
	CleanClose bool
	// EndOffset is the file offset one byte past the last fully-verified
	// event, SDSS header included. After a partial or corrupted final
	// write this is the truncation point LWT recovery resumes from.
	EndOffset uint64
}

// Restore validates the SDSS header and replays every event in r into gs
// via adapter. r is consumed to EOF or
// to the point recovery stops being possible.
func Restore[E any, GS any](r io.Reader, compat sdss.Compat, wantClass sdss.FileClass, wantSpecifier sdss.FileSpecifier, adapter Adapter[E, GS], gs GS) (RestoreResult, error) {
	var head [sdss.HeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return RestoreResult{}, ferr.Wrap(err, ferr.FileDecodeHeaderCorrupted, "failed to read SDSS header")
	}
	if _, err := sdss.Decode(head[:], compat, wantClass, wantSpecifier); err != nil {
		return RestoreResult{}, err
	}

	tr := bytesio.NewTrackedReader(r)
	var expected uint64
	var lastID uint64
	endOff := uint64(sdss.HeaderSize)
	sawAnyEvent := false

	for {
		tr.ResetChecksum()
		id, err := tr.TrackedReadU64LE()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Clean EOF right after a Close is the only valid way to end;
			// EOF here (no bytes read yet for this event) with no prior
			// Close means the file was truncated mid-sequence.
			if sawAnyEvent {
				return RestoreResult{LastEventID: lastID, CleanClose: false, EndOffset: endOff}, nil
			}
			return RestoreResult{EndOffset: endOff}, ferr.New(ferr.RawJournalCorrupted, "empty journal body")
		}
		if err != nil {
			return RestoreResult{LastEventID: lastID, EndOffset: endOff}, ferr.Wrap(err, ferr.RawJournalCorrupted, "failed to read event id")
		}
		if id != expected {
			return RestoreResult{LastEventID: lastID, CleanClose: false, EndOffset: endOff}, ferr.Newf(ferr.RawJournalCorrupted, "event id %d out of sequence, expected %d", id, expected)
		}
		meta, err := tr.TrackedReadU64LE()
		if err != nil {
			return RestoreResult{LastEventID: lastID, EndOffset: endOff}, ferr.Wrap(err, ferr.RawJournalEventCorrupted, "failed to read event meta")
		}

		switch meta {
		case MetaClose:
			if err := verifyTrailer(tr); err != nil {
				return RestoreResult{LastEventID: lastID, EndOffset: endOff}, err
			}
			endOff = uint64(sdss.HeaderSize) + tr.Cursor()
			// A Close must be followed by EOF or a Reopen; peek without consuming to tell which.
			atEOF, perr := tr.AtEOF()
			if perr != nil {
				return RestoreResult{LastEventID: id, EndOffset: endOff}, ferr.Wrap(perr, ferr.RawJournalCorrupted, "read failure after Close event")
			}
			if atEOF {
				return RestoreResult{LastEventID: id, CleanClose: true, EndOffset: endOff}, nil
			}
			expected = id + 1
			lastID = id
			sawAnyEvent = true
			continue
		case MetaReopen, MetaInitialize:
			if err := verifyTrailer(tr); err != nil {
				return RestoreResult{LastEventID: lastID, EndOffset: endOff}, err
			}
		default:
			tag, ok := adapter.ParseEventMeta(meta)
			if !ok {
				return RestoreResult{LastEventID: lastID, EndOffset: endOff}, ferr.Newf(ferr.RawJournalEventCorrupted, "unrecognized event meta %d", meta)
			}
			event, err := adapter.ParseEvent(tr, tag)
			if err != nil {
				return RestoreResult{LastEventID: lastID, EndOffset: endOff}, ferr.Wrap(err, ferr.RawJournalEventCorrupted, "failed to parse event payload")
			}
			if err := verifyTrailer(tr); err != nil {
				return RestoreResult{LastEventID: lastID, EndOffset: endOff}, err
			}
			if err := adapter.ApplyEvent(gs, event); err != nil {
				return RestoreResult{LastEventID: lastID, EndOffset: endOff}, err
			}
		}
		lastID = id
		expected = id + 1
		endOff = uint64(sdss.HeaderSize) + tr.Cursor()
		sawAnyEvent = true
	}
}

// verifyTrailer reads the untracked CRC-64 trailer and compares it against
// the partial checksum accumulated since the last ResetChecksum.
func verifyTrailer(tr *bytesio.TrackedReader) error {
	want := tr.ResetChecksum()
	got, err := tr.UntrackedReadU64LE()
	if err != nil {
		return ferr.Wrap(err, ferr.RawJournalEventCorrupted, "failed to read checksum trailer")
	}
	if got != want {
		return ferr.New(ferr.RawJournalEventCorrupted, "checksum mismatch")
	}
	return nil
}
