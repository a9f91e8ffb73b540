package batchjournal

import (
	"io"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/lib/ferr"
)

// StreamEnd summarizes a full batch-file scan: how the stream ended, how
// far the valid prefix reaches, and the commit watermark a resuming
// writer continues from.
type StreamEnd struct {
	// Closed reports that the stream ended on a batch-closed marker
	// immediately followed by EOF; a resuming writer must emit the
	// batch-reopen marker before its next batch.
	Closed bool
	// EndOffset is the reader-cursor offset one byte past the last valid
	// stream element (batches and markers, SDSS header excluded). A
	// torn final batch is cut by truncating the file to header+EndOffset.
	EndOffset uint64
	// LastCommit is the highest ActualCommit among the applied batches.
	LastCommit uint64
	// Batches is the number of batches applied.
	Batches int
}

// RestoreStream scans a whole batch-journal body, invoking apply for each
// decoded batch in file order. A decode failure ends the scan with the
// partial StreamEnd alongside the error, so the caller can decide whether
// the corruption is a recoverable torn tail (truncate to EndOffset and
// resume) or fatal mid-file damage.
func RestoreStream(r *bytesio.TrackedReader, apply func(Batch) error) (StreamEnd, error) {
	var end StreamEnd
	for {
		r.ResetChecksum()
		marker, err := r.TrackedReadByte()
		if err == io.EOF {
			return end, nil
		}
		if err != nil {
			return end, ferr.Wrap(err, ferr.V1DataBatchDecodeCorruptedBatchFile, "failed to read batch marker")
		}
		switch marker {
		case MarkerBatchClosed:
			atEOF, aerr := r.AtEOF()
			if aerr != nil {
				return end, ferr.Wrap(aerr, ferr.V1DataBatchDecodeCorruptedBatchFile, "read failure after batch-closed marker")
			}
			if atEOF {
				end.Closed = true
				end.EndOffset = r.Cursor()
				return end, nil
			}
			reopen, rerr := r.TrackedReadByte()
			if rerr != nil {
				return end, ferr.Wrap(rerr, ferr.V1DataBatchDecodeCorruptedBatchFile, "failed to read reopen marker")
			}
			if reopen != MarkerBatchReopen {
				return end, ferr.New(ferr.V1DataBatchDecodeCorruptedBatchFile, "expected batch-reopen marker after batch-closed")
			}
			end.EndOffset = r.Cursor()
		case MarkerRecoveryEvent:
			// A torn prior batch; the single recovery byte advances the
			// stream past it.
			end.EndOffset = r.Cursor()
		case MarkerActualBatchEvent:
			b, err := readBatchBody(r)
			if err != nil {
				return end, err
			}
			if err := apply(b); err != nil {
				return end, err
			}
			end.Batches++
			if b.ActualCommit >= end.LastCommit {
				end.LastCommit = b.ActualCommit
			}
			end.EndOffset = r.Cursor()
		default:
			return end, ferr.Newf(ferr.V1DataBatchDecodeCorruptedBatchFile, "unrecognized batch marker 0x%02x", marker)
		}
	}
}
