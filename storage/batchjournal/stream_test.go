package batchjournal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/gns"
)

func streamBatch(commit uint64, events ...Event) Batch {
	return Batch{PKTag: gns.PKUInt, ExpectedCommit: commit, ColumnCount: 1, Events: events, ActualCommit: commit}
}

func insertEvent(txn, id uint64, name string) Event {
	return Event{Op: OpInsert, TxnID: txn, PK: gns.PKFromUInt(id), Cells: []gns.Datacell{gns.NewStr([]byte(name))}}
}

func TestRestoreStreamAppliesAllBatchesInOrder(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	require.NoError(t, WriteBatch(tw, streamBatch(0, insertEvent(1, 1, "a"))))
	require.NoError(t, WriteBatch(tw, streamBatch(1, insertEvent(2, 2, "b"))))

	var got []uint64
	end, err := RestoreStream(bytesio.NewTrackedReader(&buf), func(b Batch) error {
		got = append(got, b.ActualCommit)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, got)
	require.Equal(t, 2, end.Batches)
	require.Equal(t, uint64(1), end.LastCommit)
	require.False(t, end.Closed)
}

func TestRestoreStreamReportsCleanClose(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	require.NoError(t, WriteBatch(tw, streamBatch(0, insertEvent(1, 1, "a"))))
	require.NoError(t, tw.DTrackWrite([]byte{MarkerBatchClosed}))
	require.NoError(t, tw.Flush())

	end, err := RestoreStream(bytesio.NewTrackedReader(bytes.NewReader(buf.Bytes())), func(Batch) error { return nil })
	require.NoError(t, err)
	require.True(t, end.Closed)
	require.Equal(t, uint64(buf.Len()), end.EndOffset)
}

func TestRestoreStreamResumesPastClosedReopenPair(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	require.NoError(t, WriteBatch(tw, streamBatch(0, insertEvent(1, 1, "a"))))
	require.NoError(t, tw.DTrackWrite([]byte{MarkerBatchClosed}))
	require.NoError(t, tw.DTrackWrite([]byte{MarkerBatchReopen}))
	require.NoError(t, WriteBatch(tw, streamBatch(1, insertEvent(2, 2, "b"))))

	end, err := RestoreStream(bytesio.NewTrackedReader(&buf), func(Batch) error { return nil })
	require.NoError(t, err)
	require.False(t, end.Closed)
	require.Equal(t, 2, end.Batches)
	require.Equal(t, uint64(1), end.LastCommit)
}

func TestRestoreStreamSkipsRecoveryMarker(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	require.NoError(t, tw.DTrackWrite([]byte{MarkerRecoveryEvent}))
	require.NoError(t, WriteBatch(tw, streamBatch(3, insertEvent(1, 1, "a"))))

	end, err := RestoreStream(bytesio.NewTrackedReader(&buf), func(Batch) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, end.Batches)
	require.Equal(t, uint64(3), end.LastCommit)
}

// A torn final batch ends the scan with an error but a usable EndOffset:
// everything up to the last complete element survives, which is the
// truncation point boot-time recovery resumes from.
func TestRestoreStreamTornTailKeepsValidPrefix(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	require.NoError(t, WriteBatch(tw, streamBatch(0, insertEvent(1, 1, "a"))))
	goodLen := buf.Len()
	require.NoError(t, WriteBatch(tw, streamBatch(1, insertEvent(2, 2, "b"))))

	torn := buf.Bytes()[:buf.Len()-3]
	end, err := RestoreStream(bytesio.NewTrackedReader(bytes.NewReader(torn)), func(Batch) error { return nil })
	require.Error(t, err)
	require.Equal(t, 1, end.Batches)
	require.Equal(t, uint64(goodLen), end.EndOffset)
}
