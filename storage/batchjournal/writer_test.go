package batchjournal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/gns"
)

func TestWriterEnqueueDeltaCountFlush(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	w := NewWriter(tw, gns.PKUInt, 0, 1)

	require.Equal(t, 0, w.DeltaCount())
	w.Enqueue(Event{Op: OpInsert, TxnID: 1, PK: gns.PKFromUInt(1), Cells: []gns.Datacell{gns.NewStr([]byte("a"))}})
	w.Enqueue(Event{Op: OpInsert, TxnID: 2, PK: gns.PKFromUInt(2), Cells: []gns.Datacell{gns.NewStr([]byte("b"))}})
	require.Equal(t, 2, w.DeltaCount())

	require.NoError(t, w.Flush())
	require.Equal(t, 0, w.DeltaCount())
	require.NotZero(t, buf.Len())
}

func TestWriterFlushIsNoOpWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	w := NewWriter(tw, gns.PKUInt, 0, 1)
	require.NoError(t, w.Flush())
	require.Zero(t, buf.Len())
}

func TestWriterFlushedBatchIsReadable(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	w := NewWriter(tw, gns.PKUInt, 3, 1)
	w.Enqueue(Event{Op: OpInsert, TxnID: 1, PK: gns.PKFromUInt(1), Cells: []gns.Datacell{gns.NewStr([]byte("a"))}})
	require.NoError(t, w.Flush())

	tr := bytesio.NewTrackedReader(&buf)
	b, ok, err := ReadBatch(tr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(3), b.SchemaVersion)
	require.Len(t, b.Events, 1)
}

func TestWriterUpdateSchemaAffectsNextFlush(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	w := NewWriter(tw, gns.PKUInt, 0, 1)
	w.UpdateSchema(9, 2)
	w.Enqueue(Event{Op: OpInsert, TxnID: 1, PK: gns.PKFromUInt(1), Cells: []gns.Datacell{gns.NewStr([]byte("a")), gns.NewUInt(gns.LayerUInt8, 1)}})
	require.NoError(t, w.Flush())

	tr := bytesio.NewTrackedReader(&buf)
	b, ok, err := ReadBatch(tr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(9), b.SchemaVersion)
	require.Equal(t, uint64(2), b.ColumnCount)
}

func TestWriterCloseEmitsBatchClosedMarker(t *testing.T) {
	var buf bytes.Buffer
	tw := bytesio.NewTrackedWriter(&buf)
	w := NewWriter(tw, gns.PKUInt, 0, 1)
	require.NoError(t, w.Close())
	require.Equal(t, []byte{MarkerBatchClosed}, buf.Bytes())
}
