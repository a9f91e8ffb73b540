package fractal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrdering(t *testing.T) {
	q := newQueue()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		q.push(NewTask(n, HighPriority, func(context.Context) error { return nil }))
	}

	for _, want := range names {
		select {
		case got := <-q.out:
			require.Equal(t, want, got.Name)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for task %q", want)
		}
	}
}

func TestQueueCloseDrainsThenClosesOut(t *testing.T) {
	q := newQueue()
	q.push(NewTask("only", LowPriority, func(context.Context) error { return nil }))
	q.close()

	select {
	case got, ok := <-q.out:
		require.True(t, ok)
		require.Equal(t, "only", got.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for drained task")
	}

	select {
	case _, ok := <-q.out:
		require.False(t, ok, "out must close once drained")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestQueuePushAfterCloseIsDropped(t *testing.T) {
	q := newQueue()
	q.close()
	q.push(NewTask("late", HighPriority, func(context.Context) error { return nil }))
	require.Equal(t, 0, q.len())

	select {
	case _, ok := <-q.out:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestQueueLenReflectsBacklog(t *testing.T) {
	q := newQueue()
	require.Equal(t, 0, q.len())
	// Drain every pushed task, then assert len is back to 0 once
	// everything is consumed.
	for i := 0; i < 5; i++ {
		q.push(NewTask("t", LowPriority, func(context.Context) error { return nil }))
	}
	drained := 0
	for drained < 5 {
		select {
		case <-q.out:
			drained++
		case <-time.After(time.Second):
			t.Fatal("timed out draining queue")
		}
	}
	require.Equal(t, 0, q.len())
}
