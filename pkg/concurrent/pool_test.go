package concurrent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(context.Background(), 3, 16)

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(context.Context) { done.Add(1) }))
	}

	require.NoError(t, p.Close())
	require.Equal(t, int32(10), done.Load())
}

func TestPoolRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	p := NewPool(context.Background(), 1, 1)

	started := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) {
		close(started)
		<-block
	}))
	<-started

	require.NoError(t, p.Submit(func(context.Context) {}))
	require.ErrorIs(t, p.Submit(func(context.Context) {}), ErrQueueFull)

	close(block)
	require.NoError(t, p.Close())
}

func TestPoolClosedRejects(t *testing.T) {
	p := NewPool(context.Background(), 1, 1)
	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolClosed)
}

func TestPoolAbortCancelsContext(t *testing.T) {
	p := NewPool(context.Background(), 1, 1)

	cancelled := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}))
	<-started

	require.NoError(t, p.Abort())
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestPoolAbortHandsQueuedTasksACancelledContext(t *testing.T) {
	p := NewPool(context.Background(), 1, 4)

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		select {
		case <-block:
		case <-ctx.Done():
		}
	}))
	<-started

	var cancelled atomic.Int32
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(func(ctx context.Context) {
			if ctx.Err() != nil {
				cancelled.Add(1)
			}
		}))
	}

	require.NoError(t, p.Abort())
	require.Equal(t, int32(3), cancelled.Load())
	require.Zero(t, p.Pending())
}
