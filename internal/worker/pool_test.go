package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/brickstream/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllJobs(t *testing.T) {
	p := New(resource.NewController(resource.Config{MaxFillWorkers: 4}))
	defer p.Close()

	var wg sync.WaitGroup
	var ran atomic.Int64
	for range 100 {
		wg.Add(1)
		require.NoError(t, p.Submit(func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int64(100), ran.Load())
}

func TestPool_BoundedConcurrency(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxFillWorkers: 2})
	p := New(rc)
	defer p.Close()

	var active, peak atomic.Int64
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		require.NoError(t, p.Submit(func(context.Context) {
			defer wg.Done()
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}))
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestPool_SubmitNeverBlocks(t *testing.T) {
	p := New(resource.NewController(resource.Config{MaxFillWorkers: 1}))
	defer p.Close()

	release := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) { <-release }))

	done := make(chan struct{})
	go func() {
		for range 1000 {
			_ = p.Submit(func(context.Context) {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked while the only worker was busy")
	}
	close(release)
}

func TestPool_CloseCancelsQueued(t *testing.T) {
	p := New(resource.NewController(resource.Config{MaxFillWorkers: 1}))

	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started

	var cancelled atomic.Bool
	require.NoError(t, p.Submit(func(ctx context.Context) {
		cancelled.Store(ctx.Err() != nil)
	}))

	require.NoError(t, p.Close())
	assert.True(t, cancelled.Load())
	assert.ErrorIs(t, p.Submit(func(context.Context) {}), ErrClosed)
	assert.NoError(t, p.Close())
}
