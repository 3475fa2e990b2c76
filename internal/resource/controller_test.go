package resource

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Fill(t *testing.T) {
	c := NewController(Config{MaxFillWorkers: 2})
	assert.Equal(t, 2, c.MaxFillWorkers())

	// Acquire 2
	require.NoError(t, c.AcquireFill(t.Context()))
	require.NoError(t, c.AcquireFill(t.Context()))
	assert.Equal(t, int64(2), c.ActiveFills())

	// Try 3rd
	assert.False(t, c.TryAcquireFill())

	// Blocking acquire honours the context
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireFill(ctx), context.DeadlineExceeded)

	// Release 1
	c.ReleaseFill()

	// Try 3rd again
	assert.True(t, c.TryAcquireFill())
	assert.Equal(t, int64(2), c.ActiveFills())
}

func TestController_DefaultWorkers(t *testing.T) {
	c := NewController(Config{})
	assert.Positive(t, c.MaxFillWorkers())
}

func TestController_IO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1024})

	// Larger than the burst is split instead of failing.
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AcquireIO(ctx, 1500))
	assert.Equal(t, int64(1500), c.IOBytes())

	// Bucket is drained.
	assert.False(t, c.TryAcquireIO(1024))
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireFill(context.Background()))
	assert.True(t, c.TryAcquireFill())
	c.ReleaseFill() // Should not panic
	assert.NoError(t, c.AcquireIO(context.Background(), 10))
	assert.True(t, c.TryAcquireIO(10))
	assert.Zero(t, c.IOBytes())
}

func TestRateLimitedWriter(t *testing.T) {
	c := NewController(Config{})
	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, c)

	n, err := w.Write([]byte("brick"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "brick", buf.String())
	assert.Equal(t, int64(5), c.IOBytes())
	assert.Equal(t, int64(5), w.Written())

	nilWriter := NewRateLimitedWriter(t.Context(), &buf, nil)
	_, err = nilWriter.Write([]byte("!"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), nilWriter.Written())
}
