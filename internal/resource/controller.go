package resource

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxFillWorkers is the maximum number of concurrent brick fills.
	// If 0, defaults to runtime.GOMAXPROCS(0).
	MaxFillWorkers int64

	// IOLimitBytesPerSec is the maximum source read throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages fill concurrency and source IO bandwidth.
type Controller struct {
	cfg Config

	// Concurrency
	fillSem    *semaphore.Weighted
	fillActive atomic.Int64

	// IO
	ioLimiter *rate.Limiter
	ioBytes   atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxFillWorkers <= 0 {
		cfg.MaxFillWorkers = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		cfg:     cfg,
		fillSem: semaphore.NewWeighted(cfg.MaxFillWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MaxFillWorkers returns the configured fill concurrency.
func (c *Controller) MaxFillWorkers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return int(c.cfg.MaxFillWorkers)
}

// AcquireFill reserves a fill slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireFill(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.fillSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.fillActive.Add(1)
	return nil
}

// TryAcquireFill attempts to reserve a fill slot without blocking.
func (c *Controller) TryAcquireFill() bool {
	if c == nil {
		return true
	}
	if !c.fillSem.TryAcquire(1) {
		return false
	}
	c.fillActive.Add(1)
	return true
}

// ReleaseFill releases a fill slot.
func (c *Controller) ReleaseFill() {
	if c == nil {
		return
	}
	c.fillActive.Add(-1)
	c.fillSem.Release(1)
}

// ActiveFills returns the number of fill slots currently held.
func (c *Controller) ActiveFills() int64 {
	if c == nil {
		return 0
	}
	return c.fillActive.Load()
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the burst are split so they cannot fail outright.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	c.ioBytes.Add(int64(bytes))
	if c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
// Returns true if tokens were acquired, false otherwise.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil {
		return true
	}
	if c.ioLimiter != nil && !c.ioLimiter.AllowN(time.Now(), bytes) {
		return false
	}
	c.ioBytes.Add(int64(bytes))
	return true
}

// IOBytes returns the total number of bytes admitted through AcquireIO/TryAcquireIO.
func (c *Controller) IOBytes() int64 {
	if c == nil {
		return 0
	}
	return c.ioBytes.Load()
}
