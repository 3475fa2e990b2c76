package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/brickstream/internal/clock"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/testutil"
)

// manualStrategy records fills and lets the test complete them.
type manualStrategy struct {
	mu       sync.Mutex
	pending  map[model.BrickID][]Done[int64]
	fills    map[model.BrickID]int
	released map[model.BrickID]int
}

func newManualStrategy() *manualStrategy {
	return &manualStrategy{
		pending:  make(map[model.BrickID][]Done[int64]),
		fills:    make(map[model.BrickID]int),
		released: make(map[model.BrickID]int),
	}
}

func (s *manualStrategy) Fill(id model.BrickID, done Done[int64]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = append(s.pending[id], done)
	s.fills[id]++
}

func (s *manualStrategy) Cost(p int64) int64 { return p }

func (s *manualStrategy) Release(id model.BrickID, _ int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released[id]++
}

func (s *manualStrategy) complete(t *testing.T, id model.BrickID, size int64, err error) {
	t.Helper()
	s.mu.Lock()
	q := s.pending[id]
	require.NotEmpty(t, q, "no pending fill for %v", id)
	done := q[0]
	s.pending[id] = q[1:]
	s.mu.Unlock()
	done(size, err)
}

func (s *manualStrategy) fillCount(id model.BrickID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fills[id]
}

func (s *manualStrategy) releaseCount(id model.BrickID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released[id]
}

// instantStrategy completes every fill synchronously with a fixed size.
type instantStrategy struct {
	size     int64
	mu       sync.Mutex
	released []model.BrickID
}

func (s *instantStrategy) Fill(_ model.BrickID, done Done[int64]) { done(s.size, nil) }
func (s *instantStrategy) Cost(p int64) int64                     { return p }
func (s *instantStrategy) Release(id model.BrickID, _ int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, id)
}

func brick(i uint32) model.BrickID { return model.NewBrickID(3, i, 0, 0) }

func TestCache_MissThenReady(t *testing.T) {
	s := newManualStrategy()
	c := New[int64](s, Options{Name: "data", Budget: 100})

	h := c.Get(brick(1))
	assert.Equal(t, StatePending, h.State)
	assert.False(t, h.Ready())
	assert.Equal(t, 1, s.fillCount(brick(1)))

	// A second lookup while pending must not dispatch again.
	h = c.Get(brick(1))
	assert.Equal(t, StatePending, h.State)
	assert.Equal(t, 1, s.fillCount(brick(1)))

	s.complete(t, brick(1), 40, nil)

	h = c.Get(brick(1))
	require.True(t, h.Ready())
	assert.Equal(t, int64(40), h.Payload)
	assert.Equal(t, int64(40), h.Size)

	st := c.Stats()
	assert.Equal(t, int64(40), st.UsedBytes)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Fills)
	assert.Equal(t, 0, st.Pending)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	s := &instantStrategy{size: 40}
	c := New[int64](s, Options{Budget: 100})

	a, b, d := brick(1), brick(2), brick(3)
	c.Get(a)
	c.Get(b)
	c.Get(d)

	_, ok := c.Peek(a)
	assert.False(t, ok)
	assert.Equal(t, []model.BrickID{d, b}, c.Keys())
	assert.Equal(t, int64(80), c.Stats().UsedBytes)
	assert.Equal(t, []model.BrickID{a}, s.released)
}

func TestCache_RecencyProtectsTouchedEntry(t *testing.T) {
	s := &instantStrategy{size: 40}
	c := New[int64](s, Options{Budget: 100})

	c.Get(brick(1))
	c.Get(brick(2))
	c.Get(brick(1))
	c.Get(brick(3))

	assert.Equal(t, []model.BrickID{brick(3), brick(1)}, c.Keys())
}

func TestCache_PinnedNeverEvicted(t *testing.T) {
	s := &instantStrategy{size: 40}
	c := New[int64](s, Options{Budget: 50})

	c.GetAndPin(brick(1))
	c.GetAndPin(brick(2))

	st := c.Stats()
	assert.Equal(t, int64(80), st.UsedBytes)
	assert.Equal(t, 2, st.Pinned)
	assert.Equal(t, int64(1), st.OverBudget)
	assert.Empty(t, s.released)
	assert.False(t, c.Evict(brick(1)))

	c.Unpin(brick(1))
	c.Shrink()

	_, ok := c.Peek(brick(1))
	assert.False(t, ok)
	assert.Equal(t, int64(40), c.Stats().UsedBytes)
	assert.Equal(t, []model.BrickID{brick(1)}, s.released)
}

func TestCache_BudgetInvariantRandomized(t *testing.T) {
	rng := testutil.NewRNG(7)
	s := newManualStrategy()
	c := New[int64](s, Options{Budget: 500})

	pins := make(map[model.BrickID]int)
	inflight := make(map[model.BrickID]bool)

	for range 2000 {
		id := brick(uint32(rng.Intn(40)))
		switch op := rng.Intn(10); {
		case op < 4:
			h := c.Get(id)
			if h.State == StatePending {
				inflight[id] = true
			}
		case op < 6:
			if inflight[id] && len(s.pending[id]) > 0 {
				s.complete(t, id, int64(10+rng.Intn(90)), nil)
				inflight[id] = false
			}
		case op < 8:
			if c.Pin(id) {
				pins[id]++
			}
		default:
			if pins[id] > 0 {
				c.Unpin(id)
				pins[id]--
			}
			c.Shrink()
		}

		// A pinned entry must never be released.
		for pid, n := range pins {
			if n > 0 {
				_, ok := c.Peek(pid)
				require.True(t, ok, "pinned %v was evicted", pid)
			}
		}

		st := c.Stats()
		if st.UsedBytes > st.Budget {
			for _, k := range c.Keys() {
				h, _ := c.Peek(k)
				if h.State == StateReady {
					require.Positive(t, pins[k], "unpinned %v resident while over budget", k)
				}
			}
		}
	}
}

func TestCache_NoDuplicateConcurrentFills(t *testing.T) {
	s := newManualStrategy()
	c := New[int64](s, Options{Budget: 1 << 20})

	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 64 {
				c.Get(brick(uint32((i + g) % 32)))
			}
		}()
	}
	wg.Wait()

	for i := range 32 {
		assert.Equal(t, 1, s.fillCount(brick(uint32(i))))
	}
	assert.Equal(t, 32, c.Stats().Pending)
}

func TestCache_FailedFillRetriesWithBackoff(t *testing.T) {
	clk := clock.NewFake(time.Unix(100, 0))
	s := newManualStrategy()
	c := New[int64](s, Options{
		Budget:          100,
		Clock:           clk,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 150 * time.Millisecond,
	})

	id := brick(1)
	boom := errors.New("boom")

	c.Get(id)
	s.complete(t, id, 0, boom)

	h := c.Get(id)
	assert.Equal(t, StateFailed, h.State)
	require.ErrorIs(t, h.Err, boom)
	assert.Equal(t, 1, s.fillCount(id))

	clk.Advance(100 * time.Millisecond)
	h = c.Get(id)
	assert.Equal(t, StatePending, h.State)
	assert.Equal(t, 2, s.fillCount(id))

	s.complete(t, id, 0, boom)
	clk.Advance(100 * time.Millisecond)
	c.Get(id)
	assert.Equal(t, 2, s.fillCount(id), "second back-off is doubled and capped")

	clk.Advance(50 * time.Millisecond)
	c.Get(id)
	assert.Equal(t, 3, s.fillCount(id))

	s.complete(t, id, 30, nil)
	h = c.Get(id)
	assert.True(t, h.Ready())
	assert.Equal(t, int64(2), c.Stats().FillFailures)
}

func TestCache_ShrinkPrunesFailedEntries(t *testing.T) {
	clk := clock.NewFake(time.Unix(100, 0))
	s := newManualStrategy()
	c := New[int64](s, Options{Budget: 100, Clock: clk, RetryBackoff: time.Second})
	boom := errors.New("boom")

	for i := range uint32(50) {
		c.Get(brick(i))
		s.complete(t, brick(i), 0, boom)
	}
	pinned := brick(0)
	require.True(t, c.Pin(pinned))

	c.Shrink()
	assert.Equal(t, 50, c.Len(), "back-off not elapsed")

	clk.Advance(time.Second)
	c.Shrink()
	assert.Equal(t, 1, c.Len())
	_, ok := c.Peek(pinned)
	assert.True(t, ok, "pinned entry kept")
	assert.Equal(t, int64(49), c.Stats().Pruned)
	assert.Zero(t, s.releaseCount(brick(1)), "failed entries have no payload to release")

	h := c.Get(brick(1))
	assert.Equal(t, StatePending, h.State)
	assert.Equal(t, 2, s.fillCount(brick(1)))

	c.Unpin(pinned)
	c.Get(pinned)
	assert.Equal(t, 2, s.fillCount(pinned), "retry after back-off")
	c.Shrink()
	assert.Equal(t, 2, c.Len(), "pending entries are not pruned")
}

func TestCache_EvictPendingDiscardsResult(t *testing.T) {
	s := newManualStrategy()
	c := New[int64](s, Options{Budget: 100})

	id := brick(1)
	c.Get(id)
	require.True(t, c.Evict(id))

	s.complete(t, id, 40, nil)

	_, ok := c.Peek(id)
	assert.False(t, ok)
	assert.Equal(t, 1, s.releaseCount(id))
	st := c.Stats()
	assert.Equal(t, int64(1), st.Discarded)
	assert.Equal(t, int64(0), st.UsedBytes)
}

func TestCache_StaleGenerationDiscarded(t *testing.T) {
	s := newManualStrategy()
	c := New[int64](s, Options{Budget: 100, RetryBackoff: -1})

	id := brick(1)
	c.Get(id)
	c.Evict(id)
	c.Get(id)

	// The first fill belongs to the removed entry.
	s.complete(t, id, 10, nil)
	h, _ := c.Peek(id)
	assert.Equal(t, StatePending, h.State)

	s.complete(t, id, 20, nil)
	h, _ = c.Peek(id)
	require.True(t, h.Ready())
	assert.Equal(t, int64(20), h.Payload)
}

func TestCache_DoneIsIdempotent(t *testing.T) {
	var captured Done[int64]
	s := &captureStrategy{capture: func(d Done[int64]) { captured = d }}
	c := New[int64](s, Options{Budget: 100})

	c.Get(brick(1))
	captured(10, nil)
	captured(90, nil)

	assert.Equal(t, int64(10), c.Stats().UsedBytes)
}

type captureStrategy struct {
	capture func(Done[int64])
}

func (s *captureStrategy) Fill(_ model.BrickID, done Done[int64]) { s.capture(done) }
func (s *captureStrategy) Cost(p int64) int64                     { return p }
func (s *captureStrategy) Release(model.BrickID, int64)           {}

func TestCache_SetBudget(t *testing.T) {
	s := &instantStrategy{size: 10}
	c := New[int64](s, Options{Budget: 100})

	for i := range 10 {
		c.Get(brick(uint32(i)))
	}
	assert.Equal(t, int64(100), c.Stats().UsedBytes)

	c.SetBudget(35)
	assert.Equal(t, int64(35), c.Budget())
	assert.Equal(t, int64(30), c.Stats().UsedBytes)
	assert.Equal(t, []model.BrickID{brick(9), brick(8), brick(7)}, c.Keys())
	assert.Equal(t, int64(7), c.Stats().Evictions)
}

func TestCache_Invalidate(t *testing.T) {
	s := &instantStrategy{size: 10}
	c := New[int64](s, Options{Budget: 1000})

	for i := range 6 {
		c.Get(brick(uint32(i)))
	}
	c.Pin(brick(0))

	n := c.Invalidate(func(id model.BrickID) bool {
		x, _, _ := id.Coord()
		return x%2 == 0
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, c.Len())

	_, ok := c.Peek(brick(0))
	assert.True(t, ok, "pinned entries survive invalidation")
}

func TestCache_Close(t *testing.T) {
	s := newManualStrategy()
	c := New[int64](s, Options{Budget: 100})

	c.GetAndPin(brick(1))
	s.complete(t, brick(1), 10, nil)
	c.Get(brick(2))

	require.NoError(t, c.Close())
	assert.Equal(t, 1, s.releaseCount(brick(1)))

	s.complete(t, brick(2), 10, nil)
	assert.Equal(t, 1, s.releaseCount(brick(2)))

	h := c.Get(brick(3))
	require.ErrorIs(t, h.Err, ErrClosed)
	assert.Zero(t, s.fillCount(brick(3)))
}
