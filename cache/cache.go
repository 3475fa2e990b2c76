package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/brickstream/model"
)

// Cache is a byte-budgeted LRU of bricks with pinning and asynchronous fills.
//
// Only map and recency-list mutations are serialized; Strategy.Fill and
// Strategy.Release always run outside the lock.
type Cache[P any] struct {
	strategy        Strategy[P]
	name            string
	clock           Clock
	logger          *slog.Logger
	observer        Observer
	retryBackoff    time.Duration
	maxRetryBackoff time.Duration

	mu      sync.Mutex
	items   map[model.BrickID]*entry[P]
	lru     *list.List // front = most recently used; values are model.BrickID
	used    int64
	budget  int64
	nextGen uint64
	failed  int
	closed  bool

	hits         atomic.Int64
	misses       atomic.Int64
	evictions    atomic.Int64
	evictedBytes atomic.Int64
	overBudget   atomic.Int64
	fills        atomic.Int64
	failures     atomic.Int64
	discarded    atomic.Int64
	pruned       atomic.Int64
}

type entry[P any] struct {
	elem     *list.Element
	state    State
	payload  P
	size     int64
	refs     int32
	gen      uint64
	err      error
	failures int
	retryAt  time.Time
}

type victim[P any] struct {
	id      model.BrickID
	payload P
	size    int64
}

// New creates a cache that fills misses through strategy.
func New[P any](strategy Strategy[P], opts Options) *Cache[P] {
	if opts.Clock == nil {
		opts.Clock = wallClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.MaxRetryBackoff <= 0 {
		opts.MaxRetryBackoff = DefaultMaxRetryBackoff
	}

	return &Cache[P]{
		strategy:        strategy,
		name:            opts.Name,
		clock:           opts.Clock,
		logger:          opts.Logger,
		observer:        opts.Observer,
		retryBackoff:    opts.RetryBackoff,
		maxRetryBackoff: opts.MaxRetryBackoff,
		items:           make(map[model.BrickID]*entry[P]),
		lru:             list.New(),
		budget:          opts.Budget,
	}
}

// Get returns the entry for id, marking it most recently used. On a miss it
// inserts a pending entry and dispatches a fill; it never waits for the fill.
// A failed entry is filled again once its retry back-off has elapsed.
func (c *Cache[P]) Get(id model.BrickID) Handle[P] {
	return c.get(id, false)
}

// GetAndPin is Get followed by Pin under the same lock.
func (c *Cache[P]) GetAndPin(id model.BrickID) Handle[P] {
	return c.get(id, true)
}

func (c *Cache[P]) get(id model.BrickID, pin bool) Handle[P] {
	now := c.clock.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Handle[P]{ID: id, State: StateFailed, Err: ErrClosed}
	}

	e, ok := c.items[id]
	dispatch := false
	switch {
	case !ok:
		e = &entry[P]{elem: c.lru.PushFront(id)}
		c.items[id] = e
		c.startFillLocked(e)
		dispatch = true
	case e.state == StateFailed && !now.Before(e.retryAt):
		c.lru.MoveToFront(e.elem)
		c.failed--
		c.startFillLocked(e)
		dispatch = true
	default:
		c.lru.MoveToFront(e.elem)
	}
	if pin {
		e.refs++
	}
	h := e.handle(id)
	gen := e.gen
	c.mu.Unlock()

	c.observer.RecordLookup(c.name, !dispatch)
	if !dispatch {
		c.hits.Add(1)
		return h
	}

	c.misses.Add(1)
	c.strategy.Fill(id, c.completion(id, gen, now))
	return h
}

func (c *Cache[P]) startFillLocked(e *entry[P]) {
	var zero P
	c.nextGen++
	e.gen = c.nextGen
	e.state = StatePending
	e.payload = zero
	e.err = nil
}

func (c *Cache[P]) completion(id model.BrickID, gen uint64, started time.Time) Done[P] {
	var once sync.Once
	return func(p P, err error) {
		once.Do(func() { c.complete(id, gen, started, p, err) })
	}
}

func (c *Cache[P]) complete(id model.BrickID, gen uint64, started time.Time, p P, err error) {
	now := c.clock.Now()
	elapsed := now.Sub(started)

	var size int64
	if err == nil {
		size = c.strategy.Cost(p)
	}

	c.mu.Lock()
	e, ok := c.items[id]
	if c.closed || !ok || e.gen != gen || e.state != StatePending {
		c.mu.Unlock()
		c.discarded.Add(1)
		if err == nil {
			c.strategy.Release(id, p)
		}
		c.logger.Debug("discarded stale fill", "tier", c.name, "brick", id)
		return
	}

	if err != nil {
		e.state = StateFailed
		e.err = err
		e.failures++
		e.retryAt = now.Add(c.backoff(e.failures))
		failures := e.failures
		c.failed++
		c.mu.Unlock()

		c.failures.Add(1)
		c.observer.RecordFill(c.name, elapsed, 0, err)
		c.logger.Warn("fill failed", "tier", c.name, "brick", id, "failures", failures, "error", err)
		return
	}

	e.state = StateReady
	e.payload = p
	e.size = size
	e.failures = 0
	c.used += size
	victims := c.evictLocked()
	c.mu.Unlock()

	c.fills.Add(1)
	c.observer.RecordFill(c.name, elapsed, size, nil)
	c.release(victims)
}

func (c *Cache[P]) backoff(failures int) time.Duration {
	if c.retryBackoff < 0 {
		return 0
	}
	d := c.retryBackoff
	for i := 1; i < failures && d < c.maxRetryBackoff; i++ {
		d *= 2
	}
	return min(d, c.maxRetryBackoff)
}

// evictLocked removes least recently used, unpinned, ready entries until the
// cache is within budget. Pending and failed entries hold no bytes and are
// skipped.
func (c *Cache[P]) evictLocked() []victim[P] {
	if c.used <= c.budget {
		return nil
	}

	var victims []victim[P]
	for el := c.lru.Back(); el != nil && c.used > c.budget; {
		prev := el.Prev()
		id := el.Value.(model.BrickID)
		if e := c.items[id]; e.refs == 0 && e.state == StateReady {
			victims = append(victims, c.removeLocked(id, e))
		}
		el = prev
	}

	if c.used > c.budget {
		c.overBudget.Add(1)
		used, budget := c.used, c.budget
		c.observer.RecordOverBudget(c.name, used, budget)
		c.logger.Warn("over budget after eviction", "tier", c.name, "used", used, "budget", budget)
	}
	return victims
}

func (c *Cache[P]) removeLocked(id model.BrickID, e *entry[P]) victim[P] {
	c.lru.Remove(e.elem)
	delete(c.items, id)
	if e.state == StateFailed {
		c.failed--
	}

	v := victim[P]{id: id}
	if e.state == StateReady {
		c.used -= e.size
		v.payload = e.payload
		v.size = e.size
	}
	return v
}

// release hands evicted payloads back to the strategy. Removed pending
// entries have no payload; their in-flight results are discarded on arrival.
func (c *Cache[P]) release(victims []victim[P]) {
	for _, v := range victims {
		if v.size == 0 {
			continue
		}
		c.evictions.Add(1)
		c.evictedBytes.Add(v.size)
		c.observer.RecordEviction(c.name, v.size)
		c.strategy.Release(v.id, v.payload)
	}
}

// Pin increments the reference count of id. Pinned entries are never evicted.
// It returns false if id is not cached.
func (c *Cache[P]) Pin(id model.BrickID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[id]
	if !ok {
		return false
	}
	e.refs++
	return true
}

// Unpin decrements the reference count of id. Eviction is deferred to the
// next completed fill, Shrink or SetBudget.
func (c *Cache[P]) Unpin(id model.BrickID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[id]; ok && e.refs > 0 {
		e.refs--
	}
}

// Peek returns the entry for id without touching recency or statistics.
func (c *Cache[P]) Peek(id model.BrickID) (Handle[P], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[id]
	if !ok {
		return Handle[P]{}, false
	}
	return e.handle(id), true
}

// Evict removes id if it is not pinned. An in-flight fill for id finishes
// but its result is discarded.
func (c *Cache[P]) Evict(id model.BrickID) bool {
	c.mu.Lock()
	e, ok := c.items[id]
	if !ok || e.refs > 0 {
		c.mu.Unlock()
		return false
	}
	v := c.removeLocked(id, e)
	c.mu.Unlock()

	c.release([]victim[P]{v})
	return true
}

// Invalidate removes every unpinned entry whose id matches predicate and
// returns how many were removed.
func (c *Cache[P]) Invalidate(predicate func(id model.BrickID) bool) int {
	c.mu.Lock()
	var victims []victim[P]
	for id, e := range c.items {
		if e.refs == 0 && predicate(id) {
			victims = append(victims, c.removeLocked(id, e))
		}
	}
	c.mu.Unlock()

	c.release(victims)
	return len(victims)
}

// pruneFailedLocked drops unpinned failed entries whose back-off has
// elapsed. They hold no bytes, so pressure eviction never reaches them; a
// later Get starts over with a fresh fill and a reset back-off.
func (c *Cache[P]) pruneFailedLocked(now time.Time) int {
	if c.failed == 0 {
		return 0
	}
	n := 0
	for id, e := range c.items {
		if e.state == StateFailed && e.refs == 0 && !now.Before(e.retryAt) {
			c.removeLocked(id, e)
			n++
		}
	}
	return n
}

// Shrink drops failed entries that are due for a retry and runs one eviction
// pass against the current budget.
func (c *Cache[P]) Shrink() {
	now := c.clock.Now()

	c.mu.Lock()
	pruned := c.pruneFailedLocked(now)
	victims := c.evictLocked()
	c.mu.Unlock()

	if pruned > 0 {
		c.pruned.Add(int64(pruned))
		c.logger.Debug("pruned failed entries", "tier", c.name, "entries", pruned)
	}
	c.release(victims)
}

// SetBudget changes the byte budget and evicts down to it.
func (c *Cache[P]) SetBudget(bytes int64) {
	c.mu.Lock()
	c.budget = bytes
	victims := c.evictLocked()
	c.mu.Unlock()

	c.logger.Info("budget changed", "tier", c.name, "budget", bytes)
	c.release(victims)
}

// Budget returns the byte budget.
func (c *Cache[P]) Budget() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budget
}

// Len returns the number of entries in any state.
func (c *Cache[P]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the cached ids from most to least recently used.
func (c *Cache[P]) Keys() []model.BrickID {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]model.BrickID, 0, c.lru.Len())
	for el := c.lru.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(model.BrickID))
	}
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[P]) Stats() Stats {
	c.mu.Lock()
	s := Stats{
		UsedBytes: c.used,
		Budget:    c.budget,
		Entries:   len(c.items),
	}
	for _, e := range c.items {
		if e.state == StatePending {
			s.Pending++
		}
		if e.refs > 0 {
			s.Pinned++
		}
	}
	c.mu.Unlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Evictions = c.evictions.Load()
	s.EvictedBytes = c.evictedBytes.Load()
	s.OverBudget = c.overBudget.Load()
	s.Fills = c.fills.Load()
	s.FillFailures = c.failures.Load()
	s.Discarded = c.discarded.Load()
	s.Pruned = c.pruned.Load()
	return s
}

// Close releases every resident payload, pinned or not. Fills still in
// flight are discarded when they complete.
func (c *Cache[P]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	victims := make([]victim[P], 0, len(c.items))
	for id, e := range c.items {
		victims = append(victims, c.removeLocked(id, e))
	}
	c.mu.Unlock()

	for _, v := range victims {
		if v.size > 0 {
			c.strategy.Release(v.id, v.payload)
		}
	}
	return nil
}

func (e *entry[P]) handle(id model.BrickID) Handle[P] {
	return Handle[P]{
		ID:      id,
		State:   e.state,
		Payload: e.payload,
		Size:    e.size,
		Err:     e.err,
	}
}
