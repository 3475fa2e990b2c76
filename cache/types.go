package cache

import (
	"errors"
	"log/slog"
	"time"

	"github.com/hupe1980/brickstream/model"
)

// ErrClosed is reported by handles requested after Close.
var ErrClosed = errors.New("cache: closed")

// State is the fill state of a cache entry.
type State uint8

const (
	// StatePending means a fill is in flight and the payload is not usable yet.
	StatePending State = iota
	// StateReady means the payload is installed and counted against the budget.
	StateReady
	// StateFailed means the last fill failed; a later Get retries it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle is a snapshot of one entry taken under the cache lock.
//
// Payload is borrowed: it stays valid while the entry is pinned. An unpinned
// entry may be evicted at the next eviction pass, after which the payload
// must not be used.
type Handle[P any] struct {
	ID      model.BrickID
	State   State
	Payload P
	Size    int64
	Err     error
}

// Ready reports whether the payload is usable.
func (h Handle[P]) Ready() bool { return h.State == StateReady }

// Done reports the result of a fill. It must be called exactly once;
// further calls are ignored.
type Done[P any] func(payload P, err error)

// Strategy is the tier-specific capability a Cache is parameterized over.
type Strategy[P any] interface {
	// Fill starts producing the payload for id. It must not block the
	// caller and must eventually call done, from any goroutine.
	Fill(id model.BrickID, done Done[P])
	// Cost returns the number of bytes p is charged against the budget.
	Cost(p P) int64
	// Release frees p after eviction or when a stale fill result is discarded.
	Release(id model.BrickID, p P)
}

// Clock is the time source used for fill latency and retry back-off.
type Clock interface {
	Now() time.Time
}

// Observer receives cache events. Implementations must be safe for concurrent use.
type Observer interface {
	RecordLookup(tier string, hit bool)
	RecordFill(tier string, duration time.Duration, bytes int64, err error)
	RecordEviction(tier string, bytes int64)
	RecordOverBudget(tier string, used, budget int64)
}

type noopObserver struct{}

func (noopObserver) RecordLookup(string, bool)                      {}
func (noopObserver) RecordFill(string, time.Duration, int64, error) {}
func (noopObserver) RecordEviction(string, int64)                   {}
func (noopObserver) RecordOverBudget(string, int64, int64)          {}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

const (
	// DefaultRetryBackoff is the wait after the first failed fill.
	DefaultRetryBackoff = 100 * time.Millisecond
	// DefaultMaxRetryBackoff caps the doubling back-off.
	DefaultMaxRetryBackoff = 10 * time.Second
)

// Options configures a Cache.
type Options struct {
	// Name labels the tier in logs and metrics.
	Name string
	// Budget is the byte budget. Zero or negative means nothing may stay
	// resident unpinned.
	Budget int64
	Clock  Clock
	Logger *slog.Logger
	// Observer receives lookup, fill and eviction events.
	Observer Observer
	// RetryBackoff is the wait after the first consecutive failure; it doubles
	// per further failure up to MaxRetryBackoff. A negative value retries on
	// the next Get.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits         int64
	Misses       int64
	UsedBytes    int64
	Budget       int64
	Entries      int
	Pending      int
	Pinned       int
	Evictions    int64
	EvictedBytes int64
	// OverBudget counts eviction passes that ended above budget because
	// every remaining resident entry was pinned.
	OverBudget   int64
	Fills        int64
	FillFailures int64
	// Discarded counts fill results that arrived for an entry no longer wanted.
	Discarded int64
	// Pruned counts failed entries dropped by Shrink once their back-off elapsed.
	Pruned int64
}
