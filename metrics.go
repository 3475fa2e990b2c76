package brickstream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/brickstream/cache"
	"github.com/hupe1980/brickstream/histogram"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; see the prom package for a ready-made one.
//
// Cache events carry the tier name (tier.DataTierName or
// tier.ResidencyTierName).
type MetricsCollector interface {
	cache.Observer
	histogram.Observer

	// RecordFrame is called by EndFrame. visible is the number of distinct
	// candidate bricks, drawn the number that had a resident texture.
	RecordFrame(visible, drawn int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLookup(string, bool)                      {}
func (NoopMetricsCollector) RecordFill(string, time.Duration, int64, error) {}
func (NoopMetricsCollector) RecordEviction(string, int64)                   {}
func (NoopMetricsCollector) RecordOverBudget(string, int64, int64)          {}
func (NoopMetricsCollector) RecordHistogramPublished(uint32)                {}
func (NoopMetricsCollector) RecordHistogramSuppressed(uint32)               {}
func (NoopMetricsCollector) RecordHistogramAbandoned(int)                   {}
func (NoopMetricsCollector) RecordHistogramRejected()                       {}
func (NoopMetricsCollector) RecordHistogramClamped()                        {}
func (NoopMetricsCollector) RecordFrame(int, int, time.Duration)            {}

// TierCounters holds the counters of one cache tier.
type TierCounters struct {
	Hits          atomic.Int64
	Misses        atomic.Int64
	Fills         atomic.Int64
	FillErrors    atomic.Int64
	FillBytes     atomic.Int64
	FillNanos     atomic.Int64
	Evictions     atomic.Int64
	EvictedBytes  atomic.Int64
	OverBudget    atomic.Int64
	LastOverUsage atomic.Int64
}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	tiers sync.Map // tier name -> *TierCounters

	FrameCount      atomic.Int64
	FrameVisible    atomic.Int64
	FrameDrawn      atomic.Int64
	FrameTotalNanos atomic.Int64

	HistogramsPublished  atomic.Int64
	HistogramsSuppressed atomic.Int64
	HistogramsAbandoned  atomic.Int64
	HistogramsRejected   atomic.Int64
	HistogramsClamped    atomic.Int64
}

// Tier returns the counters of the named tier, creating them on first use.
func (b *BasicMetricsCollector) Tier(name string) *TierCounters {
	if v, ok := b.tiers.Load(name); ok {
		return v.(*TierCounters)
	}
	v, _ := b.tiers.LoadOrStore(name, &TierCounters{})
	return v.(*TierCounters)
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(tier string, hit bool) {
	if hit {
		b.Tier(tier).Hits.Add(1)
	} else {
		b.Tier(tier).Misses.Add(1)
	}
}

// RecordFill implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFill(tier string, duration time.Duration, bytes int64, err error) {
	t := b.Tier(tier)
	t.Fills.Add(1)
	t.FillNanos.Add(duration.Nanoseconds())
	if err != nil {
		t.FillErrors.Add(1)
		return
	}
	t.FillBytes.Add(bytes)
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(tier string, bytes int64) {
	t := b.Tier(tier)
	t.Evictions.Add(1)
	t.EvictedBytes.Add(bytes)
}

// RecordOverBudget implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOverBudget(tier string, used, budget int64) {
	t := b.Tier(tier)
	t.OverBudget.Add(1)
	t.LastOverUsage.Store(used - budget)
}

// RecordHistogramPublished implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHistogramPublished(uint32) { b.HistogramsPublished.Add(1) }

// RecordHistogramSuppressed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHistogramSuppressed(uint32) { b.HistogramsSuppressed.Add(1) }

// RecordHistogramAbandoned implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHistogramAbandoned(frames int) {
	b.HistogramsAbandoned.Add(int64(frames))
}

// RecordHistogramRejected implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHistogramRejected() { b.HistogramsRejected.Add(1) }

// RecordHistogramClamped implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHistogramClamped() { b.HistogramsClamped.Add(1) }

// RecordFrame implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrame(visible, drawn int, duration time.Duration) {
	b.FrameCount.Add(1)
	b.FrameVisible.Add(int64(visible))
	b.FrameDrawn.Add(int64(drawn))
	b.FrameTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Tiers:                make(map[string]TierStats),
		FrameCount:           b.FrameCount.Load(),
		FrameAvgNanos:        b.getAvgFrameNanos(),
		HistogramsPublished:  b.HistogramsPublished.Load(),
		HistogramsSuppressed: b.HistogramsSuppressed.Load(),
		HistogramsAbandoned:  b.HistogramsAbandoned.Load(),
		HistogramsRejected:   b.HistogramsRejected.Load(),
		HistogramsClamped:    b.HistogramsClamped.Load(),
	}
	if visible := b.FrameVisible.Load(); visible > 0 {
		s.DrawnRatio = float64(b.FrameDrawn.Load()) / float64(visible)
	}
	b.tiers.Range(func(k, v any) bool {
		t := v.(*TierCounters)
		ts := TierStats{
			Hits:         t.Hits.Load(),
			Misses:       t.Misses.Load(),
			Fills:        t.Fills.Load(),
			FillErrors:   t.FillErrors.Load(),
			FillBytes:    t.FillBytes.Load(),
			Evictions:    t.Evictions.Load(),
			EvictedBytes: t.EvictedBytes.Load(),
			OverBudget:   t.OverBudget.Load(),
		}
		if ts.Fills > 0 {
			ts.FillAvgNanos = t.FillNanos.Load() / ts.Fills
		}
		s.Tiers[k.(string)] = ts
		return true
	})
	return s
}

func (b *BasicMetricsCollector) getAvgFrameNanos() int64 {
	count := b.FrameCount.Load()
	if count == 0 {
		return 0
	}
	return b.FrameTotalNanos.Load() / count
}

// TierStats is a snapshot of TierCounters.
type TierStats struct {
	Hits         int64
	Misses       int64
	Fills        int64
	FillErrors   int64
	FillBytes    int64
	FillAvgNanos int64
	Evictions    int64
	EvictedBytes int64
	OverBudget   int64
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Tiers                map[string]TierStats
	FrameCount           int64
	FrameAvgNanos        int64
	DrawnRatio           float64
	HistogramsPublished  int64
	HistogramsSuppressed int64
	HistogramsAbandoned  int64
	HistogramsRejected   int64
	HistogramsClamped    int64
}
