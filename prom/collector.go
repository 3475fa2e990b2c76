// Package prom exports streaming metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/brickstream"
)

const (
	tierLabel    = "tier"
	resultLabel  = "result"
	outcomeLabel = "outcome"

	namespace = "brickstream"
)

var _ brickstream.MetricsCollector = (*Collector)(nil)

// Collector implements brickstream.MetricsCollector on Prometheus metrics.
type Collector struct {
	lookups       *prometheus.CounterVec
	fills         *prometheus.CounterVec
	fillDuration  *prometheus.HistogramVec
	fillBytes     *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	evictedBytes  *prometheus.CounterVec
	overBudget    *prometheus.CounterVec
	overBudgetBy  *prometheus.GaugeVec
	histograms    *prometheus.CounterVec
	frames        prometheus.Counter
	frameDuration prometheus.Histogram
	visible       prometheus.Gauge
	missing       prometheus.Gauge
}

// NewCollector registers the brickstream metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "The number of cache lookups by tier and result.",
		}, []string{tierLabel, resultLabel}),

		fills: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fills_total",
			Help:      "The number of completed fills by tier and result.",
		}, []string{tierLabel, resultLabel}),

		fillDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_fill_duration_seconds",
			Help:      "The time from miss to completed fill.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{tierLabel}),

		fillBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fill_bytes_total",
			Help:      "The number of bytes installed by fills.",
		}, []string{tierLabel}),

		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "The number of evicted entries.",
		}, []string{tierLabel}),

		evictedBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evicted_bytes_total",
			Help:      "The number of evicted bytes.",
		}, []string{tierLabel}),

		overBudget: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_over_budget_total",
			Help:      "The number of eviction passes that ended above budget because every remaining entry was pinned.",
		}, []string{tierLabel}),

		overBudgetBy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_over_budget_bytes",
			Help:      "The overshoot of the last eviction pass that ended above budget.",
		}, []string{tierLabel}),

		histograms: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "histogram_frames_total",
			Help:      "The number of histogram aggregation events by outcome.",
		}, []string{outcomeLabel}),

		frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "The number of rendered frames.",
		}),

		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "The time between BeginFrame and EndFrame.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),

		visible: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_visible_bricks",
			Help:      "The number of visible bricks in the last frame.",
		}),

		missing: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_missing_bricks",
			Help:      "The number of visible bricks without a resident texture in the last frame.",
		}),
	}
}

// RecordLookup implements brickstream.MetricsCollector.
func (c *Collector) RecordLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.lookups.WithLabelValues(tier, result).Inc()
}

// RecordFill implements brickstream.MetricsCollector.
func (c *Collector) RecordFill(tier string, duration time.Duration, bytes int64, err error) {
	c.fillDuration.WithLabelValues(tier).Observe(duration.Seconds())
	if err != nil {
		c.fills.WithLabelValues(tier, "error").Inc()
		return
	}
	c.fills.WithLabelValues(tier, "ok").Inc()
	c.fillBytes.WithLabelValues(tier).Add(float64(bytes))
}

// RecordEviction implements brickstream.MetricsCollector.
func (c *Collector) RecordEviction(tier string, bytes int64) {
	c.evictions.WithLabelValues(tier).Inc()
	c.evictedBytes.WithLabelValues(tier).Add(float64(bytes))
}

// RecordOverBudget implements brickstream.MetricsCollector.
func (c *Collector) RecordOverBudget(tier string, used, budget int64) {
	c.overBudget.WithLabelValues(tier).Inc()
	c.overBudgetBy.WithLabelValues(tier).Set(float64(used - budget))
}

// RecordHistogramPublished implements brickstream.MetricsCollector.
func (c *Collector) RecordHistogramPublished(uint32) {
	c.histograms.WithLabelValues("published").Inc()
}

// RecordHistogramSuppressed implements brickstream.MetricsCollector.
func (c *Collector) RecordHistogramSuppressed(uint32) {
	c.histograms.WithLabelValues("suppressed").Inc()
}

// RecordHistogramAbandoned implements brickstream.MetricsCollector.
func (c *Collector) RecordHistogramAbandoned(frames int) {
	c.histograms.WithLabelValues("abandoned").Add(float64(frames))
}

// RecordHistogramRejected implements brickstream.MetricsCollector.
func (c *Collector) RecordHistogramRejected() {
	c.histograms.WithLabelValues("rejected").Inc()
}

// RecordHistogramClamped implements brickstream.MetricsCollector.
func (c *Collector) RecordHistogramClamped() {
	c.histograms.WithLabelValues("clamped").Inc()
}

// RecordFrame implements brickstream.MetricsCollector.
func (c *Collector) RecordFrame(visible, drawn int, duration time.Duration) {
	c.frames.Inc()
	c.frameDuration.Observe(duration.Seconds())
	c.visible.Set(float64(visible))
	c.missing.Set(float64(visible - drawn))
}
