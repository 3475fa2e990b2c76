package prom

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Cache(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLookup("data", true)
	c.RecordLookup("data", false)
	c.RecordLookup("data", false)
	c.RecordFill("data", time.Millisecond, 64, nil)
	c.RecordFill("data", time.Millisecond, 0, errors.New("boom"))
	c.RecordEviction("residency", 32)
	c.RecordOverBudget("residency", 120, 100)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues("data", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.lookups.WithLabelValues("data", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fills.WithLabelValues("data", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fills.WithLabelValues("data", "error")))
	assert.Equal(t, 64.0, testutil.ToFloat64(c.fillBytes.WithLabelValues("data")))
	assert.Equal(t, 32.0, testutil.ToFloat64(c.evictedBytes.WithLabelValues("residency")))
	assert.Equal(t, 20.0, testutil.ToFloat64(c.overBudgetBy.WithLabelValues("residency")))

	n, err := testutil.GatherAndCount(reg, "brickstream_cache_fill_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_FramesAndHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFrame(10, 7, 16*time.Millisecond)
	c.RecordHistogramPublished(1)
	c.RecordHistogramAbandoned(3)
	c.RecordHistogramRejected()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.frames))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.missing))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.histograms.WithLabelValues("abandoned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.histograms.WithLabelValues("published")))
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
