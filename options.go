package brickstream

import (
	"log/slog"

	"github.com/hupe1980/brickstream/cache"
)

type options struct {
	config           Config
	gpuBudget        int64 // bytes; overrides config when > 0
	cpuBudget        int64
	metricsCollector MetricsCollector
	logger           *Logger
	clock            cache.Clock
}

// Option configures a Streamer or an Aggregator.
type Option func(*options)

// WithConfig replaces the configuration. Options applied after it override
// individual values.
//
// Example loading a TOML file:
//
//	cfg, _ := brickstream.LoadConfig("brickstream.toml")
//	s, _ := brickstream.New(src, up, brickstream.WithConfig(cfg))
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithGPUBudget sets the residency tier budget in bytes.
func WithGPUBudget(bytes int64) Option {
	return func(o *options) {
		o.gpuBudget = bytes
	}
}

// WithCPUBudget sets the data tier budget in bytes.
func WithCPUBudget(bytes int64) Option {
	return func(o *options) {
		o.cpuBudget = bytes
	}
}

// WithSamplesPerRay fixes the ray sample rate. Zero selects it per frame.
func WithSamplesPerRay(n uint32) Option {
	return func(o *options) {
		o.config.SamplesPerRay = n
	}
}

// WithMaxUploadsPerFrame bounds the texture uploads done by one BeginFrame.
func WithMaxUploadsPerFrame(n int) Option {
	return func(o *options) {
		o.config.MaxUploadsPerFrame = n
	}
}

// WithFillWorkers sizes the data fill pool.
func WithFillWorkers(n int) Option {
	return func(o *options) {
		o.config.FillWorkers = n
	}
}

// WithClock sets the time source for fill latency, retry back-off and frame
// timing. Tests pass a fake clock.
func WithClock(c cache.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &brickstream.BasicMetricsCollector{}
//	s, _ := brickstream.New(src, up, brickstream.WithMetricsCollector(metrics))
//	// ... render ...
//	stats := metrics.GetStats()
//	fmt.Printf("Frames: %d, drawn: %.0f%%\n", stats.FrameCount, 100*stats.DrawnRatio)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		config:           DefaultConfig(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

func (o options) gpuBytes() int64 {
	if o.gpuBudget > 0 {
		return o.gpuBudget
	}
	return o.config.GPUBudgetMiB * mib
}

func (o options) cpuBytes() int64 {
	if o.cpuBudget > 0 {
		return o.cpuBudget
	}
	return o.config.CPUBudgetMiB * mib
}
