package brickstream

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/brickstream/cache"
	"github.com/hupe1980/brickstream/model"
)

// Logger wraps slog.Logger with brickstream-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithFrame adds a frame id field to the logger.
func (l *Logger) WithFrame(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("frame", id),
	}
}

// WithBrick adds a brick field to the logger.
func (l *Logger) WithBrick(id model.BrickID) *Logger {
	return &Logger{
		Logger: l.Logger.With("brick", id.String()),
	}
}

// WithTier adds a tier field to the logger.
func (l *Logger) WithTier(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("tier", name),
	}
}

// LogOpen logs the volume a Streamer was created for.
func (l *Logger) LogOpen(ctx context.Context, info model.VolumeInfo, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"data_type", info.DataType.String(),
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "volume opened",
		"voxels", info.Voxels,
		"brick_size", info.BrickSize,
		"depth", info.Depth,
		"data_type", info.DataType.String(),
		"components", info.Components,
	)
}

// LogFrame logs a finished frame.
func (l *Logger) LogFrame(id uint32, visible, drawn int, elapsed time.Duration) {
	if drawn < visible {
		l.Debug("frame ended with missing bricks",
			"frame", id,
			"visible", visible,
			"drawn", drawn,
			"missing", visible-drawn,
			"elapsed", elapsed,
		)
		return
	}
	l.Debug("frame ended",
		"frame", id,
		"visible", visible,
		"drawn", drawn,
		"elapsed", elapsed,
	)
}

// LogBudget logs a budget change.
func (l *Logger) LogBudget(tier string, bytes int64) {
	l.Info("budget set",
		"tier", tier,
		"budget", bytes,
	)
}

// LogStats logs a snapshot of both tiers.
func (l *Logger) LogStats(gpu, cpu cache.Stats) {
	l.Info("cache stats",
		"gpu_used", gpu.UsedBytes,
		"gpu_entries", gpu.Entries,
		"gpu_hits", gpu.Hits,
		"gpu_misses", gpu.Misses,
		"gpu_over_budget", gpu.OverBudget,
		"cpu_used", cpu.UsedBytes,
		"cpu_entries", cpu.Entries,
		"cpu_evictions", cpu.Evictions,
		"cpu_fill_failures", cpu.FillFailures,
	)
}
