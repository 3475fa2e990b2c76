// Package resource implements the Controller that bounds brick fill work.
//
// The Controller manages two resource types:
//
//   - Concurrency: Limit concurrent fills (fetch + decode) running on the worker pool
//   - IO: Rate-limit source reads so streaming cannot saturate a shared link
//
// # Architecture
//
//	┌───────────────────────────────────────────────┐
//	│                  Controller                   │
//	├─────────────────────────┬─────────────────────┤
//	│  Fill Workers (sem)     │  IO Rate Limiter    │
//	│                         │  (token bucket)     │
//	├─────────────────────────┼─────────────────────┤
//	│  AcquireFill            │  AcquireIO          │
//	│  TryAcquireFill         │  TryAcquireIO       │
//	│  ReleaseFill            │  RateLimitedWriter  │
//	└─────────────────────────┴─────────────────────┘
//
// # Fill Workers
//
// Limits concurrent fills. The default is one slot per schedulable CPU:
//
//	rc := resource.NewController(resource.Config{
//	    MaxFillWorkers: 4,
//	})
//
//	if err := rc.AcquireFill(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseFill()
//
// # IO Rate Limiting
//
// Token bucket rate limiter for source reads:
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//
//	if err := rc.AcquireIO(ctx, int(node.Length)); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
package resource
