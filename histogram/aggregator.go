package histogram

import (
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

// Result is a published, completed frame histogram.
type Result struct {
	FrameID   uint32
	Histogram Histogram
	Area      float64
}

// Observer receives aggregation events. Implementations must be safe for
// concurrent use.
type Observer interface {
	RecordHistogramPublished(frameID uint32)
	RecordHistogramSuppressed(frameID uint32)
	RecordHistogramAbandoned(frames int)
	RecordHistogramRejected()
	RecordHistogramClamped()
}

type noopObserver struct{}

func (noopObserver) RecordHistogramPublished(uint32)  {}
func (noopObserver) RecordHistogramSuppressed(uint32) {}
func (noopObserver) RecordHistogramAbandoned(int)     {}
func (noopObserver) RecordHistogramRejected()         {}
func (noopObserver) RecordHistogramClamped()          {}

// Options configures an Aggregator.
type Options struct {
	// Latency bounds the queue to Latency+1 incomplete frames. Negative
	// values are treated as 0.
	Latency  int
	Logger   *slog.Logger
	Observer Observer
}

// Aggregator merges partial histograms from concurrent producers and
// publishes each completed frame once.
type Aggregator struct {
	logger   *slog.Logger
	observer Observer
	feed     event.FeedOf[Result]
	scope    event.SubscriptionScope

	// gatherMu serializes transitions together with their publication so
	// subscribers see frames in resolution order.
	gatherMu sync.Mutex

	mu     sync.RWMutex
	state  State
	latest Result
	has    bool
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts Options) *Aggregator {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &Aggregator{
		logger:   opts.Logger,
		observer: opts.Observer,
		state:    NewState(opts.Latency),
	}
}

// Subscribe delivers every published Result to ch. Delivery blocks the
// publishing Gather until ch accepts the value, so ch should be buffered or
// drained promptly.
func (a *Aggregator) Subscribe(ch chan<- Result) event.Subscription {
	return a.scope.Track(a.feed.Subscribe(ch))
}

// Gather folds one partial contribution and publishes the frame if it
// completed with a new histogram.
func (a *Aggregator) Gather(h Histogram, area float64, frameID uint32) Outcome {
	a.gatherMu.Lock()
	defer a.gatherMu.Unlock()

	a.mu.Lock()
	next, out := a.state.Gather(h, area, frameID)
	a.state = next
	if out.Publish {
		a.latest = Result{FrameID: out.Result.FrameID, Histogram: out.Result.Histogram, Area: out.Result.Area}
		a.has = true
	}
	latest := a.latest
	a.mu.Unlock()

	a.record(out, area)
	if out.Publish {
		n := a.feed.Send(latest)
		a.logger.Debug("histogram published", "frame", frameID, "area", out.Result.Area, "subscribers", n)
	}
	return out
}

// Receive gathers a decoded contribution.
func (a *Aggregator) Receive(c Contribution) Outcome {
	return a.Gather(c.Histogram, float64(c.Area), c.FrameID)
}

func (a *Aggregator) record(out Outcome, area float64) {
	if out.Rejected {
		a.observer.RecordHistogramRejected()
		a.logger.Debug("stale histogram rejected", "frame", out.FrameID)
		return
	}
	if out.Clamped {
		a.observer.RecordHistogramClamped()
		a.logger.Warn("histogram area out of range, clamped", "frame", out.FrameID, "area", area)
	}
	if n := len(out.Abandoned); n > 0 {
		a.observer.RecordHistogramAbandoned(n)
		a.logger.Debug("histogram frames abandoned", "frames", out.Abandoned)
	}
	switch {
	case out.Publish:
		a.observer.RecordHistogramPublished(out.FrameID)
	case out.Complete:
		a.observer.RecordHistogramSuppressed(out.FrameID)
	}
}

// Latest returns the most recently published result.
func (a *Aggregator) Latest() (Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.has
}

// Pending returns the ids of queued incomplete frames, newest first.
func (a *Aggregator) Pending() []uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Pending()
}

// Latency returns the current latency.
func (a *Aggregator) Latency() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Latency
}

// SetLatency changes the latency, abandoning queued frames that no longer fit.
func (a *Aggregator) SetLatency(latency int) {
	a.gatherMu.Lock()
	defer a.gatherMu.Unlock()

	a.mu.Lock()
	next, dropped := a.state.WithLatency(latency)
	a.state = next
	a.mu.Unlock()

	if len(dropped) > 0 {
		a.observer.RecordHistogramAbandoned(len(dropped))
	}
	a.logger.Info("histogram latency changed", "latency", next.Latency, "abandoned", len(dropped))
}

// Close ends all subscriptions.
func (a *Aggregator) Close() {
	a.scope.Close()
}
