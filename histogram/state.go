package histogram

import (
	"math"
	"slices"
)

// Epsilon is the tolerance around a summed area of 1 within which a frame is
// complete.
const Epsilon = 1e-4

// DefaultLatency is the number of frames a render node may run ahead of the
// slowest one.
const DefaultLatency = 1

// ViewHistogram is the merged state of one frame.
type ViewHistogram struct {
	FrameID   uint32
	Histogram Histogram
	Area      float64
}

// Complete reports whether the summed area is within Epsilon of 1.
func (v ViewHistogram) Complete() bool {
	return math.Abs(1-v.Area) <= Epsilon
}

// Merge returns the bin-wise and area sum of v and o.
func (v ViewHistogram) Merge(o ViewHistogram) ViewHistogram {
	return ViewHistogram{
		FrameID:   v.FrameID,
		Histogram: v.Histogram.Add(o.Histogram),
		Area:      v.Area + o.Area,
	}
}

// State is the aggregation state. The zero value is an empty state with
// latency 0; use NewState for DefaultLatency.
//
// A State is a value: Gather never modifies its receiver, so a state may be
// kept and compared after later transitions.
type State struct {
	// Latency bounds the queue to Latency+1 incomplete frames.
	Latency int
	// Queue holds incomplete frames, newest first.
	Queue []ViewHistogram
	// Published is the last published histogram.
	Published Histogram
	// Horizon is the newest frame id that was resolved or abandoned.
	// Contributions at or below it are rejected.
	Horizon    uint32
	HasHorizon bool
}

// NewState returns an empty state with the given latency.
func NewState(latency int) State {
	return State{Latency: max(latency, 0)}
}

// Outcome describes what one Gather call did.
type Outcome struct {
	FrameID uint32
	// Rejected is set when the frame was already resolved or abandoned.
	Rejected bool
	// Clamped is set when the area was NaN or outside [0,1].
	Clamped bool
	// Merged is set when the contribution joined an already queued frame.
	Merged bool
	// Complete is set when the frame reached a summed area of 1.
	Complete bool
	// Publish is set when Result must be delivered downstream. A complete
	// frame whose histogram equals the last published one is not published.
	Publish bool
	Result  ViewHistogram
	// Superseded lists queued frames older than a completed frame; they were
	// removed without being published.
	Superseded []uint32
	// Abandoned lists frames dropped from the tail of a full queue.
	Abandoned []uint32
}

// ClampArea maps area into [0,1]. NaN maps to 0. It reports whether the value
// changed.
func ClampArea(area float64) (float64, bool) {
	switch {
	case math.IsNaN(area):
		return 0, true
	case area < 0:
		return 0, true
	case area > 1:
		return 1, true
	default:
		return area, false
	}
}

// Gather folds one partial contribution into s and returns the new state.
func (s State) Gather(h Histogram, area float64, frameID uint32) (State, Outcome) {
	out := Outcome{FrameID: frameID}
	if s.HasHorizon && frameID <= s.Horizon {
		out.Rejected = true
		return s, out
	}
	area, out.Clamped = ClampArea(area)
	contrib := ViewHistogram{FrameID: frameID, Histogram: h.Clone(), Area: area}

	next := s
	next.Queue = slices.Clone(s.Queue)

	// Queue is newest first: find the first entry not newer than frameID.
	i, found := slices.BinarySearchFunc(next.Queue, frameID, func(v ViewHistogram, id uint32) int {
		switch {
		case v.FrameID > id:
			return -1
		case v.FrameID < id:
			return 1
		default:
			return 0
		}
	})
	if found {
		next.Queue[i] = next.Queue[i].Merge(contrib)
		out.Merged = true
	} else {
		next.Queue = slices.Insert(next.Queue, i, contrib)
	}

	if v := next.Queue[i]; v.Complete() {
		out.Complete = true
		out.Result = v
		for _, old := range next.Queue[i+1:] {
			out.Superseded = append(out.Superseded, old.FrameID)
		}
		next.Queue = next.Queue[:i]
		next.Horizon, next.HasHorizon = frameID, true
		if !v.Histogram.Equal(s.Published) {
			out.Publish = true
			next.Published = v.Histogram
		}
		return next, out
	}

	for len(next.Queue) > next.Latency+1 {
		tail := next.Queue[len(next.Queue)-1]
		next.Queue = next.Queue[:len(next.Queue)-1]
		out.Abandoned = append(out.Abandoned, tail.FrameID)
		if !next.HasHorizon || tail.FrameID > next.Horizon {
			next.Horizon, next.HasHorizon = tail.FrameID, true
		}
	}
	return next, out
}

// Pending returns the queued frame ids, newest first.
func (s State) Pending() []uint32 {
	ids := make([]uint32, len(s.Queue))
	for i, v := range s.Queue {
		ids[i] = v.FrameID
	}
	return ids
}

// WithLatency returns s with a new latency, dropping the oldest queued frames
// that no longer fit. The dropped frame ids are returned.
func (s State) WithLatency(latency int) (State, []uint32) {
	next := s
	next.Latency = max(latency, 0)
	if len(s.Queue) <= next.Latency+1 {
		return next, nil
	}
	keep := next.Latency + 1
	var dropped []uint32
	for _, v := range s.Queue[keep:] {
		dropped = append(dropped, v.FrameID)
	}
	next.Queue = slices.Clone(s.Queue[:keep])
	if last := dropped[0]; !next.HasHorizon || last > next.Horizon {
		next.Horizon, next.HasHorizon = last, true
	}
	return next, dropped
}
