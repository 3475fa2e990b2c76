// Package histogram reconciles per-frame partial histograms from several
// render nodes into one completed histogram per frame.
//
// Each render node reports the histogram of the bricks it drew together with
// the fraction of the frame's screen area it covered. Partials for the same
// frame are merged by bin-wise sum and area sum; a frame whose summed area is
// within Epsilon of 1 is complete. Merging is commutative and associative, so
// the result does not depend on arrival order.
//
// State.Gather is the pure transition function. Aggregator serializes it for
// concurrent producers and publishes completed frames on an event feed.
package histogram
