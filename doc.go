// Package brickstream streams a large octree-of-bricks volume to an
// interactive renderer.
//
// A volume is split into bricks, one octree node each. The renderer asks for
// the bricks it wants to draw every frame; brickstream keeps a memory-bounded
// working set of them in two tiers:
//
//   - the data tier holds decoded bricks in host memory and fills misses on a
//     bounded worker pool;
//   - the residency tier holds textures and uploads ready bricks on the
//     render goroutine at the start of each frame.
//
// Both tiers are the same generic, byte-budgeted LRU cache (package cache)
// with pinning: a brick that is visible in the current frame is never
// evicted. Lookups never block; a missing brick is requested and shows up in
// a later frame.
//
// # Quick Start
//
//	src, _ := source.Open(ctx, blobstore.NewLocalStore("./volume"))
//	s, _ := brickstream.New(src, uploader, brickstream.WithGPUBudget(2<<30))
//	defer s.Close()
//
//	for {
//	    f := model.NewFrustum(camera.ModelView())
//	    frame, _ := s.BeginFrame(f, s.Select(f))
//	    for _, d := range frame.Draws {
//	        draw(d.Texture, frame.SamplesPerRay)
//	    }
//	    s.EndFrame()
//	}
//
// # Histograms
//
// In a cluster every render node draws part of the frame and reports the
// histogram of what it drew together with its share of the screen area.
// NewAggregator returns a histogram.Aggregator that merges these partials
// and publishes one histogram per completed frame.
//
// # Configuration
//
// Config holds the tunable parameters with the documented defaults (GPU
// budget 3072 MiB, CPU budget 8192 MiB, LOD 0 to 9, screen-space error 4,
// automatic samples per ray). It can be loaded from TOML with LoadConfig.
package brickstream
