package brickstream_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/brickstream"
	"github.com/hupe1980/brickstream/blobstore"
	"github.com/hupe1980/brickstream/histogram"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/source"
	"github.com/hupe1980/brickstream/tier"
)

// Example_streamer packs a small synthetic volume and renders one frame.
func Example_streamer() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	info := model.VolumeInfo{BrickSize: 8, Depth: 3, DataType: model.DataTypeUint8}
	if _, err := source.Pack(ctx, store, info, source.Sphere(info), source.PackOptions{}); err != nil {
		log.Fatal(err)
	}

	src, err := source.Open(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	s, err := brickstream.New(src, tier.NewHostUploader(), brickstream.WithGPUBudget(64<<20))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	f := model.NewFrustum(model.Translate(model.Vec3{Z: -3}))
	frame, err := s.BeginFrame(f, s.Select(f))
	if err != nil {
		log.Fatal(err)
	}
	defer s.EndFrame()

	fmt.Println("samples per ray:", frame.SamplesPerRay)
	// Output: samples per ray: 512
}

// Example_aggregator merges two partial histograms of the same frame.
func Example_aggregator() {
	agg := brickstream.NewAggregator()
	defer agg.Close()

	results := make(chan histogram.Result, 1)
	sub := agg.Subscribe(results)
	defer sub.Unsubscribe()

	agg.Gather(histogram.Histogram{3, 1}, 0.25, 1)
	agg.Gather(histogram.Histogram{1, 5}, 0.75, 1)

	r := <-results
	fmt.Println(r.FrameID, r.Histogram)
	// Output: 1 [4 6]
}
