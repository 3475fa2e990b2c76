package main

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/hupe1980/brickstream"
	"github.com/hupe1980/brickstream/codec"
	"github.com/hupe1980/brickstream/histogram"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/tier"
)

// cluster simulates render nodes that split each frame's draws between them
// and report partial histograms over an unordered, lossy-latency transport.
type cluster struct {
	nodes   []uuid.UUID
	bins    int
	codec   codec.Codec
	rng     *rand.Rand
	delay   float64
	delayed [][]byte
}

func newCluster(nodes, bins int, delay float64, seed int64) *cluster {
	c := &cluster{
		bins:  bins,
		codec: codec.Default,
		rng:   rand.New(rand.NewSource(seed)),
		delay: delay,
	}
	for range max(nodes, 1) {
		c.nodes = append(c.nodes, uuid.New())
	}
	return c
}

// contribute encodes one contribution per node. Node k draws every k-th
// brick of the frame; its area is its share of the draws.
func (c *cluster) contribute(frame brickstream.Frame, up *tier.HostUploader, dt model.DataType) ([][]byte, error) {
	n := len(frame.Draws)
	msgs := make([][]byte, 0, len(c.nodes))
	for k, node := range c.nodes {
		h := make(histogram.Histogram, c.bins)
		count := 0
		for i := k; i < n; i += len(c.nodes) {
			count++
			data, ok := up.Data(frame.Draws[i].Texture.ID)
			if !ok {
				continue
			}
			bh, err := histogram.Compute(data, dt, c.bins)
			if err != nil {
				return nil, err
			}
			h = h.Add(bh)
		}

		area := 1 / float64(len(c.nodes))
		if n > 0 {
			area = float64(count) / float64(n)
		}
		msg, err := histogram.EncodeContribution(c.codec, histogram.Contribution{
			Node:      node,
			FrameID:   frame.ID,
			Area:      float32(area),
			Histogram: h,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// deliver returns the messages that arrive now: everything held back from
// the previous call plus msgs, shuffled, minus a random share that is held
// back until the next call.
func (c *cluster) deliver(msgs [][]byte) [][]byte {
	out := append(c.delayed, msgs...)
	c.delayed = nil
	c.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	arrived := out[:0]
	for _, m := range out {
		if c.rng.Float64() < c.delay {
			c.delayed = append(c.delayed, m)
			continue
		}
		arrived = append(arrived, m)
	}
	return arrived
}

// flush returns every held-back message.
func (c *cluster) flush() [][]byte {
	out := c.delayed
	c.delayed = nil
	return out
}
