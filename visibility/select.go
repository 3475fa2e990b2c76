package visibility

import (
	"math"

	"github.com/hupe1980/brickstream/model"
)

// SelectConfig bounds the reference LOD selector.
type SelectConfig struct {
	MinLOD uint32
	MaxLOD uint32
	// ScreenSpaceError is the largest projected voxel size, in pixels, a
	// node may have before it is refined.
	ScreenSpaceError float64
}

// DefaultSelectConfig returns min LOD 0, max LOD 9 and an error of 4 pixels.
func DefaultSelectConfig() SelectConfig {
	return SelectConfig{MinLOD: 0, MaxLOD: 9, ScreenSpaceError: 4}
}

// Select walks the octree from the root and returns the nodes to draw: a node
// is refined while it is above MinLOD or its projected voxel size exceeds
// the error threshold, and kept once MaxLOD, the deepest level, the deepest
// encodable level or a missing child is reached. The result is in depth-first order; pass it to Order.
func Select(nodes NodeLookup, info model.VolumeInfo, f model.Frustum, cfg SelectConfig) []model.BrickID {
	if _, ok := nodes.Node(model.RootBrick); !ok {
		return nil
	}
	deepest := uint32(0)
	if info.Depth > 0 {
		deepest = info.Depth - 1
	}
	maxLOD := min(cfg.MaxLOD, deepest, model.MaxLevel)

	// Pixels per world unit at distance 1.
	scale := f.ViewportHeight / (2 * math.Tan(f.FovY/2))

	var out []model.BrickID
	var walk func(id model.BrickID)
	walk = func(id model.BrickID) {
		n, _ := nodes.Node(id)
		level := id.Level()

		refine := level < maxLOD
		if refine && level >= cfg.MinLOD {
			voxel := n.WorldBox.Size().MaxComponent() / float64(max(info.BrickSize, 1))
			d := f.EyeDistance(n.WorldBox.Center())
			refine = d <= 0 || voxel*scale/d > cfg.ScreenSpaceError
		}

		if refine {
			children := id.Children()
			for _, c := range children {
				if _, ok := nodes.Node(c); !ok {
					refine = false
					break
				}
			}
			if refine {
				for _, c := range children {
					walk(c)
				}
				return
			}
		}
		out = append(out, id)
	}
	walk(model.RootBrick)
	return out
}
