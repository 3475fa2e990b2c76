package visibility

import (
	"math"

	"github.com/hupe1980/brickstream/model"
)

const (
	// DefaultMinSamples is the floor of the automatic sample rate.
	DefaultMinSamples = 512
	// DefaultMaxSamples caps the automatic sample rate.
	DefaultMaxSamples = 8192
)

// SampleConfig controls SamplesPerRay.
type SampleConfig struct {
	// Configured, when non-zero, is returned as is.
	Configured uint32
	Min        uint32
	Max        uint32
}

// SamplesPerRay returns the number of samples per ray for a frame. The
// automatic rate matches the voxel resolution of the finest candidate level,
// maxVoxelDim / 2^(depth-level-1), bounded by Min and Max.
func SamplesPerRay(candidates []model.BrickID, info model.VolumeInfo, cfg SampleConfig) uint32 {
	if cfg.Configured > 0 {
		return cfg.Configured
	}
	lo := cfg.Min
	if lo == 0 {
		lo = DefaultMinSamples
	}
	hi := cfg.Max
	if hi == 0 {
		hi = DefaultMaxSamples
	}
	hi = max(hi, lo)

	if len(candidates) == 0 {
		return lo
	}

	finest := uint32(0)
	for _, id := range candidates {
		finest = max(finest, id.Level())
	}

	exp := int(info.Depth) - int(finest) - 1
	s := math.Ldexp(float64(info.MaxVoxelDim()), -exp)
	return uint32(min(max(s, float64(lo)), float64(hi)))
}
