package testutil

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/brickstream/blobstore"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/source"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a random int in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a random float64 in [0, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Perm returns a random permutation of [0, n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// BrickIDs returns n distinct random brick ids of the given level. n must
// not exceed the number of bricks on that level.
func (r *RNG) BrickIDs(n int, level uint32) []model.BrickID {
	r.mu.Lock()
	defer r.mu.Unlock()

	side := int64(1) << level
	seen := make(map[model.BrickID]struct{}, n)
	ids := make([]model.BrickID, 0, n)
	for len(ids) < n {
		id := model.NewBrickID(level,
			uint32(r.rand.Int63n(side)),
			uint32(r.rand.Int63n(side)),
			uint32(r.rand.Int63n(side)),
		)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// SmallVolume describes a two-level uint8 volume with 2³-voxel bricks: nine
// bricks of 8 bytes each.
func SmallVolume() model.VolumeInfo {
	return model.VolumeInfo{
		BrickSize:  2,
		Depth:      2,
		DataType:   model.DataTypeUint8,
		Components: 1,
		WorldSize:  model.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// PackVolume packs a synthetic sphere into a memory store and opens it. The
// source is closed when the test ends.
func PackVolume(t testing.TB, info model.VolumeInfo) *source.BlobSource {
	t.Helper()
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := source.Pack(ctx, store, info, source.Sphere(info), source.PackOptions{})
	require.NoError(t, err)

	src, err := source.Open(ctx, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}
