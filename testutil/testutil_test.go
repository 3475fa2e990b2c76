package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/brickstream/model"
)

func TestRNG_BrickIDs(t *testing.T) {
	rng := NewRNG(4711)

	ids := rng.BrickIDs(64, 2)
	require.Len(t, ids, 64)

	seen := make(map[model.BrickID]bool)
	for _, id := range ids {
		assert.Equal(t, uint32(2), id.Level())
		seen[id] = true
	}
	assert.Len(t, seen, 64, "all 64 level-2 bricks")
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(1)
	a := rng.Perm(10)
	rng.Reset()
	assert.Equal(t, a, rng.Perm(10))
	assert.Equal(t, int64(1), rng.Seed())
}

func TestPackVolume(t *testing.T) {
	src := PackVolume(t, SmallVolume())
	assert.Len(t, src.Nodes(), 9)

	n, ok := src.Node(model.RootBrick)
	require.True(t, ok)
	assert.Equal(t, int64(8), n.VoxelCount())
}
