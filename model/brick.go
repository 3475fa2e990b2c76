package model

import (
	"fmt"
)

const (
	coordBits = 20
	coordMask = 1<<coordBits - 1
	levelBits = 4

	// MaxLevel is the deepest refinement level a BrickID can encode.
	MaxLevel = 1<<levelBits - 1
	// MaxCoord is the largest per-axis coordinate a BrickID can encode.
	MaxCoord = coordMask
)

// BrickID identifies one octree brick by refinement level and 3D coordinate.
//
// Layout (most significant first): 4 bits level, 20 bits x, 20 bits y,
// 20 bits z. Comparing two BrickIDs numerically orders them by level, then
// x, y and z.
type BrickID uint64

// NewBrickID packs a level and coordinate into a BrickID.
// It panics if the level or a coordinate does not fit.
func NewBrickID(level uint32, x, y, z uint32) BrickID {
	if level > MaxLevel {
		panic(fmt.Sprintf("model: level %d exceeds %d", level, MaxLevel))
	}
	if x > MaxCoord || y > MaxCoord || z > MaxCoord {
		panic(fmt.Sprintf("model: coordinate (%d,%d,%d) exceeds %d", x, y, z, MaxCoord))
	}
	return BrickID(uint64(level)<<(3*coordBits) |
		uint64(x)<<(2*coordBits) |
		uint64(y)<<coordBits |
		uint64(z))
}

// RootBrick is the single brick at level 0.
const RootBrick BrickID = 0

// Level returns the refinement level.
func (id BrickID) Level() uint32 {
	return uint32(id >> (3 * coordBits))
}

// Coord returns the brick coordinate within its level.
func (id BrickID) Coord() (x, y, z uint32) {
	x = uint32(id>>(2*coordBits)) & coordMask
	y = uint32(id>>coordBits) & coordMask
	z = uint32(id) & coordMask
	return x, y, z
}

// Parent returns the brick one level up. The root is its own parent.
func (id BrickID) Parent() BrickID {
	l := id.Level()
	if l == 0 {
		return id
	}
	x, y, z := id.Coord()
	return NewBrickID(l-1, x/2, y/2, z/2)
}

// Children returns the eight bricks one level down.
func (id BrickID) Children() [8]BrickID {
	var out [8]BrickID
	l := id.Level() + 1
	x, y, z := id.Coord()
	for i := range 8 {
		out[i] = NewBrickID(l,
			2*x+uint32(i&1),
			2*y+uint32(i>>1&1),
			2*z+uint32(i>>2&1))
	}
	return out
}

// String returns a string representation of the BrickID.
func (id BrickID) String() string {
	x, y, z := id.Coord()
	return fmt.Sprintf("Brick(%d:%d,%d,%d)", id.Level(), x, y, z)
}

// LODNode is the metadata of one brick as published by a volume source.
// It is read-only to the cache tiers.
type LODNode struct {
	ID       BrickID
	WorldBox Box
	// Offset and Length locate the stored payload inside the source.
	Offset int64
	Length int64
	// Voxels is the decoded brick extent in voxels per axis.
	Voxels [3]uint32
}

// Level returns the refinement level of the node.
func (n LODNode) Level() uint32 { return n.ID.Level() }

// VoxelCount returns the number of voxels in the decoded brick.
func (n LODNode) VoxelCount() int64 {
	return int64(n.Voxels[0]) * int64(n.Voxels[1]) * int64(n.Voxels[2])
}
