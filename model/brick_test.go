package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrickID_PackUnpack(t *testing.T) {
	id := NewBrickID(9, 511, 3, MaxCoord)
	assert.Equal(t, uint32(9), id.Level())

	x, y, z := id.Coord()
	assert.Equal(t, uint32(511), x)
	assert.Equal(t, uint32(3), y)
	assert.Equal(t, uint32(MaxCoord), z)

	assert.Equal(t, RootBrick, NewBrickID(0, 0, 0, 0))
	assert.Equal(t, "Brick(9:511,3,1048575)", id.String())
}

func TestBrickID_Ordering(t *testing.T) {
	// Level dominates coordinates.
	assert.Less(t, NewBrickID(1, 1, 1, 1), NewBrickID(2, 0, 0, 0))
	assert.Less(t, NewBrickID(2, 0, 5, 5), NewBrickID(2, 1, 0, 0))
	assert.Less(t, NewBrickID(2, 1, 0, 5), NewBrickID(2, 1, 1, 0))
}

func TestBrickID_Panics(t *testing.T) {
	assert.Panics(t, func() { NewBrickID(MaxLevel+1, 0, 0, 0) })
	assert.Panics(t, func() { NewBrickID(1, MaxCoord+1, 0, 0) })
}

func TestBrickID_Hierarchy(t *testing.T) {
	parent := NewBrickID(3, 2, 5, 7)
	children := parent.Children()

	seen := make(map[BrickID]bool)
	for _, c := range children {
		assert.Equal(t, uint32(4), c.Level())
		assert.Equal(t, parent, c.Parent())
		seen[c] = true
	}
	assert.Len(t, seen, 8)
	assert.Equal(t, RootBrick, RootBrick.Parent())
}

func TestVolumeInfo_BrickBox(t *testing.T) {
	info := VolumeInfo{WorldSize: Vec3{2, 2, 2}}

	root := info.BrickBox(RootBrick)
	assert.Equal(t, Vec3{-1, -1, -1}, root.Min)
	assert.Equal(t, Vec3{1, 1, 1}, root.Max)

	b := info.BrickBox(NewBrickID(1, 1, 0, 1))
	assert.Equal(t, Vec3{0, -1, 0}, b.Min)
	assert.Equal(t, Vec3{1, 0, 1}, b.Max)
	assert.Equal(t, Vec3{0.5, -0.5, 0.5}, b.Center())
}

func TestDataType(t *testing.T) {
	assert.False(t, DataTypeUndefined.Valid())
	assert.False(t, DataType(42).Valid())
	assert.True(t, DataTypeFloat32.Valid())
	assert.Equal(t, 2, DataTypeInt16.Size())

	lo, hi := DataTypeUint16.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 65535.0, hi)

	d, err := ParseDataType("int32")
	require.NoError(t, err)
	assert.Equal(t, DataTypeInt32, d)

	_, err = ParseDataType("complex128")
	assert.Error(t, err)

	info := VolumeInfo{DataType: DataTypeUint16, Components: 3}
	assert.Equal(t, 6, info.BytesPerVoxel())
}

func TestMat4_MulPoint(t *testing.T) {
	m := Translate(Vec3{0, 0, -5})
	p := m.MulPoint(Vec3{1, 0, 0})
	assert.Equal(t, Vec3{1, 0, -5}, p)

	r := RotateY(math.Pi / 2).Mul(Translate(Vec3{1, 0, 0}))
	q := r.MulPoint(Vec3{})
	assert.InDelta(t, 0, q.X, 1e-12)
	assert.InDelta(t, -1, q.Z, 1e-12)

	f := NewFrustum(Translate(Vec3{0, 0, -3}))
	assert.InDelta(t, 3, f.EyeDistance(Vec3{}), 1e-12)
}
