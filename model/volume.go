package model

import (
	"fmt"
	"math"
)

// DataType is the element type of a voxel.
type DataType uint8

const (
	DataTypeUndefined DataType = iota
	DataTypeUint8
	DataTypeUint16
	DataTypeUint32
	DataTypeInt8
	DataTypeInt16
	DataTypeInt32
	DataTypeFloat32
)

// Valid reports whether the data type can be streamed and rendered.
func (d DataType) Valid() bool {
	return d > DataTypeUndefined && d <= DataTypeFloat32
}

// Size returns the width of one component in bytes (0 if undefined).
func (d DataType) Size() int {
	switch d {
	case DataTypeUint8, DataTypeInt8:
		return 1
	case DataTypeUint16, DataTypeInt16:
		return 2
	case DataTypeUint32, DataTypeInt32, DataTypeFloat32:
		return 4
	default:
		return 0
	}
}

// Range returns the representable value range of the type.
func (d DataType) Range() (lo, hi float64) {
	switch d {
	case DataTypeUint8:
		return 0, math.MaxUint8
	case DataTypeUint16:
		return 0, math.MaxUint16
	case DataTypeUint32:
		return 0, math.MaxUint32
	case DataTypeInt8:
		return math.MinInt8, math.MaxInt8
	case DataTypeInt16:
		return math.MinInt16, math.MaxInt16
	case DataTypeInt32:
		return math.MinInt32, math.MaxInt32
	case DataTypeFloat32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return 0, 0
	}
}

func (d DataType) String() string {
	switch d {
	case DataTypeUint8:
		return "uint8"
	case DataTypeUint16:
		return "uint16"
	case DataTypeUint32:
		return "uint32"
	case DataTypeInt8:
		return "int8"
	case DataTypeInt16:
		return "int16"
	case DataTypeInt32:
		return "int32"
	case DataTypeFloat32:
		return "float32"
	default:
		return fmt.Sprintf("undefined(%d)", uint8(d))
	}
}

// ParseDataType maps a name produced by DataType.String back to the type.
func ParseDataType(s string) (DataType, error) {
	for d := DataTypeUint8; d <= DataTypeFloat32; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return DataTypeUndefined, fmt.Errorf("unknown data type %q", s)
}

// Compression identifies how brick payloads are stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZSTD
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a name produced by Compression.String back to the value.
func ParseCompression(s string) (Compression, error) {
	for c := CompressionNone; c <= CompressionZSTD; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return CompressionNone, fmt.Errorf("unknown compression %q", s)
}

// VolumeInfo describes a whole volume.
type VolumeInfo struct {
	// Voxels is the full-resolution extent per axis.
	Voxels [3]uint32
	// BrickSize is the brick edge length in voxels.
	BrickSize uint32
	// Depth is the number of octree levels; levels run from 0 to Depth-1.
	Depth      uint32
	DataType   DataType
	Components uint32
	// WorldSize is the volume extent in world units; the volume is centered at the origin.
	WorldSize   Vec3
	Compression Compression
}

// MaxVoxelDim returns the largest full-resolution extent.
func (v VolumeInfo) MaxVoxelDim() uint32 {
	return max(v.Voxels[0], v.Voxels[1], v.Voxels[2])
}

// BytesPerVoxel returns the decoded size of one voxel.
func (v VolumeInfo) BytesPerVoxel() int {
	c := v.Components
	if c == 0 {
		c = 1
	}
	return v.DataType.Size() * int(c)
}

// BrickBox returns the world-space box of a brick, assuming the volume is
// centered at the origin and every level splits the world box in eight.
func (v VolumeInfo) BrickBox(id BrickID) Box {
	cells := float64(uint64(1) << id.Level())
	size := v.WorldSize.Scale(1 / cells)
	x, y, z := id.Coord()
	lo := v.WorldSize.Scale(-0.5).Add(Vec3{float64(x) * size.X, float64(y) * size.Y, float64(z) * size.Z})
	return Box{Min: lo, Max: lo.Add(size)}
}
