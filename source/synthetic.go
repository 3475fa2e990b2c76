package source

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/brickstream/model"
)

// Sphere returns a BrickFunc for a radial density field: 1 at the volume
// center falling to 0 at the inscribed sphere, with concentric shells so
// coarse and fine levels differ visibly.
func Sphere(info model.VolumeInfo) BrickFunc {
	return func(id model.BrickID) ([]byte, error) {
		n := int(info.BrickSize)
		bpv := info.BytesPerVoxel()
		comps := max(int(info.Components), 1)
		width := info.DataType.Size()

		box := info.BrickBox(id)
		step := box.Size().Scale(1 / float64(n))
		radius := 0.5 * min(info.WorldSize.X, info.WorldSize.Y, info.WorldSize.Z)

		out := make([]byte, n*n*n*bpv)
		off := 0
		for k := range n {
			for j := range n {
				for i := range n {
					p := model.Vec3{
						X: box.Min.X + (float64(i)+0.5)*step.X,
						Y: box.Min.Y + (float64(j)+0.5)*step.Y,
						Z: box.Min.Z + (float64(k)+0.5)*step.Z,
					}
					r := p.Length() / radius
					v := 0.0
					if r < 1 {
						v = (1 - r) * (0.75 + 0.25*math.Cos(8*math.Pi*r))
					}
					for range comps {
						putValue(out[off:off+width], info.DataType, v)
						off += width
					}
				}
			}
		}
		return out, nil
	}
}

// putValue stores v in [0,1] scaled to the positive range of dt.
func putValue(dst []byte, dt model.DataType, v float64) {
	switch dt {
	case model.DataTypeUint8:
		dst[0] = uint8(v * math.MaxUint8)
	case model.DataTypeInt8:
		dst[0] = uint8(int8(v * math.MaxInt8))
	case model.DataTypeUint16:
		binary.LittleEndian.PutUint16(dst, uint16(v*math.MaxUint16))
	case model.DataTypeInt16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v*math.MaxInt16)))
	case model.DataTypeUint32:
		binary.LittleEndian.PutUint32(dst, uint32(v*math.MaxUint32))
	case model.DataTypeInt32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(v*math.MaxInt32)))
	case model.DataTypeFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	}
}
