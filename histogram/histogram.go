package histogram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/brickstream/model"
)

// ErrBins is returned by Compute for a non-positive bin count.
var ErrBins = errors.New("histogram: bin count must be positive")

// Histogram is a fixed-width array of bin counts.
type Histogram []uint64

// Add returns the bin-wise sum of h and o. Histograms of different widths are
// summed as if the shorter one were padded with zero bins.
func (h Histogram) Add(o Histogram) Histogram {
	out := make(Histogram, max(len(h), len(o)))
	copy(out, h)
	for i, v := range o {
		out[i] += v
	}
	return out
}

// Equal reports whether h and o have the same bins.
func (h Histogram) Equal(o Histogram) bool {
	return slices.Equal(h, o)
}

// Clone returns a copy of h.
func (h Histogram) Clone() Histogram {
	return slices.Clone(h)
}

// Total returns the sum of all bins.
func (h Histogram) Total() uint64 {
	var n uint64
	for _, v := range h {
		n += v
	}
	return n
}

// Compute bins every component value of a decoded brick. Integer types are
// binned over their full representable range, float32 over [0,1] with values
// outside clamped to the edge bins.
func Compute(data []byte, dt model.DataType, bins int) (Histogram, error) {
	if bins <= 0 {
		return nil, ErrBins
	}
	width := dt.Size()
	if width == 0 {
		return nil, fmt.Errorf("histogram: unsupported data type %s", dt)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("histogram: %d bytes is not a multiple of %s", len(data), dt)
	}

	lo, hi := dt.Range()
	if dt == model.DataTypeFloat32 {
		lo, hi = 0, 1
	}
	scale := float64(bins) / (hi - lo)

	h := make(Histogram, bins)
	for off := 0; off < len(data); off += width {
		v := value(data[off:off+width], dt)
		i := int((v - lo) * scale)
		h[min(max(i, 0), bins-1)]++
	}
	return h, nil
}

func value(b []byte, dt model.DataType) float64 {
	switch dt {
	case model.DataTypeUint8:
		return float64(b[0])
	case model.DataTypeInt8:
		return float64(int8(b[0]))
	case model.DataTypeUint16:
		return float64(binary.LittleEndian.Uint16(b))
	case model.DataTypeInt16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case model.DataTypeUint32:
		return float64(binary.LittleEndian.Uint32(b))
	case model.DataTypeInt32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case model.DataTypeFloat32:
		v := float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		if math.IsNaN(v) {
			return 0
		}
		return v
	default:
		return 0
	}
}
