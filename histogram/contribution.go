package histogram

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hupe1980/brickstream/codec"
)

// ErrInvalidContribution is returned when a decoded contribution lacks a node
// identity or histogram.
var ErrInvalidContribution = errors.New("histogram: invalid contribution")

// Contribution is the message one render node sends per frame.
type Contribution struct {
	Node      uuid.UUID `json:"node"`
	FrameID   uint32    `json:"frame_id"`
	Area      float32   `json:"area"`
	Histogram Histogram `json:"histogram"`
}

// EncodeContribution encodes c with cd (codec.Default if nil).
func EncodeContribution(cd codec.Codec, c Contribution) ([]byte, error) {
	if cd == nil {
		cd = codec.Default
	}
	return cd.Marshal(c)
}

// DecodeContribution decodes and validates a contribution.
func DecodeContribution(cd codec.Codec, data []byte) (Contribution, error) {
	if cd == nil {
		cd = codec.Default
	}
	var c Contribution
	if err := cd.Unmarshal(data, &c); err != nil {
		return Contribution{}, fmt.Errorf("histogram: decode contribution: %w", err)
	}
	if c.Node == uuid.Nil {
		return Contribution{}, fmt.Errorf("%w: missing node", ErrInvalidContribution)
	}
	if len(c.Histogram) == 0 {
		return Contribution{}, fmt.Errorf("%w: empty histogram", ErrInvalidContribution)
	}
	return c, nil
}
