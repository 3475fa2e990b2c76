// Package source provides octree volumes to the brick tiers.
//
// A packed volume is a manifest blob describing every node of the octree and
// a data blob holding the encoded payloads back to back. Payloads are read by
// extent, decompressed and handed to the data tier as raw voxels.
package source

import (
	"context"
	"errors"

	"github.com/hupe1980/brickstream/model"
)

var (
	// ErrUnknownBrick is returned for ids that are not nodes of the volume.
	ErrUnknownBrick = errors.New("source: unknown brick")
	// ErrFormat is returned when a manifest cannot be understood.
	ErrFormat = errors.New("source: invalid volume format")
)

// VolumeSource provides the metadata and payloads of one volume. All methods
// must be safe for concurrent use; FetchPayload runs on fill workers.
type VolumeSource interface {
	Info() model.VolumeInfo
	Node(id model.BrickID) (model.LODNode, bool)
	FetchPayload(ctx context.Context, id model.BrickID) ([]byte, error)
}
