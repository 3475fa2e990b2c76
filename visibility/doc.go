// Package visibility orders the bricks of a frame and picks the ray sample
// rate.
//
// Bricks are drawn front to back so early ray termination can skip what lies
// behind opaque content; the order is stable so identical frames issue
// identical draw sequences. Select is a reference screen-space-error LOD
// selector for callers that have no selector of their own.
package visibility

import "github.com/hupe1980/brickstream/model"

// NodeLookup resolves brick ids to octree nodes.
type NodeLookup interface {
	Node(id model.BrickID) (model.LODNode, bool)
}
