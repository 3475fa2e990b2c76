package visibility

import (
	"cmp"
	"slices"

	"github.com/hupe1980/brickstream/model"
)

type ranked struct {
	id    model.BrickID
	dist  float64
	known bool
}

// Order returns candidates sorted by ascending eye distance of their world
// box centers. Ties keep input order; ids without a node sort last, also in
// input order.
func Order(candidates []model.BrickID, nodes NodeLookup, f model.Frustum) []model.BrickID {
	rs := make([]ranked, len(candidates))
	for i, id := range candidates {
		rs[i].id = id
		if n, ok := nodes.Node(id); ok {
			rs[i].dist = f.EyeDistance(n.WorldBox.Center())
			rs[i].known = true
		}
	}

	slices.SortStableFunc(rs, func(a, b ranked) int {
		if a.known != b.known {
			if a.known {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.dist, b.dist)
	})

	out := make([]model.BrickID, len(rs))
	for i, r := range rs {
		out[i] = r.id
	}
	return out
}
