package pipeline

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/picogfx/objcache"
)

// geomCache amortizes the cost of repeated identical circular shapes
// (rounded-corner borders draw the same radius four times per widget). It
// caches quarter-circle horizontal extents per radius, bounded by entry
// count.
type geomCache struct {
	cache *objcache.Cache[int, []int16]
}

// newGeomCache creates a geometry cache holding at most capacity radii.
func newGeomCache(capacity int) *geomCache {
	return &geomCache{cache: objcache.New[int, []int16](int64(capacity))}
}

// extents returns, for each vertical offset dy in [0, r], the largest dx
// such that (dx, dy) lies inside the circle of radius r. The table is the
// first quadrant; the other three follow by symmetry. The returned handle
// must be released after the shape is drawn.
func (g *geomCache) extents(r int) (*objcache.Handle[int, []int16], error) {
	return g.cache.GetOrInsert(r, func() ([]int16, int64, error) {
		table := make([]int16, r+1)
		rr := float32(r) * float32(r)
		for dy := 0; dy <= r; dy++ {
			dx := math32.Sqrt(rr - float32(dy)*float32(dy))
			table[dy] = int16(dx)
		}
		return table, 1, nil
	})
}

// stats returns geometry cache statistics.
func (g *geomCache) stats() objcache.Stats { return g.cache.Stats() }
