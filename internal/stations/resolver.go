package stations

import (
	"context"

	"github.com/velodash/velodash/internal/geo"
)

// DefaultNearestCount is how many stations a lookup returns unless the caller
// asks for a different k.
const DefaultNearestCount = 3

// Resolver answers nearest-station queries against the cached snapshot. It is
// a pure composition of the cache and the geo primitives; cache failures
// propagate unchanged.
type Resolver struct {
	cache *Cache
}

func NewResolver(cache *Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Nearest returns the k stations closest to origin, nearest first, carrying
// their current bike and dock counts.
func (r *Resolver) Nearest(ctx context.Context, origin geo.Point, k int) ([]Station, error) {
	snap, err := r.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	ranked := geo.SelectNearest(snap.Points(), origin, k)
	nearest := make([]Station, len(ranked))
	for i, entry := range ranked {
		nearest[i] = snap.Stations[entry.Index]
	}
	return nearest, nil
}
