package geo

import (
	"math"
	"sort"
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within the usual coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Distance returns the Euclidean (L2) distance between a and b, treating both
// coordinate pairs as plain 2-vectors. This is not a geodesic distance and is
// only a reasonable approximation over short spans, which is all the
// nearest-station lookup needs.
func Distance(a, b Point) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon)
}

// Ranked pairs a point's original index with its distance from an origin.
type Ranked struct {
	Index    int
	Distance float64
}

// SelectNearest returns the k points closest to origin, ascending by distance.
// Equal distances keep their original relative order. k <= 0 yields an empty
// result; k larger than the input yields every point sorted.
//
// A full stable sort is deliberate: the expected input is a few hundred
// stations, where sorting beats the bookkeeping of a partial selection.
func SelectNearest(points []Point, origin Point, k int) []Ranked {
	if k <= 0 || len(points) == 0 {
		return nil
	}

	ranked := make([]Ranked, len(points))
	for i, p := range points {
		ranked[i] = Ranked{Index: i, Distance: Distance(origin, p)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
