package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    Point
		b    Point
		want float64
	}{
		{
			name: "3-4-5 triangle",
			a:    Point{Lat: 0, Lon: 0},
			b:    Point{Lat: 3, Lon: 4},
			want: 5,
		},
		{
			name: "same point",
			a:    Point{Lat: 48.852835, Lon: 2.385478},
			b:    Point{Lat: 48.852835, Lon: 2.385478},
			want: 0,
		},
		{
			name: "symmetric",
			a:    Point{Lat: -1, Lon: 2},
			b:    Point{Lat: 2, Lon: -2},
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Distance() = %v, want %v", got, tt.want)
			}
			if rev := Distance(tt.b, tt.a); rev != got {
				t.Errorf("Distance() not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestSelectNearestOrdering(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}
	points := []Point{
		{Lat: 0, Lon: 5},
		{Lat: 1, Lon: 0},
		{Lat: 0, Lon: 3},
		{Lat: 2, Lon: 0},
	}

	got := SelectNearest(points, origin, 3)
	if len(got) != 3 {
		t.Fatalf("SelectNearest() returned %d results, want 3", len(got))
	}

	wantIndices := []int{1, 3, 2}
	for i, r := range got {
		if r.Index != wantIndices[i] {
			t.Errorf("result[%d].Index = %d, want %d", i, r.Index, wantIndices[i])
		}
	}

	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("results not sorted ascending: %v before %v", got[i-1].Distance, got[i].Distance)
		}
	}
}

func TestSelectNearestTiesAreStable(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}
	// Indices 0, 2 and 3 are all at distance 1 from the origin.
	points := []Point{
		{Lat: 1, Lon: 0},
		{Lat: 0, Lon: 9},
		{Lat: 0, Lon: 1},
		{Lat: -1, Lon: 0},
	}

	got := SelectNearest(points, origin, 4)
	wantIndices := []int{0, 2, 3, 1}
	for i, r := range got {
		if r.Index != wantIndices[i] {
			t.Errorf("result[%d].Index = %d, want %d (ties must keep input order)", i, r.Index, wantIndices[i])
		}
	}
}

func TestSelectNearestBounds(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}
	points := []Point{
		{Lat: 1, Lon: 1},
		{Lat: 2, Lon: 2},
	}

	tests := []struct {
		name    string
		points  []Point
		k       int
		wantLen int
	}{
		{name: "k zero", points: points, k: 0, wantLen: 0},
		{name: "k negative", points: points, k: -3, wantLen: 0},
		{name: "k exceeds input", points: points, k: 10, wantLen: len(points)},
		{name: "empty input", points: nil, k: 3, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectNearest(tt.points, origin, tt.k)
			if len(got) != tt.wantLen {
				t.Errorf("SelectNearest() returned %d results, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{name: "paris", point: Point{Lat: 48.852835, Lon: 2.385478}, want: true},
		{name: "latitude out of range", point: Point{Lat: 91, Lon: 0}, want: false},
		{name: "longitude out of range", point: Point{Lat: 0, Lon: -181}, want: false},
		{name: "boundaries", point: Point{Lat: -90, Lon: 180}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.point.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
