package stations

import (
	"context"
	"errors"
	"testing"

	"github.com/velodash/velodash/internal/geo"
)

func primedResolver(t *testing.T, snap *Snapshot) *Resolver {
	t.Helper()
	fs := newFeedServer()
	fs.Close() // any fetch attempt would fail loudly

	cache := newTestCache(fs, nil)
	if !cache.Prime(snap) {
		t.Fatal("failed to prime cache")
	}
	return NewResolver(cache)
}

func TestNearestReturnsClosestStationsFirst(t *testing.T) {
	snap := &Snapshot{Stations: []Station{
		{ID: "far", Point: geo.Point{Lat: 48.9, Lon: 2.5}},
		{ID: "closest", Point: geo.Point{Lat: 48.8529, Lon: 2.3856}},
		{ID: "second", Point: geo.Point{Lat: 48.8540, Lon: 2.3870}},
		{ID: "third", Point: geo.Point{Lat: 48.8600, Lon: 2.3900}},
	}}
	resolver := primedResolver(t, snap)

	origin := geo.Point{Lat: 48.852835, Lon: 2.385478}
	got, err := resolver.Nearest(context.Background(), origin, 3)
	if err != nil {
		t.Fatalf("Nearest() error = %v", err)
	}

	wantIDs := []string{"closest", "second", "third"}
	if len(got) != len(wantIDs) {
		t.Fatalf("Nearest() returned %d stations, want %d", len(got), len(wantIDs))
	}
	for i, station := range got {
		if station.ID != wantIDs[i] {
			t.Errorf("station[%d].ID = %q, want %q", i, station.ID, wantIDs[i])
		}
	}
}

func TestNearestKExceedsSnapshot(t *testing.T) {
	snap := &Snapshot{Stations: []Station{
		{ID: "a", Point: geo.Point{Lat: 1, Lon: 1}},
		{ID: "b", Point: geo.Point{Lat: 2, Lon: 2}},
	}}
	resolver := primedResolver(t, snap)

	got, err := resolver.Nearest(context.Background(), geo.Point{}, 10)
	if err != nil {
		t.Fatalf("Nearest() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Nearest() returned %d stations, want all 2", len(got))
	}
}

func TestNearestPropagatesCacheFailure(t *testing.T) {
	fs := newFeedServer()
	fs.Close()

	resolver := NewResolver(newTestCache(fs, nil))
	_, err := resolver.Nearest(context.Background(), geo.Point{}, 3)

	var srcErr *DataSourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("Nearest() error = %v, want *DataSourceError", err)
	}
}
