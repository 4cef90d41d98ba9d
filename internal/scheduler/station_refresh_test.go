package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/metrics"
	"github.com/velodash/velodash/internal/stations"
)

const (
	infoFeed = `{"data":{"stations":[
		{"station_id":101,"name":"Charonne","lat":48.8531,"lon":2.3803,"capacity":20}
	]}}`
	statusFeed = `{"data":{"stations":[
		{"station_id":101,"num_bikes_available_types":[{"mechanical":3},{"ebike":2}],"num_docks_available":15}
	]}}`
)

func newCache(t *testing.T) (*stations.Cache, *atomic.Int64) {
	t.Helper()

	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if strings.HasSuffix(r.URL.Path, "/info") {
			_, _ = w.Write([]byte(infoFeed))
			return
		}
		_, _ = w.Write([]byte(statusFeed))
	}))
	t.Cleanup(srv.Close)

	cache := stations.NewCache(stations.Options{
		InfoURL:   srv.URL + "/info",
		StatusURL: srv.URL + "/status",
	}, logger.NewNop(), metrics.New(prometheus.NewRegistry()))
	return cache, &fetches
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestManualTriggerRefreshes(t *testing.T) {
	cache, fetches := newCache(t)
	trigger := make(chan struct{}, 1)

	sr := NewStationRefresher(cache, logger.NewNop(), 0, trigger)
	sr.Start(context.Background())
	defer sr.Stop()

	if fetches.Load() != 0 {
		t.Fatalf("refresher fetched on start, want lazy behavior")
	}

	trigger <- struct{}{}
	waitFor(t, func() bool { return cache.Current() != nil })

	snap := cache.Current()
	if len(snap.Stations) != 1 {
		t.Fatalf("got %d stations, want 1", len(snap.Stations))
	}
}

func TestPeriodicRefresh(t *testing.T) {
	cache, fetches := newCache(t)

	sr := NewStationRefresher(cache, logger.NewNop(), 20*time.Millisecond, make(chan struct{}))
	sr.Start(context.Background())
	defer sr.Stop()

	// Two feeds per refresh; wait for at least two full refresh cycles.
	waitFor(t, func() bool { return fetches.Load() >= 4 })
}

func TestStopHaltsLoop(t *testing.T) {
	cache, fetches := newCache(t)

	sr := NewStationRefresher(cache, logger.NewNop(), 10*time.Millisecond, make(chan struct{}))
	sr.Start(context.Background())
	waitFor(t, func() bool { return fetches.Load() >= 2 })
	sr.Stop()

	time.Sleep(30 * time.Millisecond)
	before := fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if fetches.Load() != before {
		t.Error("refresh loop kept running after Stop")
	}
}
