package stations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/metrics"
)

// DefaultDropFields are dataset fields the queries never use; they are removed
// from the joined record instead of being passed through.
var DefaultDropFields = []string{
	"rental_methods",
	"station_opening_hours",
	"numBikesAvailable",
	"numDocksAvailable",
	"is_installed",
	"is_returning",
	"last_reported",
}

// HTTPClient is the subset of http.Client the cache needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SnapshotStore persists snapshots outside the process, best effort. The cache
// never depends on it for correctness.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
}

// Cache fetches the station info and status feeds, joins them into an
// immutable Snapshot and serves that snapshot to concurrent readers. The
// default policy is fetch once, reuse indefinitely; callers refresh
// explicitly (or through the scheduler) when they want newer data.
type Cache struct {
	client    HTTPClient
	infoURL   string
	statusURL string
	drop      map[string]struct{}
	store     SnapshotStore
	log       logger.Logger
	metrics   *metrics.Metrics

	mu   sync.Mutex // serializes refreshes
	snap atomic.Pointer[Snapshot]
}

type Options struct {
	InfoURL    string
	StatusURL  string
	DropFields []string // nil means DefaultDropFields
	Timeout    time.Duration
	Client     HTTPClient    // optional, overrides Timeout
	Store      SnapshotStore // optional
}

func NewCache(opts Options, log logger.Logger, m *metrics.Metrics) *Cache {
	fields := opts.DropFields
	if fields == nil {
		fields = DefaultDropFields
	}
	drop := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		drop[f] = struct{}{}
	}

	httpClient := opts.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Cache{
		client:    httpClient,
		infoURL:   opts.InfoURL,
		statusURL: opts.StatusURL,
		drop:      drop,
		store:     opts.Store,
		log:       log,
		metrics:   m,
	}
}

// Get returns the current snapshot, fetching it on first use. Subsequent
// calls return the cached snapshot without touching the network.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if snap := c.snap.Load(); snap != nil {
		return snap, nil
	}
	return c.Refresh(ctx)
}

// Current returns the cached snapshot without triggering a fetch. It is nil
// until the first successful refresh (or warm start).
func (c *Cache) Current() *Snapshot {
	return c.snap.Load()
}

// Prime installs a previously persisted snapshot, but only when the cache is
// still empty. Used at startup to warm-start from Redis.
func (c *Cache) Prime(snap *Snapshot) bool {
	if snap == nil {
		return false
	}
	return c.snap.CompareAndSwap(nil, snap)
}

// Refresh fetches both feeds, joins them and atomically replaces the
// snapshot. On any failure the previous snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := c.fetch(ctx, c.infoURL)
	if err != nil {
		c.metrics.StationRefreshes.WithLabelValues("fetch_error").Inc()
		return nil, err
	}
	status, err := c.fetch(ctx, c.statusURL)
	if err != nil {
		c.metrics.StationRefreshes.WithLabelValues("fetch_error").Inc()
		return nil, err
	}

	joined, err := c.join(info, status)
	if err != nil {
		c.metrics.StationRefreshes.WithLabelValues("integrity_error").Inc()
		c.log.Error("station refresh aborted", logger.Error(err))
		return nil, err
	}

	snap := &Snapshot{Stations: joined, FetchedAt: time.Now().UTC()}
	c.snap.Store(snap)

	c.metrics.StationRefreshes.WithLabelValues("ok").Inc()
	c.metrics.StationsCached.Set(float64(len(joined)))
	c.log.Info("station snapshot refreshed",
		logger.Int("stations", len(joined)),
		logger.Time("fetched_at", snap.FetchedAt))

	// Persist for warm starts, best effort.
	if c.store != nil {
		if err := c.store.SaveSnapshot(ctx, snap); err != nil {
			c.log.Warn("failed to persist station snapshot", logger.Error(err))
		}
	}

	return snap, nil
}

// stationsPayload mirrors the GBFS-style envelope of both feeds.
type stationsPayload struct {
	Data struct {
		Stations []map[string]any `json:"stations"`
	} `json:"data"`
}

func (c *Cache) fetch(ctx context.Context, rawURL string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &DataSourceError{URL: rawURL, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &DataSourceError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &DataSourceError{URL: rawURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber() // keep station ids exact, they may be large integers
	var payload stationsPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, &DataSourceError{URL: rawURL, Err: err}
	}

	return payload.Data.Stations, nil
}

// join merges the two feeds positionally, asserting id equality at each
// index. A mismatch is fatal for the whole refresh: a silent skip would hide
// a desynchronized dataset.
func (c *Cache) join(info, status []map[string]any) ([]Station, error) {
	if len(info) != len(status) {
		shorter := len(info)
		if len(status) < shorter {
			shorter = len(status)
		}
		return nil, &IntegrityError{Index: shorter}
	}

	joined := make([]Station, 0, len(info))
	for i := range info {
		infoID := stringID(info[i]["station_id"])
		statusID := stringID(status[i]["station_id"])
		if infoID == "" || infoID != statusID {
			return nil, &IntegrityError{Index: i, InfoID: infoID, StatusID: statusID}
		}

		mechanical, electrical := bikeCounts(status[i]["num_bikes_available_types"])

		merged := make(map[string]any, len(info[i])+len(status[i]))
		for k, v := range info[i] {
			merged[k] = v
		}
		for k, v := range status[i] {
			merged[k] = v
		}
		delete(merged, "num_bikes_available_types") // consumed above

		station := Station{
			ID:         infoID,
			Mechanical: mechanical,
			Electrical: electrical,
		}
		station.Name, _ = merged["name"].(string)
		station.Point.Lat, _ = asFloat(merged["lat"])
		station.Point.Lon, _ = asFloat(merged["lon"])
		station.Capacity, _ = asInt(merged["capacity"])
		station.DocksAvailable, _ = asInt(merged["num_docks_available"])

		for _, key := range []string{"station_id", "name", "lat", "lon", "capacity", "num_docks_available"} {
			delete(merged, key)
		}
		for key := range c.drop {
			delete(merged, key)
		}
		if len(merged) > 0 {
			station.Extra = merged
		}

		joined = append(joined, station)
	}

	return joined, nil
}

// bikeCounts unpacks the nested num_bikes_available_types field, a list of
// single-key objects like [{"mechanical": 3}, {"ebike": 1}].
func bikeCounts(v any) (mechanical, electrical int) {
	entries, ok := v.([]any)
	if !ok {
		return 0, 0
	}
	for _, entry := range entries {
		counts, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if n, ok := asInt(counts["mechanical"]); ok {
			mechanical = n
		}
		if n, ok := asInt(counts["ebike"]); ok {
			electrical = n
		}
	}
	return mechanical, electrical
}
