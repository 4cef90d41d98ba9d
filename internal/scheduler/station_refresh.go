package scheduler

import (
	"context"
	"time"

	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/stations"
)

// StationRefresher refreshes the station snapshot on demand and, when an
// interval is configured, periodically. With interval 0 the cache keeps
// serving the snapshot from its first lazy fetch, which matches the default
// deployment: station capacity data barely moves intra-day.
type StationRefresher struct {
	cache         *stations.Cache
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewStationRefresher creates a new station refresher
func NewStationRefresher(
	cache *stations.Cache,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *StationRefresher {
	return &StationRefresher{
		cache:         cache,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the refresh loop. No initial fetch happens here: the cache
// loads lazily on first use so a dead feed cannot block startup.
func (sr *StationRefresher) Start(ctx context.Context) {
	var tick <-chan time.Time
	var ticker *time.Ticker
	if sr.interval > 0 {
		ticker = time.NewTicker(sr.interval)
		tick = ticker.C
	}

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				sr.refresh(ctx)
			case <-sr.manualTrigger:
				sr.logger.Info("manual station refresh triggered")
				sr.refresh(ctx)
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the refresher
func (sr *StationRefresher) Stop() {
	close(sr.stopCh)
}

func (sr *StationRefresher) refresh(ctx context.Context) {
	snap, err := sr.cache.Refresh(ctx)
	if err != nil {
		// The cache keeps its last good snapshot on failure.
		sr.logger.Error("station refresh failed", logger.Error(err))
		return
	}
	sr.logger.Info("station snapshot refreshed",
		logger.Int("stations", len(snap.Stations)))
}
