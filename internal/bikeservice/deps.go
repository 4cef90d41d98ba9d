package bikeservice

import (
	"time"

	"github.com/velodash/velodash/internal/geocode"
	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/stations"
)

type Deps struct {
	Logger         logger.Logger
	Geocoder       *geocode.Client
	Resolver       *stations.Resolver
	RefreshTrigger chan struct{}      // channel to trigger a manual snapshot refresh
	Version        string
	DefaultAddress string             // address used when ?address= is omitted
	NearestCount   int                // stations returned per lookup
	TimeNow        func() time.Time   // for testing, defaults to time.Now
}

func (d Deps) now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

func (d Deps) nearestCount() int {
	if d.NearestCount > 0 {
		return d.NearestCount
	}
	return stations.DefaultNearestCount
}
