package weatherservice

import (
	"time"

	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/weather"
)

type Deps struct {
	Logger         logger.Logger
	Weather        *weather.Client
	Version        string
	DefaultAddress string           // address used when ?address= is omitted
	TimeNow        func() time.Time // for testing, defaults to time.Now
}

func (d Deps) now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
