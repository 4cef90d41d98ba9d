package gateway

import (
	"net/http"
	"time"

	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/orchestrator"
)

type Deps struct {
	Logger         logger.Logger
	Orch           *orchestrator.Orchestrator
	Version        string
	DefaultAddress string           // address used when ?address= is omitted
	Metrics        http.Handler     // Prometheus exposition handler
	TimeNow        func() time.Time // for testing, defaults to time.Now
}

func (d Deps) now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
