package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors shared by the gateway and its two services.
type Metrics struct {
	BackendCalls     *prometheus.CounterVec   // per backend name and outcome
	BackendSeconds   *prometheus.HistogramVec // per backend name
	GeocodeRequests  *prometheus.CounterVec   // per result (ok, invalid, low_confidence)
	StationRefreshes *prometheus.CounterVec   // per result (ok, fetch_error, integrity_error)
	StationsCached   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		BackendCalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "velodash_backend_calls_total",
			Help: "Total number of calls issued to backend microservices.",
		}, []string{"backend", "outcome"}),
		BackendSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "velodash_backend_call_duration_seconds",
			Help:    "Duration of calls to backend microservices.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),
		GeocodeRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "velodash_geocode_requests_total",
			Help: "Total number of address geocoding requests.",
		}, []string{"result"}),
		StationRefreshes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "velodash_station_refreshes_total",
			Help: "Total number of station dataset refresh attempts.",
		}, []string{"result"}),
		StationsCached: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "velodash_stations_cached",
			Help: "Number of stations in the current snapshot.",
		}),
	}
}
