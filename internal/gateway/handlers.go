package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/orchestrator"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type rootResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

func Root(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rootResponse{
			Service:   "velodash-gateway",
			Version:   d.Version,
			Status:    "running",
			Endpoints: []string{"/health", "/get_dashboard_data", "/metrics"},
		})
	}
}

type healthResponse struct {
	GatewayService      string                              `json:"gateway_service"`
	GatewayStatus       int                                 `json:"gateway_status"`
	Timestamp           time.Time                           `json:"timestamp"`
	MicroservicesHealth map[string]orchestrator.HealthEntry `json:"microservices_health"`
}

// Health rolls up every backend's health. The HTTP status mirrors the
// aggregate: 200 when all backends are healthy, 207 otherwise.
func Health(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agg := d.Orch.AggregateHealth(r.Context())

		label := "healthy"
		if agg.GatewayStatus != http.StatusOK {
			label = "degraded"
		}

		writeJSON(w, agg.GatewayStatus, healthResponse{
			GatewayService:      label,
			GatewayStatus:       agg.GatewayStatus,
			Timestamp:           agg.Timestamp,
			MicroservicesHealth: agg.Backends,
		})
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Backend string `json:"backend,omitempty"`
	Status  int    `json:"status,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// DashboardData fetches bikes and weather concurrently and merges them.
// Any sub-request failure fails the whole response: partial dashboards are
// never served.
func DashboardData(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := strings.TrimSpace(r.URL.Query().Get("address"))
		if address == "" {
			address = d.DefaultAddress
		}

		dash, err := d.Orch.DashboardData(r.Context(), address)
		if err != nil {
			var upstream *orchestrator.UpstreamError
			if errors.As(err, &upstream) {
				d.Logger.Warn("dashboard fetch failed",
					logger.String("backend", upstream.Backend),
					logger.Int("status", upstream.Status),
					logger.String("detail", upstream.Detail))
				writeJSON(w, http.StatusBadGateway, errorResponse{
					Error:   "backend request failed",
					Backend: upstream.Backend,
					Status:  upstream.Status,
					Detail:  upstream.Detail,
				})
				return
			}
			d.Logger.Error("dashboard fetch failed", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			return
		}

		writeJSON(w, http.StatusOK, dash)
	}
}
