package bikeservice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/velodash/velodash/internal/geocode"
	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/stations"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type rootResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func Root(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rootResponse{
			Service: "velodash-bikes",
			Version: d.Version,
			Status:  "running",
		})
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

func Health(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "healthy",
			Timestamp: d.now(),
			Service:   "bikes",
		})
	}
}

type rejectionResponse struct {
	Error             string  `json:"error"`
	Address           string  `json:"address"`
	ConfidenceScore   float64 `json:"confidence_score"`
	RequiredThreshold float64 `json:"required_threshold"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type nearestResponse struct {
	Address     string             `json:"address"`
	Coordinates [2]float64         `json:"coordinates"`
	Stations    []stations.Station `json:"stations"`
}

// NearestStations geocodes an address and returns the closest stations with
// their live availability.
func NearestStations(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := strings.TrimSpace(r.URL.Query().Get("address"))
		if address == "" {
			address = d.DefaultAddress
		}

		loc, err := d.Geocoder.Geocode(r.Context(), address)
		if err != nil {
			writeGeocodeError(w, d.Logger, address, err)
			return
		}

		nearest, err := d.Resolver.Nearest(r.Context(), loc.Point, d.nearestCount())
		if err != nil {
			d.Logger.Error("station lookup failed",
				logger.String("address", address),
				logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "station data unavailable"})
			return
		}

		writeJSON(w, http.StatusOK, nearestResponse{
			Address:     address,
			Coordinates: [2]float64{loc.Point.Lat, loc.Point.Lon},
			Stations:    nearest,
		})
	}
}

// RefreshStations triggers an immediate snapshot refresh.
func RefreshStations(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.RefreshTrigger <- struct{}{}:
			d.Logger.Info("manual station refresh triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh triggered"})
		default:
			d.Logger.Warn("station refresh already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "refresh already in progress"})
		}
	}
}

func writeGeocodeError(w http.ResponseWriter, log logger.Logger, address string, err error) {
	var confidence *geocode.ConfidenceError
	if errors.As(err, &confidence) {
		log.Info("address rejected on low geocoding confidence",
			logger.String("address", address),
			logger.Float64("confidence", confidence.Confidence))
		writeJSON(w, http.StatusOK, rejectionResponse{
			Error:             "address could not be resolved with sufficient confidence",
			Address:           address,
			ConfidenceScore:   confidence.Confidence,
			RequiredThreshold: confidence.Threshold,
		})
		return
	}

	var invalid *geocode.InvalidResponseError
	if errors.As(err, &invalid) {
		status := invalid.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		log.Warn("geocoding upstream returned an unusable response",
			logger.String("address", address),
			logger.Int("status", invalid.Status))
		writeJSON(w, status, errorResponse{Error: "address lookup failed"})
		return
	}

	log.Error("request failed", logger.String("address", address), logger.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
