package weatherservice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/velodash/velodash/internal/geocode"
	"github.com/velodash/velodash/internal/logger"
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
			Service: "velodash-weather",
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
			Service:   "weather",
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

// WeatherInfo resolves an address and returns the current weather there.
// A geocoding confidence rejection is a well-formed answer about the caller's
// input, not a failure: it is reported with status 200.
func WeatherInfo(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := strings.TrimSpace(r.URL.Query().Get("address"))
		if address == "" {
			address = d.DefaultAddress
		}

		report, err := d.Weather.GetWeather(r.Context(), address)
		if err != nil {
			writeGeocodeError(w, d.Logger, address, err)
			return
		}

		writeJSON(w, http.StatusOK, report)
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
