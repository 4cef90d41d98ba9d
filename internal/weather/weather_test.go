package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velodash/velodash/internal/geocode"
	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/metrics"
)

const forecastFixture = `{
	"generationtime_ms": 0.23456789,
	"timezone_abbreviation": "CEST",
	"current_weather": {
		"temperature": 21.5,
		"windspeed": 11.2,
		"winddirection": 230,
		"weathercode": 3,
		"is_day": 1,
		"time": "2026-08-30T14:00",
		"interval": 900
	},
	"elevation": 44.0
}`

func newBANServer(t *testing.T, score float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"features": [{
				"geometry": {"coordinates": [2.385478, 48.852835]},
				"properties": {"score": %f, "postcode": "75011", "_type": "housenumber"}
			}]
		}`, score)
	}))
}

func newWeatherClient(t *testing.T, banURL, forecastURL string) *Client {
	t.Helper()
	geocoder := geocode.New(geocode.Options{BaseURL: banURL},
		logger.NewNop(), metrics.New(prometheus.NewRegistry()))
	return New(Options{BaseURL: forecastURL}, geocoder, logger.NewNop())
}

func TestGetWeatherFlattensAndRenames(t *testing.T) {
	ban := newBANServer(t, 0.95)
	defer ban.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("current_weather") != "true" {
			t.Errorf("current_weather param = %q, want true", q.Get("current_weather"))
		}
		if q.Get("timezone") != DefaultTimezone {
			t.Errorf("timezone param = %q, want %s", q.Get("timezone"), DefaultTimezone)
		}
		if q.Get("latitude") == "" || q.Get("longitude") == "" {
			t.Error("latitude/longitude params missing")
		}
		fmt.Fprint(w, forecastFixture)
	}))
	defer forecast.Close()

	client := newWeatherClient(t, ban.URL, forecast.URL)
	report, err := client.GetWeather(context.Background(), "1 rue de Charonne, 75011")
	if err != nil {
		t.Fatalf("GetWeather() error = %v", err)
	}

	if report.Coordinates != [2]float64{48.852835, 2.385478} {
		t.Errorf("coordinates = %v", report.Coordinates)
	}
	if report.Address != "1 rue de Charonne, 75011" {
		t.Errorf("address = %q", report.Address)
	}
	// generationtime_ms arrives renamed and rounded to 4 decimals.
	if math.Abs(report.RuntimeMS-0.2346) > 1e-9 {
		t.Errorf("RuntimeMS = %v, want 0.2346", report.RuntimeMS)
	}
	if report.Temperature != 21.5 || report.WindSpeed != 11.2 || report.WindDir != 230 {
		t.Errorf("current weather fields wrong: %+v", report)
	}
	if report.Timezone != "CEST" {
		t.Errorf("Timezone = %q, want CEST (renamed from timezone_abbreviation)", report.Timezone)
	}
	if report.WeatherCode != 3 || report.IsDay != 1 {
		t.Errorf("weather code/is_day wrong: %+v", report)
	}

	// The wire format carries the renamed keys and drops interval.
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"public_weather_api_runtime_ms", "wind_direction", "wind_speed", "weather_code", "timezone"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("report JSON missing key %q", key)
		}
	}
	if _, ok := wire["interval"]; ok {
		t.Error("interval must not survive formatting")
	}
}

func TestGetWeatherPropagatesGeocodeErrors(t *testing.T) {
	ban := newBANServer(t, 0.5)
	defer ban.Close()

	client := newWeatherClient(t, ban.URL, "http://unused")
	_, err := client.GetWeather(context.Background(), "rue inconnue")

	var confErr *geocode.ConfidenceError
	if !errors.As(err, &confErr) {
		t.Fatalf("GetWeather() error = %v, want *geocode.ConfidenceError unchanged", err)
	}
}

func TestGetWeatherUpstreamFailure(t *testing.T) {
	ban := newBANServer(t, 0.95)
	defer ban.Close()

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer forecast.Close()

	client := newWeatherClient(t, ban.URL, forecast.URL)
	if _, err := client.GetWeather(context.Background(), "1 rue de Charonne, 75011"); err == nil {
		t.Fatal("GetWeather() should fail when the forecast API is down")
	}
}
