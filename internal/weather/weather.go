package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/velodash/velodash/internal/geocode"
	"github.com/velodash/velodash/internal/logger"
)

// DefaultTimezone is passed to the forecast API; the addresses the gateway
// serves are Paris addresses.
const DefaultTimezone = "Europe/Paris"

// HTTPClient is the subset of http.Client the weather client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Report is the flattened current-weather payload for one address.
type Report struct {
	Coordinates [2]float64 `json:"coordinates"` // [lat, lon]
	Address     string     `json:"address"`
	RuntimeMS   float64    `json:"public_weather_api_runtime_ms"`
	Time        string     `json:"time"`
	Temperature float64    `json:"temperature"`
	IsDay       int        `json:"is_day"`
	Timezone    string     `json:"timezone"`
	WindDir     float64    `json:"wind_direction"`
	WindSpeed   float64    `json:"wind_speed"`
	WeatherCode int        `json:"weather_code"`
}

// forecastResponse keeps only the fields the report is built from; everything
// else the forecast API returns is discarded by the decoder.
type forecastResponse struct {
	GenerationTimeMS     float64 `json:"generationtime_ms"`
	TimezoneAbbreviation string  `json:"timezone_abbreviation"`
	CurrentWeather       struct {
		Temperature   float64 `json:"temperature"`
		WindSpeed     float64 `json:"windspeed"`
		WindDirection float64 `json:"winddirection"`
		WeatherCode   int     `json:"weathercode"`
		IsDay         int     `json:"is_day"`
		Time          string  `json:"time"`
		// interval is intentionally absent: it never reaches the report.
	} `json:"current_weather"`
}

// Client resolves an address and fetches its current weather from the
// open-meteo forecast API. Stateless; safe for concurrent use.
type Client struct {
	http     HTTPClient
	baseURL  string
	timezone string
	geocoder *geocode.Client
	log      logger.Logger
}

type Options struct {
	BaseURL  string
	Timezone string // zero means DefaultTimezone
	Timeout  time.Duration
	Client   HTTPClient // optional, overrides Timeout
}

func New(opts Options, geocoder *geocode.Client, log logger.Logger) *Client {
	timezone := opts.Timezone
	if timezone == "" {
		timezone = DefaultTimezone
	}
	httpClient := opts.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		http:     httpClient,
		baseURL:  opts.BaseURL,
		timezone: timezone,
		geocoder: geocoder,
		log:      log,
	}
}

// GetWeather geocodes the address and returns its flattened current weather.
// Geocoding failures propagate unchanged so the HTTP layer can map them.
func (c *Client) GetWeather(ctx context.Context, address string) (*Report, error) {
	located, err := c.geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	forecast, err := c.fetchForecast(ctx, located.Point.Lat, located.Point.Lon)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Coordinates: [2]float64{located.Point.Lat, located.Point.Lon},
		Address:     address,
		RuntimeMS:   math.Round(forecast.GenerationTimeMS*1e4) / 1e4,
		Time:        forecast.CurrentWeather.Time,
		Temperature: forecast.CurrentWeather.Temperature,
		IsDay:       forecast.CurrentWeather.IsDay,
		Timezone:    forecast.TimezoneAbbreviation,
		WindDir:     forecast.CurrentWeather.WindDirection,
		WindSpeed:   forecast.CurrentWeather.WindSpeed,
		WeatherCode: forecast.CurrentWeather.WeatherCode,
	}

	c.log.Debug("weather report built",
		logger.String("address", address),
		logger.Float64("temperature", report.Temperature))

	return report, nil
}

func (c *Client) fetchForecast(ctx context.Context, lat, lon float64) (*forecastResponse, error) {
	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse weather base URL: %w", err)
	}
	query := reqURL.Query()
	query.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("current_weather", "true")
	query.Set("timezone", c.timezone)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create weather request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute weather request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var forecast forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	return &forecast, nil
}
