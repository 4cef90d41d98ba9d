package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/velodash/velodash/internal/geo"
	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/metrics"
)

// DefaultConfidenceThreshold rejects matches the address search itself is not
// sure about. 0.9 matches the behavior observed against the BAN API.
const DefaultConfidenceThreshold = 0.9

// HTTPClient is the subset of http.Client the geocoder needs. It allows tests
// to swap in a stub transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is what a successful address lookup yields. It lives for one request
// and is never stored.
type Result struct {
	Point      geo.Point
	Confidence float64
	Postcode   string
	Type       string
}

// Client resolves free-text addresses against the BAN address search API
// (api-adresse.data.gouv.fr). Stateless; safe for concurrent use.
type Client struct {
	http      HTTPClient
	baseURL   string
	threshold float64
	log       logger.Logger
	metrics   *metrics.Metrics
}

type Options struct {
	BaseURL   string
	Threshold float64 // zero means DefaultConfidenceThreshold
	Timeout   time.Duration
	Client    HTTPClient // optional, overrides Timeout
}

func New(opts Options, log logger.Logger, m *metrics.Metrics) *Client {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}
	httpClient := opts.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		http:      httpClient,
		baseURL:   opts.BaseURL,
		threshold: threshold,
		log:       log,
		metrics:   m,
	}
}

// banResponse mirrors the GeoJSON shape of the BAN search endpoint. Only the
// fields the gateway consumes are declared.
type banResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
		Properties struct {
			Score    float64 `json:"score"`
			Postcode string  `json:"postcode"`
			Type     string  `json:"_type"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves address to coordinates with a confidence score, requesting
// a single match. It fails with *InvalidResponseError when the upstream
// answer is unusable and with *ConfidenceError when the top match scores
// below the threshold.
func (c *Client) Geocode(ctx context.Context, address string) (Result, error) {
	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse geocoding base URL: %w", err)
	}
	query := reqURL.Query()
	query.Set("q", address)
	query.Set("limit", "1")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create geocoding request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("invalid").Inc()
		return Result{}, fmt.Errorf("execute geocoding request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed banResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode != http.StatusOK || decodeErr != nil || len(parsed.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("invalid").Inc()
		c.log.Warn("unusable geocoding response",
			logger.String("address", address),
			logger.Int("status", resp.StatusCode))
		return Result{}, &InvalidResponseError{Status: resp.StatusCode}
	}

	feature := parsed.Features[0]
	if len(feature.Geometry.Coordinates) < 2 {
		c.metrics.GeocodeRequests.WithLabelValues("invalid").Inc()
		return Result{}, &InvalidResponseError{Status: resp.StatusCode}
	}
	lon, lat := feature.Geometry.Coordinates[0], feature.Geometry.Coordinates[1]

	confidence := math.Round(feature.Properties.Score*100) / 100
	if confidence < c.threshold {
		c.metrics.GeocodeRequests.WithLabelValues("low_confidence").Inc()
		c.log.Warn("geocoding match rejected",
			logger.String("address", address),
			logger.Float64("confidence", confidence),
			logger.Float64("threshold", c.threshold))
		return Result{}, &ConfidenceError{
			Address:    address,
			Confidence: confidence,
			Threshold:  c.threshold,
		}
	}

	c.metrics.GeocodeRequests.WithLabelValues("ok").Inc()
	return Result{
		Point:      geo.Point{Lat: lat, Lon: lon},
		Confidence: confidence,
		Postcode:   feature.Properties.Postcode,
		Type:       feature.Properties.Type,
	}, nil
}
