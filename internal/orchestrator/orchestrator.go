package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/velodash/velodash/internal/backend"
	"github.com/velodash/velodash/internal/logger"
)

// Backend names the gateway knows how to compose into a dashboard.
const (
	BackendWeather = "weather"
	BackendBikes   = "bikes"
)

// Paths of the domain endpoints on the two microservices.
const (
	weatherPath = "/get_weather_info"
	bikesPath   = "/get_address_nearest_stations"
	healthPath  = "/health"
)

// UpstreamError reports which backend made a composite request fail, carrying
// the upstream status (0 when the call never produced a response) and a
// human-readable detail.
type UpstreamError struct {
	Backend string
	Status  int
	Detail  string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s failed with status %d: %s", e.Backend, e.Status, e.Detail)
	}
	return fmt.Sprintf("backend %s failed: %s", e.Backend, e.Detail)
}

// HealthEntry is one backend's status in the rollup, encoded on the wire as
// the [label, detail] pair the dashboard frontend expects.
type HealthEntry struct {
	Label  string
	Detail string
}

func (e HealthEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Label, e.Detail})
}

func (e *HealthEntry) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	e.Label, e.Detail = pair[0], pair[1]
	return nil
}

// AggregateHealth is the rolled-up health of every configured backend.
// GatewayStatus is 200 only when every backend answered HTTP 200; any other
// outcome, including unreachable backends, degrades it to 207.
type AggregateHealth struct {
	GatewayStatus int
	Timestamp     time.Time
	Backends      map[string]HealthEntry
}

// Dashboard is the merged composite response. The sub-payloads are kept as
// raw JSON: the gateway composes, it does not reinterpret.
type Dashboard struct {
	Timestamp   time.Time       `json:"timestamp"`
	BikesInfo   json.RawMessage `json:"bikes_info"`
	WeatherInfo json.RawMessage `json:"weather_info"`
}

// Orchestrator fans requests out to the configured backends and merges the
// results. Health rollups tolerate any per-backend failure; composite data
// requests fail as soon as any sub-request does.
type Orchestrator struct {
	client  *backend.Client
	targets []backend.Target
	log     logger.Logger
	timeNow func() time.Time
}

func New(client *backend.Client, targets []backend.Target, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		client:  client,
		targets: targets,
		log:     log,
		timeNow: time.Now,
	}
}

// Targets returns the configured backends.
func (o *Orchestrator) Targets() []backend.Target {
	return o.targets
}

func (o *Orchestrator) target(name string) (backend.Target, bool) {
	for _, t := range o.targets {
		if t.Name == name {
			return t, true
		}
	}
	return backend.Target{}, false
}

// AggregateHealth checks every backend concurrently and rolls the outcomes up
// into one response. It never fails because a backend is down: a failing
// backend is an entry in the map, not an error. Wall-clock cost is bounded by
// the slowest individual backend timeout.
func (o *Orchestrator) AggregateHealth(ctx context.Context) AggregateHealth {
	type namedOutcome struct {
		name    string
		outcome backend.Outcome
	}

	results := make(chan namedOutcome, len(o.targets))
	for _, target := range o.targets {
		go func(target backend.Target) {
			results <- namedOutcome{
				name:    target.Name,
				outcome: o.client.Call(ctx, target, healthPath, nil),
			}
		}(target)
	}

	agg := AggregateHealth{
		GatewayStatus: http.StatusOK,
		Timestamp:     o.timeNow().UTC(),
		Backends:      make(map[string]HealthEntry, len(o.targets)),
	}

	for range o.targets {
		res := <-results
		entry, healthy := healthEntry(res.outcome)
		agg.Backends[res.name] = entry
		if !healthy {
			agg.GatewayStatus = http.StatusMultiStatus
		}
	}

	return agg
}

// healthEntry maps one call outcome to its (label, detail) pair and reports
// whether it counts as healthy for the gateway status.
func healthEntry(out backend.Outcome) (HealthEntry, bool) {
	switch out.Kind {
	case backend.OutcomeSuccess:
		return HealthEntry{
			Label:  statusLabel(out.Status),
			Detail: strings.TrimSpace(string(out.Body)),
		}, out.Status == http.StatusOK
	case backend.OutcomeTimeout:
		return HealthEntry{Label: "Unhealthy", Detail: out.Err.Error()}, false
	default:
		return HealthEntry{Label: "Unhealthy", Detail: out.Err.Error()}, false
	}
}

// statusLabel translates well-known backend statuses for the health rollup;
// anything unmapped passes through as the raw code.
func statusLabel(status int) string {
	switch status {
	case http.StatusOK:
		return "healthy"
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusRequestTimeout:
		return "timeout"
	case http.StatusInternalServerError:
		return "internal error"
	case 520:
		return "down"
	default:
		return strconv.Itoa(status)
	}
}

// DashboardData issues the bikes and weather sub-requests concurrently and
// merges their payloads under a single timestamp captured up front. Unlike
// the health rollup, any sub-request failure aborts the whole composite call:
// a partial dashboard is never synthesized. The sibling in-flight call is
// cancelled best effort.
func (o *Orchestrator) DashboardData(ctx context.Context, address string) (*Dashboard, error) {
	started := o.timeNow().UTC()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	calls := []struct {
		name string
		path string
	}{
		{name: BackendBikes, path: bikesPath},
		{name: BackendWeather, path: weatherPath},
	}
	params := url.Values{"address": {address}}

	type result struct {
		name string
		body json.RawMessage
		err  error
	}

	results := make(chan result, len(calls))
	for _, call := range calls {
		go func(name, path string) {
			target, ok := o.target(name)
			if !ok {
				results <- result{name: name, err: &UpstreamError{Backend: name, Detail: "backend not configured"}}
				return
			}

			out := o.client.Call(ctx, target, path, params)
			switch {
			case out.Kind == backend.OutcomeSuccess && out.Status == http.StatusOK:
				results <- result{name: name, body: out.Body}
			case out.Kind == backend.OutcomeSuccess:
				results <- result{name: name, err: &UpstreamError{
					Backend: name,
					Status:  out.Status,
					Detail:  strings.TrimSpace(string(out.Body)),
				}}
			default:
				results <- result{name: name, err: &UpstreamError{Backend: name, Detail: out.Err.Error()}}
			}
		}(call.name, call.path)
	}

	dashboard := &Dashboard{Timestamp: started}
	for range calls {
		res := <-results
		if res.err != nil {
			cancel() // abort the sibling call, best effort
			o.log.Warn("composite request failed",
				logger.String("backend", res.name),
				logger.Error(res.err))
			return nil, res.err
		}
		switch res.name {
		case BackendBikes:
			dashboard.BikesInfo = res.body
		case BackendWeather:
			dashboard.WeatherInfo = res.body
		}
	}

	return dashboard, nil
}
