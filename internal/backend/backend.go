package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/metrics"
)

// Target identifies one backend microservice. Loaded once at startup,
// read-only afterwards.
type Target struct {
	Name    string
	Host    string
	Port    int
	Timeout time.Duration
}

// URL builds the absolute URL for a path on this target.
func (t Target) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%d%s", t.Host, t.Port, path)
}

// OutcomeKind tags how a backend call ended.
type OutcomeKind int

const (
	// OutcomeSuccess means an HTTP response was received, whatever its
	// status code. Interpreting the status is the caller's job.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTimeout means the call exceeded the target's timeout.
	OutcomeTimeout
	// OutcomeTransportError covers everything below HTTP: refused
	// connections, DNS failures, broken reads.
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one backend call as a plain value. Modeling
// failure as data instead of an error keeps "one backend down" from ever
// aborting an aggregate that is supposed to tolerate it.
type Outcome struct {
	Kind   OutcomeKind
	Status int    // set when Kind == OutcomeSuccess
	Body   []byte // set when Kind == OutcomeSuccess
	Err    error  // set otherwise
}

// Client performs single timed calls against backend targets. No retries:
// retry policy, if ever wanted, belongs to the orchestrator.
type Client struct {
	http    *http.Client
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewClient(log logger.Logger, m *metrics.Metrics) *Client {
	// Per-call deadlines come from each target's timeout, not from the
	// shared transport.
	return &Client{
		http:    &http.Client{},
		log:     log,
		metrics: m,
	}
}

// Call issues one GET to target, bounded by the target's timeout, and
// classifies the result. It never returns an error: every way the call can
// end is an Outcome.
func (c *Client) Call(ctx context.Context, target Target, path string, params url.Values) Outcome {
	ctx, cancel := context.WithTimeout(ctx, target.Timeout)
	defer cancel()

	rawURL := target.URL(path)
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	start := time.Now()
	outcome := c.do(ctx, rawURL, target.Timeout)
	elapsed := time.Since(start)

	c.metrics.BackendCalls.WithLabelValues(target.Name, outcome.Kind.String()).Inc()
	c.metrics.BackendSeconds.WithLabelValues(target.Name).Observe(elapsed.Seconds())
	c.log.Debug("backend call",
		logger.String("backend", target.Name),
		logger.String("path", path),
		logger.String("outcome", outcome.Kind.String()),
		logger.Int("status", outcome.Status),
		logger.Duration("elapsed", elapsed))

	return outcome
}

func (c *Client) do(ctx context.Context, rawURL string, timeout time.Duration) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err, timeout)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err, timeout)
	}

	return Outcome{Kind: OutcomeSuccess, Status: resp.StatusCode, Body: body}
}

func classify(err error, timeout time.Duration) Outcome {
	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	if timedOut {
		return Outcome{
			Kind: OutcomeTimeout,
			Err:  fmt.Errorf("timed out after %s", timeout),
		}
	}
	return Outcome{Kind: OutcomeTransportError, Err: err}
}
