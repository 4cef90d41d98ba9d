package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/metrics"
)

func newTestClient() *Client {
	return NewClient(logger.NewNop(), metrics.New(prometheus.NewRegistry()))
}

// targetFor points a Target at an httptest server.
func targetFor(t *testing.T, ts *httptest.Server, timeout time.Duration) Target {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	return Target{Name: "test", Host: u.Hostname(), Port: port, Timeout: timeout}
}

func TestCallSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("address"); got != "1 rue de Charonne, 75011" {
			t.Errorf("address param = %q", got)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	out := newTestClient().Call(context.Background(), targetFor(t, ts, time.Second),
		"/get_weather_info", url.Values{"address": {"1 rue de Charonne, 75011"}})

	if out.Kind != OutcomeSuccess {
		t.Fatalf("Call() kind = %v, want success (err %v)", out.Kind, out.Err)
	}
	if out.Status != http.StatusOK {
		t.Errorf("Call() status = %d, want 200", out.Status)
	}
	if !strings.Contains(string(out.Body), `"ok"`) {
		t.Errorf("Call() body = %q", out.Body)
	}
}

func TestCallNon200IsStillSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer ts.Close()

	out := newTestClient().Call(context.Background(), targetFor(t, ts, time.Second), "/health", nil)

	// A non-200 response is not a client-side failure; the caller decides
	// what the status means.
	if out.Kind != OutcomeSuccess {
		t.Fatalf("Call() kind = %v, want success", out.Kind)
	}
	if out.Status != http.StatusInternalServerError {
		t.Errorf("Call() status = %d, want 500", out.Status)
	}
}

func TestCallTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	start := time.Now()
	out := newTestClient().Call(context.Background(), targetFor(t, ts, 50*time.Millisecond), "/health", nil)
	elapsed := time.Since(start)

	if out.Kind != OutcomeTimeout {
		t.Fatalf("Call() kind = %v, want timeout (err %v)", out.Kind, out.Err)
	}
	if out.Err == nil {
		t.Error("timeout outcome must carry a detail error")
	}
	if elapsed > time.Second {
		t.Errorf("Call() took %s, should be bounded by the target timeout", elapsed)
	}
}

func TestCallTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := targetFor(t, ts, time.Second)
	ts.Close() // refused from here on

	out := newTestClient().Call(context.Background(), target, "/health", nil)

	if out.Kind != OutcomeTransportError {
		t.Fatalf("Call() kind = %v, want transport error", out.Kind)
	}
	if out.Err == nil {
		t.Error("transport outcome must carry a detail error")
	}
}

func TestTargetURL(t *testing.T) {
	target := Target{Name: "weather", Host: "127.0.0.1", Port: 8001}
	tests := []struct {
		path string
		want string
	}{
		{path: "/health", want: "http://127.0.0.1:8001/health"},
		{path: "health", want: "http://127.0.0.1:8001/health"},
	}
	for _, tt := range tests {
		if got := target.URL(tt.path); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
