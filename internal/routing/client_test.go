package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdufoot/matchfinder/internal/geo"
)

// matrixServer answers every destination with a distance of lat*1000
// meters, so the expected value of destination i is known by the test.
// fail decides, per call number (1-based), whether to answer 500.
type matrixServer struct {
	calls    atomic.Int32
	fail     func(call int) bool
	elStatus func(lat float64) string
	delay    func(call int) time.Duration
}

func (m *matrixServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := int(m.calls.Add(1))
	if m.delay != nil {
		select {
		case <-time.After(m.delay(call)):
		case <-r.Context().Done():
			return
		}
	}
	if m.fail != nil && m.fail(call) {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	if q.Get("key") != "test-key" || q.Get("units") != "metric" || q.Get("origins") != "50,2" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	type dist struct {
		Value int64 `json:"value"`
	}
	type element struct {
		Status   string `json:"status"`
		Distance *dist  `json:"distance,omitempty"`
	}
	var els []element
	for _, pair := range strings.Split(q.Get("destinations"), "|") {
		lat, _ := strconv.ParseFloat(strings.Split(pair, ",")[0], 64)
		status := "OK"
		if m.elStatus != nil {
			status = m.elStatus(lat)
		}
		el := element{Status: status}
		if status == "OK" {
			el.Distance = &dist{Value: int64(lat * 1000)}
		}
		els = append(els, el)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "OK",
		"rows":   []any{map[string]any{"elements": els}},
	})
}

func destinations(n int) []geo.Point {
	out := make([]geo.Point, n)
	for i := range out {
		out[i] = geo.Point{Lat: float64(i), Lng: 3}
	}
	return out
}

func newTestClient(srv *httptest.Server, cfg Config) *Client {
	cfg.BaseURL = srv.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	return NewClient(cfg, WithHTTPClient(srv.Client()))
}

var origin = geo.Point{Lat: 50, Lng: 2}

func TestResolve_ReassemblesBatchesByOffset(t *testing.T) {
	ms := &matrixServer{}
	srv := httptest.NewServer(ms)
	defer srv.Close()

	c := newTestClient(srv, Config{BatchSize: 25})
	got := c.Resolve(context.Background(), origin, destinations(60))

	assert.Equal(t, int32(3), ms.calls.Load())
	require.Len(t, got, 60)
	for i := 0; i < 60; i++ {
		assert.Equal(t, float64(i*1000), got[i], "index %d", i)
	}
}

func TestResolve_FailedBatchDoesNotAbortOthers(t *testing.T) {
	ms := &matrixServer{fail: func(call int) bool { return call == 2 }}
	srv := httptest.NewServer(ms)
	defer srv.Close()

	c := newTestClient(srv, Config{BatchSize: 25})
	got := c.Resolve(context.Background(), origin, destinations(60))

	assert.Equal(t, int32(3), ms.calls.Load())
	assert.Len(t, got, 35)
	for i := 25; i < 50; i++ {
		_, ok := got[i]
		assert.False(t, ok, "index %d should be unresolved", i)
	}
	assert.Equal(t, float64(55000), got[55])
}

func TestResolve_OnlyOKElementsContribute(t *testing.T) {
	ms := &matrixServer{elStatus: func(lat float64) string {
		if int(lat)%2 == 1 {
			return "ZERO_RESULTS"
		}
		return "OK"
	}}
	srv := httptest.NewServer(ms)
	defer srv.Close()

	got := newTestClient(srv, Config{}).Resolve(context.Background(), origin, destinations(6))

	assert.Equal(t, map[int]float64{0: 0, 2: 2000, 4: 4000}, got)
}

func TestResolve_TimeoutMarksBatchUnresolved(t *testing.T) {
	ms := &matrixServer{delay: func(call int) time.Duration {
		if call == 1 {
			return time.Second
		}
		return 0
	}}
	srv := httptest.NewServer(ms)
	defer srv.Close()

	c := newTestClient(srv, Config{BatchSize: 2, Timeout: 50 * time.Millisecond})
	got := c.Resolve(context.Background(), origin, destinations(4))

	assert.Equal(t, map[int]float64{2: 2000, 3: 3000}, got)
}

func TestResolve_TopLevelErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","rows":[]}`))
	}))
	defer srv.Close()

	got := newTestClient(srv, Config{}).Resolve(context.Background(), origin, destinations(3))
	assert.Empty(t, got)
}

func TestResolve_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	got := newTestClient(srv, Config{}).Resolve(context.Background(), origin, destinations(3))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolve_ParallelBatchesKeepIndexes(t *testing.T) {
	ms := &matrixServer{}
	srv := httptest.NewServer(ms)
	defer srv.Close()

	c := newTestClient(srv, Config{BatchSize: 10, Parallelism: 4})
	got := c.Resolve(context.Background(), origin, destinations(47))

	assert.Equal(t, int32(5), ms.calls.Load())
	require.Len(t, got, 47)
	assert.Equal(t, float64(46000), got[46])
	assert.Equal(t, float64(10000), got[10])
}

func TestResolve_NoKeyNoCalls(t *testing.T) {
	ms := &matrixServer{}
	srv := httptest.NewServer(ms)
	defer srv.Close()

	for _, key := range []string{"", placeholderKey} {
		c := NewClient(Config{BaseURL: srv.URL, APIKey: key}, WithHTTPClient(srv.Client()))
		assert.False(t, c.Enabled())
		assert.Empty(t, c.Resolve(context.Background(), origin, destinations(3)))
	}
	assert.Zero(t, ms.calls.Load())
}

func TestResolve_CancelledThrottleWait(t *testing.T) {
	ms := &matrixServer{}
	srv := httptest.NewServer(ms)
	defer srv.Close()

	// burst 1 at one request per minute: only the first batch gets through
	c := newTestClient(srv, Config{BatchSize: 1, RPS: 1.0 / 60, Burst: 1, Timeout: 30 * time.Millisecond})
	got := c.Resolve(context.Background(), origin, destinations(3))

	assert.Equal(t, int32(1), ms.calls.Load())
	assert.Equal(t, map[int]float64{0: 0}, got)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{BatchSize: 100})
	assert.Equal(t, MaxBatchSize, c.cfg.BatchSize)
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, 1, c.cfg.Parallelism)
	assert.Nil(t, c.limiter)
}
