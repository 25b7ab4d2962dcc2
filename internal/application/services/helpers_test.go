package services_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/land-registry-gateway/internal/application/services"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/landregistry"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/memcache"
	"github.com/avatarctic/land-registry-gateway/test/mocks"
)

// fakeRegistry is an httptest registry with per-route handlers and call counters.
type fakeRegistry struct {
	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]http.HandlerFunc
	srv      *httptest.Server
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	r := &fakeRegistry{calls: map[string]int{}, handlers: map[string]http.HandlerFunc{}}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRegistry) serve(w http.ResponseWriter, req *http.Request) {
	route := req.Method + " " + req.URL.Path
	r.mu.Lock()
	r.calls[route]++
	h := r.handlers[route]
	r.mu.Unlock()
	if h == nil {
		http.NotFound(w, req)
		return
	}
	h(w, req)
}

func (r *fakeRegistry) handle(route string, h http.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[route] = h
}

// respond serves a fixed successful envelope on route.
func (r *fakeRegistry) respond(route string, data any) {
	r.handle(route, func(w http.ResponseWriter, _ *http.Request) { writeData(w, data) })
}

func (r *fakeRegistry) count(route string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[route]
}

func (r *fakeRegistry) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// harness wires a gateway and tracker against a fake registry the way the
// server does: one instrumented executor shared by both.
type harness struct {
	reg      *fakeRegistry
	gateway  *impl.Gateway
	tracker  *impl.BulkJobTracker
	cache    *memcache.Store
	clock    *fakeClock
	observer *mocks.GatewayObserverMock
	recorder *mocks.UsageRecorderMock
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	gateway   impl.GatewayConfig
	notifier  ports.JobNotifier
	retention time.Duration
	baseURL   string
}

func withGatewayConfig(cfg impl.GatewayConfig) harnessOption {
	return func(h *harnessConfig) { h.gateway = cfg }
}

func withNotifier(n ports.JobNotifier) harnessOption {
	return func(h *harnessConfig) { h.notifier = n }
}

func withRetention(d time.Duration) harnessOption {
	return func(h *harnessConfig) { h.retention = d }
}

func withBaseURL(u string) harnessOption {
	return func(h *harnessConfig) { h.baseURL = u }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{gateway: impl.GatewayConfig{DedupeInFlight: true}}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := newFakeRegistry(t)
	baseURL := reg.srv.URL
	if cfg.baseURL != "" {
		baseURL = cfg.baseURL
	}
	logger := quietLogger()
	exec, err := landregistry.NewExecutor(landregistry.ExecutorConfig{BaseURL: baseURL, Timeout: 2 * time.Second}, nil, logger)
	require.NoError(t, err)

	clock := newFakeClock()
	observer := mocks.NewGatewayObserverMock()
	recorder := &mocks.UsageRecorderMock{}
	instrumented := impl.NewInstrumentedExecutor(exec, observer, recorder, logger)
	cache := memcache.NewStore(memcache.WithClock(clock.Now))
	tracker := impl.NewBulkJobTracker(instrumented, cfg.notifier, observer, logger, cfg.retention, impl.WithTrackerClock(clock.Now))
	gateway := impl.NewGateway(cache, instrumented, tracker, observer, logger, cfg.gateway)

	return &harness{
		reg:      reg,
		gateway:  gateway,
		tracker:  tracker,
		cache:    cache,
		clock:    clock,
		observer: observer,
		recorder: recorder,
	}
}
