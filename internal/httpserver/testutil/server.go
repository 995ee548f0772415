package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/dashboard"
	"finitefield.org/statusboard/internal/freshness"
	"finitefield.org/statusboard/internal/health"
	"finitefield.org/statusboard/internal/httpserver"
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/platform/sheets"
	"finitefield.org/statusboard/internal/status"
)

// Now is the fixed instant test servers run at.
var Now = time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC)

type serverOptions struct {
	store   *sheets.MemoryStore
	refresh time.Duration
}

// ServerOption customises the test server.
type ServerOption func(*serverOptions)

// WithStore backs the server with store instead of the default four-indicator table.
func WithStore(store *sheets.MemoryStore) ServerOption {
	return func(o *serverOptions) { o.store = store }
}

// WithRefresh sets the page auto-refresh interval.
func WithRefresh(d time.Duration) ServerOption {
	return func(o *serverOptions) { o.refresh = d }
}

// NewStore returns a memory store holding the default indicators at value, last
// modified one minute before Now.
func NewStore(value int) *sheets.MemoryStore {
	return sheets.NewMemoryStore(
		sheets.DefaultTable(status.DefaultHistoryColumns, value),
		sheets.WithClock(func() time.Time { return Now }),
		sheets.WithModifiedTime(Now.Add(-time.Minute)),
	)
}

// NewServer constructs an httptest server running the full HTTP stack over a memory store.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	o := serverOptions{refresh: 2 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = NewStore(5)
	}

	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := func() time.Time { return Now }
	gateway, err := status.NewGateway(status.GatewayDeps{Store: o.store, Location: loc, Clock: now})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	controller, err := dashboard.NewController(dashboard.ControllerDeps{
		Gateway: gateway,
		Catalog: indicators.Default(),
		Clock:   freshness.New(loc, freshness.WithNow(now)),
		IDs:     func() string { return "01TESTSAVE" },
		Now:     now,
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	checker, err := health.NewChecker([]health.DependencyCheck{{Name: "store", Check: o.store.Ping}})
	if err != nil {
		t.Fatalf("checker: %v", err)
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:         ":0",
		Controller:      controller,
		Health:          health.NewHandlers(checker, "test", now),
		Logger:          zap.NewNop(),
		RefreshInterval: o.refresh,
		CSRFCookieName:  "csrf_token",
		CSRFHeaderName:  "X-CSRF-Token",
	})
	if err != nil {
		t.Fatalf("httpserver: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client with a cookie jar so the CSRF cookie round-trips.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}
