// Package httpserver serves the status page, its JSON API and health probes.
package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/health"
	custommw "finitefield.org/statusboard/internal/httpserver/middleware"
	"finitefield.org/statusboard/internal/httpserver/ui"
	"finitefield.org/statusboard/internal/platform/observability"
)

const defaultRequestTimeout = 60 * time.Second

// Config holds runtime options for the status HTTP server.
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	Controller      ui.Controller
	Health          *health.Handlers
	Logger          *zap.Logger
	TraceProjectID  string
	RefreshInterval time.Duration

	CSRFCookieName   string
	CSRFCookieSecure bool
	CSRFHeaderName   string
}

// New constructs the HTTP server with its middleware stack.
func New(cfg Config) (*http.Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("httpserver: controller is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers, err := ui.NewHandlers(ui.Dependencies{
		Controller:      cfg.Controller,
		RefreshInterval: cfg.RefreshInterval,
	})
	if err != nil {
		return nil, err
	}
	healthHandlers := cfg.Health
	if healthHandlers == nil {
		healthHandlers = health.NewHandlers(nil, "", nil)
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.TraceMiddleware(cfg.TraceProjectID))
	router.Use(observability.RequestLoggerMiddleware)
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Timeout(requestTimeout))

	router.Get("/healthz", healthHandlers.Healthz)
	router.Get("/readyz", healthHandlers.Readyz)

	csrf := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}
	mountStatusRoutes(router, handlers, csrf)

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 120*time.Second),
	}, nil
}

func mountStatusRoutes(router chi.Router, h *ui.Handlers, csrf custommw.CSRFConfig) {
	router.Group(func(r chi.Router) {
		r.Use(custommw.NoStore())
		r.Use(custommw.CSRF(csrf))

		r.Get("/", h.Dashboard)
		r.Post("/status", h.SubmitStatus)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/status", h.StatusJSON)
			r.Put("/status", h.UpdateStatusJSON)
		})
	})
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
