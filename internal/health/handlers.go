package health

import (
	"net/http"
	"time"

	"finitefield.org/statusboard/internal/platform/httpx"
)

// Handlers serves /healthz and /readyz.
type Handlers struct {
	checker *Checker
	started time.Time
	version string
	now     func() time.Time
}

// NewHandlers constructs the handlers. A nil checker makes readiness always ok.
func NewHandlers(checker *Checker, version string, now func() time.Time) *Handlers {
	if now == nil {
		now = time.Now
	}
	return &Handlers{checker: checker, started: now(), version: version, now: now}
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    StatusOK,
		"version":   h.version,
		"uptime":    now.Sub(h.started).Round(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Readyz reports dependency health; anything but ok answers 503.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		httpx.WriteJSON(w, http.StatusOK, Report{Status: StatusOK, Checks: map[string]CheckResult{}, GeneratedAt: h.now()})
		return
	}
	report := h.checker.Collect(r.Context())
	code := http.StatusOK
	if report.Status != StatusOK {
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, report)
}
