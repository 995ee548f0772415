package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/dashboard"
	custommw "finitefield.org/statusboard/internal/httpserver/middleware"
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/platform/observability"
	"finitefield.org/statusboard/internal/platform/sheets"
	"finitefield.org/statusboard/internal/platform/textutil"
	"finitefield.org/statusboard/internal/status"
)

// Controller is the dashboard surface the handlers drive.
type Controller interface {
	Load(ctx context.Context) (dashboard.View, error)
	Save(ctx context.Context, edits status.Edits) (dashboard.SaveOutcome, error)
}

// Dependencies collects collaborators required by the UI handlers.
type Dependencies struct {
	Controller      Controller
	RefreshInterval time.Duration
}

// Handlers exposes the status page and its JSON counterpart.
type Handlers struct {
	controller Controller
	refresh    time.Duration
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) (*Handlers, error) {
	if deps.Controller == nil {
		return nil, errors.New("ui: controller is required")
	}
	return &Handlers{controller: deps.Controller, refresh: deps.RefreshInterval}, nil
}

// Dashboard renders the summary and editor.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.Load(r.Context())
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, h.pageData(r, view))
}

// SubmitStatus applies the posted editor values and renders the refreshed page.
func (h *Handlers) SubmitStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderInvalid(w, r, "Unable to read the submitted form.")
		return
	}
	edits, err := editsFromForm(r.PostForm)
	if err != nil {
		h.renderInvalid(w, r, err.Error())
		return
	}

	if _, err := h.controller.Save(r.Context(), edits); err != nil {
		var rangeErr *status.RangeError
		if errors.As(err, &rangeErr) {
			h.renderInvalid(w, r, invalidValueMessage(rangeErr.Name))
			return
		}
		h.renderFailure(w, r, err)
		return
	}

	view, err := h.controller.Load(r.Context())
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	data := h.pageData(r, view)
	data.Flash = savedMessage
	h.render(w, r, http.StatusOK, data)
}

func (h *Handlers) renderInvalid(w http.ResponseWriter, r *http.Request, message string) {
	view, err := h.controller.Load(r.Context())
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	data := h.pageData(r, view)
	data.Error = message
	h.render(w, r, http.StatusUnprocessableEntity, data)
}

func (h *Handlers) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	code := failureStatus(err)
	observability.FromContext(r.Context()).Error("ui: status cycle failed",
		zap.Int("status", code),
		zap.Error(err),
	)
	data := PageData{Title: pageTitle, Error: failureMessage(err)}
	h.render(w, r, code, data)
}

func (h *Handlers) pageData(r *http.Request, view dashboard.View) PageData {
	data := BuildPageData(view)
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())
	data.CSRFField = custommw.CSRFFormField
	if h.refresh > 0 && r.URL.Query().Get("refresh") != "off" {
		data.RefreshSeconds = int(h.refresh / time.Second)
		if data.RefreshSeconds == 0 {
			data.RefreshSeconds = 1
		}
	}
	return data
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, code int, data PageData) {
	templ.Handler(Page(data), templ.WithStatus(code)).ServeHTTP(w, r)
}

func editsFromForm(form map[string][]string) (status.Edits, error) {
	edits := status.Edits{}
	for key, values := range form {
		name, ok := strings.CutPrefix(key, fieldPrefix)
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		value, err := strconv.Atoi(strings.TrimSpace(values[0]))
		if err != nil {
			return nil, errors.New(invalidValueMessage(textutil.StripMarkup(name)))
		}
		edits[name] = value
	}
	return edits, nil
}

func invalidValueMessage(name string) string {
	return fmt.Sprintf("%s must be a whole number between %d and %d.", name, indicators.RangeLow, indicators.RangeHigh)
}

const (
	unavailableMessage = "Google Sheets is temporarily unavailable. Please try again in a minute."
	notSharedMessage   = "The spreadsheet was not found or is not shared with the service account."
)

func failureStatus(err error) int {
	var (
		schemaErr *status.SchemaError
		syncErr   *status.SyncError
	)
	switch {
	case errors.As(err, &schemaErr):
		return http.StatusInternalServerError
	case sheets.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &syncErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func failureMessage(err error) string {
	var (
		schemaErr *status.SchemaError
		syncErr   *status.SyncError
	)
	switch {
	case errors.As(err, &schemaErr):
		if schemaErr.Empty {
			return "The status sheet has no indicator rows."
		}
		return fmt.Sprintf("The status sheet is missing its %s columns.", strings.Join(schemaErr.Missing, " and "))
	case sheets.IsUnavailable(err):
		return unavailableMessage
	case sheets.IsPermissionDenied(err) || sheets.IsNotFound(err):
		return notSharedMessage
	case errors.As(err, &syncErr):
		if syncErr.Stage == status.StageLoad {
			return fmt.Sprintf("Error reading sheet: %v", syncErr.Err)
		}
		return fmt.Sprintf("Error updating sheet: %v", syncErr.Err)
	default:
		return "Something went wrong. Please try again."
	}
}
