package ui

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/dashboard"
	"finitefield.org/statusboard/internal/platform/httpx"
	"finitefield.org/statusboard/internal/platform/observability"
	"finitefield.org/statusboard/internal/platform/sheets"
	"finitefield.org/statusboard/internal/status"
)

const maxEditBody = 64 << 10

type statusResponse struct {
	LastUpdated string              `json:"lastUpdated"`
	Fresh       bool                `json:"fresh"`
	Indicators  []indicatorResponse `json:"indicators"`
}

type indicatorResponse struct {
	Name        string `json:"name"`
	Value       int    `json:"value"`
	Description string `json:"description"`
	Band        string `json:"band"`
	Known       bool   `json:"known"`
}

type updateRequest struct {
	Values map[string]int `json:"values"`
}

type updateResponse struct {
	SaveID           string         `json:"saveId"`
	Changed          []string       `json:"changed"`
	HistoryTimestamp string         `json:"historyTimestamp"`
	Status           statusResponse `json:"status"`
}

// StatusJSON returns the current view.
func (h *Handlers) StatusJSON(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.Load(r.Context())
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newStatusResponse(view))
}

// UpdateStatusJSON applies {"values": {...}} edits and returns the saved view.
func (h *Handlers) UpdateStatusJSON(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "request body must be a JSON object with values", http.StatusBadRequest))
		return
	}
	if len(req.Values) == 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "values must not be empty", http.StatusBadRequest))
		return
	}

	outcome, err := h.controller.Save(r.Context(), status.Edits(req.Values))
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	view, err := h.controller.Load(r.Context())
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	changed := outcome.Changed
	if changed == nil {
		changed = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, updateResponse{
		SaveID:           outcome.SaveID,
		Changed:          changed,
		HistoryTimestamp: outcome.Result.History.Timestamp,
		Status:           newStatusResponse(view),
	})
}

func (h *Handlers) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rangeErr  *status.RangeError
		schemaErr *status.SchemaError
		syncErr   *status.SyncError
	)
	switch {
	case errors.As(err, &rangeErr):
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_value", rangeErr.Error(), http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"name": rangeErr.Name, "value": rangeErr.Value}))
		return
	case errors.As(err, &schemaErr):
		httpx.WriteError(r.Context(), w, httpx.NewError("schema_error", schemaErr.Error(), http.StatusInternalServerError))
	case errors.As(err, &syncErr):
		details := map[string]any{"stage": string(syncErr.Stage)}
		if syncErr.Row > 0 {
			details["row"] = syncErr.Row
		}
		var storeErr *sheets.Error
		if errors.As(err, &storeErr) && storeErr.Code() != 0 {
			details["upstreamStatus"] = storeErr.Code()
		}
		code, message, httpStatus := "sync_failed", syncErr.Error(), http.StatusBadGateway
		switch {
		case sheets.IsUnavailable(err):
			code, message, httpStatus = "store_unavailable", unavailableMessage, http.StatusServiceUnavailable
		case sheets.IsPermissionDenied(err) || sheets.IsNotFound(err):
			code, message = "store_access_denied", notSharedMessage
		}
		httpx.WriteError(r.Context(), w, httpx.NewError(code, message, httpStatus).WithDetails(details))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("internal", "unexpected error", http.StatusInternalServerError))
	}
	observability.FromContext(r.Context()).Error("ui: api request failed", zap.Error(err))
}

func newStatusResponse(view dashboard.View) statusResponse {
	out := statusResponse{
		LastUpdated: view.LastUpdated,
		Fresh:       view.Fresh,
		Indicators:  make([]indicatorResponse, 0, len(view.Indicators)),
	}
	for _, ind := range view.Indicators {
		out.Indicators = append(out.Indicators, indicatorResponse{
			Name:        ind.Name,
			Value:       ind.Value,
			Description: ind.Description,
			Band:        ind.Band.String(),
			Known:       ind.Known,
		})
	}
	return out
}
