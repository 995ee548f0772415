// Package dashboard drives one load, edit and save cycle over the status record and
// shapes it for presenters.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/freshness"
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/status"
)

const meterName = "finitefield.org/statusboard/internal/dashboard"

// Gateway loads and saves status records.
type Gateway interface {
	Load(ctx context.Context) (status.Record, error)
	Save(ctx context.Context, record status.Record) (status.SaveResult, error)
}

// Notifier receives committed saves.
type Notifier interface {
	StatusSaved(ctx context.Context, event SavedEvent) error
}

// SavedEvent announces a committed save.
type SavedEvent struct {
	SaveID           string         `json:"saveId"`
	SavedAt          time.Time      `json:"savedAt"`
	HistoryTimestamp string         `json:"historyTimestamp"`
	Values           map[string]int `json:"values"`
	Changed          []string       `json:"changed"`
}

// SaveOutcome reports a save attempt. Result is populated even when the save failed.
type SaveOutcome struct {
	SaveID  string
	Result  status.SaveResult
	Changed []string
	Record  status.Record
}

// Presenter renders one cycle and collects edits.
type Presenter interface {
	RenderSummary(ctx context.Context, view View) error
	RenderEditor(ctx context.Context, view View) (status.Edits, error)
	RenderSaveResult(ctx context.Context, outcome SaveOutcome, err error) error
}

// ControllerDeps bundles collaborators for a Controller.
type ControllerDeps struct {
	Gateway  Gateway
	Catalog  *indicators.Catalog
	Clock    *freshness.Clock
	Notifier Notifier
	Logger   *zap.Logger
	IDs      func() string
	Now      func() time.Time
	Meter    metric.Meter
}

// Controller coordinates the gateway, catalog and freshness clock.
type Controller struct {
	gateway  Gateway
	catalog  *indicators.Catalog
	clock    *freshness.Clock
	notifier Notifier
	logger   *zap.Logger
	ids      func() string
	now      func() time.Time
	saves    metric.Int64Counter
}

// NewController validates deps and constructs a Controller.
func NewController(deps ControllerDeps) (*Controller, error) {
	if deps.Gateway == nil {
		return nil, errors.New("dashboard: gateway is required")
	}
	c := &Controller{
		gateway:  deps.Gateway,
		catalog:  deps.Catalog,
		clock:    deps.Clock,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		ids:      deps.IDs,
		now:      deps.Now,
	}
	if c.catalog == nil {
		c.catalog = indicators.Default()
	}
	if c.clock == nil {
		c.clock = freshness.New(time.UTC)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.ids == nil {
		c.ids = func() string { return ulid.Make().String() }
	}
	if c.now == nil {
		c.now = time.Now
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	saves, err := meter.Int64Counter("statusboard.saves",
		metric.WithDescription("Status save attempts by outcome"),
	)
	if err != nil {
		c.logger.Warn("dashboard: unable to register save counter", zap.Error(err))
	} else {
		c.saves = saves
	}
	return c, nil
}

// Load reads the record and builds its view. A missing or malformed modification time
// renders as UnavailableFreshness.
func (c *Controller) Load(ctx context.Context) (View, error) {
	record, err := c.gateway.Load(ctx)
	if err != nil {
		return View{}, err
	}
	return c.viewOf(record), nil
}

func (c *Controller) viewOf(record status.Record) View {
	view := View{
		LastUpdated: UnavailableFreshness,
		Indicators:  buildIndicators(c.catalog, record),
	}
	if record.ModifiedTime == "" {
		return view
	}
	rendered, err := c.clock.Render(record.ModifiedTime)
	if err != nil {
		c.logger.Warn("dashboard: modification time not renderable", zap.String("raw", record.ModifiedTime), zap.Error(err))
		return view
	}
	view.LastUpdated = rendered
	view.Fresh = true
	return view
}

// Save reloads the record, applies edits and writes it back with a history entry.
// Edits outside the indicator range are rejected before anything is written. Notifier
// failures are logged and do not fail the save.
func (c *Controller) Save(ctx context.Context, edits status.Edits) (SaveOutcome, error) {
	outcome := SaveOutcome{SaveID: c.ids()}
	logger := c.logger.With(zap.String("save_id", outcome.SaveID))

	current, err := c.gateway.Load(ctx)
	if err != nil {
		c.countSave(ctx, outcomeLabel(err))
		return outcome, err
	}

	next, err := status.ApplyEdits(current, edits)
	if err != nil {
		c.countSave(ctx, outcomeLabel(err))
		logger.Info("dashboard: edits rejected", zap.Error(err))
		return outcome, err
	}
	outcome.Record = next
	outcome.Changed = changedNames(current, next)

	result, err := c.gateway.Save(ctx, next)
	outcome.Result = result
	if err != nil {
		c.countSave(ctx, outcomeLabel(err))
		return outcome, err
	}
	c.countSave(ctx, "committed")
	logger.Info("dashboard: status saved",
		zap.Strings("changed", outcome.Changed),
		zap.Int("rows_written", result.RowsWritten),
	)

	if c.notifier != nil {
		event := SavedEvent{
			SaveID:           outcome.SaveID,
			SavedAt:          c.now().UTC(),
			HistoryTimestamp: result.History.Timestamp,
			Values:           next.Values(),
			Changed:          outcome.Changed,
		}
		if err := c.notifier.StatusSaved(ctx, event); err != nil {
			logger.Warn("dashboard: save notification failed", zap.Error(err))
		}
	}
	return outcome, nil
}

// Run performs one full cycle with p. A load failure aborts before anything renders.
// A save error is returned after p has rendered it.
func (c *Controller) Run(ctx context.Context, p Presenter) error {
	view, err := c.Load(ctx)
	if err != nil {
		return err
	}
	if err := p.RenderSummary(ctx, view); err != nil {
		return fmt.Errorf("dashboard: render summary: %w", err)
	}
	edits, err := p.RenderEditor(ctx, view)
	if err != nil {
		return fmt.Errorf("dashboard: render editor: %w", err)
	}
	if len(edits) == 0 {
		return nil
	}
	outcome, saveErr := c.Save(ctx, edits)
	if err := p.RenderSaveResult(ctx, outcome, saveErr); err != nil {
		return fmt.Errorf("dashboard: render save result: %w", err)
	}
	return saveErr
}

func (c *Controller) countSave(ctx context.Context, outcome string) {
	if c.saves == nil {
		return
	}
	c.saves.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func outcomeLabel(err error) string {
	var (
		rangeErr  *status.RangeError
		schemaErr *status.SchemaError
		syncErr   *status.SyncError
	)
	switch {
	case errors.As(err, &rangeErr):
		return "rejected"
	case errors.As(err, &schemaErr):
		return "schema_error"
	case errors.As(err, &syncErr):
		return "sync_error_" + string(syncErr.Stage)
	default:
		return "error"
	}
}

func changedNames(before, after status.Record) []string {
	prev := before.Values()
	var changed []string
	for _, entry := range after.Entries() {
		if old, ok := prev[entry.Name]; !ok || old != entry.Value {
			changed = append(changed, entry.Name)
		}
	}
	return changed
}
