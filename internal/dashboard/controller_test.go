package dashboard

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/freshness"
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/platform/sheets"
	"finitefield.org/statusboard/internal/status"
)

var testNow = time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC)

type recordingNotifier struct {
	events []SavedEvent
	err    error
}

func (n *recordingNotifier) StatusSaved(_ context.Context, event SavedEvent) error {
	n.events = append(n.events, event)
	return n.err
}

type fixture struct {
	store      *sheets.MemoryStore
	notifier   *recordingNotifier
	controller *Controller
}

func newFixture(t *testing.T, table status.Table, opts ...sheets.MemoryOption) fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := func() time.Time { return testNow }
	store := sheets.NewMemoryStore(table, append([]sheets.MemoryOption{sheets.WithClock(now)}, opts...)...)
	gateway, err := status.NewGateway(status.GatewayDeps{Store: store, Location: loc, Clock: now})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	notifier := &recordingNotifier{}
	controller, err := NewController(ControllerDeps{
		Gateway:  gateway,
		Catalog:  indicators.Default(),
		Clock:    freshness.New(loc, freshness.WithNow(func() time.Time { return testNow.Add(90 * time.Second) })),
		Notifier: notifier,
		Logger:   zap.NewNop(),
		IDs:      func() string { return "save-1" },
		Now:      now,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return fixture{store: store, notifier: notifier, controller: controller}
}

func moodAndPain() status.Table {
	return status.Table{
		Header: []string{"Index", "Value"},
		Rows:   [][]any{{"Mood", 5}, {"Physical Pain", 3}},
	}
}

func TestLoadBuildsView(t *testing.T) {
	f := newFixture(t, moodAndPain(), sheets.WithModifiedTime(testNow))

	view, err := f.controller.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !view.Fresh || !strings.HasSuffix(view.LastUpdated, "(1 min ago)") {
		t.Fatalf("unexpected freshness %q", view.LastUpdated)
	}
	mood, ok := view.Indicator("Mood")
	if !ok {
		t.Fatal("Mood missing from view")
	}
	if mood.Value != 5 || mood.Description != "Neutral" || mood.Band != indicators.BandEven || !mood.Known {
		t.Fatalf("unexpected mood view %+v", mood)
	}
	if len(mood.Scale) != 11 || mood.Scale[10].Description != "Full mania" {
		t.Fatalf("unexpected scale %+v", mood.Scale)
	}
	pain, _ := view.Indicator("Physical Pain")
	if pain.Band != indicators.BandMild || pain.Polarity != indicators.LowerIsBetter {
		t.Fatalf("unexpected pain view %+v", pain)
	}
}

func TestLoadDegradesUnknownIndicatorAndFreshness(t *testing.T) {
	table := status.Table{Header: []string{"Index", "Value"}, Rows: [][]any{{"Sleep Debt", 9}}}
	f := newFixture(t, table)

	view, err := f.controller.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if view.Fresh || view.LastUpdated != UnavailableFreshness {
		t.Fatalf("expected unavailable freshness, got %q", view.LastUpdated)
	}
	sleep := view.Indicators[0]
	if sleep.Known || sleep.Description != indicators.UnknownDescription || sleep.Band != indicators.BandThriving {
		t.Fatalf("unexpected unknown indicator view %+v", sleep)
	}
}

func TestLoadPropagatesSchemaError(t *testing.T) {
	f := newFixture(t, status.Table{})

	_, err := f.controller.Load(context.Background())
	var schemaErr *status.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestSaveWritesHistoryAndNotifies(t *testing.T) {
	f := newFixture(t, moodAndPain())

	outcome, err := f.controller.Save(context.Background(), status.Edits{"Mood": 8, "Physical Pain": 1})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if outcome.SaveID != "save-1" || outcome.Result.State != status.StateCommitted {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !reflect.DeepEqual(outcome.Changed, []string{"Mood", "Physical Pain"}) {
		t.Fatalf("unexpected changed list %v", outcome.Changed)
	}
	want := [][]any{{"2025-03-01 09:04:05", 8, "", "", 1}}
	if got := f.store.History(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected history %#v", got)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].SaveID != "save-1" {
		t.Fatalf("unexpected events %+v", f.notifier.events)
	}

	view, err := f.controller.Load(context.Background())
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if mood, _ := view.Indicator("Mood"); mood.Value != 8 {
		t.Fatalf("expected Mood 8 after save, got %d", mood.Value)
	}
}

func TestSaveRejectsOutOfRangeWithoutWriting(t *testing.T) {
	f := newFixture(t, moodAndPain())

	_, err := f.controller.Save(context.Background(), status.Edits{"Mood": 11})
	var rangeErr *status.RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected RangeError, got %v", err)
	}
	if len(f.store.History()) != 0 || len(f.notifier.events) != 0 {
		t.Fatal("rejected edits must not write or notify")
	}
}

func TestSaveIgnoresNotifierFailure(t *testing.T) {
	f := newFixture(t, moodAndPain())
	f.notifier.err = errors.New("topic deleted")

	if _, err := f.controller.Save(context.Background(), status.Edits{"Mood": 6}); err != nil {
		t.Fatalf("notifier failure must not fail the save: %v", err)
	}
}

func TestSaveReportsSyncFailure(t *testing.T) {
	f := newFixture(t, moodAndPain())
	f.store.Fail(sheets.OpAppend, errors.New("history sheet missing"))

	outcome, err := f.controller.Save(context.Background(), status.Edits{"Mood": 6})
	var syncErr *status.SyncError
	if !errors.As(err, &syncErr) || syncErr.Stage != status.StageHistory {
		t.Fatalf("expected history SyncError, got %v", err)
	}
	if outcome.Result.RowsWritten != 2 || outcome.Result.State != status.StateFailed {
		t.Fatalf("unexpected result %+v", outcome.Result)
	}
	if len(f.notifier.events) != 0 {
		t.Fatal("failed saves must not notify")
	}
}

type scriptedPresenter struct {
	edits     status.Edits
	summaries int
	editors   int
	results   []error
	saved     []SaveOutcome
}

func (p *scriptedPresenter) RenderSummary(context.Context, View) error {
	p.summaries++
	return nil
}

func (p *scriptedPresenter) RenderEditor(context.Context, View) (status.Edits, error) {
	p.editors++
	return p.edits, nil
}

func (p *scriptedPresenter) RenderSaveResult(_ context.Context, outcome SaveOutcome, err error) error {
	p.saved = append(p.saved, outcome)
	p.results = append(p.results, err)
	return nil
}

func TestRunFullCycle(t *testing.T) {
	f := newFixture(t, moodAndPain())
	p := &scriptedPresenter{edits: status.Edits{"Physical Pain": 0}}

	if err := f.controller.Run(context.Background(), p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if p.summaries != 1 || p.editors != 1 || len(p.results) != 1 || p.results[0] != nil {
		t.Fatalf("unexpected presenter calls %+v", p)
	}
	if len(f.store.History()) != 1 {
		t.Fatal("expected one history row")
	}
}

func TestRunWithoutEditsDoesNotSave(t *testing.T) {
	f := newFixture(t, moodAndPain())
	p := &scriptedPresenter{}

	if err := f.controller.Run(context.Background(), p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(p.results) != 0 || len(f.store.History()) != 0 {
		t.Fatal("no edits must not save")
	}
}

func TestRunAbortsBeforeRenderingOnLoadFailure(t *testing.T) {
	f := newFixture(t, moodAndPain())
	f.store.Fail(sheets.OpRead, errors.New("offline"))
	p := &scriptedPresenter{}

	err := f.controller.Run(context.Background(), p)
	var syncErr *status.SyncError
	if !errors.As(err, &syncErr) || syncErr.Stage != status.StageLoad {
		t.Fatalf("expected load SyncError, got %v", err)
	}
	if p.summaries != 0 || p.editors != 0 {
		t.Fatal("nothing should render after a load failure")
	}
}

func TestRunReturnsSaveErrorAfterRendering(t *testing.T) {
	f := newFixture(t, moodAndPain())
	p := &scriptedPresenter{edits: status.Edits{"Mood": -1}}

	err := f.controller.Run(context.Background(), p)
	var rangeErr *status.RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected RangeError, got %v", err)
	}
	if len(p.results) != 1 || !errors.As(p.results[0], &rangeErr) {
		t.Fatalf("presenter should have rendered the rejection: %+v", p.results)
	}
}

func TestMarkersCoverEveryBand(t *testing.T) {
	for _, p := range []indicators.Polarity{indicators.HigherIsBetter, indicators.LowerIsBetter, indicators.BimodalCentered} {
		for v := indicators.RangeLow; v <= indicators.RangeHigh; v++ {
			if Marker(p.Band(v)) == "⚪" {
				t.Fatalf("no marker for %s band at %d", p, v)
			}
		}
	}
}
