package status

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
	_ "time/tzdata"
)

type fakeStore struct {
	table       Table
	readErr     error
	modified    string
	modifiedErr error

	writes     []fakeWrite
	failRow    int
	writeErr   error
	history    [][]any
	historyErr error
}

type fakeWrite struct {
	row, column, value int
}

func (f *fakeStore) ReadTable(context.Context) (Table, error) {
	if f.readErr != nil {
		return Table{}, f.readErr
	}
	return f.table, nil
}

func (f *fakeStore) WriteCell(_ context.Context, row, column, value int) error {
	if f.failRow == row {
		return f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{row: row, column: column, value: value})
	for len(f.table.Rows) < row-1 {
		f.table.Rows = append(f.table.Rows, nil)
	}
	cells := f.table.Rows[row-HeaderOffset]
	for len(cells) < column {
		cells = append(cells, nil)
	}
	cells[column-1] = value
	f.table.Rows[row-HeaderOffset] = cells
	return nil
}

func (f *fakeStore) AppendHistory(_ context.Context, values []any) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	f.history = append(f.history, values)
	return nil
}

func (f *fakeStore) ModifiedTime(context.Context) (string, error) {
	return f.modified, f.modifiedErr
}

func newTestGateway(t *testing.T, store Store) *Gateway {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	gw, err := NewGateway(GatewayDeps{
		Store:    store,
		Location: loc,
		Clock: func() time.Time {
			return time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	return gw
}

func twoRowStore() *fakeStore {
	return &fakeStore{
		table: Table{
			Header: []string{"Index", "Value"},
			Rows: [][]any{
				{"Mood", float64(5)},
				{"Physical Pain", float64(3)},
			},
		},
		modified: "2025-03-01T14:00:00.000Z",
	}
}

func TestGatewayLoadReadsRowsInOrder(t *testing.T) {
	store := twoRowStore()
	gw := newTestGateway(t, store)

	record, err := gw.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := []Entry{{Name: "Mood", Value: 5, Row: 2}, {Name: "Physical Pain", Value: 3, Row: 3}}
	if got := record.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected entries: %#v", got)
	}
	if record.ValueColumn != 2 {
		t.Fatalf("expected value column 2, got %d", record.ValueColumn)
	}
	if record.ModifiedTime != "2025-03-01T14:00:00.000Z" {
		t.Fatalf("unexpected modified time %q", record.ModifiedTime)
	}
}

func TestGatewayLoadCoercesAndClamps(t *testing.T) {
	store := &fakeStore{
		table: Table{
			Header: []string{"Value", "Notes", "Index"},
			Rows: [][]any{
				{"7.0", "", "Mood"},
				{float64(14), "", "Autistic Battery"},
				{"", "", ""},
				{"n/a", "", "Emotional State"},
				{-2, "", "Physical Pain"},
			},
		},
	}
	gw := newTestGateway(t, store)

	record, err := gw.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := []Entry{
		{Name: "Mood", Value: 7, Row: 2},
		{Name: "Autistic Battery", Value: 10, Row: 3},
		{Name: "Emotional State", Value: 0, Row: 5},
		{Name: "Physical Pain", Value: 0, Row: 6},
	}
	if got := record.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected entries: %#v", got)
	}
	if record.ValueColumn != 1 {
		t.Fatalf("expected value column 1, got %d", record.ValueColumn)
	}
}

func TestGatewayLoadSchemaErrors(t *testing.T) {
	tests := map[string]Table{
		"empty sheet":    {},
		"missing value":  {Header: []string{"Index", "Score"}, Rows: [][]any{{"Mood", 3}}},
		"no status rows": {Header: []string{"Index", "Value"}},
	}
	for name, table := range tests {
		t.Run(name, func(t *testing.T) {
			gw := newTestGateway(t, &fakeStore{table: table})
			_, err := gw.Load(context.Background())
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
		})
	}
}

func TestGatewayLoadWrapsReadFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	gw := newTestGateway(t, &fakeStore{readErr: boom})

	_, err := gw.Load(context.Background())
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if syncErr.Stage != StageLoad || !errors.Is(err, boom) {
		t.Fatalf("unexpected sync error: %v", syncErr)
	}
}

func TestGatewayLoadToleratesModifiedTimeFailure(t *testing.T) {
	store := twoRowStore()
	store.modifiedErr = errors.New("drive unavailable")
	gw := newTestGateway(t, store)

	record, err := gw.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if record.ModifiedTime != "" {
		t.Fatalf("expected empty modified time, got %q", record.ModifiedTime)
	}
}

func TestGatewaySaveWritesRowsAndHistory(t *testing.T) {
	store := twoRowStore()
	gw := newTestGateway(t, store)
	ctx := context.Background()

	record, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	edited, err := ApplyEdits(record, Edits{"Mood": 8, "Physical Pain": 1})
	if err != nil {
		t.Fatalf("ApplyEdits returned error: %v", err)
	}

	result, err := gw.Save(ctx, edited)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if result.State != StateCommitted || result.RowsWritten != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	wantWrites := []fakeWrite{{row: 2, column: 2, value: 8}, {row: 3, column: 2, value: 1}}
	if !reflect.DeepEqual(store.writes, wantWrites) {
		t.Fatalf("unexpected writes: %#v", store.writes)
	}
	wantHistory := [][]any{{"2025-03-01 09:04:05", 8, "", "", 1}}
	if !reflect.DeepEqual(store.history, wantHistory) {
		t.Fatalf("unexpected history: %#v", store.history)
	}

	reloaded, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if got := reloaded.Values(); got["Mood"] != 8 || got["Physical Pain"] != 1 {
		t.Fatalf("unexpected reloaded values: %v", got)
	}
}

func TestGatewaySaveStopsAtFirstFailedRow(t *testing.T) {
	store := &fakeStore{
		table: Table{
			Header: []string{"Index", "Value"},
			Rows:   [][]any{{"Mood", 4}, {"Autistic Battery", 6}, {"Physical Pain", 2}},
		},
		failRow:  3,
		writeErr: errors.New("rate limited"),
	}
	gw := newTestGateway(t, store)
	ctx := context.Background()

	record, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	result, err := gw.Save(ctx, record)
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if syncErr.Stage != StageRows || syncErr.Row != 3 {
		t.Fatalf("unexpected sync error: %+v", syncErr)
	}
	if result.State != StateFailed || result.RowsWritten != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(store.history) != 0 {
		t.Fatalf("history must not be appended after a row failure")
	}
}

func TestGatewaySaveReportsHistoryFailure(t *testing.T) {
	store := twoRowStore()
	store.historyErr = errors.New("history sheet missing")
	gw := newTestGateway(t, store)
	ctx := context.Background()

	record, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	result, err := gw.Save(ctx, record)
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Stage != StageHistory {
		t.Fatalf("expected history SyncError, got %v", err)
	}
	if result.RowsWritten != 2 {
		t.Fatalf("rows written before the history failure must stay, got %d", result.RowsWritten)
	}
}

func TestApplyEditsRejectsOutOfRange(t *testing.T) {
	record := NewRecord([]Entry{{Name: "Mood", Value: 5, Row: 2}}, 2, "")

	got, err := ApplyEdits(record, Edits{"Mood": 11})
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected RangeError, got %v", err)
	}
	if rangeErr.Name != "Mood" || rangeErr.Value != 11 {
		t.Fatalf("unexpected range error: %+v", rangeErr)
	}
	if v, _ := got.Value("Mood"); v != 5 {
		t.Fatalf("record must be unchanged, got %d", v)
	}
}

func TestApplyEditsIgnoresUnknownNames(t *testing.T) {
	record := NewRecord([]Entry{{Name: "Mood", Value: 5, Row: 2}}, 2, "")

	got, err := ApplyEdits(record, Edits{"Sleep": 3, "Mood": 6})
	if err != nil {
		t.Fatalf("ApplyEdits returned error: %v", err)
	}
	if got.Len() != 1 || got.Has("Sleep") {
		t.Fatalf("unknown names must not be added: %#v", got.Entries())
	}
	if v, _ := got.Value("Mood"); v != 6 {
		t.Fatalf("expected Mood 6, got %d", v)
	}
	if v, _ := record.Value("Mood"); v != 5 {
		t.Fatalf("original record mutated to %d", v)
	}
}

func TestSaveFallsBackToPositionalRows(t *testing.T) {
	store := &fakeStore{table: Table{Header: []string{"Index", "Value"}, Rows: [][]any{{"Mood", 1}}}}
	gw := newTestGateway(t, store)

	record := NewRecord([]Entry{{Name: "Mood", Value: 9}}, 0, "")
	if _, err := gw.Save(context.Background(), record); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if want := []fakeWrite{{row: 2, column: 2, value: 9}}; !reflect.DeepEqual(store.writes, want) {
		t.Fatalf("unexpected writes: %#v", store.writes)
	}
}

func TestApplyEditsIsIdempotent(t *testing.T) {
	store := &fakeStore{table: Table{
		Header: []string{"Index", "Value"},
		Rows:   [][]any{{"Mood", 5}, {"", ""}, {"Physical Pain", 3}},
	}}
	record, err := newTestGateway(t, store).Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	edits := Edits{"Mood": 8, "Physical Pain": 1}

	once, err := ApplyEdits(record, edits)
	if err != nil {
		t.Fatalf("first ApplyEdits returned error: %v", err)
	}
	twice, err := ApplyEdits(once, edits)
	if err != nil {
		t.Fatalf("second ApplyEdits returned error: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("applying edits twice changed the record:\n%#v\n%#v", once.Entries(), twice.Entries())
	}
	if v, _ := twice.Value("Mood"); v != 8 {
		t.Fatalf("expected Mood 8, got %d", v)
	}
}
