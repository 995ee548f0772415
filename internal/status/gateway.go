package status

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/indicators"
)

const (
	// IndexHeader names the column holding indicator names.
	IndexHeader = "Index"
	// ValueHeader names the column holding indicator values.
	ValueHeader = "Value"

	// HeaderOffset converts a zero-based data row position to a 1-indexed store row.
	HeaderOffset       = 2
	defaultValueColumn = 2
)

// Table is the raw content of the status sheet. Rows[i] lives at store row i+HeaderOffset.
type Table struct {
	Header []string
	Rows   [][]any
}

// Store is the tabular backing store behind the gateway.
type Store interface {
	// ReadTable returns the header and every data row of the status sheet.
	ReadTable(ctx context.Context) (Table, error)
	// WriteCell writes value at the 1-indexed row and column of the status sheet.
	WriteCell(ctx context.Context, row, column, value int) error
	// AppendHistory appends one row to the history sheet.
	AppendHistory(ctx context.Context, values []any) error
	// ModifiedTime returns the store's last modification time in RFC 3339 (UTC).
	ModifiedTime(ctx context.Context) (string, error)
}

// SaveState tracks progress through a single save.
type SaveState int

const (
	StateIdle SaveState = iota
	StateWritingRows
	StateWritingHistory
	StateCommitted
	StateFailed
)

var saveStateNames = map[SaveState]string{
	StateIdle:           "idle",
	StateWritingRows:    "writing_rows",
	StateWritingHistory: "writing_history",
	StateCommitted:      "committed",
	StateFailed:         "failed",
}

// String implements fmt.Stringer.
func (s SaveState) String() string {
	if name, ok := saveStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// SaveResult describes how far a save progressed.
type SaveResult struct {
	State       SaveState
	RowsWritten int
	History     HistoryEntry
}

// GatewayDeps bundles collaborators required to construct a Gateway.
type GatewayDeps struct {
	Store          Store
	Location       *time.Location
	Clock          func() time.Time
	HistoryColumns []string
	Logger         *zap.Logger
}

// Gateway loads and saves status records against a Store.
type Gateway struct {
	store    Store
	location *time.Location
	clock    func() time.Time
	columns  []string
	logger   *zap.Logger
}

// NewGateway validates deps and constructs a Gateway.
func NewGateway(deps GatewayDeps) (*Gateway, error) {
	if deps.Store == nil {
		return nil, errors.New("status gateway: store is required")
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	columns := deps.HistoryColumns
	if len(columns) == 0 {
		columns = DefaultHistoryColumns
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		store:    deps.Store,
		location: location,
		clock:    clock,
		columns:  append([]string(nil), columns...),
		logger:   logger,
	}, nil
}

// Load reads the current record. A sheet without Index/Value headers or without rows
// yields a *SchemaError; store failures yield a *SyncError. A failed modification time
// lookup is logged and leaves Record.ModifiedTime empty.
func (g *Gateway) Load(ctx context.Context) (Record, error) {
	table, err := g.store.ReadTable(ctx)
	if err != nil {
		return Record{}, &SyncError{Stage: StageLoad, Err: err}
	}

	record, err := g.parseTable(table)
	if err != nil {
		return Record{}, err
	}

	modified, err := g.store.ModifiedTime(ctx)
	if err != nil {
		g.logger.Warn("status: modification time unavailable", zap.Error(err))
		modified = ""
	}
	record.ModifiedTime = modified
	return record, nil
}

// Save writes every entry back to its row, then appends one history entry. The first
// failure stops the sequence and is returned as a *SyncError; completed writes stay.
func (g *Gateway) Save(ctx context.Context, record Record) (SaveResult, error) {
	result := SaveResult{State: StateIdle}

	column := record.ValueColumn
	if column <= 0 {
		column = defaultValueColumn
	}

	result.State = StateWritingRows
	for i, entry := range record.entries {
		row := entry.Row
		if row <= 0 {
			row = i + HeaderOffset
		}
		if err := g.store.WriteCell(ctx, row, column, entry.Value); err != nil {
			result.State = StateFailed
			g.logger.Error("status: row write failed",
				zap.String("indicator", entry.Name),
				zap.Int("row", row),
				zap.Int("rows_written", result.RowsWritten),
				zap.Error(err),
			)
			return result, &SyncError{Stage: StageRows, Row: row, Err: err}
		}
		result.RowsWritten++
	}

	result.State = StateWritingHistory
	history := NewHistoryEntry(record, g.clock().In(g.location), g.columns)
	if err := g.store.AppendHistory(ctx, history.Row()); err != nil {
		result.State = StateFailed
		g.logger.Error("status: history append failed",
			zap.Int("rows_written", result.RowsWritten),
			zap.Error(err),
		)
		return result, &SyncError{Stage: StageHistory, Err: err}
	}

	result.History = history
	result.State = StateCommitted
	g.logger.Info("status saved",
		zap.Int("rows_written", result.RowsWritten),
		zap.String("history_timestamp", history.Timestamp),
	)
	return result, nil
}

func (g *Gateway) parseTable(table Table) (Record, error) {
	indexCol, valueCol := -1, -1
	for i, h := range table.Header {
		switch strings.TrimSpace(h) {
		case IndexHeader:
			if indexCol < 0 {
				indexCol = i
			}
		case ValueHeader:
			if valueCol < 0 {
				valueCol = i
			}
		}
	}
	var missing []string
	if indexCol < 0 {
		missing = append(missing, IndexHeader)
	}
	if valueCol < 0 {
		missing = append(missing, ValueHeader)
	}
	if len(missing) > 0 {
		return Record{}, &SchemaError{Missing: missing}
	}

	entries := make([]Entry, 0, len(table.Rows))
	for i, row := range table.Rows {
		name := strings.TrimSpace(cellString(row, indexCol))
		if name == "" {
			continue
		}
		rowNumber := i + HeaderOffset
		value, ok := coerceValue(cell(row, valueCol))
		if !ok {
			g.logger.Warn("status: non-numeric value coerced to range low",
				zap.String("indicator", name),
				zap.Int("row", rowNumber),
				zap.Any("raw", cell(row, valueCol)),
			)
		}
		entries = append(entries, Entry{Name: name, Value: indicators.Clamp(value), Row: rowNumber})
	}
	if len(entries) == 0 {
		return Record{}, &SchemaError{Empty: true}
	}
	return NewRecord(entries, valueCol+1, ""), nil
}

func cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func cellString(row []any, idx int) string {
	switch v := cell(row, idx).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// coerceValue converts a raw cell to an int. The second result is false when the cell
// held nothing numeric, in which case the range low is returned.
func coerceValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return indicators.RangeLow, false
		}
		return int(math.Round(v)), true
	case string:
		trimmed := strings.TrimSpace(v)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(math.Round(f)), true
		}
	}
	return indicators.RangeLow, false
}
