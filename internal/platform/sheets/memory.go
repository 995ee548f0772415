package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"finitefield.org/statusboard/internal/status"
)

// Operation names a MemoryStore call for fault injection.
type Operation string

const (
	OpRead     Operation = "read"
	OpWrite    Operation = "write"
	OpAppend   Operation = "append"
	OpModified Operation = "modified"
)

// ErrNoModifiedTime is returned by MemoryStore before anything set a modification time.
var ErrNoModifiedTime = errors.New("sheets: memory store has no modification time")

// MemoryStore keeps the status table in process. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	header   []string
	rows     [][]any
	history  [][]any
	modified time.Time
	now      func() time.Time
	faults   map[Operation]error
}

var _ status.Store = (*MemoryStore)(nil)

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the time source used to bump the modification time on writes.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// WithModifiedTime seeds the modification time.
func WithModifiedTime(t time.Time) MemoryOption {
	return func(m *MemoryStore) { m.modified = t }
}

// NewMemoryStore seeds a store with table. Rows are deep-copied.
func NewMemoryStore(table status.Table, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		header: append([]string(nil), table.Header...),
		rows:   copyRows(table.Rows),
		now:    time.Now,
		faults: map[Operation]error{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultTable returns an Index/Value table with every name at value.
func DefaultTable(names []string, value int) status.Table {
	table := status.Table{Header: []string{status.IndexHeader, status.ValueHeader}}
	for _, name := range names {
		table.Rows = append(table.Rows, []any{name, value})
	}
	return table
}

// Fail makes every later call of op return err until cleared with a nil err.
func (m *MemoryStore) Fail(op Operation, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// ReadTable implements status.Store.
func (m *MemoryStore) ReadTable(context.Context) (status.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpRead]; err != nil {
		return status.Table{}, err
	}
	return status.Table{Header: append([]string(nil), m.header...), Rows: copyRows(m.rows)}, nil
}

// WriteCell implements status.Store. Row 1 is the header; the table grows as needed.
func (m *MemoryStore) WriteCell(_ context.Context, row, column, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpWrite]; err != nil {
		return err
	}
	if row < 2 || column < 1 {
		return fmt.Errorf("sheets: memory store cannot write %s", CellRef(row, column))
	}
	for len(m.rows) < row-1 {
		m.rows = append(m.rows, nil)
	}
	cells := m.rows[row-2]
	for len(cells) < column {
		cells = append(cells, "")
	}
	cells[column-1] = value
	m.rows[row-2] = cells
	m.modified = m.now()
	return nil
}

// AppendHistory implements status.Store.
func (m *MemoryStore) AppendHistory(_ context.Context, values []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpAppend]; err != nil {
		return err
	}
	m.history = append(m.history, append([]any(nil), values...))
	m.modified = m.now()
	return nil
}

// ModifiedTime implements status.Store.
func (m *MemoryStore) ModifiedTime(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpModified]; err != nil {
		return "", err
	}
	if m.modified.IsZero() {
		return "", ErrNoModifiedTime
	}
	return m.modified.UTC().Format("2006-01-02T15:04:05.000Z"), nil
}

// Ping reports the read fault, if any.
func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faults[OpRead]
}

// History returns a copy of the appended history rows.
func (m *MemoryStore) History() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.history)
}

func copyRows(rows [][]any) [][]any {
	if rows == nil {
		return nil
	}
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = append([]any(nil), row...)
	}
	return out
}
