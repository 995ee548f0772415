package status

import (
	"time"
)

// HistoryTimestampLayout formats the save time written in the first history column.
const HistoryTimestampLayout = "2006-01-02 15:04:05"

// DefaultHistoryColumns is the fixed order of tracked indicators in the history sheet,
// following the timestamp column.
var DefaultHistoryColumns = []string{"Mood", "Autistic Battery", "Emotional State", "Physical Pain"}

// HistoryEntry is one append-only audit row captured at save time.
type HistoryEntry struct {
	Timestamp string
	Values    []TrackedValue
}

// TrackedValue is a tracked indicator's value at save time. Present is false when the
// record held no such indicator.
type TrackedValue struct {
	Name    string
	Value   int
	Present bool
}

// NewHistoryEntry snapshots the tracked columns of record at the given local time.
func NewHistoryEntry(record Record, at time.Time, columns []string) HistoryEntry {
	values := make([]TrackedValue, 0, len(columns))
	for _, name := range columns {
		value, ok := record.Value(name)
		values = append(values, TrackedValue{Name: name, Value: value, Present: ok})
	}
	return HistoryEntry{
		Timestamp: at.Format(HistoryTimestampLayout),
		Values:    values,
	}
}

// Row renders the entry as store cells: timestamp, then each tracked value or "" when absent.
func (h HistoryEntry) Row() []any {
	row := make([]any, 0, len(h.Values)+1)
	row = append(row, h.Timestamp)
	for _, v := range h.Values {
		if !v.Present {
			row = append(row, "")
			continue
		}
		row = append(row, v.Value)
	}
	return row
}
