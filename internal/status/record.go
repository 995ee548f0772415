// Package status models the current indicator values held in the backing store and
// synchronises them: loading the record, applying edits and saving with a history entry.
package status

import (
	"maps"
	"slices"

	"finitefield.org/statusboard/internal/indicators"
)

// Entry is one indicator row of the record.
type Entry struct {
	Name  string
	Value int
	// Row is the 1-indexed store row the entry was read from. Saves write back to it.
	Row int
}

// Record is a snapshot of every indicator value in the store, in store row order.
type Record struct {
	entries []Entry
	// ValueColumn is the 1-indexed store column holding values.
	ValueColumn int
	// ModifiedTime is the store's raw last-modification timestamp at load time, not the load instant.
	ModifiedTime string
}

// Edits maps indicator names to replacement values.
type Edits map[string]int

// NewRecord builds a record from entries. Entries are copied.
func NewRecord(entries []Entry, valueColumn int, modifiedTime string) Record {
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return Record{entries: copied, ValueColumn: valueColumn, ModifiedTime: modifiedTime}
}

// Entries returns a copy of the entries in store row order.
func (r Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r Record) Len() int { return len(r.entries) }

// Value returns the value of the first entry called name.
func (r Record) Value(name string) (int, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return 0, false
}

// Has reports whether the record holds an entry called name.
func (r Record) Has(name string) bool {
	_, ok := r.Value(name)
	return ok
}

// Values returns the record as a name to value map.
func (r Record) Values() map[string]int {
	out := make(map[string]int, len(r.entries))
	for _, e := range r.entries {
		if _, seen := out[e.Name]; !seen {
			out[e.Name] = e.Value
		}
	}
	return out
}

// ApplyEdits returns a copy of record with every edited entry overwritten. Names the
// record does not hold are ignored. If any edit is outside the indicator range the
// whole edit set is rejected with a *RangeError and record is returned unchanged.
func ApplyEdits(record Record, edits Edits) (Record, error) {
	for _, name := range slices.Sorted(maps.Keys(edits)) {
		if value := edits[name]; !indicators.InRange(value) {
			return record, &RangeError{Name: name, Value: value}
		}
	}
	next := NewRecord(record.entries, record.ValueColumn, record.ModifiedTime)
	for i := range next.entries {
		if value, ok := edits[next.entries[i].Name]; ok {
			next.entries[i].Value = value
		}
	}
	return next, nil
}
