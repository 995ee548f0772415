package status

import (
	"fmt"
	"strings"

	"finitefield.org/statusboard/internal/indicators"
)

// SchemaError reports a backing store that lacks the Index/Value columns or has no rows.
// It is fatal for the current cycle.
type SchemaError struct {
	Missing []string
	Empty   bool
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Empty {
		return "status: sheet has no status rows"
	}
	return fmt.Sprintf("status: sheet must have %s headers", quoteJoin(e.Missing))
}

// Stage names the step of a load or save that failed.
type Stage string

const (
	StageLoad    Stage = "load"
	StageRows    Stage = "rows"
	StageHistory Stage = "history"
)

// SyncError wraps a backing store failure. Writes completed before the failure are not undone.
type SyncError struct {
	Stage Stage
	Row   int
	Err   error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("status: %s failed at row %d: %v", e.Stage, e.Row, e.Err)
	}
	return fmt.Sprintf("status: %s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying store error.
func (e *SyncError) Unwrap() error { return e.Err }

// RangeError rejects an edit whose value lies outside the indicator range.
type RangeError struct {
	Name  string
	Value int
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("status: %s value %d outside [%d, %d]", e.Name, e.Value, indicators.RangeLow, indicators.RangeHigh)
}

func quoteJoin(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+v+"'")
	}
	return strings.Join(quoted, " and ")
}
