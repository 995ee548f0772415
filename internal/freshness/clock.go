// Package freshness renders the store's last modification time as a local wall-clock
// string with a coarse "time ago" qualifier.
package freshness

import (
	"fmt"
	"strings"
	"time"
)

// DisplayLayout formats the local modification time.
const DisplayLayout = "Monday, Jan 02 03:04 PM MST"

// Clock renders freshness strings relative to an injectable now.
type Clock struct {
	location *time.Location
	now      func() time.Time
}

// Option customises a Clock.
type Option func(*Clock)

// WithNow overrides the clock's time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Clock rendering times in location. A nil location means UTC.
func New(location *time.Location, opts ...Option) *Clock {
	if location == nil {
		location = time.UTC
	}
	c := &Clock{location: location, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the display location.
func (c *Clock) Location() *time.Location { return c.location }

// Render parses an RFC 3339 timestamp and returns it in the display location followed
// by a relative qualifier, e.g. "Saturday, Mar 01 08:00 AM CST (5 min ago)".
func (c *Clock) Render(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("freshness: empty timestamp")
	}
	ts, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return "", fmt.Errorf("freshness: parse %q: %w", raw, err)
	}
	local := ts.In(c.location)
	return local.Format(DisplayLayout) + " " + Relative(c.now().Sub(ts)), nil
}

// Relative formats a non-negative elapsed duration with truncating units. Negative
// durations are treated as zero.
func Relative(elapsed time.Duration) string {
	switch {
	case elapsed < time.Minute:
		return "(just now)"
	case elapsed < time.Hour:
		return fmt.Sprintf("(%d min ago)", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("(%d hrs ago)", int(elapsed/time.Hour))
	default:
		return fmt.Sprintf("(%d days ago)", int(elapsed/(24*time.Hour)))
	}
}
