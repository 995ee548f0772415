// Package health reports liveness and probes dependencies for readiness.
package health

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const defaultCheckTimeout = 1500 * time.Millisecond

// Status summarises a check or a whole report.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

// DependencyCheck is one readiness probe.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Status    Status        `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Latency   time.Duration `json:"-"`
	LatencyMS int64         `json:"latencyMs"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// Report aggregates every probe.
type Report struct {
	Status      Status                 `json:"status"`
	Checks      map[string]CheckResult `json:"checks"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// Checker runs dependency probes concurrently.
type Checker struct {
	checks  []DependencyCheck
	timeout time.Duration
	now     func() time.Time
}

// Option customises a Checker.
type Option func(*Checker)

// WithTimeout sets the timeout for checks that do not declare one.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClock injects the clock used for timestamps and latency.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

// NewChecker validates checks and constructs a Checker.
func NewChecker(checks []DependencyCheck, opts ...Option) (*Checker, error) {
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" {
			return nil, errors.New("health: dependency check missing name")
		}
		if check.Check == nil {
			return nil, errors.New("health: dependency " + check.Name + " missing check function")
		}
	}
	c := &Checker{
		checks:  append([]DependencyCheck(nil), checks...),
		timeout: defaultCheckTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collect runs every probe and aggregates the worst status. A timeout or cancellation
// counts as an error; any other failure degrades.
func (c *Checker) Collect(ctx context.Context) Report {
	results := make(map[string]CheckResult, len(c.checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range c.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.run(ctx, check)
			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	report := Report{Status: StatusOK, Checks: results, GeneratedAt: c.now()}
	for _, result := range results {
		switch result.Status {
		case StatusError:
			report.Status = StatusError
		case StatusDegraded:
			if report.Status == StatusOK {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func (c *Checker) run(ctx context.Context, check DependencyCheck) CheckResult {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := c.now()
	err := check.Check(checkCtx)
	end := c.now()
	if err == nil && checkCtx.Err() != nil {
		err = checkCtx.Err()
	}

	result := CheckResult{Status: StatusOK, Latency: end.Sub(start), CheckedAt: end}
	result.LatencyMS = result.Latency.Milliseconds()
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		result.Status, result.Detail = StatusError, "timeout"
	case errors.Is(err, context.Canceled):
		result.Status, result.Detail = StatusError, "cancelled"
	default:
		result.Status, result.Detail = StatusDegraded, err.Error()
	}
	return result
}
