package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"

	"finitefield.org/statusboard/internal/dashboard"
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/status"
)

// TerminalPresenter renders a cycle as text and supplies edits given up front.
type TerminalPresenter struct {
	out    io.Writer
	edits  status.Edits
	styles styles
}

var _ dashboard.Presenter = (*TerminalPresenter)(nil)

// NewTerminalPresenter writes to out. A nil or empty edits set makes the cycle read-only.
func NewTerminalPresenter(out io.Writer, edits status.Edits) *TerminalPresenter {
	return &TerminalPresenter{out: out, edits: maps.Clone(edits), styles: newStyles(out)}
}

// RenderSummary prints the title, freshness caption and one line per indicator.
func (p *TerminalPresenter) RenderSummary(_ context.Context, view dashboard.View) error {
	s := p.styles
	lines := []string{
		s.title.Render("🧠 Status"),
		s.caption.Render(fmt.Sprintf("📱 Summary below (Last updated: %s)", view.LastUpdated)),
		"",
		s.heading.Render("Current Status"),
	}
	for _, ind := range view.Indicators {
		value := s.band(ind.Band).Render(fmt.Sprintf("%d - %s", ind.Value, ind.Description))
		lines = append(lines, fmt.Sprintf("%s %s: %s", ind.Marker, s.name.Render(ind.Name), value))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderEditor returns the edits the presenter was built with.
func (p *TerminalPresenter) RenderEditor(context.Context, dashboard.View) (status.Edits, error) {
	return maps.Clone(p.edits), nil
}

// RenderSaveResult prints the outcome of a save.
func (p *TerminalPresenter) RenderSaveResult(_ context.Context, outcome dashboard.SaveOutcome, err error) error {
	if err != nil {
		_, werr := fmt.Fprintln(p.out, p.styles.failure.Render(saveErrorMessage(err)))
		return werr
	}
	msg := "Status updated."
	if ts := outcome.Result.History.Timestamp; ts != "" {
		msg = fmt.Sprintf("%s (history %s)", msg, ts)
	}
	_, werr := fmt.Fprintln(p.out, "\n"+p.styles.success.Render(msg))
	return werr
}

func saveErrorMessage(err error) string {
	var rangeErr *status.RangeError
	if errors.As(err, &rangeErr) {
		return fmt.Sprintf("%s must be a whole number between %d and %d.", rangeErr.Name, indicators.RangeLow, indicators.RangeHigh)
	}
	var syncErr *status.SyncError
	if errors.As(err, &syncErr) {
		return fmt.Sprintf("Error updating sheet: %v", syncErr.Err)
	}
	return fmt.Sprintf("Error updating sheet: %v", err)
}
