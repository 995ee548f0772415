package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"finitefield.org/statusboard/internal/indicators"
)

// Semantic colours for terminal output, as ANSI codes.
const (
	ColorSuccess lipgloss.Color = "2"
	ColorError   lipgloss.Color = "1"
	ColorWarning lipgloss.Color = "3"
	ColorMuted   lipgloss.Color = "8"
)

var bandColors = map[indicators.Band]lipgloss.Color{
	indicators.BandDepleted:    "1",
	indicators.BandStrained:    "3",
	indicators.BandSteady:      "2",
	indicators.BandThriving:    "4",
	indicators.BandClear:       "2",
	indicators.BandMild:        "3",
	indicators.BandHeavy:       "208",
	indicators.BandSevere:      "1",
	indicators.BandDeepLow:     "5",
	indicators.BandLow:         "4",
	indicators.BandEven:        "2",
	indicators.BandElevated:    "3",
	indicators.BandHigh:        "208",
	indicators.BandExtremeHigh: "1",
}

type styles struct {
	renderer *lipgloss.Renderer
	title    lipgloss.Style
	heading  lipgloss.Style
	caption  lipgloss.Style
	name     lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		renderer: r,
		title:    r.NewStyle().Bold(true),
		heading:  r.NewStyle().Bold(true).Underline(true),
		caption:  r.NewStyle().Foreground(ColorMuted),
		name:     r.NewStyle().Bold(true),
		success:  r.NewStyle().Foreground(ColorSuccess),
		failure:  r.NewStyle().Foreground(ColorError).Bold(true),
	}
}

func (s styles) band(band indicators.Band) lipgloss.Style {
	color, ok := bandColors[band]
	if !ok {
		color = ColorMuted
	}
	return s.renderer.NewStyle().Foreground(color)
}
