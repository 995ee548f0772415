package dashboard

import (
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/status"
)

// UnavailableFreshness replaces the last-updated string when the store could not report
// a modification time.
const UnavailableFreshness = "unavailable"

// View is the presentation model of one loaded record.
type View struct {
	LastUpdated string
	// Fresh is false when LastUpdated is UnavailableFreshness.
	Fresh      bool
	Indicators []IndicatorView
}

// IndicatorView describes one indicator row.
type IndicatorView struct {
	Name        string
	Value       int
	Description string
	Band        indicators.Band
	Marker      string
	Polarity    indicators.Polarity
	Known       bool
	Scale       []ScaleStep
}

// ScaleStep is one selectable value in an editor.
type ScaleStep struct {
	Value       int
	Description string
	Band        indicators.Band
	Marker      string
}

var bandMarkers = map[indicators.Band]string{
	indicators.BandDepleted:    "🔴",
	indicators.BandStrained:    "🟡",
	indicators.BandSteady:      "🟢",
	indicators.BandThriving:    "🔵",
	indicators.BandClear:       "🟢",
	indicators.BandMild:        "🟡",
	indicators.BandHeavy:       "🟠",
	indicators.BandSevere:      "🔴",
	indicators.BandDeepLow:     "🟣",
	indicators.BandLow:         "🔵",
	indicators.BandEven:        "🟢",
	indicators.BandElevated:    "🟡",
	indicators.BandHigh:        "🟠",
	indicators.BandExtremeHigh: "🔴",
}

// Marker returns the coloured circle shown next to a band.
func Marker(band indicators.Band) string {
	if m, ok := bandMarkers[band]; ok {
		return m
	}
	return "⚪"
}

// Indicator returns the view of the named indicator.
func (v View) Indicator(name string) (IndicatorView, bool) {
	for _, ind := range v.Indicators {
		if ind.Name == name {
			return ind, true
		}
	}
	return IndicatorView{}, false
}

func buildIndicators(catalog *indicators.Catalog, record status.Record) []IndicatorView {
	entries := record.Entries()
	out := make([]IndicatorView, 0, len(entries))
	for _, entry := range entries {
		_, err := catalog.Lookup(entry.Name)
		band := catalog.Color(entry.Name, entry.Value)
		view := IndicatorView{
			Name:        entry.Name,
			Value:       entry.Value,
			Description: catalog.Describe(entry.Name, entry.Value),
			Band:        band,
			Marker:      Marker(band),
			Polarity:    catalog.PolarityOf(entry.Name),
			Known:       err == nil,
			Scale:       make([]ScaleStep, 0, indicators.RangeHigh-indicators.RangeLow+1),
		}
		for v := indicators.RangeLow; v <= indicators.RangeHigh; v++ {
			step := catalog.Color(entry.Name, v)
			view.Scale = append(view.Scale, ScaleStep{
				Value:       v,
				Description: catalog.Describe(entry.Name, v),
				Band:        step,
				Marker:      Marker(step),
			})
		}
		out = append(out, view)
	}
	return out
}
