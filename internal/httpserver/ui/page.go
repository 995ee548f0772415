package ui

import (
	"fmt"

	"finitefield.org/statusboard/internal/dashboard"
	"finitefield.org/statusboard/internal/platform/textutil"
)

const (
	pageTitle     = "🧠 Status"
	fieldPrefix   = "indicator."
	savedMessage  = "Status updated."
	defaultReturn = "/"
)

// PageData is the full status page payload.
type PageData struct {
	Title          string
	Caption        string
	Rows           []RowData
	CSRFToken      string
	CSRFField      string
	RefreshSeconds int
	RefreshURL     string
	Flash          string
	Error          string
}

// RowData is one indicator in the summary and editor.
type RowData struct {
	Name        string
	FieldName   string
	Value       int
	Description string
	Band        string
	Class       string
	Marker      string
	Known       bool
	Options     []OptionData
}

// OptionData is one selectable editor value.
type OptionData struct {
	Value    int
	Label    string
	Selected bool
}

// BuildPageData shapes a dashboard view for the page template.
func BuildPageData(view dashboard.View) PageData {
	rows := make([]RowData, 0, len(view.Indicators))
	for _, ind := range view.Indicators {
		row := RowData{
			Name:        textutil.StripMarkup(ind.Name),
			FieldName:   fieldPrefix + ind.Name,
			Value:       ind.Value,
			Description: ind.Description,
			Band:        ind.Band.String(),
			Class:       "band-" + ind.Band.String(),
			Marker:      ind.Marker,
			Known:       ind.Known,
			Options:     make([]OptionData, 0, len(ind.Scale)),
		}
		for _, step := range ind.Scale {
			row.Options = append(row.Options, OptionData{
				Value:    step.Value,
				Label:    fmt.Sprintf("%s %d - %s", step.Marker, step.Value, step.Description),
				Selected: step.Value == ind.Value,
			})
		}
		rows = append(rows, row)
	}
	return PageData{
		Title:      pageTitle,
		Caption:    caption(view.LastUpdated),
		Rows:       rows,
		RefreshURL: defaultReturn,
	}
}

func caption(lastUpdated string) string {
	return fmt.Sprintf("📱 Summary below (Last updated: %s)", lastUpdated)
}
