package ui

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/statusboard/internal/dashboard"
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/status"
)

func TestBuildPageDataMarksSelectedOption(t *testing.T) {
	t.Parallel()

	view := dashboard.View{
		LastUpdated: dashboard.UnavailableFreshness,
		Indicators: []dashboard.IndicatorView{{
			Name:   "Physical Pain",
			Value:  7,
			Band:   indicators.BandHeavy,
			Marker: "🟠",
			Scale: []dashboard.ScaleStep{
				{Value: 6, Description: "Drastic limitations", Band: indicators.BandHeavy, Marker: "🟠"},
				{Value: 7, Description: "Barely functioning", Band: indicators.BandHeavy, Marker: "🟠"},
			},
		}},
	}

	data := BuildPageData(view)

	require.Equal(t, "📱 Summary below (Last updated: unavailable)", data.Caption)
	require.Len(t, data.Rows, 1)
	row := data.Rows[0]
	require.Equal(t, "indicator.Physical Pain", row.FieldName)
	require.Equal(t, "band-heavy", row.Class)
	require.Equal(t, []OptionData{
		{Value: 6, Label: "🟠 6 - Drastic limitations"},
		{Value: 7, Label: "🟠 7 - Barely functioning", Selected: true},
	}, row.Options)
}

func TestPageOmitsDataWhenErrored(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Page(PageData{Title: pageTitle, Error: "The status sheet has no indicator rows."}).Render(context.Background(), &buf)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	require.Equal(t, "The status sheet has no indicator rows.", doc.Find("[data-error]").Text())
	require.Equal(t, 0, doc.Find("[data-editor]").Length())
	require.Equal(t, 0, doc.Find("meta[data-auto-refresh]").Length())
}

func TestEditsFromForm(t *testing.T) {
	t.Parallel()

	edits, err := editsFromForm(url.Values{
		"_csrf":                     {"token"},
		"indicator.Mood":            {" 4 "},
		"indicator.Emotional State": {"9"},
		"indicator.":                {"3"},
	})
	require.NoError(t, err)
	require.Equal(t, status.Edits{"Mood": 4, "Emotional State": 9}, edits)

	_, err = editsFromForm(url.Values{"indicator.<i>Mood</i>": {"x"}})
	require.EqualError(t, err, "Mood must be a whole number between 0 and 10.")
}
