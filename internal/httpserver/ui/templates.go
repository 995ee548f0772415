package ui

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.New("_root").Funcs(template.FuncMap{
	"hasRows": func(rows []RowData) bool { return len(rows) > 0 },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Page renders the full status page.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pageTemplates.ExecuteTemplate(w, "base", data)
	})
}
