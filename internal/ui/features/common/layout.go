package common

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var layoutTemplates = template.Must(template.ParseFS(templateFS, "templates/*.gohtml"))

// Component wraps one named html/template as a templ component.
func Component(t *template.Template, name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return t.ExecuteTemplate(w, name, data)
	})
}

// Page renders content inside the page shell.
func Page(shell ShellData, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if content != nil {
			if err := content.Render(ctx, &buf); err != nil {
				return err
			}
		}
		return layoutTemplates.ExecuteTemplate(w, "layout", struct {
			Shell   ShellData
			Content template.HTML
		}{
			Shell:   shell,
			Content: template.HTML(buf.String()), //nolint:gosec // rendered by html/template
		})
	})
}

// Flash renders the status message element.
func Flash(message string, isError bool) templ.Component {
	return Component(layoutTemplates, "flash", struct {
		Message string
		Error   bool
	}{message, isError})
}

// Nav builds the navigation for the given resources.
func Nav(names []string, titles map[string]string, current string) []NavItem {
	items := make([]NavItem, 0, len(names))
	for _, name := range names {
		title := titles[name]
		if title == "" {
			title = name
		}
		items = append(items, NavItem{
			Name:   name,
			Title:  title,
			Href:   "/resources/" + PathEscape(name),
			Active: name == current,
		})
	}
	return items
}
