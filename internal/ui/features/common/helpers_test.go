package common

import (
	"bytes"
	"context"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeURL(t *testing.T) {
	tests := []struct {
		in   string
		want template.URL
	}{
		{"", ""},
		{"/resources/apps/a1", "/resources/apps/a1"},
		{"https://example.com/doc.pdf", "https://example.com/doc.pdf"},
		{"mailto:ada@example.com", "mailto:ada@example.com"},
		{"tel:+441234", "tel:+441234"},
		{"javascript:alert(1)", "#"},
		{"data:text/html,hi", "#"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeURL(tt.in))
		})
	}
}

func TestDOMID(t *testing.T) {
	assert.Equal(t, "cell-c1-email", DOMID("cell", "c1", "email"))
	assert.Equal(t, "cell-c1-settings.2eplan", DOMID("cell", "c1", "settings.plan"))
	assert.Equal(t, "row-a.20b", DOMID("row", "a b"))
}

func TestPage(t *testing.T) {
	content := Component(template.Must(template.New("x").Parse(`{{define "x"}}<p>{{.}}</p>{{end}}`)), "x", "<hello>")

	var buf bytes.Buffer
	err := Page(ShellData{
		Title: "Clients",
		Nav:   Nav([]string{"apps", "clients"}, map[string]string{"clients": "Clients"}, "clients"),
		IsDev: true,
	}, content).Render(context.Background(), &buf)
	require.NoError(t, err)

	body := buf.String()
	assert.Contains(t, body, "<title>Clients - ifadmin</title>")
	assert.Contains(t, body, "<p>&lt;hello&gt;</p>", "content is escaped once")
	assert.Contains(t, body, `href="/resources/apps"`)
	assert.Contains(t, body, `aria-current="page"`)
	assert.Contains(t, body, "/reload")
}

func TestFlash(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Flash("Could not save", true).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), `id="flash"`)
	assert.Contains(t, buf.String(), "flash--error")
}
