package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		tty  bool
		want Mode
	}{
		{name: "auto on terminal", mode: ModeAuto, tty: true, want: ModeText},
		{name: "auto piped", mode: ModeAuto, tty: false, want: ModeMarkdown},
		{name: "empty is auto", mode: "", tty: false, want: ModeMarkdown},
		{name: "explicit csv", mode: ModeCSV, tty: true, want: ModeCSV},
		{name: "explicit json", mode: ModeJSON, tty: false, want: ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTest(tt.mode, tt.tty)
			assert.Equal(t, tt.want, r.EffectiveMode())
			assert.Equal(t, tt.tty, r.IsTTY())
		})
	}
}

func TestNewRenderer_BufferIsNotATerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestTable(t *testing.T) {
	headers := []string{"ID", "Email"}
	rows := [][]string{{"c00", "a@example.com"}, {"c01", "b,c@example.com"}}

	tests := []struct {
		name string
		mode Mode
		want []string
	}{
		{name: "text", mode: ModeText, want: []string{"│", "id", "a@example.com"}},
		{name: "markdown", mode: ModeMarkdown, want: []string{"| id", "| --- |", "| c00 | a@example.com |"}},
		{name: "csv", mode: ModeCSV, want: []string{"id,email", "c00,a@example.com", `c01,"b,c@example.com"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out, _ := newTest(tt.mode, false)
			require.NoError(t, r.Table(headers, rows))
			// Header case depends on the table style.
			got := strings.ToLower(out.String())
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
			assert.NotContains(t, out.String(), "\x1b[", "no ANSI codes off a terminal")
		})
	}
}

func TestTable_JSON(t *testing.T) {
	r, out, _ := newTest(ModeJSON, false)
	require.NoError(t, r.Table([]string{"ID", "Email"}, [][]string{{"c00", "a@example.com"}, {"c01"}}))

	var got []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []map[string]string{
		{"ID": "c00", "Email": "a@example.com"},
		{"ID": "c01"},
	}, got)
}

func TestDiagnosticsGoToErrWriter(t *testing.T) {
	r, out, errOut := newTest(ModeText, false)
	r.Warning("careful")
	r.Error("broken")
	r.Success("done")

	assert.Contains(t, errOut.String(), "! careful")
	assert.Contains(t, errOut.String(), "✗ broken")
	assert.Equal(t, "✓ done\n", out.String())
}

func TestHeader(t *testing.T) {
	r, out, _ := newTest(ModeMarkdown, false)
	r.Header(2, "Resources")
	assert.Equal(t, "## Resources\n", out.String())

	r, out, _ = newTest(ModeText, false)
	r.Header(2, "Resources")
	assert.Equal(t, "Resources\n", out.String())
}

func TestStatusLine(t *testing.T) {
	r, out, _ := newTest(ModeText, false)
	r.StatusLine("clients", "success", "3 rows")
	line := out.String()
	assert.True(t, strings.HasPrefix(line, "  clients"))
	assert.Contains(t, line, "success")
	assert.Contains(t, line, "3 rows")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "**Rows:** 3", FormatKeyValue("Rows", "3"))
}
