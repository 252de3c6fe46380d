package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	meta     lipgloss.Style
	header   lipgloss.Style
	cursor   lipgloss.Style
	current  lipgloss.Style
	selected lipgloss.Style
	ok       lipgloss.Style
	warn     lipgloss.Style
	muted    lipgloss.Style
	danger   lipgloss.Style
	status   lipgloss.Style
	label    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Bold(true),
		meta:     r.NewStyle().Foreground(lipgloss.Color("8")),
		header:   r.NewStyle().Bold(true).Underline(true),
		cursor:   r.NewStyle().Background(lipgloss.Color("236")),
		current:  r.NewStyle().Reverse(true),
		selected: r.NewStyle().Foreground(lipgloss.Color("12")),
		ok:       r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:     r.NewStyle().Foreground(lipgloss.Color("3")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
		danger:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		status:   r.NewStyle().Italic(true),
		label:    r.NewStyle().Foreground(lipgloss.Color("8")).Width(16),
	}
}

// class maps a render expression class to a style.
func (s styles) class(name string) (lipgloss.Style, bool) {
	switch name {
	case "ok":
		return s.ok, true
	case "warn":
		return s.warn, true
	case "muted":
		return s.muted, true
	case "danger", "error":
		return s.danger, true
	default:
		return lipgloss.Style{}, false
	}
}
