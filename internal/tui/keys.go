package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageDown key.Binding
	PageUp   key.Binding
	Edit     key.Binding
	Open     key.Binding
	Select   key.Binding
	All      key.Binding
	Sort     key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding

	Save    key.Binding
	Cancel  key.Binding
	Newline key.Binding
	Next    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		Edit:     key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit")),
		Open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Select:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		All:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Save:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Newline: key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next option")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Open, k.Select, k.Sort, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.PageDown, k.PageUp},
		{k.Edit, k.Open, k.Select, k.All, k.Sort, k.Reload},
		{k.Save, k.Cancel, k.Newline, k.Next},
		{k.Help, k.Quit},
	}
}

type editorKeys struct {
	keyMap
	textarea bool
	selectOK bool
}

func (k editorKeys) ShortHelp() []key.Binding {
	b := []key.Binding{k.Save, k.Cancel}
	if k.textarea {
		b = append(b, k.Newline)
	}
	if k.selectOK {
		b = append(b, k.Next)
	}
	return b
}

func (k editorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
