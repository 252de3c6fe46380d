package tui

import (
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/controller"
	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/internal/store"
	"github.com/ifilter/ifadmin/internal/testutil"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// Client column positions in the built-in catalog.
const (
	colEmail  = 1
	colPhone  = 2
	colPlan   = 3
	colActive = 4
)

func setupModel(t *testing.T, clients int, notify *notifier.Notifier) (*Model, *store.Store) {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:", Logger: logger, Notifier: notify})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	rows := make([]grid.Row, clients)
	for i := range rows {
		id := string(rune('0'+i/10)) + string(rune('0'+i%10))
		rows[i] = grid.Row{
			"id": "c" + id, "first_name": "First" + id, "last_name": "Last" + id,
			"email": "c" + id + "@example.com", "active": true,
			"settings": map[string]any{"plan": "free"},
		}
	}
	if clients > 0 {
		_, err = st.Seed(ctx, map[string][]grid.Row{"clients": rows})
		require.NoError(t, err)
	}

	cat, err := catalog.New(nil, logger, 0)
	require.NoError(t, err)
	res, err := cat.Get("clients")
	require.NoError(t, err)

	c, err := controller.New(res, st, controller.Options{
		Logger:     logger,
		OnRowClick: func(grid.Row) {},
	})
	require.NoError(t, err)

	m := New(c, Options{Logger: logger, Notifier: notify})
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	settle(t, m, m.Init())
	return m, st
}

// settle runs cmd and feeds the resulting messages back into m until no
// work is left. Commands that do not answer promptly (cursor blinks,
// notifier waits) and spinner ticks are dropped.
func settle(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		done := make(chan tea.Msg, 1)
		go func() { done <- next() }()
		var msg tea.Msg
		select {
		case msg = <-done:
		case <-time.After(300 * time.Millisecond):
			continue
		}

		switch msg := msg.(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
		}
	}
}

func press(t *testing.T, m *Model, keys ...tea.KeyMsg) {
	t.Helper()
	for _, k := range keys {
		_, cmd := m.Update(k)
		settle(t, m, cmd)
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

func right(n int) []tea.KeyMsg {
	keys := make([]tea.KeyMsg, n)
	for i := range keys {
		keys[i] = keyRight
	}
	return keys
}

func TestModel_InitLoadsRows(t *testing.T) {
	m, _ := setupModel(t, 3, nil)

	view := m.View()
	assert.Contains(t, view, "Clients")
	assert.Contains(t, view, "3 rows, 0 selected")
	assert.Contains(t, view, "First00 Last00")
	assert.Contains(t, view, "c02@example.com")
	assert.False(t, m.busy)
}

func TestModel_EmptyResource(t *testing.T) {
	m, _ := setupModel(t, 0, nil)

	press(t, m, keyDown, keyEnter, runes("s"), keySpace)
	assert.Contains(t, m.View(), "No records.")
}

func TestModel_LastRowLoadsMore(t *testing.T) {
	m, _ := setupModel(t, 30, nil)
	require.Equal(t, 25, m.ctrl.Table().Len())
	assert.Contains(t, m.View(), "25 rows+")

	for range 24 {
		press(t, m, keyDown)
	}

	assert.Equal(t, 30, m.ctrl.Table().Len())
	assert.Equal(t, 24, m.row, "cursor stays put while rows are appended")
	assert.Contains(t, m.View(), "30 rows,")
}

func TestModel_Selection(t *testing.T) {
	m, _ := setupModel(t, 3, nil)

	press(t, m, keySpace)
	assert.Contains(t, m.View(), "1 selected")
	assert.Equal(t, []string{"c00"}, m.ctrl.Table().Selected())

	press(t, m, runes("a"))
	assert.Contains(t, m.View(), "3 selected")

	press(t, m, runes("a"))
	assert.Contains(t, m.View(), "0 selected")
}

func TestModel_Sort(t *testing.T) {
	m, _ := setupModel(t, 3, nil)

	press(t, m, right(colEmail)...)
	press(t, m, runes("s"))
	assert.Equal(t, grid.SortState{Column: "email", Direction: grid.Asc}, m.ctrl.Table().Sort())
	assert.Contains(t, m.View(), "▲")

	press(t, m, runes("s"))
	assert.Equal(t, "c02", m.ctrl.Table().RowIDs()[0])
	assert.Contains(t, m.View(), "▼")

	press(t, m, right(colPhone-colEmail)...)
	press(t, m, runes("s"))
	assert.Contains(t, m.status, "not sortable")
}

func TestModel_EditAndSave(t *testing.T) {
	m, st := setupModel(t, 2, nil)

	press(t, m, right(colEmail)...)
	press(t, m, keyEnter)
	require.NotNil(t, m.editor)
	assert.Equal(t, "c00@example.com", m.input.Value())

	m.input.SetValue("new@example.com")
	press(t, m, keyEnter)

	assert.Nil(t, m.editor)
	assert.Equal(t, "Saved email", m.status)
	row, err := st.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", row["email"])
	assert.Contains(t, m.View(), "new@example.com")
}

func TestModel_EscapeCancels(t *testing.T) {
	m, st := setupModel(t, 1, nil)

	press(t, m, right(colEmail)...)
	press(t, m, keyEnter)
	m.input.SetValue("discarded@example.com")
	press(t, m, keyEsc)

	assert.Nil(t, m.editor)
	row, err := st.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, "c00@example.com", row["email"])
}

func TestModel_ToggleBoolean(t *testing.T) {
	m, st := setupModel(t, 1, nil)

	press(t, m, right(colActive)...)
	press(t, m, keyEnter)

	assert.Nil(t, m.editor, "boolean cells never open an editor")
	row, err := st.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, false, row["active"])
}

func TestModel_SelectEditor(t *testing.T) {
	m, st := setupModel(t, 1, nil)

	press(t, m, right(colPlan)...)
	press(t, m, keyEnter)
	require.NotNil(t, m.editor)
	assert.Equal(t, "free", m.input.Value())

	press(t, m, keyTab)
	assert.Equal(t, "pro", m.input.Value())
	press(t, m, keyEnter)

	row, err := st.Get(context.Background(), "clients", "c00")
	require.NoError(t, err)
	assert.Equal(t, "pro", grid.Resolve(row, "settings.plan"))
}

func TestModel_FailedSave(t *testing.T) {
	m, _ := setupModel(t, 1, nil)

	press(t, m, right(colPlan)...)
	press(t, m, keyEnter)
	m.input.SetValue("gold")
	press(t, m, keyEnter)

	assert.True(t, m.failed)
	assert.Contains(t, m.status, "Update failed")
	assert.Contains(t, m.status, "not one of the column options")
}

func TestModel_OpenRow(t *testing.T) {
	m, _ := setupModel(t, 2, nil)

	press(t, m, keyDown, runes("o"))
	require.NotNil(t, m.detail)
	view := m.View()
	assert.Contains(t, view, "Clients / c01")
	assert.Contains(t, view, "c01@example.com")

	press(t, m, keyEsc)
	assert.Nil(t, m.detail)
}

func TestModel_Quit(t *testing.T) {
	m, _ := setupModel(t, 1, nil)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_OutsideChangeReloads(t *testing.T) {
	notify := notifier.New()
	m, st := setupModel(t, 2, notify)

	ctx := notifier.WithOrigin(context.Background(), "web")
	require.NoError(t, st.Update(ctx, "clients", "c01", map[string]any{"email": "web@example.com"}))

	_, cmd := m.Update(changedMsg{change: notifier.Change{Resource: "clients", RowID: "c01", Origin: "web"}})
	settle(t, m, cmd)
	assert.Contains(t, m.View(), "web@example.com")
	assert.Contains(t, m.status, "outside change")

	// Own writes are already in the grid.
	m.status = ""
	_, cmd = m.Update(changedMsg{change: notifier.Change{Resource: "clients", Origin: Origin}})
	settle(t, m, cmd)
	assert.Empty(t, m.status)
}

func TestDisplayText(t *testing.T) {
	tests := []struct {
		name string
		in   grid.Display
		want string
	}{
		{name: "text", in: grid.Display{Kind: grid.KindText, Text: "a\nb"}, want: "a b"},
		{name: "actions", in: grid.Display{Kind: grid.KindActions, Actions: []grid.Action{{Name: "view"}, {Name: "download"}}}, want: "view | download"},
		{name: "image", in: grid.Display{Kind: grid.KindImage, ImageSrc: "/logo.png"}, want: "[img]"},
		{name: "no image", in: grid.Display{Kind: grid.KindImage}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayText(tt.in))
		})
	}
}

func TestPad(t *testing.T) {
	assert.Equal(t, "ab  ", pad("ab", 4))
	assert.Equal(t, "abc…", pad("abcdef", 4))
	assert.Equal(t, "abcd", pad("abcd", 4))
}

func TestNextOption(t *testing.T) {
	options := []grid.Option{{Value: "a"}, {Value: "b"}}
	assert.Equal(t, "b", nextOption(options, "a"))
	assert.Equal(t, "a", nextOption(options, "b"))
	assert.Equal(t, "a", nextOption(options, "zzz"))
	assert.Equal(t, "x", nextOption(nil, "x"))
}
