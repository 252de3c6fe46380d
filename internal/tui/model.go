// Package tui is the terminal browser for a resource grid.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ifilter/ifadmin/internal/controller"
	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// Origin tags the writes made from the terminal browser.
const Origin = "tui"

const (
	minColumnWidth = 4
	maxColumnWidth = 28
	chromeLines    = 5
)

// Options configure the browser. Every field is optional.
type Options struct {
	Context  context.Context
	Logger   *slog.Logger
	Renderer *lipgloss.Renderer
	// Notifier delivers outside writes; the grid reloads on them.
	Notifier *notifier.Notifier
}

type (
	loadedMsg struct {
		err  error
		note string
	}
	committedMsg struct {
		outcome grid.Outcome
		update  grid.UpdateEvent
	}
	changedMsg struct {
		change notifier.Change
	}
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx      context.Context
	ctrl     *controller.Controller
	logger   *slog.Logger
	notify   *notifier.Notifier
	changes  chan notifier.Change
	keys     keyMap
	help     help.Model
	spin     spinner.Model
	input    textinput.Model
	area     textarea.Model
	styles   styles
	width    int
	height   int
	row, col int
	top      int
	busy     bool
	editor   *grid.Cell
	detail   grid.Row
	status   string
	failed   bool
}

// New creates the browser over c. Rows are loaded by Init.
func New(c *controller.Controller, opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := opts.Renderer
	if r == nil {
		r = lipgloss.NewRenderer(io.Discard)
	}

	m := &Model{
		ctx:    notifier.WithOrigin(ctx, Origin),
		ctrl:   c,
		logger: logger.With("resource", c.Resource().Name),
		notify: opts.Notifier,
		keys:   defaultKeys(),
		help:   help.New(),
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:  textinput.New(),
		area:   textarea.New(),
		styles: newStyles(r),
		width:  80,
		height: 24,
	}
	m.area.ShowLineNumbers = false
	m.area.SetHeight(3)
	if m.notify != nil {
		m.changes = m.notify.Subscribe(c.Resource().Name)
	}
	return m
}

// Close releases the notifier subscription.
func (m *Model) Close() {
	if m.notify != nil && m.changes != nil {
		m.notify.Unsubscribe(m.changes)
	}
}

// Init loads the first page.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.ctrl.Load, ""), m.waitForChange())
}

func (m *Model) run(fn func(context.Context) error, note string) tea.Cmd {
	m.busy = true
	ctx := m.ctx
	return tea.Batch(func() tea.Msg {
		return loadedMsg{err: fn(ctx), note: note}
	}, m.spin.Tick)
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return changedMsg{change: change}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-20, 10)
		m.area.SetWidth(max(msg.Width-4, 10))
		m.scroll()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loadedMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.setStatus("Load failed: "+msg.err.Error(), true)
		case msg.note != "":
			m.setStatus(msg.note, false)
		}
		m.clamp()
		return m, nil

	case committedMsg:
		m.committed(msg)
		return m, nil

	case changedMsg:
		cmd := m.waitForChange()
		if msg.change.Origin == Origin || m.editor != nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.run(m.ctrl.Reload, "Reloaded after an outside change"))

	case tea.KeyMsg:
		switch {
		case m.editor != nil:
			return m.updateEditor(msg)
		case m.detail != nil:
			return m.updateDetail(msg)
		default:
			return m.updateGrid(msg)
		}
	}
	return m, nil
}

func (m *Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	table := m.ctrl.Table()
	ids := table.RowIDs()
	columns := table.Columns()
	m.clamp()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.row--
	case key.Matches(msg, m.keys.Down):
		m.row++
	case key.Matches(msg, m.keys.PageUp):
		m.row -= m.visibleRows()
	case key.Matches(msg, m.keys.PageDown):
		m.row += m.visibleRows()
	case key.Matches(msg, m.keys.Left):
		m.col--
	case key.Matches(msg, m.keys.Right):
		m.col++
	case key.Matches(msg, m.keys.Reload):
		return m, m.run(m.ctrl.Reload, "Reloaded")
	case len(ids) == 0:
		return m, nil
	case key.Matches(msg, m.keys.Select):
		if table.Selectable() {
			_ = table.ToggleRow(ids[m.row])
		}
	case key.Matches(msg, m.keys.All):
		if table.Selectable() {
			table.ToggleAll()
		}
	case key.Matches(msg, m.keys.Sort):
		return m, m.sort(columns[m.col])
	case key.Matches(msg, m.keys.Open):
		if table.RowClick(grid.ClickEvent{RowID: ids[m.row], Target: grid.TargetRow, Detail: 1}) {
			m.detail, _ = table.Row(ids[m.row])
		}
	case key.Matches(msg, m.keys.Edit):
		return m, m.edit(ids[m.row], columns[m.col])
	}

	m.clamp()
	// The last row is the sentinel.
	if len(ids) > 0 && m.row == len(ids)-1 && table.HasMore() && !m.busy {
		return m, m.run(func(ctx context.Context) error {
			m.ctrl.LoadMore(ctx)
			return m.ctrl.Table().LoadError()
		}, "")
	}
	return m, nil
}

func (m *Model) sort(col grid.Column) tea.Cmd {
	if !col.Sortable {
		m.setStatus(col.Label+" is not sortable", false)
		return nil
	}
	id := col.Identifier()
	m.row, m.top = 0, 0
	return m.run(func(ctx context.Context) error {
		_, err := m.ctrl.Sort(ctx, id)
		return err
	}, "")
}

func (m *Model) edit(rowID string, col grid.Column) tea.Cmd {
	cell, err := m.ctrl.Table().Cell(rowID, col.Identifier())
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	if col.Editable() && col.IsBooleanEditor() {
		return m.commit(cell.Toggle)
	}
	if !cell.Click() {
		m.setStatus(col.Label+" is read only", false)
		return nil
	}

	m.editor = cell
	draft := grid.Text(cell.Draft().Value)
	if cell.Editor() == grid.EditorTextarea {
		m.area.SetValue(draft)
		return m.area.Focus()
	}
	m.input.SetValue(draft)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) commit(fn func(context.Context) grid.Outcome) tea.Cmd {
	ctx := m.ctx
	ctrl := m.ctrl
	return func() tea.Msg {
		outcome := fn(ctx)
		return committedMsg{outcome: outcome, update: ctrl.LastUpdate()}
	}
}

func (m *Model) committed(msg committedMsg) {
	switch msg.outcome {
	case grid.OutcomeSaved:
		m.setStatus("Saved "+msg.update.Key, false)
	case grid.OutcomeUnchanged:
		m.setStatus("No change", false)
	case grid.OutcomeBusy:
		m.setStatus("Still saving the previous change", true)
	case grid.OutcomeFailed:
		text := "Update failed"
		if msg.update.Err != nil {
			text += ": " + msg.update.Err.Error()
		}
		m.setStatus(text, true)
	}
}

func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cell := m.editor
	isArea := cell.Editor() == grid.EditorTextarea

	switch {
	case key.Matches(msg, m.keys.Cancel):
		cell.Key(m.ctx, grid.KeyEvent{Key: grid.KeyEscape})
		m.closeEditor()
		return m, nil
	case isArea && key.Matches(msg, m.keys.Newline):
		m.area.InsertString("\n")
		return m, nil
	case !isArea && cell.Editor() == grid.EditorSelect && key.Matches(msg, m.keys.Next):
		m.input.SetValue(nextOption(cell.Column().Options, m.input.Value()))
		m.input.CursorEnd()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		value := m.input.Value()
		if isArea {
			value = m.area.Value()
		}
		cell.SetDraft(value)
		m.closeEditor()
		return m, m.commit(func(ctx context.Context) grid.Outcome {
			return cell.Key(ctx, grid.KeyEvent{Key: grid.KeyEnter})
		})
	}

	var cmd tea.Cmd
	if isArea {
		m.area, cmd = m.area.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) closeEditor() {
	m.editor = nil
	m.input.Blur()
	m.area.Blur()
}

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Open), key.Matches(msg, m.keys.Quit):
		m.detail = nil
	}
	return m, nil
}

func nextOption(options []grid.Option, current string) string {
	if len(options) == 0 {
		return current
	}
	for i, o := range options {
		if o.Value == current {
			return options[(i+1)%len(options)].Value
		}
	}
	return options[0].Value
}

func (m *Model) setStatus(text string, failed bool) {
	m.status, m.failed = text, failed
	if failed {
		m.logger.Warn(text)
	}
}

func (m *Model) visibleRows() int {
	extra := 0
	if m.editor != nil {
		extra = 2
		if m.editor.Editor() == grid.EditorTextarea {
			extra = 4
		}
	}
	return max(m.height-chromeLines-extra, 1)
}

func (m *Model) clamp() {
	table := m.ctrl.Table()
	m.row = min(max(m.row, 0), max(table.Len()-1, 0))
	m.col = min(max(m.col, 0), max(len(table.Columns())-1, 0))
	m.scroll()
}

func (m *Model) scroll() {
	visible := m.visibleRows()
	if m.row < m.top {
		m.top = m.row
	}
	if m.row >= m.top+visible {
		m.top = m.row - visible + 1
	}
	m.top = max(m.top, 0)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.detail != nil {
		return m.viewDetail()
	}

	table := m.ctrl.Table()
	res := m.ctrl.Resource()
	var b strings.Builder

	meta := fmt.Sprintf("%d rows", table.Len())
	if table.HasMore() {
		meta += "+"
	}
	if table.Selectable() {
		meta += fmt.Sprintf(", %d selected", len(table.Selected()))
	}
	b.WriteString(m.styles.title.Render(res.Title) + "  " + m.styles.meta.Render(meta))
	if m.busy {
		b.WriteString(" " + m.spin.View())
	}
	b.WriteString("\n")

	b.WriteString(m.viewTable())

	if m.editor != nil {
		b.WriteString("\n" + m.styles.label.Render(m.editor.Column().Label))
		if m.editor.Editor() == grid.EditorTextarea {
			b.WriteString("\n" + m.area.View())
		} else {
			b.WriteString(m.input.View())
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		style := m.styles.status
		if m.failed {
			style = m.styles.danger
		}
		b.WriteString(style.Render(m.status))
	}
	b.WriteString("\n")
	if m.editor != nil {
		b.WriteString(m.help.View(editorKeys{
			keyMap:   m.keys,
			textarea: m.editor.Editor() == grid.EditorTextarea,
			selectOK: m.editor.Editor() == grid.EditorSelect,
		}))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

var sortIndicator = map[grid.Direction]string{grid.Asc: " ▲", grid.Desc: " ▼"}

type renderedCell struct {
	text  string
	style lipgloss.Style
	plain bool
}

func (m *Model) viewTable() string {
	table := m.ctrl.Table()
	columns := table.Columns()
	ids := table.RowIDs()
	formatter := table.Formatter()
	sort := table.Sort()

	end := min(m.top+m.visibleRows(), len(ids))
	visible := ids[m.top:end]

	cells := make([][]renderedCell, len(visible))
	labels := make([]string, len(columns))
	widths := make([]int, len(columns))
	for i, col := range columns {
		labels[i] = col.Label
		if sort.IsSorted() && sort.Column == col.Identifier() {
			labels[i] += sortIndicator[sort.Direction]
		}
		widths[i] = lipgloss.Width(labels[i])
	}
	for r, id := range visible {
		cells[r] = make([]renderedCell, len(columns))
		for i, col := range columns {
			rc := m.renderCell(table, id, col, formatter)
			cells[r][i] = rc
			widths[i] = max(widths[i], lipgloss.Width(rc.text))
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], minColumnWidth), maxColumnWidth)
	}

	var b strings.Builder
	if table.Selectable() {
		mark := "[ ]"
		if table.AllSelected() {
			mark = "[x]"
		}
		b.WriteString(mark + " ")
	}
	for i, label := range labels {
		b.WriteString(m.styles.header.Render(pad(label, widths[i])))
		b.WriteString(" ")
	}
	b.WriteString("\n")

	if len(ids) == 0 {
		b.WriteString(m.styles.muted.Render("No records."))
		b.WriteString("\n")
		return b.String()
	}

	for r, id := range visible {
		var line strings.Builder
		if table.Selectable() {
			mark := "[ ]"
			if table.IsSelected(id) {
				mark = m.styles.selected.Render("[x]")
			}
			line.WriteString(mark + " ")
		}
		rowIndex := m.top + r
		for i, rc := range cells[r] {
			text := pad(rc.text, widths[i])
			switch {
			case rowIndex == m.row && i == m.col:
				text = m.styles.current.Render(text)
			case !rc.plain:
				text = rc.style.Render(text)
			}
			line.WriteString(text + " ")
		}
		out := line.String()
		if rowIndex == m.row {
			out = m.styles.cursor.Render(out)
		}
		b.WriteString(out + "\n")
	}
	if err := table.LoadError(); err != nil {
		b.WriteString(m.styles.danger.Render("Could not load more rows (r to reload)") + "\n")
	}
	return b.String()
}

func (m *Model) renderCell(table *grid.Table, rowID string, col grid.Column, f grid.Formatter) renderedCell {
	cell, err := table.Cell(rowID, col.Identifier())
	if err != nil {
		return renderedCell{text: "", plain: true}
	}
	if cell.Editing() {
		return renderedCell{text: "…", style: m.styles.warn}
	}
	d, err := cell.Display(f)
	if err != nil {
		m.logger.Error("cell render failed", "row", rowID, "column", col.Identifier(), "error", err)
		return renderedCell{text: "!", style: m.styles.danger}
	}
	rc := renderedCell{text: displayText(d), plain: true}
	switch {
	case d.Overdue:
		rc.style, rc.plain = m.styles.danger, false
	case d.Class != "":
		if style, ok := m.styles.class(d.Class); ok {
			rc.style, rc.plain = style, false
		}
	case d.Kind == grid.KindPill && d.Checked:
		rc.style, rc.plain = m.styles.ok, false
	}
	return rc
}

func (m *Model) viewDetail() string {
	res := m.ctrl.Resource()
	f := m.ctrl.Table().Formatter()
	var b strings.Builder
	b.WriteString(m.styles.title.Render(res.Title+" / "+m.detail.ID()) + "\n\n")
	for _, col := range res.Columns {
		d, err := grid.NewCell(m.detail, col, nil, nil).Display(f)
		text := displayText(d)
		if err != nil {
			text = "!"
		}
		b.WriteString(m.styles.label.Render(col.Label) + " " + text + "\n")
	}
	b.WriteString("\n" + m.styles.meta.Render("esc back"))
	return b.String()
}

// displayText flattens a display into one line of terminal text.
func displayText(d grid.Display) string {
	switch d.Kind {
	case grid.KindActions:
		names := make([]string, 0, len(d.Actions))
		for _, a := range d.Actions {
			names = append(names, a.Name)
		}
		return strings.Join(names, " | ")
	case grid.KindImage:
		if d.ImageSrc == "" {
			return ""
		}
		return "[img]"
	default:
		return strings.ReplaceAll(d.Text, "\n", " ")
	}
}

func pad(text string, width int) string {
	if lipgloss.Width(text) > width {
		runes := []rune(text)
		for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
			runes = runes[:len(runes)-1]
		}
		text = string(runes) + "…"
	}
	return text + strings.Repeat(" ", max(width-lipgloss.Width(text), 0))
}
