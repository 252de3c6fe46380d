package grid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// UpdateEvent is forwarded to the caller after every cell commit. Rows is
// the shadow copy after a successful merge. It is nil on failure and when
// the rows were replaced while the commit was in flight.
type UpdateEvent struct {
	CellUpdate
	Rows []Row
}

// Callbacks carry user interaction out of the table. Any of them may be nil.
type Callbacks struct {
	OnLoadMore        LoadFunc
	OnUpdateData      func(UpdateEvent)
	OnSelectionChange func(ids []string)
	OnSortChange      func(key string, dir Direction)
	OnRowClick        func(row Row)
}

// Options configure a Table.
type Options struct {
	Selectable   bool
	StickyHeader bool
	Persister    Persister
	Formatter    *Formatter
	Logger       *slog.Logger
	Callbacks    Callbacks
}

// ClickTarget identifies the element a row click originated on.
type ClickTarget string

// Click targets.
const (
	TargetRow      ClickTarget = "row"
	TargetCell     ClickTarget = "cell"
	TargetCheckbox ClickTarget = "checkbox"
	TargetLink     ClickTarget = "link"
)

// ClickEvent describes a click that bubbled up to a row.
type ClickEvent struct {
	RowID  string
	Target ClickTarget
	// InEditableCell is set when the target sits inside an editable cell.
	InEditableCell bool
	// Detail is the click count (2 for a double click).
	Detail int
	// SelectedText is the document text selection at click time.
	SelectedText string
}

type cellKey struct {
	row string
	col string
}

// Table is the grid controller. It is safe for concurrent use; callbacks
// are invoked without holding the table lock, so they may call back into
// the table.
type Table struct {
	mu        sync.RWMutex
	columns   []Column
	colIndex  map[string]int
	rows      []Row
	rowIndex  map[string]int
	gen       uint64
	cells     map[cellKey]*Cell
	selection *Selection
	sort      SortState
	pager     *Pager
	formatter Formatter
	opts      Options
	logger    *slog.Logger
}

// New creates a table over columns. Rows are supplied with SetRows.
func New(columns []Column, opts Options) (*Table, error) {
	if err := ValidateColumns(columns); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	formatter := DefaultFormatter()
	if opts.Formatter != nil {
		formatter = *opts.Formatter
	}

	t := &Table{
		columns:   append([]Column(nil), columns...),
		colIndex:  make(map[string]int, len(columns)),
		rowIndex:  map[string]int{},
		cells:     map[cellKey]*Cell{},
		selection: NewSelection(),
		formatter: formatter,
		opts:      opts,
		logger:    logger,
	}
	for i, c := range t.columns {
		t.colIndex[c.Identifier()] = i
	}
	t.pager = NewPager(t.loadMore)
	return t, nil
}

// Columns returns the column descriptors.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Column returns the column with the given identifier.
func (t *Table) Column(id string) (Column, error) {
	i, ok := t.colIndex[id]
	if !ok {
		return Column{}, fmt.Errorf("%w: %s", ErrUnknownColumn, id)
	}
	return t.columns[i], nil
}

// Formatter returns the formatter used for read-mode rendering.
func (t *Table) Formatter() Formatter { return t.formatter }

// Selectable reports whether rows carry selection checkboxes.
func (t *Table) Selectable() bool { return t.opts.Selectable }

// StickyHeader reports whether the header should stay pinned.
func (t *Table) StickyHeader() bool { return t.opts.StickyHeader }

// SetRows replaces the shadow copy wholesale. Selection, open drafts and the
// last load error are discarded; earlier local edits are never merged into
// the new rows.
func (t *Table) SetRows(rows []Row, hasMore bool) error {
	copied, index, err := indexRows(nil, nil, rows)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.rows = copied
	t.rowIndex = index
	t.gen++
	t.cells = map[cellKey]*Cell{}
	t.selection.Clear()
	t.mu.Unlock()

	t.pager.Reset(hasMore)
	t.logger.Debug("grid rows replaced", "rows", len(copied), "has_more", hasMore)
	return nil
}

// AppendRows adds a page of rows after a load-more request. Selection and
// drafts of existing rows survive.
func (t *Table) AppendRows(rows []Row, hasMore bool) error {
	t.mu.Lock()
	copied, index, err := indexRows(t.rows, t.rowIndex, rows)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.rows = copied
	t.rowIndex = index
	total := len(copied)
	t.mu.Unlock()

	t.pager.SetHasMore(hasMore)
	t.logger.Debug("grid rows appended", "added", len(rows), "rows", total, "has_more", hasMore)
	return nil
}

func indexRows(existing []Row, existingIndex map[string]int, rows []Row) ([]Row, map[string]int, error) {
	out := make([]Row, len(existing), len(existing)+len(rows))
	copy(out, existing)
	index := make(map[string]int, len(existing)+len(rows))
	for k, v := range existingIndex {
		index[k] = v
	}
	for _, r := range rows {
		id := r.ID()
		if id == "" {
			return nil, nil, ErrMissingID
		}
		if _, dup := index[id]; dup {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		index[id] = len(out)
		out = append(out, r.Clone())
	}
	return out, index, nil
}

// Rows returns a copy of the shadow rows.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of rows in the shadow copy.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Row returns the shadow row with the given id.
func (t *Table) Row(id string) (Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.rowIndex[id]
	if !ok {
		return nil, false
	}
	return t.rows[i].Clone(), true
}

// RowIDs returns the ids of all rows in display order.
func (t *Table) RowIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rowIDsLocked()
}

func (t *Table) rowIDsLocked() []string {
	ids := make([]string, len(t.rows))
	for i, r := range t.rows {
		ids[i] = r.ID()
	}
	return ids
}

// Cell returns the controller of one cell. The same controller is returned
// until the rows are replaced, so drafts survive re-renders.
func (t *Table) Cell(rowID, colID string) (*Cell, error) {
	col, err := t.Column(colID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.rowIndex[rowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRow, rowID)
	}
	key := cellKey{row: rowID, col: colID}
	if c, ok := t.cells[key]; ok {
		return c, nil
	}
	gen := t.gen
	c := NewCell(t.rows[i], col, t.opts.Persister, func(u CellUpdate) { t.mergeUpdate(gen, u) })
	c.loc = t.formatter.Location
	c.lookup = func() (Row, bool) { return t.Row(rowID) }
	t.cells[key] = c
	return c, nil
}

// Display renders one cell in read mode.
func (t *Table) Display(rowID, colID string) (Display, error) {
	c, err := t.Cell(rowID, colID)
	if err != nil {
		return Display{}, err
	}
	return c.Display(t.formatter)
}

// Editing returns the cells currently in edit mode.
func (t *Table) Editing() []*Cell {
	t.mu.RLock()
	cells := make([]*Cell, 0, len(t.cells))
	for _, c := range t.cells {
		cells = append(cells, c)
	}
	t.mu.RUnlock()

	var out []*Cell
	for _, c := range cells {
		if c.Editing() {
			out = append(out, c)
		}
	}
	return out
}

// mergeUpdate applies a successful commit to the current shadow row (not a
// snapshot taken when editing started) and forwards the event. Commits of
// cells created before the last SetRows are not merged.
func (t *Table) mergeUpdate(gen uint64, u CellUpdate) {
	event := UpdateEvent{CellUpdate: u}
	if !u.Success {
		t.logger.Debug("grid cell commit failed", "row", u.RowID, "key", u.Key, "error", u.Err)
	} else {
		t.mu.Lock()
		merged := gen == t.gen
		if merged {
			if i, ok := t.rowIndex[u.RowID]; ok {
				t.rows[i] = SetPath(t.rows[i], u.Key, u.Value)
			}
			event.Rows = make([]Row, len(t.rows))
			for i, r := range t.rows {
				event.Rows[i] = r.Clone()
			}
		}
		t.mu.Unlock()
		if merged {
			t.logger.Debug("grid cell saved", "row", u.RowID, "key", u.Key)
		} else {
			t.logger.Debug("grid cell saved after rows were replaced, not merged", "row", u.RowID, "key", u.Key)
		}
	}

	if cb := t.opts.Callbacks.OnUpdateData; cb != nil {
		cb(event)
	}
}

// ToggleRow flips the selection of one row and reports the full selection.
func (t *Table) ToggleRow(id string) error {
	t.mu.Lock()
	if _, ok := t.rowIndex[id]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRow, id)
	}
	t.selection.Toggle(id)
	ids := t.selection.IDs(t.rowIDsLocked())
	t.mu.Unlock()

	t.emitSelection(ids)
	return nil
}

// ToggleAll selects every visible row, or clears the selection when all
// rows are already selected.
func (t *Table) ToggleAll() {
	t.mu.Lock()
	order := t.rowIDsLocked()
	t.selection.ToggleAll(order)
	ids := t.selection.IDs(order)
	t.mu.Unlock()

	t.emitSelection(ids)
}

func (t *Table) emitSelection(ids []string) {
	if cb := t.opts.Callbacks.OnSelectionChange; cb != nil {
		cb(ids)
	}
}

// Selected returns the selected ids in row order.
func (t *Table) Selected() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selection.IDs(t.rowIDsLocked())
}

// IsSelected reports whether the row is selected.
func (t *Table) IsSelected(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selection.Has(id)
}

// AllSelected is the derived "select all" checkbox state.
func (t *Table) AllSelected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selection.AllSelected(len(t.rows))
}

// Sort returns the sort indicator.
func (t *Table) Sort() SortState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sort
}

// SetSort sets the sort indicator without emitting a sort request, for
// callers restoring their own sort state.
func (t *Table) SetSort(s SortState) {
	t.mu.Lock()
	t.sort = s
	t.mu.Unlock()
}

// HeaderClick handles a click on a column header and forwards the new sort
// request. Clicks on non-sortable columns are ignored.
func (t *Table) HeaderClick(colID string) (SortState, bool) {
	col, err := t.Column(colID)
	if err != nil || !col.Sortable {
		return t.Sort(), false
	}

	t.mu.Lock()
	t.sort = t.sort.Next(col.Identifier())
	next := t.sort
	t.mu.Unlock()

	if cb := t.opts.Callbacks.OnSortChange; cb != nil {
		cb(col.SortField(), next.Direction)
	}
	return next, true
}

// RowClick dispatches a row click unless it came from a checkbox, a link,
// an editable cell, a multi-click or an active text selection.
func (t *Table) RowClick(ev ClickEvent) bool {
	cb := t.opts.Callbacks.OnRowClick
	if cb == nil {
		return false
	}
	if ev.Target == TargetCheckbox || ev.Target == TargetLink || ev.InEditableCell {
		return false
	}
	if ev.Detail > 1 || strings.TrimSpace(ev.SelectedText) != "" {
		return false
	}
	row, ok := t.Row(ev.RowID)
	if !ok {
		return false
	}
	cb(row)
	return true
}

// SentinelVisible reports that the bottom sentinel entered the viewport.
// It returns whether a load-more request was issued.
func (t *Table) SentinelVisible(ctx context.Context) bool {
	return t.pager.SentinelVisible(ctx)
}

func (t *Table) loadMore(ctx context.Context) error {
	cb := t.opts.Callbacks.OnLoadMore
	if cb == nil {
		return nil
	}
	t.logger.Debug("grid load more requested", "rows", t.Len())
	err := cb(ctx)
	if err != nil {
		t.logger.Debug("grid load more failed", "error", err)
	}
	return err
}

// HasMore reports whether the caller knows of more pages.
func (t *Table) HasMore() bool { return t.pager.HasMore() }

// Loading reports whether a page load is in flight.
func (t *Table) Loading() bool { return t.pager.Loading() }

// SetLoading marks a caller-driven load.
func (t *Table) SetLoading(loading bool) { t.pager.SetLoading(loading) }

// LoadError returns the error of the last load-more request.
func (t *Table) LoadError() error { return t.pager.LastError() }
