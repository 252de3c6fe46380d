package grid

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Errors reported in CellUpdate.Err when a draft cannot be committed.
var (
	ErrInvalidNumber = errors.New("value is not a number")
	ErrInvalidOption = errors.New("value is not one of the column options")
)

// Persister stores a committed edit. payload is shaped after the column key:
// a dotted key produces nested maps.
type Persister interface {
	Persist(ctx context.Context, rowID string, payload map[string]any) error
}

// PersistFunc adapts a function to the Persister interface.
type PersistFunc func(ctx context.Context, rowID string, payload map[string]any) error

// Persist calls f.
func (f PersistFunc) Persist(ctx context.Context, rowID string, payload map[string]any) error {
	return f(ctx, rowID, payload)
}

// CellUpdate reports a committed or failed edit. When Success is false,
// Value holds the original value the caller should roll back to.
type CellUpdate struct {
	Success bool
	RowID   string
	Key     string
	Value   any
	Err     error
}

// UpdateFunc receives every commit outcome of a cell.
type UpdateFunc func(CellUpdate)

// Draft is the transient edit state of one cell.
type Draft struct {
	Editing bool
	Value   any
}

// Outcome describes what a commit attempt did.
type Outcome int

const (
	// OutcomeNotEditing means there was no open draft to commit.
	OutcomeNotEditing Outcome = iota
	// OutcomeUnchanged means the draft equalled the original value and no
	// update was emitted.
	OutcomeUnchanged
	// OutcomeSaved means the edit was persisted (or was local-only).
	OutcomeSaved
	// OutcomeFailed means the edit was rejected and reported as a failure.
	OutcomeFailed
	// OutcomeBusy means a commit for this cell is already in flight.
	OutcomeBusy
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeNotEditing:
		return "not-editing"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSaved:
		return "saved"
	case OutcomeFailed:
		return "failed"
	case OutcomeBusy:
		return "busy"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Key names the keys a cell editor reacts to.
type Key int

// Editor keys.
const (
	KeyOther Key = iota
	KeyEnter
	KeyEscape
)

// KeyEvent is a key press inside an open editor.
type KeyEvent struct {
	Key   Key
	Shift bool
}

// Cell is the controller of a single (row, column) cell. It switches
// between display and edit mode and commits drafts through a Persister.
type Cell struct {
	mu         sync.Mutex
	col        Column
	row        Row
	lookup     func() (Row, bool)
	persister  Persister
	onUpdate   UpdateFunc
	draft      Draft
	original   any
	committing bool
	// loc is the zone editor wall times are read in.
	loc *time.Location
}

// NewCell creates a standalone cell over row. Successful commits update the
// cell's own copy of the row.
func NewCell(row Row, col Column, persister Persister, onUpdate UpdateFunc) *Cell {
	return &Cell{
		col:       col,
		row:       row,
		persister: persister,
		onUpdate:  onUpdate,
		loc:       time.Local,
	}
}

// Column returns the column descriptor.
func (c *Cell) Column() Column { return c.col }

// Row returns the row as currently known to the cell.
func (c *Cell) Row() Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRow()
}

func (c *Cell) currentRow() Row {
	if c.lookup != nil {
		if row, ok := c.lookup(); ok {
			return row
		}
	}
	return c.row
}

// Value returns the resolved value of the cell.
func (c *Cell) Value() any {
	return Resolve(c.Row(), c.col.Key)
}

// Draft returns a copy of the edit draft.
func (c *Cell) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Editing reports whether the cell is in edit mode.
func (c *Cell) Editing() bool {
	return c.Draft().Editing
}

// Pending reports whether a commit is in flight.
func (c *Cell) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committing
}

// Editor returns the input widget family used while editing.
func (c *Cell) Editor() EditorType {
	return c.col.EditorType.Input()
}

// Display renders the cell in read mode.
func (c *Cell) Display(f Formatter) (Display, error) {
	return f.Format(c.col, c.Row())
}

// Click enters edit mode and seeds the draft with the resolved value.
// Columns that are not editable, have a RenderFunc or use the boolean
// editor never enter edit mode. It reports whether the cell is editing.
func (c *Cell) Click() bool {
	if !c.col.Editable() || c.col.IsBooleanEditor() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.Editing {
		return true
	}
	value := Resolve(c.currentRow(), c.col.Key)
	c.original = value
	c.draft = Draft{Editing: true, Value: value}
	return true
}

// SetDraft replaces the draft value of an open editor.
func (c *Cell) SetDraft(value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.Editing {
		c.draft.Value = value
	}
}

// Cancel leaves edit mode without saving.
func (c *Cell) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.committing {
		return
	}
	c.draft = Draft{}
	c.original = nil
}

// Key handles a key press of an open editor. Enter commits unless Shift is
// held (Shift+Enter is a newline in the textarea), Escape cancels.
func (c *Cell) Key(ctx context.Context, ev KeyEvent) Outcome {
	switch ev.Key {
	case KeyEnter:
		if ev.Shift {
			return OutcomeNotEditing
		}
		return c.Save(ctx)
	case KeyEscape:
		c.Cancel()
		return OutcomeNotEditing
	default:
		return OutcomeNotEditing
	}
}

// Blur is called when the editor loses focus. Local-only columns commit,
// every other column discards the draft.
func (c *Cell) Blur(ctx context.Context) Outcome {
	if c.col.LocalOnly {
		return c.Save(ctx)
	}
	c.Cancel()
	return OutcomeNotEditing
}

// Save commits the open draft. An unchanged draft emits nothing. The cell
// leaves edit mode whatever the outcome.
func (c *Cell) Save(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.committing {
		c.mu.Unlock()
		return OutcomeBusy
	}
	if !c.draft.Editing {
		c.mu.Unlock()
		return OutcomeNotEditing
	}
	original, value := c.original, c.draft.Value
	row := c.currentRow()

	if sameValue(c.col, original, value, c.loc) {
		c.draft = Draft{}
		c.original = nil
		c.mu.Unlock()
		return OutcomeUnchanged
	}
	c.committing = true
	c.mu.Unlock()

	return c.commit(ctx, row, original, value)
}

// Commit saves value directly. Boolean-editor cells commit without entering
// edit mode (a checkbox reporting its new state); other cells replace the
// open draft and Save it.
func (c *Cell) Commit(ctx context.Context, value any) Outcome {
	if !c.col.IsBooleanEditor() {
		c.SetDraft(value)
		return c.Save(ctx)
	}

	c.mu.Lock()
	if c.committing {
		c.mu.Unlock()
		return OutcomeBusy
	}
	row := c.currentRow()
	original := Resolve(row, c.col.Key)
	if sameValue(c.col, original, value, c.loc) {
		c.mu.Unlock()
		return OutcomeUnchanged
	}
	c.committing = true
	c.mu.Unlock()

	return c.commit(ctx, row, original, value)
}

// Toggle flips a boolean-editor cell and commits the new value at once.
func (c *Cell) Toggle(ctx context.Context) Outcome {
	if !c.col.IsBooleanEditor() {
		return OutcomeNotEditing
	}
	return c.Commit(ctx, !NormalizeBool(c.Value()))
}

func (c *Cell) commit(ctx context.Context, row Row, original, value any) Outcome {
	rowID := row.ID()
	value, err := coerce(c.col, value)
	if err == nil && !c.col.LocalOnly && c.persister != nil {
		err = c.persister.Persist(ctx, rowID, NestedPayload(c.col.Key, value))
	}

	c.mu.Lock()
	c.committing = false
	c.draft = Draft{}
	c.original = nil
	if err == nil && c.lookup == nil {
		c.row = SetPath(c.row, c.col.Key, value)
	}
	c.mu.Unlock()

	update := CellUpdate{Success: err == nil, RowID: rowID, Key: c.col.Key, Value: value, Err: err}
	if err != nil {
		update.Value = original
	}
	if c.onUpdate != nil {
		c.onUpdate(update)
	}
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSaved
}

func sameValue(col Column, original, value any, loc *time.Location) bool {
	switch col.EditorType.Input() {
	case EditorBoolean:
		return NormalizeBool(original) == NormalizeBool(value)
	case EditorDate, EditorDateTime:
		return EditorText(col.EditorType, original, loc) == EditorText(col.EditorType, value, loc)
	default:
		return Text(original) == Text(value)
	}
}

// EditorText renders value the way the editor's input shows it. Date
// editors get 2006-01-02 and datetime editors 2006-01-02T15:04 wall time
// in loc; values that are not times stay as their text.
func EditorText(editor EditorType, value any, loc *time.Location) string {
	editor = editor.Input()
	if editor != EditorDate && editor != EditorDateTime {
		return Text(value)
	}
	t, ok := ParseTime(value, loc)
	if !ok {
		return Text(value)
	}
	if loc != nil {
		t = t.In(loc)
	}
	if editor == EditorDate {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04")
}

// coerce converts editor text into the value type of the column.
func coerce(col Column, value any) (any, error) {
	if col.IsBooleanEditor() {
		return NormalizeBool(value), nil
	}
	s, isString := value.(string)
	switch col.EditorType.Input() {
	case EditorNumber:
		if !isString {
			return value, nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
		}
		return f, nil
	case EditorSelect:
		text := Text(value)
		for _, o := range col.Options {
			if o.Value == text {
				return value, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrInvalidOption, text)
	default:
		return value, nil
	}
}
