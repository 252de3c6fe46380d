// Package grid provides a headless, editable data grid controller.
//
// A Table is driven by an ordered set of Column descriptors and a slice of
// Rows supplied by the caller. It owns the cross-cutting state that single
// cells cannot own (selection, a shadow copy of the rows for optimistic
// edits, the sort indicator and the infinite-scroll guard) and reports every
// user interaction back through Callbacks. The grid performs no I/O of its
// own: persistence goes through a caller supplied Persister and paging goes
// through Callbacks.OnLoadMore.
package grid

import (
	"fmt"
	"strings"
)

// DisplayType selects the read-mode renderer of a column.
type DisplayType string

// Display types understood by the formatter. Any other value renders as
// plain clickable text.
const (
	TypeText         DisplayType = "text"
	TypeNumber       DisplayType = "number"
	TypeBoolean      DisplayType = "boolean"
	TypeEmail        DisplayType = "email"
	TypePhone        DisplayType = "phoneNumber"
	TypeDate         DisplayType = "date"
	TypeDateTime     DisplayType = "datetime"
	TypeDateDeadline DisplayType = "date-deadline"
	TypeLink         DisplayType = "link"
	TypeNavLink      DisplayType = "navLink"
	TypeViewDownload DisplayType = "view/download"
	TypeDownload     DisplayType = "download"
	TypeImage        DisplayType = "image"
	TypeButton       DisplayType = "button"
	TypeCustom       DisplayType = "custom"
	TypeStatus       DisplayType = "status"
	TypeEditable     DisplayType = "editable"
)

// EditorType selects the input widget used while an editable cell is edited.
type EditorType string

// Editor types. An empty or unknown editor type edits through a textarea.
const (
	EditorDate     EditorType = "date"
	EditorDateTime EditorType = "datetime"
	EditorNumber   EditorType = "number"
	EditorEmail    EditorType = "email"
	EditorPhone    EditorType = "phoneNumber"
	EditorSelect   EditorType = "select"
	EditorBoolean  EditorType = "boolean"
	EditorTextarea EditorType = "textarea"
)

// Input returns the widget family for the editor type, folding unknown
// values into EditorTextarea.
func (e EditorType) Input() EditorType {
	switch e {
	case EditorDate, EditorDateTime, EditorNumber, EditorEmail, EditorPhone, EditorSelect, EditorBoolean:
		return e
	default:
		return EditorTextarea
	}
}

// Option is one choice of a select editor.
type Option struct {
	Value string `json:"value" koanf:"value"`
	Label string `json:"label" koanf:"label"`
}

// RenderFunc fully overrides how a cell is displayed. A column with a
// RenderFunc is never editable.
type RenderFunc func(row Row) (Display, error)

// Column describes how one column is labeled, displayed and edited.
type Column struct {
	ID         string
	Key        string
	Label      string
	Type       DisplayType
	EditorType EditorType
	Render     RenderFunc
	Options    []Option
	Sortable   bool
	// SortKey is sent to OnSortChange instead of Key when set.
	SortKey string
	// LocalOnly columns are never handed to the Persister. Commits to them
	// are reported as successful and only update the shadow copy.
	LocalOnly bool
}

// Identifier returns the column ID, falling back to its key.
func (c Column) Identifier() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Key
}

// Editable reports whether clicking the column may open an editor.
func (c Column) Editable() bool {
	return c.Type == TypeEditable && c.Render == nil
}

// IsBooleanEditor reports whether edits toggle in place instead of opening
// an editor.
func (c Column) IsBooleanEditor() bool {
	return c.Editable() && c.EditorType == EditorBoolean
}

// SortField returns the key forwarded with sort requests.
func (c Column) SortField() string {
	if c.SortKey != "" {
		return c.SortKey
	}
	return c.Key
}

// Validate checks the descriptor for mistakes that would make it useless.
func (c Column) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("%w: column %q has no key", ErrInvalidColumn, c.ID)
	}
	if strings.HasPrefix(c.Key, ".") || strings.HasSuffix(c.Key, ".") || strings.Contains(c.Key, "..") {
		return fmt.Errorf("%w: column key %q has an empty path segment", ErrInvalidColumn, c.Key)
	}
	if c.EditorType == EditorSelect && len(c.Options) == 0 {
		return fmt.Errorf("%w: select column %q has no options", ErrInvalidColumn, c.Key)
	}
	return nil
}

// ValidateColumns validates every column and rejects duplicate identifiers.
func ValidateColumns(columns []Column) error {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if err := c.Validate(); err != nil {
			return err
		}
		id := c.Identifier()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidColumn, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
