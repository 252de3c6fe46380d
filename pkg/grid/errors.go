package grid

import "errors"

// Common errors returned by the grid package.
var (
	// ErrInvalidColumn is returned when a column descriptor is malformed.
	ErrInvalidColumn = errors.New("invalid column")

	// ErrUnknownColumn is returned when a column id is not part of the table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownRow is returned when a row id is not in the shadow copy.
	ErrUnknownRow = errors.New("unknown row")

	// ErrMissingID is returned when a supplied row has no id field.
	ErrMissingID = errors.New("row has no id")

	// ErrDuplicateID is returned when two supplied rows share an id.
	ErrDuplicateID = errors.New("duplicate row id")
)
