package grid

import "fmt"

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses "asc" or "desc".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Asc, Desc:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("invalid sort direction %q", s)
	}
}

// SortState is the sort indicator shown in the header. The caller owns the
// actual ordering; the grid never reorders rows.
type SortState struct {
	Column    string
	Direction Direction
}

// IsSorted reports whether a column is selected for sorting.
func (s SortState) IsSorted() bool {
	return s.Column != ""
}

// Next returns the state after a header click on column: the same column
// flips direction, a different column starts ascending.
func (s SortState) Next(column string) SortState {
	if s.Column == column && s.Direction == Asc {
		return SortState{Column: column, Direction: Desc}
	}
	return SortState{Column: column, Direction: Asc}
}
