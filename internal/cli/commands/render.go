package commands

import (
	"fmt"
	"strings"

	"github.com/ifilter/ifadmin/pkg/grid"
)

// tableView renders the loaded rows of t as display text, one string per
// column. The first column marks selected rows when the grid is selectable.
func tableView(t *grid.Table) ([]string, [][]string, error) {
	cols := t.Columns()
	selectable := t.Selectable()

	headers := make([]string, 0, len(cols)+2)
	if selectable {
		headers = append(headers, " ")
	}
	headers = append(headers, "ID")
	for _, col := range cols {
		headers = append(headers, col.Label+sortMark(t.Sort(), col))
	}

	ids := t.RowIDs()
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		row := make([]string, 0, len(headers))
		if selectable {
			mark := " "
			if t.IsSelected(id) {
				mark = "x"
			}
			row = append(row, mark)
		}
		row = append(row, id)
		for _, col := range cols {
			d, err := t.Display(id, col.Identifier())
			if err != nil {
				return nil, nil, fmt.Errorf("row %s, column %s: %w", id, col.Identifier(), err)
			}
			row = append(row, plainText(d))
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func sortMark(s grid.SortState, col grid.Column) string {
	if !s.IsSorted() || s.Column != col.Identifier() {
		return ""
	}
	if s.Direction == grid.Desc {
		return " ▼"
	}
	return " ▲"
}

// plainText flattens a display value to one line of text.
func plainText(d grid.Display) string {
	switch d.Kind {
	case grid.KindActions:
		parts := make([]string, 0, len(d.Actions))
		for _, a := range d.Actions {
			parts = append(parts, a.Name+" <"+a.Href+">")
		}
		return strings.Join(parts, " ")
	case grid.KindImage:
		return d.ImageSrc
	default:
		return strings.ReplaceAll(d.Text, "\n", " ")
	}
}
