package records

import (
	"embed"
	"html/template"
	"log/slog"

	"github.com/a-h/templ"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/controller"
	"github.com/ifilter/ifadmin/internal/ui/features/common"
	"github.com/ifilter/ifadmin/pkg/grid"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.gohtml"))

// HeaderView is one column header.
type HeaderView struct {
	Label     string
	Sortable  bool
	SortURL   string
	AriaSort  string
	Indicator string
}

// ActionView is a document action link.
type ActionView struct {
	Name     string
	Href     template.URL
	Download bool
}

// OptionView is one option of a select editor.
type OptionView struct {
	Value    string
	Label    string
	Selected bool
}

// CellView is one rendered cell, in read or edit mode.
type CellView struct {
	DOMID    string
	Kind     grid.DisplayKind
	Text     string
	Href     template.URL
	ImageSrc template.URL
	Tooltip  string
	Class    string
	Overdue  bool
	Checked  bool
	Actions  []ActionView

	Editable bool
	Boolean  bool
	Editing  bool
	Editor   grid.EditorType
	Input    string
	Draft    string
	Options  []OptionView

	EditURL   string
	SaveURL   string
	CancelURL string
	BlurURL   string
	ToggleURL string
}

// RowView is one grid row.
type RowView struct {
	DOMID      string
	Selectable bool
	Selected   bool
	ClickURL   string
	SelectURL  string
	Cells      []CellView
}

// GridView is the whole grid element.
type GridView struct {
	DOMID        string
	Resource     string
	Title        string
	Sticky       bool
	Selectable   bool
	AllSelected  bool
	SelectedN    int
	SelectAllURL string
	Headers      []HeaderView
	Rows         []RowView
	Sentinel     bool
	MoreURL      string
	LoadError    string
	StreamURL    string
}

// DetailField is one labelled value on the detail page.
type DetailField struct {
	Label string
	Cell  CellView
}

// DetailView is the single-record page.
type DetailView struct {
	Resource string
	Title    string
	RowID    string
	BackURL  string
	Fields   []DetailField
}

// HomeCard summarizes one resource on the home page.
type HomeCard struct {
	Title string
	Href  string
	Count int
	Error string
}

func resourceURL(resource string) string {
	return "/resources/" + common.PathEscape(resource)
}

func gridDOMID(resource string) string {
	return common.DOMID("grid", resource)
}

func buildGrid(c *controller.Controller, logger *slog.Logger) GridView {
	res := c.Resource()
	table := c.Table()
	base := resourceURL(res.Name)
	sort := table.Sort()

	view := GridView{
		DOMID:        gridDOMID(res.Name),
		Resource:     res.Name,
		Title:        res.Title,
		Sticky:       table.StickyHeader(),
		Selectable:   table.Selectable(),
		AllSelected:  table.AllSelected(),
		SelectedN:    len(table.Selected()),
		SelectAllURL: base + "/select-all",
		Sentinel:     table.HasMore() && !table.Loading(),
		MoreURL:      base + "/more",
		StreamURL:    base + "/stream",
	}
	if err := table.LoadError(); err != nil {
		view.LoadError = "Could not load more rows."
		view.Sentinel = false
	}

	columns := table.Columns()
	for _, col := range columns {
		h := HeaderView{Label: col.Label, Sortable: col.Sortable, AriaSort: "none"}
		if col.Sortable {
			h.SortURL = base + "/sort/" + common.PathEscape(col.Identifier())
		}
		if sort.IsSorted() && sort.Column == col.Identifier() {
			if sort.Direction == grid.Desc {
				h.AriaSort, h.Indicator = "descending", "▼"
			} else {
				h.AriaSort, h.Indicator = "ascending", "▲"
			}
		}
		view.Headers = append(view.Headers, h)
	}

	formatter := table.Formatter()
	for _, rowID := range table.RowIDs() {
		rowBase := base + "/rows/" + common.PathEscape(rowID)
		rv := RowView{
			DOMID:      common.DOMID("row", res.Name, rowID),
			Selectable: view.Selectable,
			Selected:   table.IsSelected(rowID),
			ClickURL:   rowBase + "/click",
			SelectURL:  rowBase + "/select",
		}
		for _, col := range columns {
			cell, err := table.Cell(rowID, col.Identifier())
			if err != nil {
				continue
			}
			rv.Cells = append(rv.Cells, buildCell(res, cell, formatter, logger))
		}
		view.Rows = append(view.Rows, rv)
	}
	return view
}

func buildCell(res catalog.Resource, cell *grid.Cell, f grid.Formatter, logger *slog.Logger) CellView {
	col := cell.Column()
	row := cell.Row()
	rowID := row.ID()

	cellBase := resourceURL(res.Name) + "/cells/" + common.PathEscape(rowID) + "/" + common.PathEscape(col.Identifier())
	v := CellView{
		DOMID:     common.DOMID("cell", res.Name, rowID, col.Identifier()),
		Editable:  col.Editable(),
		Boolean:   col.Editable() && col.IsBooleanEditor(),
		EditURL:   cellBase + "/edit",
		SaveURL:   cellBase + "/save",
		CancelURL: cellBase + "/cancel",
		BlurURL:   cellBase + "/blur",
		ToggleURL: cellBase + "/toggle",
	}

	d, err := cell.Display(f)
	if err != nil {
		logger.Error("cell render failed", "resource", res.Name, "row", rowID, "column", col.Identifier(), "error", err)
		d = grid.Display{Kind: grid.KindText, Text: "!", Tooltip: err.Error()}
	}
	applyDisplay(&v, d)

	if draft := cell.Draft(); draft.Editing {
		v.Editing = true
		v.Editor = cell.Editor()
		v.Input = inputType(v.Editor)
		v.Draft = draftText(v.Editor, draft.Value, f)
		for _, o := range col.Options {
			v.Options = append(v.Options, OptionView{Value: o.Value, Label: o.Label, Selected: o.Value == v.Draft})
		}
	}
	return v
}

func applyDisplay(v *CellView, d grid.Display) {
	v.Kind = d.Kind
	v.Text = d.Text
	v.Href = common.SafeURL(d.Href)
	v.ImageSrc = common.SafeURL(d.ImageSrc)
	v.Tooltip = d.Tooltip
	v.Class = d.Class
	v.Overdue = d.Overdue
	v.Checked = d.Checked
	for _, a := range d.Actions {
		v.Actions = append(v.Actions, ActionView{Name: a.Name, Href: common.SafeURL(a.Href), Download: a.Download})
	}
}

func inputType(e grid.EditorType) string {
	switch e {
	case grid.EditorDate:
		return "date"
	case grid.EditorDateTime:
		return "datetime-local"
	case grid.EditorNumber:
		return "number"
	case grid.EditorEmail:
		return "email"
	case grid.EditorPhone:
		return "tel"
	default:
		return "text"
	}
}

// draftText renders a draft in the format the input element expects.
func draftText(e grid.EditorType, value any, f grid.Formatter) string {
	return grid.EditorText(e, value, f.Location)
}

func buildDetail(res catalog.Resource, row grid.Row, f grid.Formatter, logger *slog.Logger) DetailView {
	view := DetailView{
		Resource: res.Name,
		Title:    res.Title,
		RowID:    row.ID(),
		BackURL:  resourceURL(res.Name),
	}
	for _, col := range res.Columns {
		cell := grid.NewCell(row, col, nil, nil)
		cv := buildCell(res, cell, f, logger)
		// Read only: editing happens in the grid.
		cv.Editable, cv.Boolean = false, false
		view.Fields = append(view.Fields, DetailField{Label: col.Label, Cell: cv})
	}
	return view
}

func gridComponent(v GridView) templ.Component {
	return common.Component(templates, "grid", v)
}

func cellComponent(v CellView) templ.Component {
	return common.Component(templates, "cell", v)
}

func gridPage(v GridView) templ.Component {
	return common.Component(templates, "grid-page", v)
}

func detailPage(v DetailView) templ.Component {
	return common.Component(templates, "detail", v)
}

func homePage(cards []HomeCard) templ.Component {
	return common.Component(templates, "home", cards)
}
