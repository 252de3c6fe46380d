package grid

import (
	"strconv"
	"strings"
	"time"
)

// DisplayKind tells a front-end which widget to draw for a cell.
type DisplayKind string

// Display kinds produced by Formatter.
const (
	KindText    DisplayKind = "text"
	KindPill    DisplayKind = "pill"
	KindLink    DisplayKind = "link"
	KindNavLink DisplayKind = "nav"
	KindDate    DisplayKind = "date"
	KindImage   DisplayKind = "image"
	KindActions DisplayKind = "actions"
	KindCustom  DisplayKind = "custom"
)

// InvalidDate is shown in place of a date that cannot be parsed.
const InvalidDate = "-"

// Action is an icon action rendered against a per-row document.
type Action struct {
	Name     string
	Href     string
	Download bool
}

// Display is the front-end independent description of one rendered cell.
type Display struct {
	Kind    DisplayKind
	Text    string
	Href    string
	Tooltip string
	// Overdue marks a deadline that lies in the past.
	Overdue bool
	Checked bool
	// StopPropagation is set when activating the widget must not count as
	// a row click.
	StopPropagation bool
	ImageSrc        string
	Actions         []Action
	// Class is a free-form style hint used by custom renderers.
	Class string
}

// Formatter turns resolved values into Displays.
type Formatter struct {
	Location       *time.Location
	DateLayout     string
	DateTimeLayout string
	Now            func() time.Time
}

// Default date layouts (day first, as used by the dashboard locale).
const (
	DefaultDateLayout     = "02/01/2006"
	DefaultDateTimeLayout = "02/01/2006 15:04"
)

// DefaultFormatter returns a formatter using the local time zone.
func DefaultFormatter() Formatter {
	return Formatter{
		Location:       time.Local,
		DateLayout:     DefaultDateLayout,
		DateTimeLayout: DefaultDateTimeLayout,
		Now:            time.Now,
	}
}

func (f Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// Format renders the cell of col on row in read mode. Errors only come from
// a column's own RenderFunc and are returned unchanged.
func (f Formatter) Format(col Column, row Row) (Display, error) {
	if col.Render != nil {
		return col.Render(row)
	}

	value := Resolve(row, col.Key)
	typ := col.Type
	if typ == TypeEditable {
		typ = editorDisplayType(col.EditorType)
		if col.EditorType == EditorSelect {
			return Display{Kind: KindText, Text: optionLabel(col.Options, Text(value))}, nil
		}
	}

	switch typ {
	case TypeText, TypeNumber, TypeButton, TypeCustom, TypeStatus:
		return Display{Kind: KindText, Text: Text(value)}, nil
	case TypeBoolean:
		checked := NormalizeBool(value)
		text := "No"
		if checked {
			text = "Yes"
		}
		return Display{Kind: KindPill, Text: text, Checked: checked}, nil
	case TypeEmail:
		return f.contactLink("mailto:", value), nil
	case TypePhone:
		return f.contactLink("tel:", value), nil
	case TypeDate:
		return Display{Kind: KindDate, Text: f.FormatDate(value, f.DateLayout)}, nil
	case TypeDateTime:
		return Display{Kind: KindDate, Text: f.FormatDate(value, f.DateTimeLayout)}, nil
	case TypeDateDeadline:
		return f.deadline(value), nil
	case TypeLink:
		text := Text(value)
		return Display{Kind: KindLink, Text: text, Href: text, StopPropagation: true}, nil
	case TypeNavLink:
		text := Text(value)
		return Display{Kind: KindNavLink, Text: text, Href: text, StopPropagation: true}, nil
	case TypeViewDownload:
		href := Text(value)
		if href == "" {
			return Display{Kind: KindText}, nil
		}
		return Display{Kind: KindActions, StopPropagation: true, Actions: []Action{
			{Name: "view", Href: href},
			{Name: "download", Href: href, Download: true},
		}}, nil
	case TypeDownload:
		href := Text(value)
		if href == "" {
			return Display{Kind: KindText}, nil
		}
		return Display{Kind: KindActions, StopPropagation: true, Actions: []Action{
			{Name: "download", Href: href, Download: true},
		}}, nil
	case TypeImage:
		src := Text(value)
		return Display{Kind: KindImage, ImageSrc: src, Text: src}, nil
	default:
		return Display{Kind: KindText, Text: Text(value)}, nil
	}
}

func (f Formatter) contactLink(scheme string, value any) Display {
	text := Text(value)
	if text == "" {
		return Display{Kind: KindText}
	}
	return Display{Kind: KindLink, Text: text, Href: scheme + text, StopPropagation: true}
}

func (f Formatter) deadline(value any) Display {
	t, ok := ParseTime(value, f.location())
	if !ok {
		return Display{Kind: KindDate, Text: InvalidDate}
	}
	d := Display{Kind: KindDate, Text: t.In(f.location()).Format(f.DateLayout)}
	if t.Before(f.now()) {
		d.Overdue = true
		d.Tooltip = "Deadline has passed"
	}
	return d
}

// FormatDate formats value with layout, returning InvalidDate when the
// value is not a recognizable date.
func (f Formatter) FormatDate(value any, layout string) string {
	t, ok := ParseTime(value, f.location())
	if !ok {
		return InvalidDate
	}
	return t.In(f.location()).Format(layout)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// minEpochDigits is the shortest digit string read as unix seconds
// (September 2001 onwards).
const minEpochDigits = 10

// ParseTime accepts time.Time values, ISO-8601 style strings and unix
// seconds. Strings without a zone are interpreted in loc; numeric strings
// need at least minEpochDigits digits.
func ParseTime(value any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case int:
		return unixTime(int64(v))
	case int64:
		return unixTime(v)
	case float64:
		return unixTime(int64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		// Short digit runs such as "2024" are not epoch seconds.
		if len(s) < minEpochDigits {
			return time.Time{}, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixTime(n)
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func unixTime(sec int64) (time.Time, bool) {
	if sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// NormalizeBool is the single boolean normalization step: true and the
// string "true" are true, everything else is false.
func NormalizeBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

func editorDisplayType(e EditorType) DisplayType {
	switch e.Input() {
	case EditorBoolean:
		return TypeBoolean
	case EditorDate:
		return TypeDate
	case EditorDateTime:
		return TypeDateTime
	case EditorEmail:
		return TypeEmail
	case EditorPhone:
		return TypePhone
	case EditorNumber:
		return TypeNumber
	default:
		return TypeText
	}
}

func optionLabel(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
