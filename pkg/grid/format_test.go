package grid

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFormatter() Formatter {
	return Formatter{
		Location:       time.UTC,
		DateLayout:     DefaultDateLayout,
		DateTimeLayout: DefaultDateTimeLayout,
		Now:            func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestFormatter_Format(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name  string
		col   Column
		row   Row
		check func(t *testing.T, d Display)
	}{
		{
			name: "text",
			col:  Column{Key: "name", Type: TypeText},
			row:  Row{"name": "Dana"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, KindText, d.Kind)
				assert.Equal(t, "Dana", d.Text)
			},
		},
		{
			name: "full name end to end",
			col:  Column{Key: "fullName", Type: TypeText},
			row:  Row{"id": 1, "first_name": "Dana", "last_name": "Cohen"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, "Dana Cohen", d.Text)
			},
		},
		{
			name: "missing dotted field",
			col:  Column{Key: "missing.field", Type: TypeText},
			row:  Row{"id": 1, "first_name": "Dana", "last_name": "Cohen"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, "", d.Text)
			},
		},
		{
			name: "boolean string true",
			col:  Column{Key: "active", Type: TypeBoolean},
			row:  Row{"active": "true"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, KindPill, d.Kind)
				assert.True(t, d.Checked)
			},
		},
		{
			name: "boolean string false is falsy",
			col:  Column{Key: "active", Type: TypeBoolean},
			row:  Row{"active": "false"},
			check: func(t *testing.T, d Display) {
				assert.False(t, d.Checked)
			},
		},
		{
			name: "email",
			col:  Column{Key: "email", Type: TypeEmail},
			row:  Row{"email": "a@b.io"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, KindLink, d.Kind)
				assert.Equal(t, "mailto:a@b.io", d.Href)
				assert.True(t, d.StopPropagation)
			},
		},
		{
			name: "phone",
			col:  Column{Key: "phone", Type: TypePhone},
			row:  Row{"phone": "050-1234567"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, "tel:050-1234567", d.Href)
			},
		},
		{
			name: "empty email renders nothing",
			col:  Column{Key: "email", Type: TypeEmail},
			row:  Row{},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, KindText, d.Kind)
				assert.Empty(t, d.Href)
			},
		},
		{
			name: "date",
			col:  Column{Key: "created", Type: TypeDate},
			row:  Row{"created": "2024-03-05"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, "05/03/2024", d.Text)
			},
		},
		{
			name: "datetime",
			col:  Column{Key: "created", Type: TypeDateTime},
			row:  Row{"created": "2024-03-05T14:30:00Z"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, "05/03/2024 14:30", d.Text)
			},
		},
		{
			name: "unparseable date",
			col:  Column{Key: "created", Type: TypeDate},
			row:  Row{"created": "not a date"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, InvalidDate, d.Text)
			},
		},
		{
			name: "unparseable datetime",
			col:  Column{Key: "created", Type: TypeDateTime},
			row:  Row{"created": "2024-13-45"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, InvalidDate, d.Text)
			},
		},
		{
			name: "short digit string is not a date",
			col:  Column{Key: "created", Type: TypeDate},
			row:  Row{"created": "2024"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, InvalidDate, d.Text)
			},
		},
		{
			name: "missing date",
			col:  Column{Key: "created", Type: TypeDate},
			row:  Row{},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, InvalidDate, d.Text)
			},
		},
		{
			name: "past deadline is overdue",
			col:  Column{Key: "due", Type: TypeDateDeadline},
			row:  Row{"due": "2024-05-01"},
			check: func(t *testing.T, d Display) {
				assert.True(t, d.Overdue)
				assert.NotEmpty(t, d.Tooltip)
				assert.Equal(t, "01/05/2024", d.Text)
			},
		},
		{
			name: "future deadline",
			col:  Column{Key: "due", Type: TypeDateDeadline},
			row:  Row{"due": "2024-07-01"},
			check: func(t *testing.T, d Display) {
				assert.False(t, d.Overdue)
				assert.Empty(t, d.Tooltip)
			},
		},
		{
			name: "view and download",
			col:  Column{Key: "doc", Type: TypeViewDownload},
			row:  Row{"doc": "/files/1.pdf"},
			check: func(t *testing.T, d Display) {
				require.Len(t, d.Actions, 2)
				assert.Equal(t, "view", d.Actions[0].Name)
				assert.True(t, d.Actions[1].Download)
			},
		},
		{
			name: "image",
			col:  Column{Key: "icon", Type: TypeImage},
			row:  Row{"icon": "https://cdn/icon.png"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, KindImage, d.Kind)
				assert.Equal(t, "https://cdn/icon.png", d.ImageSrc)
			},
		},
		{
			name: "unknown type falls back to text",
			col:  Column{Key: "x", Type: DisplayType("sparkline")},
			row:  Row{"x": 12},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, KindText, d.Kind)
				assert.Equal(t, "12", d.Text)
			},
		},
		{
			name: "editable select shows option label",
			col: Column{Key: "plan", Type: TypeEditable, EditorType: EditorSelect, Options: []Option{
				{Value: "1", Label: "Kosher"}, {Value: "2", Label: "Strict"},
			}},
			row: Row{"plan": "2"},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, "Strict", d.Text)
			},
		},
		{
			name: "editable boolean shows pill",
			col:  Column{Key: "active", Type: TypeEditable, EditorType: EditorBoolean},
			row:  Row{"active": true},
			check: func(t *testing.T, d Display) {
				assert.Equal(t, KindPill, d.Kind)
				assert.True(t, d.Checked)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := f.Format(tt.col, tt.row)
			require.NoError(t, err)
			tt.check(t, d)
		})
	}
}

func TestFormatter_RenderOverride(t *testing.T) {
	f := testFormatter()
	col := Column{Key: "status", Type: TypeStatus, Render: func(row Row) (Display, error) {
		return Display{Kind: KindCustom, Text: "<" + Text(row["status"]) + ">"}, nil
	}}

	d, err := f.Format(col, Row{"status": "open"})
	require.NoError(t, err)
	assert.Equal(t, "<open>", d.Text)

	boom := errors.New("boom")
	col.Render = func(Row) (Display, error) { return Display{}, boom }
	_, err = f.Format(col, Row{})
	assert.ErrorIs(t, err, boom)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{name: "time value", value: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "zero time", value: time.Time{}, ok: false},
		{name: "rfc3339", value: "2024-01-01T10:00:00+02:00", ok: true},
		{name: "sql datetime", value: "2024-01-01 10:00:00", ok: true},
		{name: "date", value: "2024-01-01", ok: true},
		{name: "unix seconds", value: int64(1700000000), ok: true},
		{name: "unix seconds string", value: "1700000000", ok: true},
		{name: "json number", value: float64(1700000000), ok: true},
		{name: "empty", value: "", ok: false},
		{name: "garbage", value: "yesterday", ok: false},
		{name: "year digits", value: "2024", ok: false},
		{name: "short digits", value: "42", ok: false},
		{name: "bool", value: true, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseTime(tt.value, time.UTC)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNormalizeBool(t *testing.T) {
	assert.True(t, NormalizeBool(true))
	assert.True(t, NormalizeBool("true"))
	assert.False(t, NormalizeBool("false"))
	assert.False(t, NormalizeBool(false))
	assert.False(t, NormalizeBool(1))
	assert.False(t, NormalizeBool(nil))
}
