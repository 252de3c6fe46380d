package script

import (
	"sync"
	"testing"
	"time"

	"github.com/ifilter/ifadmin/pkg/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlark(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "None"},
		{"string", "ada", `"ada"`},
		{"bytes", []byte("raw"), `"raw"`},
		{"int", 7, "7"},
		{"int64", int64(9), "9"},
		{"float", 1.5, "1.5"},
		{"bool", true, "True"},
		{"time", ts, `"2024-05-01T10:00:00Z"`},
		{"strings", []string{"a", "b"}, `["a", "b"]`},
		{"list", []any{1, "x"}, `[1, "x"]`},
		{"unknown", struct{ A int }{1}, `"{1}"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := GoToStarlark(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestRoundTripNestedRow(t *testing.T) {
	row := grid.Row{
		"id":       int64(1),
		"settings": map[string]any{"plan": "pro", "seats": int64(3)},
		"tags":     []any{"a", "b"},
	}

	v, err := GoToStarlark(row)
	require.NoError(t, err)

	back, err := ToGo(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any(row), back)
}

func TestToGo_TupleAndBigInt(t *testing.T) {
	got, err := ToGo(starlark.Tuple{starlark.String("a"), starlark.MakeInt(2)})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", int64(2)}, got)

	big := starlark.MakeInt64(1 << 62).Mul(starlark.MakeInt(8))
	got, err = ToGo(big)
	require.NoError(t, err)
	assert.Equal(t, big.String(), got)
}

func TestToGo_NonStringDictKey(t *testing.T) {
	d := starlark.NewDict(1)
	require.NoError(t, d.SetKey(starlark.MakeInt(1), starlark.String("x")))

	_, err := ToGo(d)
	assert.Error(t, err)
}

func TestThreadPool(t *testing.T) {
	pool := NewThreadPool(1)

	a := pool.Get("a")
	b := pool.Get("b")
	assert.Equal(t, "a", a.Name)
	assert.NotSame(t, a, b)

	pool.Put(a)
	pool.Put(b)
	assert.Equal(t, 1, pool.Size(), "pool keeps at most maxSize threads")

	c := pool.Get("c")
	assert.Same(t, a, c)
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, 0, pool.Size())
}

func TestNewThreadPool_Default(t *testing.T) {
	pool := NewThreadPool(0)
	for i := 0; i < 20; i++ {
		pool.Put(&starlark.Thread{})
	}
	assert.Equal(t, 16, pool.Size())
}

func TestCompile(t *testing.T) {
	r := NewRenderer(nil)

	row := grid.Row{
		"id":         "7",
		"status":     "active",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"settings":   map[string]any{"plan": "pro"},
		"seats":      int64(3),
	}

	tests := []struct {
		name string
		expr string
		want grid.Display
	}{
		{
			name: "string result",
			expr: `row["status"].upper()`,
			want: grid.Display{Kind: grid.KindCustom, Text: "ACTIVE"},
		},
		{
			name: "none result",
			expr: `None`,
			want: grid.Display{Kind: grid.KindCustom},
		},
		{
			name: "dict result",
			expr: `{"text": row["status"], "kind": "pill", "class": "ok", "tooltip": "since 2024"}`,
			want: grid.Display{Kind: grid.KindPill, Text: "active", Class: "ok", Tooltip: "since 2024"},
		},
		{
			name: "dict with href stops propagation",
			expr: `{"text": "open", "href": "/apps/" + row["id"]}`,
			want: grid.Display{Kind: grid.KindCustom, Text: "open", Href: "/apps/7", StopPropagation: true},
		},
		{
			name: "resolve builtin",
			expr: `resolve(row, "settings.plan") + " / " + resolve(row, "fullName")`,
			want: grid.Display{Kind: grid.KindCustom, Text: "pro / Ada Lovelace"},
		},
		{
			name: "resolve missing",
			expr: `resolve(row, "settings.region")`,
			want: grid.Display{Kind: grid.KindCustom},
		},
		{
			name: "text builtin",
			expr: `text(row["seats"]) + " seats"`,
			want: grid.Display{Kind: grid.KindCustom, Text: "3 seats"},
		},
		{
			name: "non-string result",
			expr: `row["seats"] * 2`,
			want: grid.Display{Kind: grid.KindCustom, Text: "6"},
		},
		{
			name: "conditional",
			expr: `"paid" if row["settings"]["plan"] == "pro" else "free"`,
			want: grid.Display{Kind: grid.KindCustom, Text: "paid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			render, err := r.Compile(tt.name, tt.expr)
			require.NoError(t, err)

			got, err := render(row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	r := NewRenderer(nil)

	_, err := r.Compile("syntax", `row[`)
	assert.Error(t, err)

	_, err = r.Compile("unknown", `missing_name(row)`)
	assert.Error(t, err, "unknown names fail at compile time")

	render, err := r.Compile("runtime", `row["nope"]`)
	require.NoError(t, err)
	_, err = render(grid.Row{"id": "1"})
	assert.ErrorContains(t, err, "render runtime")
}

func TestCompile_ConcurrentRenders(t *testing.T) {
	r := NewRenderer(NewThreadPool(2))
	render, err := r.Compile("concurrent", `"#" + text(row["id"])`)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := render(grid.Row{"id": i})
			assert.NoError(t, err)
			assert.Equal(t, "#"+grid.Text(i), d.Text)
		}(i)
	}
	wg.Wait()
}

func TestCompile_RowNotMutated(t *testing.T) {
	r := NewRenderer(nil)
	render, err := r.Compile("mutate", `row.pop("status")`)
	require.NoError(t, err)

	row := grid.Row{"id": "1", "status": "active"}
	d, err := render(row)
	require.NoError(t, err)
	assert.Equal(t, "active", d.Text)
	assert.Equal(t, "active", row["status"])
}
