package script

import (
	"fmt"

	"github.com/ifilter/ifadmin/pkg/grid"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Renderer compiles render expressions into grid.RenderFuncs.
type Renderer struct {
	pool        *ThreadPool
	predeclared starlark.StringDict
}

// NewRenderer creates a renderer sharing pool between all compiled
// expressions. A nil pool gets a default one.
func NewRenderer(pool *ThreadPool) *Renderer {
	if pool == nil {
		pool = NewThreadPool(0)
	}
	predeclared := starlark.StringDict{
		"resolve": starlark.NewBuiltin("resolve", resolveBuiltin),
		"text":    starlark.NewBuiltin("text", textBuiltin),
	}
	predeclared.Freeze()
	return &Renderer{pool: pool, predeclared: predeclared}
}

// Compile parses expr once and returns a RenderFunc evaluating it per row.
// Syntax errors and references to unknown names fail here, not at render
// time. name identifies the expression in error messages.
func (r *Renderer) Compile(name, expr string) (grid.RenderFunc, error) {
	src := "lambda row: (" + expr + "\n)"
	fn, err := starlark.ExprFuncOptions(&syntax.FileOptions{}, name, src, r.predeclared)
	if err != nil {
		return nil, fmt.Errorf("compile render %s: %w", name, err)
	}

	thread := r.pool.Get(name)
	lambda, err := starlark.Call(thread, fn, nil, nil)
	r.pool.Put(thread)
	if err != nil {
		return nil, fmt.Errorf("compile render %s: %w", name, err)
	}
	lambda.Freeze()

	callable, ok := lambda.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("compile render %s: expression is not callable", name)
	}

	return func(row grid.Row) (grid.Display, error) {
		arg, err := GoToStarlark(map[string]any(row))
		if err != nil {
			return grid.Display{}, fmt.Errorf("render %s: %w", name, err)
		}

		thread := r.pool.Get(name)
		defer r.pool.Put(thread)

		result, err := starlark.Call(thread, callable, starlark.Tuple{arg}, nil)
		if err != nil {
			return grid.Display{}, fmt.Errorf("render %s: %w", name, err)
		}
		return toDisplay(result)
	}, nil
}

func toDisplay(v starlark.Value) (grid.Display, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return grid.Display{Kind: grid.KindCustom}, nil
	case starlark.String:
		return grid.Display{Kind: grid.KindCustom, Text: string(val)}, nil
	case *starlark.Dict:
		goVal, err := ToGo(val)
		if err != nil {
			return grid.Display{}, err
		}
		m := goVal.(map[string]any)
		d := grid.Display{
			Kind:    grid.KindCustom,
			Text:    grid.Text(m["text"]),
			Href:    grid.Text(m["href"]),
			Tooltip: grid.Text(m["tooltip"]),
			Class:   grid.Text(m["class"]),
		}
		if kind := grid.Text(m["kind"]); kind != "" {
			d.Kind = grid.DisplayKind(kind)
		}
		if d.Href != "" {
			d.StopPropagation = true
		}
		return d, nil
	default:
		return grid.Display{Kind: grid.KindCustom, Text: val.String()}, nil
	}
}

func resolveBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var row *starlark.Dict
	var key string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "row", &row, "key", &key); err != nil {
		return nil, err
	}
	goRow, err := ToGo(row)
	if err != nil {
		return nil, err
	}
	return GoToStarlark(grid.Resolve(grid.Row(goRow.(map[string]any)), key))
}

func textBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	goVal, err := ToGo(v)
	if err != nil {
		return nil, err
	}
	return starlark.String(grid.Text(goVal)), nil
}
