// Package catalog holds the grid definitions for each dashboard resource.
//
// Built-in definitions can be overridden from configuration. Column render
// overrides are Starlark expressions compiled when the catalog is loaded.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ifilter/ifadmin/internal/script"
	"github.com/ifilter/ifadmin/internal/store"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// ErrInvalidResource is returned when a resource definition cannot be built.
var ErrInvalidResource = errors.New("invalid resource definition")

// ColumnConfig is the configuration form of a grid column.
type ColumnConfig struct {
	ID        string           `koanf:"id"`
	Key       string           `koanf:"key"`
	Label     string           `koanf:"label"`
	Type      grid.DisplayType `koanf:"type"`
	Editor    grid.EditorType  `koanf:"editor"`
	Options   []grid.Option    `koanf:"options"`
	Sortable  bool             `koanf:"sortable"`
	SortKey   string           `koanf:"sort_key"`
	LocalOnly bool             `koanf:"local_only"`
	// Render is a Starlark expression evaluated with the row bound to "row".
	Render string `koanf:"render"`
}

// ResourceConfig is the configuration form of a resource grid.
// Non-empty Columns replace the built-in columns wholesale.
type ResourceConfig struct {
	Title      string         `koanf:"title"`
	Selectable *bool          `koanf:"selectable"`
	PageSize   int            `koanf:"page_size"`
	Columns    []ColumnConfig `koanf:"columns"`
}

// Resource is a compiled resource definition ready to build a grid.
type Resource struct {
	Name       string
	Title      string
	Selectable bool
	PageSize   int
	Columns    []grid.Column
}

// Catalog is the set of resource definitions currently in effect.
// Load swaps the whole set atomically.
type Catalog struct {
	mu        sync.RWMutex
	resources map[string]Resource
	renderer  *script.Renderer
	logger    *slog.Logger
	pageSize  int
}

// New creates a catalog holding only the built-in definitions.
func New(renderer *script.Renderer, logger *slog.Logger, pageSize int) (*Catalog, error) {
	if renderer == nil {
		renderer = script.NewRenderer(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if pageSize <= 0 {
		pageSize = store.DefaultPageSize
	}
	c := &Catalog{renderer: renderer, logger: logger, pageSize: pageSize}
	if err := c.Load(nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Load rebuilds every resource from the built-ins merged with overrides.
// On error the previous definitions stay in effect.
func (c *Catalog) Load(overrides map[string]ResourceConfig) error {
	defs := Builtin()
	for name, override := range overrides {
		base, ok := defs[name]
		if !ok {
			return fmt.Errorf("%w: %q", store.ErrUnknownResource, name)
		}
		defs[name] = merge(base, override)
	}

	built := make(map[string]Resource, len(defs))
	for name, def := range defs {
		res, err := c.build(name, def)
		if err != nil {
			return err
		}
		built[name] = res
	}

	c.mu.Lock()
	c.resources = built
	c.mu.Unlock()

	c.logger.Debug("catalog loaded", "resources", len(built), "overrides", len(overrides))
	return nil
}

func merge(base, override ResourceConfig) ResourceConfig {
	if override.Title != "" {
		base.Title = override.Title
	}
	if override.Selectable != nil {
		base.Selectable = override.Selectable
	}
	if override.PageSize > 0 {
		base.PageSize = override.PageSize
	}
	if len(override.Columns) > 0 {
		base.Columns = override.Columns
	}
	return base
}

func (c *Catalog) build(name string, def ResourceConfig) (Resource, error) {
	schema, ok := store.Lookup(name)
	if !ok {
		return Resource{}, fmt.Errorf("%w: %q", store.ErrUnknownResource, name)
	}

	res := Resource{
		Name:       name,
		Title:      def.Title,
		Selectable: def.Selectable == nil || *def.Selectable,
		PageSize:   def.PageSize,
	}
	if res.Title == "" {
		res.Title = Label(name)
	}
	if res.PageSize <= 0 {
		res.PageSize = c.pageSize
	}

	for _, cc := range def.Columns {
		col, err := c.column(name, cc)
		if err != nil {
			return Resource{}, err
		}
		if err := checkSortable(schema, col); err != nil {
			return Resource{}, err
		}
		res.Columns = append(res.Columns, col)
	}

	if err := grid.ValidateColumns(res.Columns); err != nil {
		return Resource{}, fmt.Errorf("%w: %s: %w", ErrInvalidResource, name, err)
	}
	return res, nil
}

func (c *Catalog) column(resource string, cc ColumnConfig) (grid.Column, error) {
	col := grid.Column{
		ID:         cc.ID,
		Key:        cc.Key,
		Label:      cc.Label,
		Type:       cc.Type,
		EditorType: cc.Editor,
		Options:    cc.Options,
		Sortable:   cc.Sortable,
		SortKey:    cc.SortKey,
		LocalOnly:  cc.LocalOnly,
	}
	if col.Label == "" {
		col.Label = Label(col.Key)
	}
	if col.Type == "" {
		col.Type = grid.TypeText
	}

	if cc.Render != "" {
		render, err := c.renderer.Compile(resource+"."+col.Identifier(), cc.Render)
		if err != nil {
			return grid.Column{}, fmt.Errorf("%w: %w", ErrInvalidResource, err)
		}
		col.Render = render
	}
	return col, nil
}

// checkSortable rejects sortable columns the store cannot order by.
func checkSortable(schema store.Resource, col grid.Column) error {
	if !col.Sortable {
		return nil
	}
	field, _, _ := strings.Cut(col.SortField(), ".")
	f, ok := schema.Field(field)
	if !ok || f.Kind == store.FieldJSON {
		return fmt.Errorf("%w: %s: column %q sorts by %q which is not a sortable field",
			ErrInvalidResource, schema.Name, col.Identifier(), col.SortField())
	}
	return nil
}

// Get returns the named resource.
func (c *Catalog) Get(name string) (Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.resources[name]
	if !ok {
		return Resource{}, fmt.Errorf("%w: %q", store.ErrUnknownResource, name)
	}
	return res, nil
}

// Names lists the resource names in alphabetical order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.resources))
}

// Label derives a column heading from a key: "settings.billing_email"
// becomes "Billing Email" and "fullName" becomes "Full Name".
func Label(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}

	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	// Casers are stateful; build one per call.
	return cases.Title(language.English).String(b.String())
}
