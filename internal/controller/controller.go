// Package controller binds a catalog resource to the store and a grid.
//
// The grid never fetches or sorts on its own; the controller is the caller
// that answers its load-more and sort requests with store pages and
// replaces the shadow copy when the data changes underneath it.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/store"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// Source is the slice of the store a controller needs.
type Source interface {
	Page(ctx context.Context, resource string, req store.PageRequest) (store.Page, error)
	Persister(resource string) grid.Persister
}

// Options configure a Controller. Callbacks may be nil.
type Options struct {
	Formatter         *grid.Formatter
	Logger            *slog.Logger
	OnUpdate          func(grid.UpdateEvent)
	OnSelectionChange func(ids []string)
	OnRowClick        func(row grid.Row)
}

// Controller drives one grid over one resource.
type Controller struct {
	res    catalog.Resource
	src    Source
	table  *grid.Table
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	loaded int
	sort   grid.SortState

	updateMu   sync.Mutex
	lastUpdate grid.UpdateEvent
}

// New builds the grid for res. Rows are fetched by Load.
func New(res catalog.Resource, src Source, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("resource", res.Name)

	c := &Controller{res: res, src: src, opts: opts, logger: logger}

	table, err := grid.New(res.Columns, grid.Options{
		Selectable:   res.Selectable,
		StickyHeader: true,
		Persister:    src.Persister(res.Name),
		Formatter:    opts.Formatter,
		Logger:       logger,
		Callbacks: grid.Callbacks{
			OnLoadMore:        c.loadMore,
			OnUpdateData:      c.updated,
			OnSelectionChange: opts.OnSelectionChange,
			OnSortChange:      c.sortChanged,
			OnRowClick:        opts.OnRowClick,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s grid: %w", res.Name, err)
	}
	c.table = table
	return c, nil
}

// Resource returns the resource definition.
func (c *Controller) Resource() catalog.Resource { return c.res }

// Table returns the grid.
func (c *Controller) Table() *grid.Table { return c.table }

// SortState returns the sort the store is queried with.
func (c *Controller) SortState() grid.SortState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// Load fetches the first page and replaces the rows.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaceLocked(ctx, c.res.PageSize)
}

// Reload refetches every row loaded so far, keeping the scroll depth.
// It is the invalidation path after an outside write; selection and drafts
// are dropped with the old rows.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaceLocked(ctx, max(c.loaded, c.res.PageSize))
}

func (c *Controller) replaceLocked(ctx context.Context, limit int) error {
	c.table.SetLoading(true)
	defer c.table.SetLoading(false)

	page, err := c.src.Page(ctx, c.res.Name, store.PageRequest{Limit: limit, Sort: c.sort})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", c.res.Name, err)
	}
	if err := c.table.SetRows(page.Rows, page.HasMore); err != nil {
		return err
	}
	c.loaded = len(page.Rows)
	c.logger.Debug("rows loaded", "rows", c.loaded, "has_more", page.HasMore)
	return nil
}

// LoadMore reports the sentinel as visible. It returns whether a page was
// requested; the outcome is in Table().LoadError().
func (c *Controller) LoadMore(ctx context.Context) bool {
	return c.table.SentinelVisible(ctx)
}

func (c *Controller) loadMore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	page, err := c.src.Page(ctx, c.res.Name, store.PageRequest{
		Offset: c.loaded,
		Limit:  c.res.PageSize,
		Sort:   c.sort,
	})
	if err != nil {
		return fmt.Errorf("failed to load more %s: %w", c.res.Name, err)
	}

	// Inserts ahead of the offset shift rows into the next page.
	fresh := make([]grid.Row, 0, len(page.Rows))
	for _, row := range page.Rows {
		if _, dup := c.table.Row(row.ID()); !dup {
			fresh = append(fresh, row)
		}
	}

	if err := c.table.AppendRows(fresh, page.HasMore); err != nil {
		return err
	}
	c.loaded += len(page.Rows)
	return nil
}

// Sort handles a header click and refetches from the first page in the new
// order. It reports false for non-sortable columns.
func (c *Controller) Sort(ctx context.Context, colID string) (bool, error) {
	if _, ok := c.table.HeaderClick(colID); !ok {
		return false, nil
	}
	return true, c.Load(ctx)
}

// LastUpdate returns the most recent cell commit report.
func (c *Controller) LastUpdate() grid.UpdateEvent {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	return c.lastUpdate
}

func (c *Controller) updated(ev grid.UpdateEvent) {
	c.updateMu.Lock()
	c.lastUpdate = ev
	c.updateMu.Unlock()

	if !ev.Success {
		c.logger.Warn("cell commit failed", "row", ev.RowID, "key", ev.Key, "error", ev.Err)
	}
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(ev)
	}
}

func (c *Controller) sortChanged(key string, dir grid.Direction) {
	c.mu.Lock()
	c.sort = grid.SortState{Column: key, Direction: dir}
	c.mu.Unlock()
	c.logger.Debug("sort changed", "key", key, "direction", dir)
}
