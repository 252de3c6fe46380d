package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/cli/config"
	"github.com/ifilter/ifadmin/internal/cli/output"
	"github.com/ifilter/ifadmin/internal/controller"
	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/internal/script"
	"github.com/ifilter/ifadmin/internal/store"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Renderer  *output.Renderer
	Store     *store.Store
	Notifier  *notifier.Notifier
	Catalog   *catalog.Catalog
	Formatter *grid.Formatter
}

// NewCommandContext opens and migrates the store and builds the catalog
// from the configured overrides. The cleanup function closes the store.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutStore(cmd)
	ctx := cmd.Context()

	formatter, err := cc.Cfg.Grid.Formatter()
	if err != nil {
		return nil, nil, err
	}
	cc.Formatter = formatter

	cc.Notifier = notifier.New()
	st, err := openStore(ctx, cc.Cfg, cc.Logger, cc.Notifier)
	if err != nil {
		return nil, nil, err
	}
	cc.Store = st

	cat, err := newCatalog(cc.Cfg, cc.Logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	cc.Catalog = cat

	cleanup := func() {
		_ = st.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a store.
// Useful for commands that don't need database access.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Controller loads the first page of resource into a new grid controller.
func (cc *CommandContext) Controller(ctx context.Context, resource string, opts controller.Options) (*controller.Controller, error) {
	res, err := cc.Catalog.Get(resource)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = cc.Logger
	}
	if opts.Formatter == nil {
		opts.Formatter = cc.Formatter
	}
	c, err := controller.New(res, cc.Store, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, notify *notifier.Notifier) (*store.Store, error) {
	// Ensure the sqlite file's directory exists
	if cfg.Database.Driver == "" || cfg.Database.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." && dir != "" && cfg.Database.DSN != ":memory:" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	st, err := store.Open(ctx, store.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		Logger:   logger,
		Notifier: notify,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	cat, err := catalog.New(script.NewRenderer(nil), logger, cfg.UI.PageSize)
	if err != nil {
		return nil, err
	}
	if len(cfg.Resources) > 0 {
		if err := cat.Load(cfg.Resources); err != nil {
			return nil, fmt.Errorf("failed to load resources: %w", err)
		}
	}
	return cat, nil
}

// resourceCompletion completes resource names for positional arguments.
func resourceCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return store.Resources(), cobra.ShellCompDirectiveNoFileComp
}
