package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/internal/cli/config"
	"github.com/ifilter/ifadmin/internal/ui"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Long: `Start the web dashboard serving the resource grids.

Every browser session gets its own grids. Edits made anywhere (another
browser, the shell, the terminal browser) refresh open grids through
server-sent events. With ui.watch enabled, saving the config file reloads
the resource definitions without a restart.`,
		Example: `  # Start on the configured port
  ifadmin serve

  # Start on a custom port without the config watcher
  ifadmin serve --port 3000 --watch=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	// Read through the config layer; see config.flagKeys.
	cmd.Flags().Int("port", config.DefaultPort, "Port to serve on")
	cmd.Flags().Int("page-size", config.DefaultPageSize, "Rows per page")
	cmd.Flags().Bool("watch", true, "Reload resources when the config file changes")
	cmd.Flags().Bool("dev", false, "Serve static files from disk and enable live reload")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	server := ui.NewServer(serverConfig(cc))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc.Renderer.Printf("Starting UI server on http://localhost:%d\n", cc.Cfg.UI.Port)
	cc.Renderer.Muted("Press Ctrl+C to stop")
	return server.Serve(ctx)
}

func serverConfig(cc *CommandContext) ui.Config {
	cfg := cc.Cfg

	secret := cfg.UI.SessionSecret
	if secret == "" {
		// Sessions do not survive a restart without a configured secret.
		secret = uuid.NewString()
		cc.Logger.Warn("ui.session_secret is not set, using a random secret")
	}

	var reload ui.ReloadFunc
	if cfg.File != "" {
		path := cfg.File
		reload = func() (map[string]catalog.ResourceConfig, error) {
			return config.LoadResources(path)
		}
	}

	return ui.Config{
		Catalog:       cc.Catalog,
		Store:         cc.Store,
		Notifier:      cc.Notifier,
		Formatter:     cc.Formatter,
		Port:          cfg.UI.Port,
		Watch:         cfg.UI.Watch && cfg.File != "",
		Dev:           cfg.UI.Dev,
		ConfigPath:    cfg.File,
		Reload:        reload,
		SessionSecret: secret,
		SessionIdle:   cfg.UI.SessionIdle,
		Logger:        cc.Logger,
	}
}

