package commands

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/ifilter/ifadmin/internal/cli/config"
	"github.com/ifilter/ifadmin/internal/controller"
	"github.com/ifilter/ifadmin/internal/tui"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// BrowseOptions holds options for the browse command.
type BrowseOptions struct {
	LogFile string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse <resource>",
		Short: "Browse and edit a resource in the terminal",
		Long: `Open a resource grid in a full-screen terminal browser.

Move with the arrow keys (or hjkl), edit the focused cell with enter, open a
row with o, select rows with space and sort by the focused column with s.
Scrolling past the last row loads the next page. Press ? for all keys.`,
		Example: `  # Browse clients
  ifadmin browse clients

  # Write debug logs while browsing
  ifadmin browse tickets --verbose --log-file browse.log`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: resourceCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, args[0], opts)
		},
	}

	cmd.Flags().Int("page-size", config.DefaultPageSize, "Rows per page")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "ifadmin-browse.log", "Debug log file used with --verbose")

	return cmd
}

func runBrowse(cmd *cobra.Command, resource string, opts *BrowseOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// The terminal belongs to the browser; logs go to a file or nowhere.
	logger := slog.New(slog.DiscardHandler)
	if cc.Cfg.Verbose {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logger = config.NewLogger(f, true)
	}
	cc.Logger = logger

	m, err := browseModel(cc, cmd, resource)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	return err
}

func browseModel(cc *CommandContext, cmd *cobra.Command, resource string) (*tui.Model, error) {
	ctx := cmd.Context()
	c, err := cc.Controller(ctx, resource, controller.Options{
		OnRowClick: func(row grid.Row) {
			cc.Logger.Debug("row opened", "resource", resource, "row", row.ID())
		},
	})
	if err != nil {
		return nil, err
	}

	profile := termenv.Ascii
	if cc.Renderer.IsTTY() {
		profile = termenv.EnvColorProfile()
	}
	return tui.New(c, tui.Options{
		Context:  ctx,
		Logger:   cc.Logger,
		Renderer: lipgloss.NewRenderer(cmd.OutOrStdout(), termenv.WithProfile(profile)),
		Notifier: cc.Notifier,
	}), nil
}
