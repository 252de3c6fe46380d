package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ifilter/ifadmin/internal/cli/output"
	"github.com/ifilter/ifadmin/internal/controller"
	"github.com/ifilter/ifadmin/pkg/grid"
)

const shellPrompt = "ifadmin> "

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell <resource>",
		Short: "Edit a resource from a line-oriented shell",
		Long: `Start an interactive shell over one resource grid.

The shell works on the rows loaded so far, like the grid does: "more" fetches
the next page and "sort" refetches from the first page. Type help for the
command list.`,
		Example: `  ifadmin shell clients
  ifadmin> sort email
  ifadmin> edit c-ada phone +44 20 7946 0000
  ifadmin> edit c-ada active false`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: resourceCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, args[0])
		},
	}
	return cmd
}

func runShell(cmd *cobra.Command, resource string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	c, err := cc.Controller(ctx, resource, controller.Options{})
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile(cc.Cfg.Database.DSN),
		AutoComplete:    shellCompleter(c.Table()),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sh := newShell(c, cc.Renderer)
	cc.Renderer.Printf("%s (%s)\n", c.Resource().Title, c.Resource().Name)
	cc.Renderer.Muted("Type help for commands, quit to exit")
	sh.exec(ctx, "page")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.exec(ctx, line) {
			return nil
		}
	}
}

// historyFile keeps shell history next to a sqlite database file.
func historyFile(dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "://") {
		return ""
	}
	return filepath.Join(filepath.Dir(dsn), ".ifadmin_history")
}

func shellCompleter(t *grid.Table) *readline.PrefixCompleter {
	var sortable, editable []readline.PrefixCompleterInterface
	for _, col := range t.Columns() {
		if col.SortField() != "" {
			sortable = append(sortable, readline.PcItem(col.Identifier()))
		}
		if col.Editable() {
			editable = append(editable, readline.PcItem(col.Identifier()))
		}
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("page"),
		readline.PcItem("more"),
		readline.PcItem("sort", sortable...),
		readline.PcItem("edit"),
		readline.PcItem("show"),
		readline.PcItem("select"),
		readline.PcItem("all"),
		readline.PcItem("reload"),
		readline.PcItem("columns", editable...),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// shell executes line commands against one grid controller.
type shell struct {
	c *controller.Controller
	r *output.Renderer
}

func newShell(c *controller.Controller, r *output.Renderer) *shell {
	return &shell{c: c, r: r}
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch name, args := strings.ToLower(fields[0]), fields[1:]; name {
	case "quit", "exit":
		return true
	case "help":
		s.help()
	case "page":
		err = s.page()
	case "more":
		err = s.more(ctx)
	case "sort":
		err = s.sort(ctx, args)
	case "edit":
		err = s.edit(ctx, args)
	case "show":
		err = s.show(args)
	case "select":
		err = s.selectRows(args)
	case "all":
		s.c.Table().ToggleAll()
		s.r.Printf("%d selected\n", len(s.c.Table().Selected()))
	case "reload":
		if err = s.c.Reload(ctx); err == nil {
			err = s.page()
		}
	case "columns":
		err = s.columns()
	default:
		err = fmt.Errorf("unknown command %q (type help for commands)", name)
	}
	if err != nil {
		s.r.Error(err.Error())
	}
	return false
}

func (s *shell) page() error {
	t := s.c.Table()
	if t.Len() == 0 {
		s.r.Muted("No records.")
		return nil
	}
	headers, rows, err := tableView(t)
	if err != nil {
		return err
	}
	if err := s.r.Table(headers, rows); err != nil {
		return err
	}
	footer := fmt.Sprintf("%d rows, %d selected", t.Len(), len(t.Selected()))
	if t.HasMore() {
		footer += " (more available)"
	}
	s.r.Muted(footer)
	return nil
}

func (s *shell) more(ctx context.Context) error {
	t := s.c.Table()
	if !t.HasMore() {
		s.r.Muted("All rows loaded.")
		return nil
	}
	before := t.Len()
	s.c.LoadMore(ctx)
	if err := t.LoadError(); err != nil {
		return err
	}
	s.r.Printf("Loaded %d more rows\n", t.Len()-before)
	return s.page()
}

func (s *shell) sort(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sort <column>")
	}
	if _, err := s.c.Table().Column(args[0]); err != nil {
		return err
	}
	ok, err := s.c.Sort(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("column %q is not sortable", args[0])
	}
	return s.page()
}

func (s *shell) edit(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: edit <row> <column> [value...]")
	}
	rowID, colID := args[0], args[1]
	value := strings.Join(args[2:], " ")

	cell, err := s.c.Table().Cell(rowID, colID)
	if err != nil {
		return err
	}
	col := cell.Column()

	var outcome grid.Outcome
	if col.IsBooleanEditor() {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("column %q takes true or false", colID)
		}
		outcome = cell.Commit(ctx, b)
	} else {
		if !cell.Click() {
			return fmt.Errorf("column %q is not editable", colID)
		}
		outcome = cell.Commit(ctx, value)
	}

	switch outcome {
	case grid.OutcomeSaved:
		s.r.Success("Saved " + col.Label)
	case grid.OutcomeUnchanged:
		s.r.Muted("Unchanged")
	case grid.OutcomeBusy:
		return errors.New("a save for this cell is in progress")
	case grid.OutcomeFailed:
		if ev := s.c.LastUpdate(); ev.Err != nil {
			return fmt.Errorf("update failed: %w", ev.Err)
		}
		return errors.New("update failed")
	}
	return nil
}

func (s *shell) show(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show <row>")
	}
	t := s.c.Table()
	if _, ok := t.Row(args[0]); !ok {
		return fmt.Errorf("%w: %q", grid.ErrUnknownRow, args[0])
	}

	s.r.Header(2, s.c.Resource().Title+" / "+args[0])
	for _, col := range t.Columns() {
		d, err := t.Display(args[0], col.Identifier())
		if err != nil {
			return err
		}
		s.r.Println(output.FormatKeyValue(col.Label, plainText(d)))
	}
	return nil
}

func (s *shell) selectRows(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: select <row> [row...]")
	}
	t := s.c.Table()
	if !t.Selectable() {
		return errors.New("rows of this resource are not selectable")
	}
	for _, id := range args {
		if err := t.ToggleRow(id); err != nil {
			return err
		}
	}
	s.r.Printf("%d selected\n", len(t.Selected()))
	return nil
}

func (s *shell) columns() error {
	t := s.c.Table()
	rows := make([][]string, 0, len(t.Columns()))
	for _, col := range t.Columns() {
		rows = append(rows, []string{
			col.Identifier(),
			col.Label,
			yesNo(col.SortField() != ""),
			yesNo(col.Editable()),
		})
	}
	return s.r.Table([]string{"Column", "Label", "Sortable", "Editable"}, rows)
}

func (s *shell) help() {
	s.r.Println(`Commands:
  page                       Show the loaded rows
  more                       Load the next page
  sort <column>              Sort by column (again to reverse)
  edit <row> <column> value  Save a cell
  show <row>                 Show one row
  select <row> [row...]      Toggle row selection
  all                        Toggle all rows
  columns                    List columns
  reload                     Refetch from the first page
  quit / exit                Leave the shell`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
