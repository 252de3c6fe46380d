package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ifilter/ifadmin/internal/cli/output"
)

type resourceInfo struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Columns    int    `json:"columns"`
	Rows       int    `json:"rows"`
	PageSize   int    `json:"page_size"`
	Selectable bool   `json:"selectable"`
}

// NewResourcesCommand creates the resources command.
func NewResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "resources",
		Aliases: []string{"ls"},
		Short:   "List the admin resources",
		Long:    `List every resource grid with its column count and stored row count.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResources(cmd)
		},
	}
}

func runResources(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	infos := make([]resourceInfo, 0, len(cc.Catalog.Names()))
	for _, name := range cc.Catalog.Names() {
		res, err := cc.Catalog.Get(name)
		if err != nil {
			return err
		}
		n, err := cc.Store.Count(cmd.Context(), name)
		if err != nil {
			return err
		}
		infos = append(infos, resourceInfo{
			Name:       name,
			Title:      res.Title,
			Columns:    len(res.Columns),
			Rows:       n,
			PageSize:   res.PageSize,
			Selectable: res.Selectable,
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Name,
			info.Title,
			strconv.Itoa(info.Columns),
			strconv.Itoa(info.Rows),
			strconv.Itoa(info.PageSize),
		})
	}
	return r.Table([]string{"Name", "Title", "Columns", "Rows", "Page Size"}, rows)
}
