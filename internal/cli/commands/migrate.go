package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ifilter/ifadmin/internal/cli/output"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply the embedded schema migrations to the configured database.

Every command that opens the database migrates it first; migrate is useful
to prepare a database ahead of a deployment. Running it twice is a no-op.`,
		Example: `  # Migrate the default sqlite file
  ifadmin migrate

  # Migrate a PostgreSQL database
  ifadmin migrate --driver pgx --database postgres://localhost/ifadmin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd)
		},
	}
}

func runMigrate(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	version, err := cc.Store.MigrationVersion(cmd.Context())
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(map[string]any{
			"driver":  cc.Cfg.Database.Driver,
			"version": version,
		})
	case output.ModeMarkdown, output.ModeCSV:
		r.Println(output.FormatKeyValue("Driver", cc.Cfg.Database.Driver))
		r.Println(output.FormatKeyValue("Schema Version", strconv.FormatInt(version, 10)))
	default:
		r.Success("database is at schema version " + strconv.FormatInt(version, 10))
	}
	return nil
}
