package commands

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ifilter/ifadmin/internal/cli/output"
	"github.com/ifilter/ifadmin/internal/notifier"
	"github.com/ifilter/ifadmin/pkg/grid"
)

//go:embed fixtures/demo.yaml
var demoFixtures []byte

// SeedOptions holds options for the seed command.
type SeedOptions struct {
	Demo bool
}

type seedOutput struct {
	Resources []seedResource `json:"resources"`
	Total     int            `json:"total"`
}

type seedResource struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed [file.yaml...]",
		Short: "Load fixture rows into the database",
		Long: `Load fixture rows from YAML files into the database.

A fixture file maps resource names to lists of rows:

  clients:
    - first_name: Ada
      last_name: Lovelace
      settings: {plan: pro}

Rows without an id get a generated one. All files are inserted in a single
transaction; any error leaves the database unchanged.`,
		Example: `  # Load the bundled demo data
  ifadmin seed --demo

  # Load fixtures from files
  ifadmin seed clients.yaml tickets.yaml --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Demo, "demo", false, "Load the bundled demo data")

	return cmd
}

func runSeed(cmd *cobra.Command, files []string, opts *SeedOptions) error {
	if len(files) == 0 && !opts.Demo {
		return fmt.Errorf("no fixture files given (use --demo for the bundled data)")
	}

	fixtures := map[string][]grid.Row{}
	if opts.Demo {
		if err := parseFixtures(demoFixtures, fixtures); err != nil {
			return fmt.Errorf("demo fixtures: %w", err)
		}
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if err := parseFixtures(data, fixtures); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := notifier.WithOrigin(cmd.Context(), "seed")
	total, err := cc.Store.Seed(ctx, fixtures)
	if err != nil {
		return err
	}
	cc.Logger.Debug("fixtures loaded", "rows", total, "files", len(files))

	out := seedOutput{Total: total}
	for _, name := range slices.Sorted(maps.Keys(fixtures)) {
		out.Resources = append(out.Resources, seedResource{Name: name, Rows: len(fixtures[name])})
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown, output.ModeCSV:
		r.Println(output.FormatHeader(1, "Seeded"))
		r.Println("")
		for _, res := range out.Resources {
			r.Println(output.FormatKeyValue(res.Name, strconv.Itoa(res.Rows)+" rows"))
		}
		r.Println("")
		r.Printf("**Total Rows:** %d\n", out.Total)
	default:
		r.Header(2, "Seeded")
		for _, res := range out.Resources {
			r.StatusLine(res.Name, "success", fmt.Sprintf("%d rows", res.Rows))
		}
		r.Println("")
		r.Success(fmt.Sprintf("%d rows loaded", out.Total))
	}
	return nil
}

// parseFixtures decodes a fixture document and appends its rows to into.
func parseFixtures(data []byte, into map[string][]grid.Row) error {
	var doc map[string][]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for resource, rows := range doc {
		for _, raw := range rows {
			into[resource] = append(into[resource], grid.Row(normalizeFixture(raw).(map[string]any)))
		}
	}
	return nil
}

// normalizeFixture turns YAML timestamps into the text form the store
// keeps, recursing into nested maps and lists.
func normalizeFixture(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeFixture(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeFixture(val)
		}
		return out
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
