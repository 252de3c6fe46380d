// Package config provides configuration management for the ifadmin CLI.
//
// Values are layered from built-in defaults, the ifadmin.yaml file,
// IFADMIN_ environment variables and explicitly set flags, in that order.
package config

import (
	"fmt"
	"time"

	"github.com/ifilter/ifadmin/internal/catalog"
	"github.com/ifilter/ifadmin/pkg/grid"
)

// Default configuration values.
const (
	DefaultDriver   = "sqlite"
	DefaultDSN      = "ifadmin.db"
	DefaultPort     = 8765
	DefaultPageSize = 25
	DefaultOutput   = "auto" // TTY=text, non-TTY=markdown

	DefaultSessionIdle = 2 * time.Hour
)

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// UIConfig holds configuration for the web UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	PageSize      int    `koanf:"page_size"`
	SessionSecret string `koanf:"session_secret"`
	Watch         bool   `koanf:"watch"`
	Dev           bool   `koanf:"dev"`

	// SessionIdle is how long a browser session keeps its grids unused.
	SessionIdle time.Duration `koanf:"session_idle"`
}

// GridConfig holds display settings shared by every front-end.
type GridConfig struct {
	DateLayout     string `koanf:"date_layout"`
	DateTimeLayout string `koanf:"datetime_layout"`
	Timezone       string `koanf:"timezone"`
}

// Config holds all CLI configuration options.
type Config struct {
	Database     DatabaseConfig                    `koanf:"database"`
	UI           UIConfig                          `koanf:"ui"`
	Grid         GridConfig                        `koanf:"grid"`
	Resources    map[string]catalog.ResourceConfig `koanf:"resources"`
	Verbose      bool                              `koanf:"verbose"`
	OutputFormat string                            `koanf:"output"`

	// File is the config file that was read, empty when none was found.
	File string `koanf:"-"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DefaultDriver, DSN: DefaultDSN},
		UI: UIConfig{
			Port:        DefaultPort,
			PageSize:    DefaultPageSize,
			Watch:       true,
			SessionIdle: DefaultSessionIdle,
		},
		Grid: GridConfig{
			DateLayout:     grid.DefaultDateLayout,
			DateTimeLayout: grid.DefaultDateTimeLayout,
		},
		OutputFormat: DefaultOutput,
	}
}

// Formatter builds the grid formatter for the configured layouts and zone.
func (g GridConfig) Formatter() (*grid.Formatter, error) {
	f := grid.DefaultFormatter()
	if g.DateLayout != "" {
		f.DateLayout = g.DateLayout
	}
	if g.DateTimeLayout != "" {
		f.DateTimeLayout = g.DateTimeLayout
	}
	if g.Timezone != "" {
		loc, err := time.LoadLocation(g.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid grid.timezone %q: %w", g.Timezone, err)
		}
		f.Location = loc
	}
	return &f, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port %d is out of range", c.UI.Port)
	}
	if c.UI.PageSize < 0 {
		return fmt.Errorf("ui.page_size must not be negative")
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "csv", "json":
	default:
		return fmt.Errorf("unknown output format %q (want auto|text|markdown|csv|json)", c.OutputFormat)
	}
	if _, err := c.Grid.Formatter(); err != nil {
		return err
	}
	return nil
}
