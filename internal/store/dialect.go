package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	// Name is the driver name passed to sql.Open.
	Name string
	// Goose is the goose dialect used for migrations.
	Goose string
	// Dir is the embedded migrations directory.
	Dir string

	numbered bool
}

// Supported dialects.
var (
	SQLite   = Dialect{Name: "sqlite", Goose: "sqlite3", Dir: "migrations/sqlite"}
	Postgres = Dialect{Name: "pgx", Goose: "postgres", Dir: "migrations/postgres", numbered: true}
)

// DialectFor maps a configured driver name to its dialect.
// "postgres" and "postgresql" are accepted as aliases of "pgx".
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
