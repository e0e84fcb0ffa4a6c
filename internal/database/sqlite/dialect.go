// Package sqlite provides the SQLite dialect, backed by the pure-Go
// modernc.org driver. No cgo required.
package sqlite

import (
	"strings"

	"github.com/koustreak/dbridge/internal/database/dburl"

	_ "modernc.org/sqlite" // register "sqlite" with database/sql
)

// Dialect implements dburl.Dialect for SQLite.
type Dialect struct{}

func init() {
	dburl.RegisterDialect(Dialect{})
}

func (Dialect) Name() string {
	return "sqlite"
}

func (Dialect) DriverName() string {
	return "sqlite"
}

func (Dialect) GooseDialect() string {
	return "sqlite3"
}

// DSN renders u as a file path. An empty database means an in-memory
// database, matching the "sqlite://" shorthand.
func (Dialect) DSN(u *dburl.URL) (string, error) {
	path := u.Database
	if path == "" {
		path = ":memory:"
	}
	if len(u.Options) > 0 {
		path += "?" + u.Options.Encode()
	}
	return path, nil
}

// QuoteIdent quotes an identifier with double quotes.
func (Dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
