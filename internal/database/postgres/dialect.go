// Package postgres provides the PostgreSQL dialect, backed by the pgx
// database/sql driver.
package postgres

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/koustreak/dbridge/internal/database/dburl"

	_ "github.com/jackc/pgx/v5/stdlib" // register "pgx" with database/sql
)

const defaultPort = "5432"

// Dialect implements dburl.Dialect for PostgreSQL.
type Dialect struct{}

func init() {
	dburl.RegisterDialect(Dialect{})
}

func (Dialect) Name() string {
	return "postgres"
}

func (Dialect) DriverName() string {
	return "pgx"
}

func (Dialect) GooseDialect() string {
	return "postgres"
}

// DSN renders u as a postgres:// URL understood by pgx.
func (Dialect) DSN(u *dburl.URL) (string, error) {
	port := u.Port
	if port == "" {
		port = defaultPort
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(u.Username, u.Password),
		Host:     fmt.Sprintf("%s:%s", u.Host, port),
		Path:     "/" + u.Database,
		RawQuery: u.Options.Encode(),
	}
	return dsn.String(), nil
}

// QuoteIdent quotes an identifier with double quotes, doubling any embedded
// quote characters.
func (Dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
