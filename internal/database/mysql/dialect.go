// Package mysql provides the MySQL dialect, backed by go-sql-driver.
package mysql

import (
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/dbridge/internal/database/dburl"
)

const defaultPort = "3306"

// Dialect implements dburl.Dialect for MySQL.
type Dialect struct{}

func init() {
	dburl.RegisterDialect(Dialect{})
}

func (Dialect) Name() string {
	return "mysql"
}

func (Dialect) DriverName() string {
	return "mysql"
}

func (Dialect) GooseDialect() string {
	return "mysql"
}

// DSN renders u in go-sql-driver's native format:
// user:pass@tcp(host:port)/dbname?parseTime=true
func (Dialect) DSN(u *dburl.URL) (string, error) {
	port := u.Port
	if port == "" {
		port = defaultPort
	}

	cfg := gomysql.NewConfig()
	cfg.User = u.Username
	cfg.Passwd = u.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", u.Host, port)
	cfg.DBName = u.Database
	cfg.ParseTime = true
	cfg.MultiStatements = true

	for k := range u.Options {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params[k] = u.Options.Get(k)
	}

	return cfg.FormatDSN(), nil
}

// QuoteIdent quotes an identifier with backticks.
func (Dialect) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
