package schema

import (
	"context"

	"github.com/koustreak/dbridge/internal/database/dburl"
)

// listTablesSQL returns the dialect's query for listing user tables.
func listTablesSQL(d dburl.Dialect) string {
	switch d.Name() {
	case "mysql":
		return `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = DATABASE()
			  AND table_type   = 'BASE TABLE'
			ORDER BY table_name`
	case "sqlite":
		return `
			SELECT name
			FROM sqlite_master
			WHERE type = 'table'
			  AND name NOT LIKE 'sqlite_%'
			ORDER BY name`
	default:
		// postgres and friends speak information_schema
		return `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = 'public'
			  AND table_type   = 'BASE TABLE'
			ORDER BY table_name`
	}
}

// ListTables returns the names of the user tables that currently exist in
// the database, sorted.
func ListTables(ctx context.Context, q Queryer, d dburl.Dialect) ([]string, error) {
	rows, err := q.QueryContext(ctx, listTablesSQL(d))
	if err != nil {
		return nil, d.MapError(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, d.MapError(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, d.MapError(err, "error iterating tables")
	}
	return tables, nil
}

// TableExists reports whether a declared or undeclared table is present in
// the database.
func TableExists(ctx context.Context, q Queryer, d dburl.Dialect, table string) (bool, error) {
	tables, err := ListTables(ctx, q, d)
	if err != nil {
		return false, err
	}
	for _, name := range tables {
		if name == table {
			return true, nil
		}
	}
	return false, nil
}
