// Package schema is the plugin's model base: a declarative registry of
// table definitions plus the DDL to materialize them. Applications declare
// their tables once against the plugin's Metadata; CreateAll and DropAll
// turn the declarations into per-dialect SQL.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/koustreak/dbridge/internal/database/dburl"
	"github.com/koustreak/dbridge/internal/errs"
)

// Execer is the slice of *sql.DB / *sql.Tx the DDL helpers need.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer is the slice of *sql.DB / *sql.Tx the introspection helpers need.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Metadata is the declarative table registry. It is safe for concurrent
// use. Tables keep their registration order, which is also the order
// CreateAll issues DDL in — declare referenced tables first.
type Metadata struct {
	mu     sync.RWMutex
	tables []Table
	byName map[string]int
}

// New returns an empty registry.
func New() *Metadata {
	return &Metadata{byName: map[string]int{}}
}

// Register declares a table. Re-declaring a name is an error.
func (m *Metadata) Register(t Table) error {
	if t.Name == "" {
		return errs.New(errs.ErrKindInvalidInput, "table declaration has no name")
	}
	if len(t.Columns) == 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "table %q declares no columns", t.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[t.Name]; exists {
		return errs.Newf(errs.ErrKindInvalidInput, "table %q is already declared", t.Name)
	}
	m.byName[t.Name] = len(m.tables)
	m.tables = append(m.tables, t)
	return nil
}

// Tables returns the declared tables in registration order.
func (m *Metadata) Tables() []Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Table, len(m.tables))
	copy(out, m.tables)
	return out
}

// Lookup returns the declaration for name.
func (m *Metadata) Lookup(name string) (Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byName[name]
	if !ok {
		return Table{}, false
	}
	return m.tables[i], true
}

// CreateAll creates every declared table that does not exist yet, in
// registration order.
func (m *Metadata) CreateAll(ctx context.Context, ex Execer, d dburl.Dialect) error {
	for _, t := range m.Tables() {
		if _, err := ex.ExecContext(ctx, CreateSQL(t, d)); err != nil {
			return d.MapError(err, fmt.Sprintf("failed to create table %q", t.Name))
		}
	}
	return nil
}

// DropAll drops every declared table, in reverse registration order so
// referencing tables go first.
func (m *Metadata) DropAll(ctx context.Context, ex Execer, d dburl.Dialect) error {
	tables := m.Tables()
	for i := len(tables) - 1; i >= 0; i-- {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdent(tables[i].Name))
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return d.MapError(err, fmt.Sprintf("failed to drop table %q", tables[i].Name))
		}
	}
	return nil
}

// CreateSQL renders the CREATE TABLE statement for t in dialect d.
func CreateSQL(t Table, d dburl.Dialect) string {
	var defs []string

	for _, c := range t.Columns {
		def := d.QuoteIdent(c.Name) + " " + c.Type
		if !c.Nullable && !c.PrimaryKey {
			def += " NOT NULL"
		}
		if c.Default != "" {
			def += " DEFAULT " + c.Default
		}
		if c.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}

	if pk := t.primaryKey(); len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, name := range pk {
			quoted[i] = d.QuoteIdent(name)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}

	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.QuoteIdent(fk.Column), d.QuoteIdent(fk.RefTable), d.QuoteIdent(fk.RefColumn)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		d.QuoteIdent(t.Name), strings.Join(defs, ", "))
}
