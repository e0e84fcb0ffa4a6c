package schema

// Column describes a single column in a declared table.
type Column struct {
	Name string

	// Type is the SQL type as the target dialect understands it
	// (TEXT, INTEGER, TIMESTAMPTZ, …).
	Type string

	Nullable   bool
	PrimaryKey bool
	Unique     bool

	// Default is a raw SQL default expression. Empty means no default.
	Default string
}

// ForeignKey declares a relationship to another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table is a declared table: the model-base unit applications register
// against the plugin's metadata.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// primaryKey returns the names of the primary key columns, in declaration
// order.
func (t Table) primaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}
