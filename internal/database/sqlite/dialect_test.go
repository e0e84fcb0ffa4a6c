package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbridge/internal/database/dburl"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty means in-memory", "sqlite://", ":memory:"},
		{"memory keyword", "sqlite://:memory:", ":memory:"},
		{"relative path", "sqlite://app.db", "app.db"},
		{"absolute path", "sqlite:///var/data/app.db", "/var/data/app.db"},
		{"options appended", "sqlite://app.db?cache=shared", "app.db?cache=shared"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := dburl.Parse(tt.raw)
			require.NoError(t, err)

			dsn, err := Dialect{}.DSN(u)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, Dialect{}.QuoteIdent("users"))
}

func TestRegistered(t *testing.T) {
	d, err := dburl.LookupDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.DriverName())
	assert.Equal(t, "sqlite3", d.GooseDialect())
}
