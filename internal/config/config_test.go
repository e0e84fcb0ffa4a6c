package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbridge/internal/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
app: worker
settings:
  QUEUE_NAME: ingest
database:
  type: postgres
  driver: pgx
  username: app
  password: secret
  host: db.internal
  port: 5432
  database: appdb
`)

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "worker", a.Name())
	assert.Equal(t, "ingest", a.Settings["QUEUE_NAME"])

	// The database block stays nested until the plugin hook runs.
	block, ok := a.Settings["DATABASE"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "db.internal", block["host"])

	p := database.New()
	require.NoError(t, p.InitApp(a))
	assert.Equal(t, "db.internal", a.Settings["DATABASE_HOST"])
	assert.Equal(t, "appdb", a.Settings["DATABASE_DATABASE"])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "settings: [not a mapping\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadNoFile(t *testing.T) {
	a, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dbridge", a.Name())
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := writeConfig(t, `
app: worker
settings:
  DATABASE_HOST: db.internal
  DATABASE_PORT: 5432
`)

	t.Setenv("DATABASE_HOST", "db.override")
	t.Setenv("DATABASE_PORT", "5433")
	t.Setenv("DATABASE_URI", "sqlite://")

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.override", a.Settings["DATABASE_HOST"])
	assert.Equal(t, 5433, a.Settings["DATABASE_PORT"])
	assert.Equal(t, "sqlite://", a.Settings["DATABASE_URI"])
}
