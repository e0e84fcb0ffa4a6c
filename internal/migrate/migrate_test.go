package migrate

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbridge/internal/app"
	"github.com/koustreak/dbridge/internal/database"
	"github.com/koustreak/dbridge/internal/errs"
	"github.com/koustreak/dbridge/internal/filestore"
	"github.com/koustreak/dbridge/internal/logger"
	"github.com/koustreak/dbridge/internal/schema"
	"github.com/koustreak/dbridge/internal/settings"
)

const createJobsSQL = `-- +goose Up
CREATE TABLE jobs (id INTEGER PRIMARY KEY, name TEXT);

-- +goose Down
DROP TABLE jobs;
`

const addRunsSQL = `-- +goose Up
CREATE TABLE runs (id INTEGER PRIMARY KEY, job_id INTEGER);

-- +goose Down
DROP TABLE runs;
`

func writeMigrations(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00001_create_jobs.sql"), []byte(createJobsSQL), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00002_add_runs.sql"), []byte(addRunsSQL), 0o644))
	return dir
}

func testPlugin(t *testing.T, extra settings.Settings) *database.Plugin {
	t.Helper()
	t.Cleanup(app.Reset)

	s := settings.Settings{
		"DATABASE_URI": "sqlite://" + filepath.Join(t.TempDir(), "app.db"),
	}
	s.Merge(extra)

	quiet := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
	a := app.New("testing", app.WithSettings(s), app.WithLogger(quiet))

	p, err := database.Attach(a)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func testMigrator(t *testing.T, p *database.Plugin, opts ...Option) *Migrator {
	t.Helper()
	m, err := New(context.Background(), p, opts...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func listTables(t *testing.T, p *database.Plugin) []string {
	t.Helper()
	engine, err := p.Engine()
	require.NoError(t, err)
	tables, err := schema.ListTables(context.Background(), engine.DB(), engine.Dialect())
	require.NoError(t, err)
	return tables
}

func TestUpAndVersion(t *testing.T) {
	ctx := context.Background()
	dir := writeMigrations(t)
	p := testPlugin(t, settings.Settings{"DATABASE_MIGRATIONS_DIR": dir})
	m := testMigrator(t, p)

	require.NoError(t, m.Up(ctx))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	tables := listTables(t, p)
	assert.Contains(t, tables, "jobs")
	assert.Contains(t, tables, "runs")

	// Nothing pending: Up is a no-op, not an error.
	require.NoError(t, m.Up(ctx))
}

func TestUpByOne(t *testing.T) {
	ctx := context.Background()
	dir := writeMigrations(t)
	p := testPlugin(t, settings.Settings{"DATABASE_MIGRATIONS_DIR": dir})
	m := testMigrator(t, p)

	require.NoError(t, m.UpByOne(ctx))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, m.UpByOne(ctx))

	err = m.UpByOne(ctx)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestUpToAndDownTo(t *testing.T) {
	ctx := context.Background()
	dir := writeMigrations(t)
	p := testPlugin(t, settings.Settings{"DATABASE_MIGRATIONS_DIR": dir})
	m := testMigrator(t, p)

	require.NoError(t, m.UpTo(ctx, 1))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.NotContains(t, listTables(t, p), "runs")

	require.NoError(t, m.UpTo(ctx, 2))
	require.NoError(t, m.DownTo(ctx, 0))

	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
	assert.NotContains(t, listTables(t, p), "jobs")
}

func TestDownAndRedo(t *testing.T) {
	ctx := context.Background()
	dir := writeMigrations(t)
	p := testPlugin(t, settings.Settings{"DATABASE_MIGRATIONS_DIR": dir})
	m := testMigrator(t, p)

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Down(ctx))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, m.Redo(ctx))

	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	dir := writeMigrations(t)
	p := testPlugin(t, settings.Settings{"DATABASE_MIGRATIONS_DIR": dir})
	m := testMigrator(t, p)

	require.NoError(t, m.Status(ctx))
	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Status(ctx))
}

func TestCreate(t *testing.T) {
	dir := writeMigrations(t)
	p := testPlugin(t, settings.Settings{"DATABASE_MIGRATIONS_DIR": dir})
	m := testMigrator(t, p)

	require.NoError(t, m.Create("add_index"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	found := false
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_add_index.sql") {
			found = true
		}
	}
	assert.True(t, found, "expected a generated _add_index.sql migration")
}

func TestDefaultDir(t *testing.T) {
	p := testPlugin(t, nil)
	m := testMigrator(t, p)
	assert.Equal(t, "migrations", m.Dir())
}

// --- bucket source ---

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) ListObjects(_ context.Context, _ string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	infos := make([]filestore.ObjectInfo, len(keys))
	for i, k := range keys {
		infos[i] = filestore.ObjectInfo{Key: k, Size: int64(len(f.objects[k]))}
	}
	return infos, nil
}

type fakeObject struct {
	io.Reader
	info filestore.ObjectInfo
}

func (o *fakeObject) Close() error                { return nil }
func (o *fakeObject) Info() *filestore.ObjectInfo { return &o.info }

func (f *fakeStore) GetObject(_ context.Context, _ string, key string) (filestore.Object, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no object %q", key)
	}
	return &fakeObject{Reader: bytes.NewReader(content), info: filestore.ObjectInfo{Key: key}}, nil
}

func (f *fakeStore) StatObject(_ context.Context, _ string, key string) (*filestore.ObjectInfo, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no object %q", key)
	}
	return &filestore.ObjectInfo{Key: key, Size: int64(len(content))}, nil
}

func TestBucketSource(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{objects: map[string][]byte{
		"schema/00001_create_jobs.sql": []byte(createJobsSQL),
		"schema/00002_add_runs.sql":    []byte(addRunsSQL),
	}}

	p := testPlugin(t, settings.Settings{
		"DATABASE_MIGRATIONS_BUCKET": "migrations",
		"DATABASE_MIGRATIONS_PREFIX": "schema/",
	})
	m := testMigrator(t, p, WithStore(store))

	// The source was staged into a throwaway directory.
	assert.NotEqual(t, "migrations", m.Dir())

	require.NoError(t, m.Up(ctx))
	assert.Contains(t, listTables(t, p), "jobs")

	// Authoring new migrations against a bucket makes no sense.
	err := m.Create("nope")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	m.Close()
	_, statErr := os.Stat(m.Dir())
	assert.True(t, os.IsNotExist(statErr), "staging directory should be removed on Close")
}

func TestAppContext(t *testing.T) {
	t.Cleanup(app.Reset)
	a := app.New("worker")

	ctx := WithApp(context.Background(), a)
	got, ok := AppFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = AppFromContext(context.Background())
	assert.False(t, ok)
}
