package filestore

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

	"github.com/koustreak/dbridge/internal/errs"
)

// fakeStore is an in-memory Store for tests.
type fakeStore struct {
	objects map[string][]byte // key -> content, single bucket
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) ListObjects(_ context.Context, _ string, opts ListOptions) ([]ObjectInfo, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	infos := make([]ObjectInfo, len(keys))
	for i, k := range keys {
		infos[i] = ObjectInfo{Key: k, Size: int64(len(f.objects[k]))}
	}
	return infos, nil
}

type fakeObject struct {
	io.Reader
	info ObjectInfo
}

func (o *fakeObject) Close() error      { return nil }
func (o *fakeObject) Info() *ObjectInfo { return &o.info }

func (f *fakeStore) GetObject(_ context.Context, _ string, key string) (Object, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no object %q", key)
	}
	return &fakeObject{Reader: bytes.NewReader(content), info: ObjectInfo{Key: key}}, nil
}

func (f *fakeStore) StatObject(_ context.Context, _ string, key string) (*ObjectInfo, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no object %q", key)
	}
	return &ObjectInfo{Key: key, Size: int64(len(content))}, nil
}

func TestMaterialize(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{
		"migrations/001_init.sql": []byte("-- +goose Up\nCREATE TABLE jobs (id INTEGER);\n"),
		"migrations/002_name.sql": []byte("-- +goose Up\nALTER TABLE jobs ADD COLUMN name TEXT;\n"),
		"migrations/README.md":    []byte("not a migration"),
		"other/003_skip.sql":      []byte("wrong prefix"),
	}}

	dir := t.TempDir()
	n, err := Materialize(context.Background(), store, "schema", "migrations/", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.Equal(t, []string{"001_init.sql", "002_name.sql"}, names)

	content, err := os.ReadFile(filepath.Join(dir, "001_init.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE jobs")
}

func TestMaterializeEmpty(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}

	_, err := Materialize(context.Background(), store, "schema", "migrations/", t.TempDir())
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}
