package filestore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/koustreak/dbridge/internal/errs"
)

// Materialize downloads every .sql object under prefix in bucket into dir,
// flattened to base names, so the migration tool can treat dir as a local
// migrations directory. Returns the number of files written.
func Materialize(ctx context.Context, store Store, bucket, prefix, dir string) (int, error) {
	objects, err := store.ListObjects(ctx, bucket, ListOptions{Prefix: prefix, Recursive: true})
	if err != nil {
		return 0, err
	}

	written := 0
	for _, info := range objects {
		if info.IsDir || !strings.HasSuffix(info.Key, ".sql") {
			continue
		}

		if err := download(ctx, store, bucket, info.Key, filepath.Join(dir, path.Base(info.Key))); err != nil {
			return written, err
		}
		written++
	}

	if written == 0 {
		return 0, errs.Newf(errs.ErrKindNotFound,
			"no .sql objects under %q in bucket %q", prefix, bucket)
	}
	return written, nil
}

func download(ctx context.Context, store Store, bucket, key, dest string) error {
	obj, err := store.GetObject(ctx, bucket, key)
	if err != nil {
		return err
	}
	defer obj.Close()

	f, err := os.Create(dest)
	if err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "failed to write migration file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, obj); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "failed to download migration file", err)
	}
	return nil
}
