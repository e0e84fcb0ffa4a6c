package migrate

import (
	"context"
	"os"

	"github.com/koustreak/dbridge/internal/errs"
	"github.com/koustreak/dbridge/internal/filestore"
	"github.com/koustreak/dbridge/internal/filestore/minio"
	"github.com/koustreak/dbridge/internal/logger"
	"github.com/koustreak/dbridge/internal/settings"
)

// WithStore uses st as the bucket backend instead of connecting with the
// DATABASE_MIGRATIONS_* credentials. Lets tests avoid dialing MinIO.
func WithStore(st filestore.Store) Option {
	return func(o *options) {
		o.store = st
	}
}

// resolveDir decides where migrations come from. With a bucket configured,
// the .sql objects are downloaded into a temporary directory that cleanup
// removes; otherwise the configured local directory is used as-is.
func resolveDir(ctx context.Context, s settings.Settings, store filestore.Store, log *logger.Logger) (dir string, local bool, cleanup func(), err error) {
	bucket := s.GetString("DATABASE_MIGRATIONS_BUCKET", "")
	if bucket == "" {
		return s.GetString("DATABASE_MIGRATIONS_DIR", "migrations"), true, func() {}, nil
	}

	if store == nil {
		cfg := &filestore.Config{
			Provider:  filestore.ProviderMinIO,
			Endpoint:  s.GetString("DATABASE_MIGRATIONS_ENDPOINT", "localhost:9000"),
			AccessKey: s.GetString("DATABASE_MIGRATIONS_ACCESS_KEY", ""),
			SecretKey: s.GetString("DATABASE_MIGRATIONS_SECRET_KEY", ""),
			UseSSL:    s.GetBool("DATABASE_MIGRATIONS_USE_SSL", false),
			Region:    s.GetString("DATABASE_MIGRATIONS_REGION", ""),
		}
		remote, err := minio.New(ctx, cfg)
		if err != nil {
			return "", false, nil, err
		}
		defer remote.Close()
		store = remote
	}

	tmp, err := os.MkdirTemp("", "dbridge-migrations-*")
	if err != nil {
		return "", false, nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to create staging directory", err)
	}
	cleanup = func() { _ = os.RemoveAll(tmp) }

	prefix := s.GetString("DATABASE_MIGRATIONS_PREFIX", "")
	n, err := filestore.Materialize(ctx, store, bucket, prefix, tmp)
	if err != nil {
		cleanup()
		return "", false, nil, err
	}

	log.With().Str("bucket", bucket).Int("files", n).Logger().
		Debug("staged migrations from object storage")
	return tmp, false, cleanup, nil
}
