// Package migrate forwards schema-migration commands to goose
// (github.com/pressly/goose/v3). The package adds no migration logic of its
// own: it resolves the database handle and migration source from the
// application settings, then delegates each command to the matching goose
// entry point, threading the hosting application through the context so Go
// migrations can reach application metadata.
//
// Settings consumed (all in the DATABASE_ namespace):
//
//	DATABASE_MIGRATIONS_DIR        local migrations directory (default "migrations")
//	DATABASE_MIGRATIONS_TABLE      goose version table (default "goose_db_version")
//	DATABASE_MIGRATIONS_BUCKET     object-storage bucket to pull migrations from
//	DATABASE_MIGRATIONS_PREFIX     key prefix inside the bucket
//	DATABASE_MIGRATIONS_ENDPOINT   storage endpoint (host:port)
//	DATABASE_MIGRATIONS_ACCESS_KEY / _SECRET_KEY / _USE_SSL / _REGION
package migrate

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pressly/goose/v3"
	"github.com/schollz/progressbar/v3"

	"github.com/koustreak/dbridge/internal/database"
	"github.com/koustreak/dbridge/internal/errs"
	"github.com/koustreak/dbridge/internal/filestore"
	"github.com/koustreak/dbridge/internal/logger"
)

// Migrator forwards migration commands for one plugin instance.
//
// goose holds its dialect, version table, and logger as package-level
// state, so use one Migrator at a time per process.
type Migrator struct {
	db       *sql.DB
	dir      string
	local    bool // Create only works against a local directory
	log      *logger.Logger
	appCtx   func(context.Context) context.Context
	cleanup  func()
	progress bool
}

// New builds a Migrator from the plugin: the engine supplies the database
// handle and dialect, the application settings supply the migration source.
func New(ctx context.Context, p *database.Plugin, opts ...Option) (*Migrator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a, err := p.App()
	if err != nil {
		return nil, err
	}

	engine, err := p.Engine()
	if err != nil {
		return nil, err
	}

	log := o.log
	if log == nil {
		log = a.Logger
	}

	dir, local, cleanup, err := resolveDir(ctx, a.Settings, o.store, log)
	if err != nil {
		return nil, err
	}

	goose.SetTableName(a.Settings.GetString("DATABASE_MIGRATIONS_TABLE", "goose_db_version"))
	goose.SetLogger(log)
	if err := goose.SetDialect(engine.Dialect().GooseDialect()); err != nil {
		cleanup()
		return nil, errs.Wrap(errs.ErrKindMigrationFailed, "failed to set migration dialect", err)
	}

	m := &Migrator{
		db:    engine.DB(),
		dir:   dir,
		local: local,
		log:   log,
		appCtx: func(ctx context.Context) context.Context {
			return WithApp(ctx, a)
		},
		cleanup:  cleanup,
		progress: o.progress,
	}
	return m, nil
}

// Close removes any materialized migration files.
func (m *Migrator) Close() {
	if m.cleanup != nil {
		m.cleanup()
	}
}

// Dir returns the directory migrations are read from.
func (m *Migrator) Dir() string {
	return m.dir
}

// Up applies every pending migration, one at a time.
func (m *Migrator) Up(ctx context.Context) error {
	ctx = m.appCtx(ctx)

	var bar *progressbar.ProgressBar
	if m.progress {
		bar = progressbar.Default(-1, "applying migrations")
	}

	applied := 0
	for {
		err := goose.UpByOneContext(ctx, m.db, m.dir)
		if errors.Is(err, goose.ErrNoNextVersion) {
			break
		}
		if err != nil {
			return errs.Wrap(errs.ErrKindMigrationFailed, "migration up failed", err)
		}
		applied++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	m.log.Infof("applied %d migrations", applied)
	return nil
}

// UpTo applies pending migrations up to and including version.
func (m *Migrator) UpTo(ctx context.Context, version int64) error {
	if err := goose.UpToContext(m.appCtx(ctx), m.db, m.dir, version); err != nil {
		return errs.Wrap(errs.ErrKindMigrationFailed, "migration up-to failed", err)
	}
	return nil
}

// UpByOne applies the next pending migration.
func (m *Migrator) UpByOne(ctx context.Context) error {
	err := goose.UpByOneContext(m.appCtx(ctx), m.db, m.dir)
	if errors.Is(err, goose.ErrNoNextVersion) {
		return errs.Wrap(errs.ErrKindNotFound, "no pending migrations", err)
	}
	if err != nil {
		return errs.Wrap(errs.ErrKindMigrationFailed, "migration up-by-one failed", err)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := goose.DownContext(m.appCtx(ctx), m.db, m.dir); err != nil {
		return errs.Wrap(errs.ErrKindMigrationFailed, "migration down failed", err)
	}
	return nil
}

// DownTo rolls back migrations until version is the current version.
func (m *Migrator) DownTo(ctx context.Context, version int64) error {
	if err := goose.DownToContext(m.appCtx(ctx), m.db, m.dir, version); err != nil {
		return errs.Wrap(errs.ErrKindMigrationFailed, "migration down-to failed", err)
	}
	return nil
}

// Redo rolls back the most recent migration and re-applies it.
func (m *Migrator) Redo(ctx context.Context) error {
	if err := goose.RedoContext(m.appCtx(ctx), m.db, m.dir); err != nil {
		return errs.Wrap(errs.ErrKindMigrationFailed, "migration redo failed", err)
	}
	return nil
}

// Status logs the applied/pending state of every known migration.
func (m *Migrator) Status(ctx context.Context) error {
	if err := goose.StatusContext(m.appCtx(ctx), m.db, m.dir); err != nil {
		return errs.Wrap(errs.ErrKindMigrationFailed, "migration status failed", err)
	}
	return nil
}

// Version returns the current migration version of the database.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(m.appCtx(ctx), m.db)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindMigrationFailed, "failed to read migration version", err)
	}
	return version, nil
}

// Create writes a new timestamped SQL migration template into the local
// migrations directory. It refuses to run against a bucket source.
func (m *Migrator) Create(name string) error {
	if !m.local {
		return errs.New(errs.ErrKindInvalidInput,
			"create requires a local migrations directory, not a bucket source")
	}
	if err := goose.Create(m.db, m.dir, name, "sql"); err != nil {
		return errs.Wrap(errs.ErrKindMigrationFailed, "failed to create migration", err)
	}
	return nil
}

// --- Options ---

type options struct {
	store    filestore.Store
	log      *logger.Logger
	progress bool
}

// Option tweaks Migrator construction.
type Option func(*options)

// WithLogger overrides the application logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithProgress enables the progress bar during Up. Meant for the CLI.
func WithProgress() Option {
	return func(o *options) {
		o.progress = true
	}
}
