package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/koustreak/dbridge/internal/database/dburl"
	"github.com/koustreak/dbridge/internal/errs"
	"github.com/koustreak/dbridge/internal/logger"
	"github.com/koustreak/dbridge/internal/schema"
	"github.com/koustreak/dbridge/internal/settings"
)

// Pool defaults, applied when the application settings do not override them.
const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// Engine is the long-lived database handle: a *sql.DB plus the dialect it
// was opened with. It is safe for concurrent use by multiple goroutines.
//
// Opening an engine does not dial the database — database/sql connects
// lazily. Use Ping to verify reachability.
type Engine struct {
	db      *sql.DB
	url     *dburl.URL
	dialect dburl.Dialect
	log     *logger.Logger
}

// OpenEngine builds an Engine from application settings: the connection URL
// is assembled by the settings translator, parsed, rendered into the
// dialect's native DSN, and opened with pool tuning applied.
func OpenEngine(s settings.Settings, log *logger.Logger) (*Engine, error) {
	raw, err := settings.ConnectionURL(s)
	if err != nil {
		return nil, err
	}

	u, err := dburl.Parse(raw)
	if err != nil {
		return nil, err
	}

	dialect, err := u.Dialect()
	if err != nil {
		return nil, err
	}

	dsn, err := dialect.DSN(u)
	if err != nil {
		return nil, err
	}

	driverName := u.Driver
	if driverName == "" {
		driverName = dialect.DriverName()
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to open engine", err)
	}

	db.SetMaxOpenConns(s.GetInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns))
	db.SetMaxIdleConns(s.GetInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns))
	db.SetConnMaxLifetime(s.GetDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(s.GetDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime))

	if log == nil {
		log = logger.Global()
	}
	log.With().Str("dialect", dialect.Name()).Logger().
		Debugf("engine opened for %s", u.Host)

	return &Engine{db: db, url: u, dialect: dialect, log: log}, nil
}

// DB exposes the underlying *sql.DB for callers that need direct access
// (the migration tool, health checks).
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Dialect returns the SQL dialect this engine speaks.
func (e *Engine) Dialect() dburl.Dialect {
	return e.dialect
}

// URL returns the parsed connection URL the engine was opened from.
func (e *Engine) URL() *dburl.URL {
	return e.url
}

// Tables lists the table names in the connected database.
func (e *Engine) Tables(ctx context.Context) ([]string, error) {
	return schema.ListTables(ctx, e.db, e.dialect)
}

// Ping verifies the database is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return e.dialect.MapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (e *Engine) Close() error {
	return e.db.Close()
}
