// Package config builds an application from a YAML config file and the
// process environment. The file carries the application name, logger
// settings, a flat settings namespace, and an optional database block that
// the plugin's lifecycle hook later expands into DATABASE_* keys.
//
//	app: worker
//	logger:
//	  level: debug
//	  format: console
//	settings:
//	  QUEUE_NAME: ingest
//	database:
//	  type: postgres
//	  driver: pgx
//	  username: app
//	  password: secret
//	  host: db.internal
//	  port: 5432
//	  database: appdb
//
// Environment variables win over the file: any DATABASE_* variable set in
// the process environment overwrites the corresponding settings key.
package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/dbridge/internal/app"
	"github.com/koustreak/dbridge/internal/errs"
	"github.com/koustreak/dbridge/internal/logger"
	"github.com/koustreak/dbridge/internal/settings"
)

// File is the on-disk configuration shape.
type File struct {
	App      string         `yaml:"app"`
	Logger   *logger.Config `yaml:"logger"`
	Settings map[string]any `yaml:"settings"`
	Database map[string]any `yaml:"database"`
}

// envOverlay mirrors the settings keys that may arrive through the process
// environment. Field tags follow the DATABASE_<UPPER> convention the
// settings translator expects.
type envOverlay struct {
	URI      string `env:"DATABASE_URI"`
	Type     string `env:"DATABASE_TYPE"`
	Driver   string `env:"DATABASE_DRIVER"`
	Username string `env:"DATABASE_USERNAME"`
	Password string `env:"DATABASE_PASSWORD"`
	Host     string `env:"DATABASE_HOST"`
	Port     int    `env:"DATABASE_PORT"`
	Database string `env:"DATABASE_DATABASE"`

	MaxOpenConns int `env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int `env:"DATABASE_MAX_IDLE_CONNS"`

	MigrationsDir    string `env:"DATABASE_MIGRATIONS_DIR"`
	MigrationsTable  string `env:"DATABASE_MIGRATIONS_TABLE"`
	MigrationsBucket string `env:"DATABASE_MIGRATIONS_BUCKET"`
	MigrationsPrefix string `env:"DATABASE_MIGRATIONS_PREFIX"`
}

// Load reads the config file at path (optional — "" skips the file), lays
// the process environment on top, and returns an application ready for
// plugin registration. The database block, if present, is kept nested
// under the DATABASE key so the plugin's InitApp expands it.
func Load(path string) (*app.Application, error) {
	var f File
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		}
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config file", err)
		}
	}

	s := settings.Settings{}
	for k, v := range f.Settings {
		s[k] = v
	}
	if f.Database != nil {
		s["DATABASE"] = f.Database
	}

	if err := applyEnv(s); err != nil {
		return nil, err
	}

	name := f.App
	if name == "" {
		name = "dbridge"
	}

	opts := []app.Option{app.WithSettings(s)}
	if f.Logger != nil {
		opts = append(opts, app.WithLogger(logger.New(f.Logger)))
	}

	return app.New(name, opts...), nil
}

// applyEnv overwrites settings keys from the process environment.
// Unset variables leave the file values alone.
func applyEnv(s settings.Settings) error {
	var e envOverlay
	if err := env.Parse(&e); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to parse environment", err)
	}

	strs := map[string]string{
		"DATABASE_URI":               e.URI,
		"DATABASE_TYPE":              e.Type,
		"DATABASE_DRIVER":            e.Driver,
		"DATABASE_USERNAME":          e.Username,
		"DATABASE_PASSWORD":          e.Password,
		"DATABASE_HOST":              e.Host,
		"DATABASE_DATABASE":          e.Database,
		"DATABASE_MIGRATIONS_DIR":    e.MigrationsDir,
		"DATABASE_MIGRATIONS_TABLE":  e.MigrationsTable,
		"DATABASE_MIGRATIONS_BUCKET": e.MigrationsBucket,
		"DATABASE_MIGRATIONS_PREFIX": e.MigrationsPrefix,
	}
	for k, v := range strs {
		if v != "" {
			s[k] = v
		}
	}

	ints := map[string]int{
		"DATABASE_PORT":           e.Port,
		"DATABASE_MAX_OPEN_CONNS": e.MaxOpenConns,
		"DATABASE_MAX_IDLE_CONNS": e.MaxIdleConns,
	}
	for k, v := range ints {
		if v != 0 {
			s[k] = v
		}
	}

	return nil
}
