// Package database is the dbridge plugin core: it wires a relational
// database into an application's lifecycle and hands out three long-lived,
// lazily-built handles — the engine, the session factory, and the model
// metadata. Everything heavier (drivers, pooling, migrations) is delegated
// to the libraries behind those handles.
//
// Usage:
//
//	a := app.New("worker", app.WithSettings(settings.Settings{
//	    "DATABASE_URI": "sqlite://app.db",
//	}))
//
//	db := database.New()
//	if err := a.Use(db); err != nil { ... }
//
//	err := db.WithSession(ctx, func(s *database.Session) error {
//	    if _, err := s.Exec(ctx, "INSERT INTO jobs (name) VALUES (?)", "reindex"); err != nil {
//	        return err
//	    }
//	    return s.Commit()
//	})
package database

import (
	"context"
	"sync"

	"github.com/koustreak/dbridge/internal/app"
	"github.com/koustreak/dbridge/internal/errs"
	"github.com/koustreak/dbridge/internal/schema"
	"github.com/koustreak/dbridge/internal/settings"

	_ "github.com/koustreak/dbridge/internal/database/mysql"    // register mysql dialect
	_ "github.com/koustreak/dbridge/internal/database/postgres" // register postgres dialect
	_ "github.com/koustreak/dbridge/internal/database/sqlite"   // register sqlite dialect
)

// Plugin is the database plugin. A zero-value-like instance from New is
// attached to an application with app.Use (or InitApp directly); until then
// it can still operate against the registry's current application.
//
// The engine, session factory, and metadata accessors are idempotent:
// repeated calls return the identical cached instance until the
// configuration changes (InitApp runs again).
type Plugin struct {
	mu       sync.Mutex
	app      *app.Application
	engine   *Engine
	maker    *SessionMaker
	metadata *schema.Metadata
}

// New creates an unattached plugin.
func New() *Plugin {
	return &Plugin{}
}

// Attach creates a plugin and runs its lifecycle hook against a.
func Attach(a *app.Application) (*Plugin, error) {
	p := New()
	if err := a.Use(p); err != nil {
		return nil, err
	}
	return p, nil
}

// InitApp binds the plugin to an application and prepares its settings:
// plugin defaults are applied without overwriting, and a nested DATABASE
// block, if present, is expanded into the flat DATABASE_* namespace.
//
// InitApp marks a configuration change: any cached engine, session factory,
// or metadata is discarded (the engine is closed).
func (p *Plugin) InitApp(a *app.Application) error {
	if a == nil {
		return errs.New(errs.ErrKindNoApplication, "cannot initialize a nil application")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for k, v := range settings.Defaults() {
		a.Settings.SetDefault(k, v)
	}

	if block, ok := a.Settings.Block("DATABASE"); ok {
		a.Settings.Merge(settings.ToSettings(block))
	}

	p.app = a
	return p.resetLocked()
}

// App returns the application the plugin reads settings from: the bound
// application if InitApp ran, else the registry's current application.
func (p *Plugin) App() (*app.Application, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.appLocked()
}

func (p *Plugin) appLocked() (*app.Application, error) {
	if p.app != nil {
		return p.app, nil
	}
	if a := app.Current(); a != nil {
		return a, nil
	}
	return nil, errs.New(errs.ErrKindNoApplication,
		"the database plugin is not attached to an application and none is registered")
}

// Engine returns the cached engine, building it from the application
// settings on first access.
func (p *Plugin) Engine() (*Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engineLocked()
}

func (p *Plugin) engineLocked() (*Engine, error) {
	if p.engine != nil {
		return p.engine, nil
	}

	a, err := p.appLocked()
	if err != nil {
		return nil, err
	}

	engine, err := OpenEngine(a.Settings, a.Logger)
	if err != nil {
		return nil, err
	}
	p.engine = engine
	return engine, nil
}

// SessionMaker returns the cached session factory, binding it to the engine
// on first access.
func (p *Plugin) SessionMaker() (*SessionMaker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.maker != nil {
		return p.maker, nil
	}

	engine, err := p.engineLocked()
	if err != nil {
		return nil, err
	}
	p.maker = NewSessionMaker(engine)
	return p.maker, nil
}

// Metadata returns the cached model metadata, creating an empty registry on
// first access. This is the plugin's model base: applications register
// their table definitions against it.
func (p *Plugin) Metadata() *schema.Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.metadata == nil {
		p.metadata = schema.New()
	}
	return p.metadata
}

// Session opens a new session from the cached factory.
func (p *Plugin) Session(ctx context.Context) (*Session, error) {
	maker, err := p.SessionMaker()
	if err != nil {
		return nil, err
	}
	return maker.Begin(ctx)
}

// WithSession runs fn with a fresh session and always releases the session
// on exit — on normal return, on error, and on panic. Uncommitted work is
// rolled back; fn commits explicitly when it wants the work kept.
func (p *Plugin) WithSession(ctx context.Context, fn func(s *Session) error) error {
	session, err := p.Session(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	return fn(session)
}

// CreateAll creates every registered table that does not exist yet.
func (p *Plugin) CreateAll(ctx context.Context) error {
	engine, err := p.Engine()
	if err != nil {
		return err
	}
	return p.Metadata().CreateAll(ctx, engine.DB(), engine.Dialect())
}

// DropAll drops every registered table.
func (p *Plugin) DropAll(ctx context.Context) error {
	engine, err := p.Engine()
	if err != nil {
		return err
	}
	return p.Metadata().DropAll(ctx, engine.DB(), engine.Dialect())
}

// Close releases the cached engine, if any. The plugin can be used again
// afterwards; handles are rebuilt on next access.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked()
}

// resetLocked discards the cached handles. Metadata survives a reset: table
// definitions are configuration-independent.
func (p *Plugin) resetLocked() error {
	var err error
	if p.engine != nil {
		err = p.engine.Close()
	}
	p.engine = nil
	p.maker = nil
	return err
}
