// Package app holds the minimal application contract dbridge plugs into:
// a named application carrying a flat settings namespace, a plugin
// lifecycle hook, and a process-wide registry of the most recently
// registered application.
package app

import (
	"sync"

	"github.com/koustreak/dbridge/internal/logger"
	"github.com/koustreak/dbridge/internal/settings"
)

// Application is a host for plugins. It owns the settings namespace that
// plugins read their configuration from.
type Application struct {
	name     string
	Settings settings.Settings
	Logger   *logger.Logger
}

// Plugin is the lifecycle contract for anything that attaches to an
// Application. InitApp is called once when the plugin is registered and may
// rewrite the application's settings.
type Plugin interface {
	InitApp(app *Application) error
}

// Option configures an Application at construction time.
type Option func(*Application)

// WithSettings seeds the application's settings namespace.
func WithSettings(s settings.Settings) Option {
	return func(a *Application) {
		a.Settings = s
	}
}

// WithLogger sets the application logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Application) {
		a.Logger = l
	}
}

// New creates an Application and records it as the current application.
func New(name string, opts ...Option) *Application {
	a := &Application{
		name:     name,
		Settings: settings.Settings{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Settings == nil {
		a.Settings = settings.Settings{}
	}
	if a.Logger == nil {
		a.Logger = logger.Global().With().Str("app", name).Logger()
	}
	Register(a)
	return a
}

// Name returns the application name.
func (a *Application) Name() string {
	return a.name
}

// Use runs the plugin's lifecycle hook against this application.
func (a *Application) Use(p Plugin) error {
	return p.InitApp(a)
}

// --- Registry ---

// The registry tracks the most recently registered application so plugins
// constructed without an explicit app can still find one.
var (
	mu      sync.RWMutex
	current *Application
)

// Register records a as the current application.
func Register(a *Application) {
	mu.Lock()
	defer mu.Unlock()
	current = a
}

// Current returns the most recently registered application, or nil when no
// application has been registered.
func Current() *Application {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Reset clears the registry. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = nil
}
