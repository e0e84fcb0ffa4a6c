// Package dburl parses engine connection URLs of the form
//
//	{type}+{driver}://{username}:{password}@{host}:{port}/{database}
//
// and holds the registry of SQL dialects. The {type} half of the scheme
// selects the dialect (postgres, mysql, sqlite); the {driver} half names the
// database/sql driver the dialect expects. Dialect packages register
// themselves from init, mirroring how database/sql drivers register.
package dburl

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/koustreak/dbridge/internal/errs"
)

// URL is a parsed engine connection URL.
type URL struct {
	// Type selects the dialect: "postgres", "mysql", "sqlite".
	Type string

	// Driver is the database/sql driver named in the scheme. May be empty
	// ("sqlite://…"), in which case the dialect's default driver is used.
	Driver string

	Username string
	Password string
	Host     string
	Port     string

	// Database is the database name, or the file path for sqlite.
	Database string

	// Options carries any query parameters (e.g. sslmode=disable).
	Options url.Values

	// Raw is the unmodified input.
	Raw string
}

// Parse splits raw into its connection parameters.
func Parse(raw string) (*URL, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "connection url %q has no scheme", raw)
	}

	dbType, driver, _ := strings.Cut(scheme, "+")
	if dbType == "" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "connection url %q has an empty type", raw)
	}

	u := &URL{
		Type:    dbType,
		Driver:  driver,
		Options: url.Values{},
		Raw:     raw,
	}

	// sqlite URLs carry a file path (or nothing, meaning in-memory) where
	// network databases carry an authority. Split it off before net/url
	// gets a chance to misread ":memory:" as host:port.
	if dbType == "sqlite" {
		path, query, _ := strings.Cut(rest, "?")
		u.Database = path
		if query != "" {
			opts, err := url.ParseQuery(query)
			if err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid connection url options", err)
			}
			u.Options = opts
		}
		return u, nil
	}

	parsed, err := url.Parse("//" + rest)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid connection url", err)
	}

	if parsed.User != nil {
		u.Username = parsed.User.Username()
		u.Password, _ = parsed.User.Password()
	}
	u.Host = parsed.Hostname()
	u.Port = parsed.Port()
	u.Database = strings.TrimPrefix(parsed.Path, "/")
	u.Options = parsed.Query()

	return u, nil
}

// Redacted renders the URL with the password masked, safe for logs.
func (u *URL) Redacted() string {
	if u.Password == "" {
		return u.Raw
	}
	return strings.Replace(u.Raw, ":"+u.Password+"@", ":xxxxx@", 1)
}

// Dialect adapts one SQL flavor to the engine: it knows the native DSN
// format, the database/sql driver name, identifier quoting, the migration
// tool's name for the dialect, and how to map native errors to errs kinds.
type Dialect interface {
	// Name is the {type} this dialect serves.
	Name() string

	// DriverName is the database/sql driver to open.
	DriverName() string

	// DSN renders u in the driver's native format.
	DSN(u *URL) (string, error)

	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(ident string) string

	// GooseDialect is the name goose knows this dialect by.
	GooseDialect() string

	// MapError translates a driver error into a *errs.Error.
	// Returns nil when err is nil.
	MapError(err error, msg string) error
}

// --- Dialect registry ---

var (
	mu       sync.RWMutex
	dialects = map[string]Dialect{}
)

// RegisterDialect makes a dialect available under its Name. Dialect
// packages call this from init.
func RegisterDialect(d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[d.Name()] = d
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput,
			"unknown database type %q (registered: %s)", name, strings.Join(dialectNamesLocked(), ", "))
	}
	return d, nil
}

// DialectNames returns the registered dialect names, sorted.
func DialectNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	return dialectNamesLocked()
}

func dialectNamesLocked() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dialect resolves the dialect for this URL's type.
func (u *URL) Dialect() (Dialect, error) {
	return LookupDialect(u.Type)
}
