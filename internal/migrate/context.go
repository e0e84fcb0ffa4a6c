package migrate

import (
	"context"

	"github.com/koustreak/dbridge/internal/app"
)

type ctxKey struct{}

// WithApp stores the hosting application in ctx. Every Migrator command
// does this before delegating, so Go migrations registered with
// goose.AddMigrationContext can reach application metadata.
func WithApp(ctx context.Context, a *app.Application) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// AppFromContext returns the application a migration is running under.
func AppFromContext(ctx context.Context) (*app.Application, bool) {
	a, ok := ctx.Value(ctxKey{}).(*app.Application)
	return a, ok
}
