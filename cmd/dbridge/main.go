package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/koustreak/dbridge/internal/app"
	"github.com/koustreak/dbridge/internal/config"
	"github.com/koustreak/dbridge/internal/database"
	"github.com/koustreak/dbridge/internal/health"
	"github.com/koustreak/dbridge/internal/migrate"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "dbridge",
		Usage:   "Database plugin toolkit: migrations, schema, health",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					return m.Up(ctx)
				}, migrate.WithProgress()),
			},
			{
				Name:      "up-to",
				Usage:     "Apply pending migrations up to and including VERSION",
				ArgsUsage: "VERSION",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					v, err := versionArg(c)
					if err != nil {
						return err
					}
					return m.UpTo(ctx, v)
				}),
			},
			{
				Name:  "up-by-one",
				Usage: "Apply the next pending migration",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					return m.UpByOne(ctx)
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migration",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					return m.Down(ctx)
				}),
			},
			{
				Name:      "down-to",
				Usage:     "Roll back migrations down to VERSION",
				ArgsUsage: "VERSION",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					v, err := versionArg(c)
					if err != nil {
						return err
					}
					return m.DownTo(ctx, v)
				}),
			},
			{
				Name:  "redo",
				Usage: "Roll back and re-apply the most recent migration",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					return m.Redo(ctx)
				}),
			},
			{
				Name:  "status",
				Usage: "Print the status of every known migration",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					return m.Status(ctx)
				}),
			},
			{
				Name:  "version",
				Usage: "Print the current migration version",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					v, err := m.Version(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("version %d\n", v)
					return nil
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a new timestamped SQL migration",
				ArgsUsage: "NAME",
				Action: migrateAction(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return cli.Exit("create requires a migration name", 2)
					}
					return m.Create(name)
				}),
			},
			{
				Name:   "tables",
				Usage:  "List the tables in the configured database",
				Action: listTables,
			},
			{
				Name:   "ping",
				Usage:  "Check that the configured database is reachable",
				Action: pingDatabase,
			},
			{
				Name:  "serve",
				Usage: "Serve liveness and readiness probes over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Value: ":8086",
						Usage: "Listen address",
					},
				},
				Action: serveHealth,
			},
		},
	}
}

// setup loads the configuration and attaches a database plugin to the
// resulting application.
func setup(c *cli.Context) (*app.Application, *database.Plugin, error) {
	a, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	p, err := database.Attach(a)
	if err != nil {
		return nil, nil, err
	}
	return a, p, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// migrateAction wires a migration subcommand: config, plugin, migrator,
// signal-cancelled context, then the forwarded operation.
func migrateAction(fn func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error, opts ...migrate.Option) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, p, err := setup(c)
		if err != nil {
			return err
		}
		defer p.Close()

		ctx, cancel := signalContext()
		defer cancel()
		ctx = migrate.WithApp(ctx, a)

		opts = append(opts, migrate.WithLogger(a.Logger))
		m, err := migrate.New(ctx, p, opts...)
		if err != nil {
			return err
		}
		defer m.Close()

		return fn(ctx, m, c)
	}
}

func versionArg(c *cli.Context) (int64, error) {
	var v int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &v); err != nil {
		return 0, cli.Exit("expected a numeric migration version", 2)
	}
	return v, nil
}

func listTables(c *cli.Context) error {
	_, p, err := setup(c)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	engine, err := p.Engine()
	if err != nil {
		return err
	}
	tables, err := engine.Tables(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		fmt.Println(t)
	}
	return nil
}

func pingDatabase(c *cli.Context) error {
	a, p, err := setup(c)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()

	engine, err := p.Engine()
	if err != nil {
		return err
	}
	if err := engine.Ping(ctx); err != nil {
		return err
	}
	a.Logger.Infof("database %s is reachable", engine.URL().Redacted())
	return nil
}

func serveHealth(c *cli.Context) error {
	a, p, err := setup(c)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	srv := &http.Server{
		Addr:    c.String("addr"),
		Handler: health.NewHandler(p, a.Logger).Router(),
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Infof("health server listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
