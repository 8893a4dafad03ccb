// Package server wires the sync server: configuration, logging, the group
// store (PostgreSQL or in-memory) and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/readersync/internal/groups"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/server/config"

	gs "github.com/dmitrijs2005/readersync/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	groups *groups.Service
}

// openPostgres is a seam so tests can run the app without a database.
var openPostgres = groups.OpenPostgres

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	app := &App{config: c, logger: logger}

	var repo groups.Repository
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, groups are kept in memory")
		repo = groups.NewInMemoryRepository()
	} else {
		db, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		repo = groups.NewPostgresRepository(db)
	}

	app.groups = groups.NewService(repo, logger)
	return app, nil
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.groups, app.config.RequestTimeout)
		return s.Run(ctx)
	})

	err := g.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}

	app.logger.Info(context.Background(), "App stopped")
	return err
}
