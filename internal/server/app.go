// Package server wires the configuration, storage, identity provider and
// HTTP surface together and runs them until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/authbridge/internal/logging"
	"github.com/dmitrijs2005/authbridge/internal/server/config"
	"github.com/dmitrijs2005/authbridge/internal/server/httpserver"
	"github.com/dmitrijs2005/authbridge/internal/server/identity"
	"github.com/dmitrijs2005/authbridge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authbridge/internal/server/services"
)

// seams for tests
var (
	openDB               = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
	newIdentityClient    = identity.NewClient
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpserver.HTTPServer
	reconciler *services.Reconciler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	idc, err := newIdentityClient(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("identity provider init error: %w", err)
	}

	var rec *services.Reconciler
	if c.AdminEnabled() {
		rec = services.NewReconciler(db, rm, idc, c, logger)
	} else {
		logger.Warn(ctx, "no user pool id configured, orphaned identities will only be recorded")
	}

	auth := services.NewAuthService(db, rm, idc, rec, logger)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		httpServer: httpserver.NewHTTPServer(c, logger, auth),
		reconciler: rec,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run starts the HTTP server and, when enabled, the orphan reconciler. It
// returns once both have stopped.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.httpServer.Run(gctx)
	})

	if app.reconciler != nil {
		g.Go(func() error {
			return app.reconciler.Run(gctx)
		})
	}

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
