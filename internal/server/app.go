// Package server wires the cartkeeper application together: it opens the
// database and applies migrations, builds the services, starts the HTTP and
// gRPC servers and shuts everything down on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/cartkeeper/internal/logging"
	"github.com/dmitrijs2005/cartkeeper/internal/server/auth"
	"github.com/dmitrijs2005/cartkeeper/internal/server/config"
	"github.com/dmitrijs2005/cartkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/cartkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cartkeeper/internal/server/services"
	"github.com/dmitrijs2005/cartkeeper/internal/server/storage"

	gs "github.com/dmitrijs2005/cartkeeper/internal/server/grpc"
)

const pingTimeout = 5 * time.Second

// seams for tests
var (
	openDB         = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	cartService *services.CartService
	tokens      *auth.TokenIssuer
	metrics     *metrics.Metrics
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.IsProduction())

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	images, err := storage.NewResolver(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	tokens := auth.NewTokenIssuer(c)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: services.NewUserService(db, rm, auth.NewBcryptHasher(), tokens),
		cartService: services.NewCartService(db, rm, images),
		tokens:      tokens,
		metrics:     metrics.New(),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) ping(ctx context.Context) error {
	return app.db.PingContext(ctx)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(httpapi.Options{
		Address:     app.config.EndpointAddrHTTP,
		CORSOrigins: app.config.CORSOrigins(),
		Production:  app.config.IsProduction(),
	}, app.logger, app.userService, app.cartService, app.tokens, app.metrics, app.ping)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.ping)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or ctx is cancelled and both servers
// have stopped.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "mode", app.config.Mode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		logging.LogError(ctx, app.logger, "db close", err)
	}

	app.logger.Info(ctx, "App stopped")
}
