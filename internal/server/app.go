// Package server initializes and runs the blog API server: it opens the
// database, runs migrations, builds the security pipeline and serves HTTP
// with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/blogapi/internal/logging"
	"github.com/dmitrijs2005/blogapi/internal/ratelimit"
	"github.com/dmitrijs2005/blogapi/internal/server/auth"
	"github.com/dmitrijs2005/blogapi/internal/server/config"
	"github.com/dmitrijs2005/blogapi/internal/server/covers"
	"github.com/dmitrijs2005/blogapi/internal/server/httpapi"
	"github.com/dmitrijs2005/blogapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogapi/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	tokens      *auth.Service
	credentials *services.CredentialService
	uploads     *services.UploadService

	coverRoot string
}

func NewApp(c *config.Config) (*App, error) {

	level := slog.LevelInfo
	if c.Environment == config.EnvDevelopment {
		level = slog.LevelDebug
	}
	sl := slog.New(slog.NewJSONHandler(os.Stdout, logging.HandlerOptions(level)))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	tokens, err := auth.NewService(c.SecretKey, c.TokenTTL)
	if err != nil {
		return nil, err
	}

	pool := semaphore.NewWeighted(c.WorkerSlots)

	credentials, err := services.NewCredentialService(db, rm, logger, pool)
	if err != nil {
		return nil, err
	}

	var store covers.Store
	var coverRoot string
	if c.CoverStore == "s3" {
		store = covers.NewS3Store(c)
	} else {
		fs, err := covers.NewFSStore(c.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("cover store init error: %w", err)
		}
		store = fs
		coverRoot = fs.Root()
	}
	uploads := services.NewUploadService(store, logger, pool, c.MaxUploadBytes)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		tokens:      tokens,
		credentials: credentials,
		uploads:     uploads,
		coverRoot:   coverRoot,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	limiter := ratelimit.New(ctx, map[string]ratelimit.Tier{
		ratelimit.TierGeneral: {Window: app.config.RateGeneralWindow, Max: app.config.RateGeneralMax},
		ratelimit.TierAuth:    {Window: app.config.RateAuthWindow, Max: app.config.RateAuthMax},
		ratelimit.TierCreate:  {Window: app.config.RateCreateWindow, Max: app.config.RateCreateMax},
	})

	handler := httpapi.NewRouter(app.config, app.logger, app.tokens,
		app.credentials, app.uploads, limiter, app.coverRoot)

	srv := &http.Server{
		Addr:              app.config.EndpointAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "err", err)
	}
	return nil
}
