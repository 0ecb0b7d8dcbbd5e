// Package app wires configuration, storage, transport and background
// workers into one process with an explicit start/stop lifecycle.
package app

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "net/http"
    "sync"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/movie-catalog/internal/config"
    "github.com/iliyamo/movie-catalog/internal/database"
    "github.com/iliyamo/movie-catalog/internal/handler"
    "github.com/iliyamo/movie-catalog/internal/logging"
    "github.com/iliyamo/movie-catalog/internal/middleware"
    "github.com/iliyamo/movie-catalog/internal/queue"
    "github.com/iliyamo/movie-catalog/internal/repository"
    "github.com/iliyamo/movie-catalog/internal/router"
    "github.com/iliyamo/movie-catalog/internal/service"
)

// App owns every long-lived resource.  Build it with New, start it with Run
// and release it with Close.
type App struct {
    cfg  config.Config
    db   *sql.DB
    rdb  *redis.Client
    echo *echo.Echo

    workers sync.WaitGroup
    stop    context.CancelFunc
}

// New opens the database, applies migrations, connects Redis (optional) and
// registers the routes.
func New(ctx context.Context, cfg config.Config) (*App, error) {
    db, err := database.Open(cfg.DatabaseURL)
    if err != nil {
        return nil, fmt.Errorf("open database: %w", err)
    }
    if err := database.Migrate(ctx, db); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("migrate: %w", err)
    }

    a := &App{cfg: cfg, db: db, rdb: config.NewRedisClient()}

    var opts []service.Option
    if cfg.WatchEventsEnabled {
        opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitURL)))
    }
    svc := service.NewMovieService(
        repository.NewMovieRepo(db),
        repository.NewRatingRepo(db),
        repository.NewSeenRepo(db),
        cfg.Feed,
        opts...,
    )

    cache := middleware.NewFeedCache(config.LoadCacheConfig(), a.rdb)
    deps := router.Deps{
        JWTSecret: cfg.JWTSecret,
        Movies:    handler.NewMovieHandler(svc, cache),
        Lookup:    svc,
        Cache:     cache,
        RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), a.rdb),
        DB:        db,
    }
    a.echo = router.New(cfg.JWTSecret, cfg.CORSOrigins)
    router.RegisterRoutes(a.echo, deps)
    router.RegisterMovies(a.echo, deps)
    return a, nil
}

// Run starts background workers and serves HTTP until ctx is done, then
// shuts the server down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
    workerCtx, stop := context.WithCancel(context.Background())
    a.stop = stop
    if a.cfg.WatchEventsEnabled {
        a.workers.Add(1)
        go func() {
            defer a.workers.Done()
            if err := queue.StartWatchConsumer(workerCtx, a.cfg.RabbitURL, a.cfg.WatchLogDir); err != nil && !errors.Is(err, context.Canceled) {
                logging.Error().Err(err).Msg("watch consumer stopped")
            }
        }()
    }

    addr := ":" + a.cfg.Port
    errCh := make(chan error, 1)
    go func() {
        logging.Info().Str("addr", addr).Str("env", a.cfg.Env).Msg("listening")
        errCh <- a.echo.Start(addr)
    }()

    select {
    case err := <-errCh:
        if errors.Is(err, http.ErrServerClosed) {
            return nil
        }
        return err
    case <-ctx.Done():
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
    defer cancel()
    logging.Info().Msg("shutting down")
    return a.echo.Shutdown(shutdownCtx)
}

// Close stops the workers and releases Redis and the database pool.
func (a *App) Close() error {
    if a.stop != nil {
        a.stop()
    }
    a.workers.Wait()
    var errs []error
    if a.rdb != nil {
        errs = append(errs, a.rdb.Close())
    }
    if a.db != nil {
        errs = append(errs, a.db.Close())
    }
    return errors.Join(errs...)
}
