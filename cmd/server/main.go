package main // Entry point package

import (
    "context"
    "os"
    "os/signal"
    "syscall"

    "github.com/iliyamo/movie-catalog/internal/app"
    "github.com/iliyamo/movie-catalog/internal/config"
    "github.com/iliyamo/movie-catalog/internal/logging"
)

func main() {
    config.LoadDotenv()
    cfg := config.Load()
    logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    a, err := app.New(ctx, cfg)
    if err != nil {
        logging.Fatal().Err(err).Msg("startup failed")
    }
    runErr := a.Run(ctx)
    if err := a.Close(); err != nil {
        logging.Error().Err(err).Msg("close failed")
    }
    if runErr != nil {
        logging.Fatal().Err(runErr).Msg("server error")
    }
}
