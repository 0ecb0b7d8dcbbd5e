package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/logging"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health is used by load balancers and monitoring systems to verify that the
// service is running.  With a database attached it also pings it and reports
// 503 when the ping fails.
func Health(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        if db != nil {
            ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
            defer cancel()
            if err := db.PingContext(ctx); err != nil {
                logging.Ctx(ctx).Warn().Err(err).Msg("health check: database unreachable")
                return c.String(http.StatusServiceUnavailable, "database unavailable")
            }
        }
        return c.String(http.StatusOK, "ok")
    }
}
