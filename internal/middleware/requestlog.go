package middleware

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/logging"
    "github.com/iliyamo/movie-catalog/internal/metrics"
)

// RequestLogger tags each request with an id (reusing X-Request-ID when the
// client sends one), logs it on completion and records HTTP metrics under
// the route template.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(echo.HeaderXRequestID)
            if id == "" {
                id = logging.GenerateRequestID()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, id)
            c.SetRequest(req.WithContext(logging.ContextWithRequestID(req.Context(), id)))

            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler write the response so the status is final
                c.Error(err)
            }
            latency := time.Since(start)

            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            status := c.Response().Status
            metrics.RecordHTTPRequest(req.Method, route, status, latency)

            ev := logging.Ctx(c.Request().Context()).Info()
            if status >= 500 {
                ev = logging.Ctx(c.Request().Context()).Error()
            }
            ev.Str("method", req.Method).
                Str("path", req.URL.Path).
                Str("route", route).
                Int("status", status).
                Dur("latency", latency).
                Str("user", username(c)).
                Msg("request")
            return nil
        }
    }
}
