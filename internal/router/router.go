package router // package router defines how HTTP routes are registered for the API

import (
    "net/http"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/iliyamo/movie-catalog/internal/handler"
    "github.com/iliyamo/movie-catalog/internal/middleware"
    "github.com/iliyamo/movie-catalog/internal/model"
    "github.com/iliyamo/movie-catalog/internal/validate"
)

// Deps is everything the routes need.  Cache, RateLimit and DB are
// optional.
type Deps struct {
    JWTSecret string
    Movies    *handler.MovieHandler
    Lookup    middleware.MovieGetter
    Cache     *middleware.FeedCache
    RateLimit echo.MiddlewareFunc
    DB        handler.Pinger
}

// New returns an Echo instance with the validator, the central error handler
// and the global middleware installed.  Every request passes through
// Identify, so handlers further down only consult the request state.
// corsOrigins lists the browser origins allowed to call the API; empty
// means any.
func New(jwtSecret string, corsOrigins []string) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.Validator = validate.Echo{}
    e.HTTPErrorHandler = handler.ErrorHandler

    e.Use(echomw.Recover())
    e.Use(echomw.CORSWithConfig(corsConfig(corsOrigins)))
    e.Use(middleware.RequestLogger())
    e.Use(middleware.Identify(jwtSecret))
    return e
}

func corsConfig(origins []string) echomw.CORSConfig {
    if len(origins) == 0 {
        origins = []string{"*"}
    }
    return echomw.CORSConfig{
        AllowOrigins: origins,
        AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
        AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
        ExposeHeaders: []string{
            echo.HeaderXRequestID, "X-Cache",
            "X-RateLimit-Limit", "X-RateLimit-Remaining", echo.HeaderRetryAfter,
        },
    }
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health(d.DB))
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterMovies registers /movies and /users.  Each role-gated route runs
// RequireSignIn first, then RequireRoles, then (for /:movieId routes)
// WithMovie, so an anonymous caller always gets 401 and an unknown movie is
// only reported to callers allowed to see it.
func RegisterMovies(e *echo.Echo, d Deps) {
    h := d.Movies
    limit := d.RateLimit
    if limit == nil {
        limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    signedIn := middleware.RequireSignIn()
    roles := func(r ...string) []echo.MiddlewareFunc {
        return []echo.MiddlewareFunc{signedIn, middleware.RequireRoles(r...), limit}
    }
    withMovie := middleware.WithMovie("movieId", d.Lookup)
    feed := d.Cache.Middleware()

    g := e.Group("/movies")

    // ---- Feeds ----
    g.GET("/last-seen", h.LastSeen, append(roles(model.PermViewMovies), feed)...)
    g.GET("/new", h.Newest, append(roles(model.PermViewMovies), feed)...)
    g.GET("/recommendations", h.Recommendations, append(roles(model.PermViewMovies), feed)...)
    g.GET("/most-popular", h.MostPopular, append(roles(model.PermViewMovies), feed)...)

    // ---- Catalog ----
    g.POST("", h.Create, roles(model.PermCreateMovies)...)
    g.GET("", h.List, roles(model.PermViewMovies)...)
    g.GET("/:movieId", h.Get, append(roles(model.PermViewMovies), withMovie)...)
    g.PUT("/:movieId", h.Update, append(roles(model.PermModifyMovies), withMovie)...)
    g.DELETE("/:movieId", h.Delete, append(roles(model.PermModifyMovies), withMovie)...)

    // ---- Per-user actions ----
    g.POST("/:movieId/ratings", h.Rate, append(roles(model.PermRateMovies), withMovie)...)
    g.POST("/:movieId/watch", h.Watch, append(roles(model.PermViewMovies), withMovie)...)

    e.GET("/users/profile", handler.Profile, signedIn, limit)
}
