package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/logging"
    "github.com/iliyamo/movie-catalog/internal/middleware"
    "github.com/iliyamo/movie-catalog/internal/service"
)

// storeTimeout bounds every store round trip made by a handler.
const storeTimeout = 5 * time.Second

// FeedInvalidator drops cached feed responses after writes.
type FeedInvalidator interface {
    InvalidateUser(ctx context.Context, username string) error
    InvalidateAll(ctx context.Context) error
}

// MovieHandler serves the /movies routes.  The guards and WithMovie run
// before every method here, so identity and movie are present where used.
type MovieHandler struct {
    svc   *service.MovieService
    cache FeedInvalidator
}

// NewMovieHandler panics on a nil service; cache may be nil.
func NewMovieHandler(svc *service.MovieService, cache FeedInvalidator) *MovieHandler {
    if svc == nil {
        panic("nil service passed to NewMovieHandler")
    }
    return &MovieHandler{svc: svc, cache: cache}
}

func storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), storeTimeout)
}

func (h *MovieHandler) invalidateAll(ctx context.Context) {
    if h.cache == nil {
        return
    }
    if err := h.cache.InvalidateAll(ctx); err != nil {
        logging.Ctx(ctx).Warn().Err(err).Msg("feed cache invalidation failed")
    }
}

func (h *MovieHandler) invalidateUser(ctx context.Context, username string) {
    if h.cache == nil {
        return
    }
    if err := h.cache.InvalidateUser(ctx, username); err != nil {
        logging.Ctx(ctx).Warn().Err(err).Str("user", username).Msg("feed cache invalidation failed")
    }
}

// List returns the whole catalog.
func (h *MovieHandler) List(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()
    movies, err := h.svc.List(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, movies)
}

// Get returns the movie resolved by WithMovie.
func (h *MovieHandler) Get(c echo.Context) error {
    return c.JSON(http.StatusOK, middleware.CurrentMovie(c))
}

// Create stores a new movie and answers 201 with it.
func (h *MovieHandler) Create(c echo.Context) error {
    var req movieRequest
    if err := c.Bind(&req); err != nil {
        return err
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    m, err := req.toMovie()
    if err != nil {
        return err
    }
    ctx, cancel := storeCtx(c)
    defer cancel()
    if err := h.svc.Create(ctx, m); err != nil {
        return err
    }
    h.invalidateAll(ctx)
    logging.Ctx(ctx).Info().Uint64("movie_id", m.ID).Str("title", m.Title).Msg("movie created")
    return c.JSON(http.StatusCreated, m)
}

// Update replaces the editable fields of the resolved movie.  Ratings and
// dateAdded are kept.
func (h *MovieHandler) Update(c echo.Context) error {
    current := middleware.CurrentMovie(c)
    var req movieRequest
    if err := c.Bind(&req); err != nil {
        return err
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    m, err := req.toMovie()
    if err != nil {
        return err
    }
    m.ID = current.ID
    m.DateAdded = current.DateAdded
    m.Ratings = current.Ratings

    ctx, cancel := storeCtx(c)
    defer cancel()
    if err := h.svc.Update(ctx, m); err != nil {
        return err
    }
    h.invalidateAll(ctx)
    return c.JSON(http.StatusOK, m)
}

// Delete removes the resolved movie with its ratings and viewing history.
func (h *MovieHandler) Delete(c echo.Context) error {
    m := middleware.CurrentMovie(c)
    ctx, cancel := storeCtx(c)
    defer cancel()
    if err := h.svc.Delete(ctx, m.ID); err != nil {
        return err
    }
    h.invalidateAll(ctx)
    logging.Ctx(ctx).Info().Uint64("movie_id", m.ID).Msg("movie deleted")
    return c.NoContent(http.StatusNoContent)
}

// Newest serves GET /movies/new.
func (h *MovieHandler) Newest(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()
    movies, err := h.svc.Newest(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, movies)
}

// LastSeen serves GET /movies/last-seen.
func (h *MovieHandler) LastSeen(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()
    movies, err := h.svc.LastSeen(ctx, middleware.CurrentIdentity(c).Username)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, movies)
}

// Recommendations serves GET /movies/recommendations.
func (h *MovieHandler) Recommendations(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()
    movies, err := h.svc.Recommendations(ctx, middleware.CurrentIdentity(c).Username)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, movies)
}

// MostPopular serves GET /movies/most-popular.
func (h *MovieHandler) MostPopular(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()
    movies, err := h.svc.MostPopular(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, movies)
}

// Rate stores the caller's rating of the resolved movie, replacing any
// earlier one, and answers 201 with it.
func (h *MovieHandler) Rate(c echo.Context) error {
    var req ratingRequest
    if err := c.Bind(&req); err != nil {
        return err
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    who := middleware.CurrentIdentity(c)
    ctx, cancel := storeCtx(c)
    defer cancel()
    rt, err := h.svc.Rate(ctx, middleware.CurrentMovie(c), *who, *req.Rating, req.Comment)
    if err != nil {
        return err
    }
    // ratings are embedded in every feed
    h.invalidateAll(ctx)
    return c.JSON(http.StatusCreated, rt)
}

// Watch records that the caller watched the resolved movie.
func (h *MovieHandler) Watch(c echo.Context) error {
    who := middleware.CurrentIdentity(c)
    ctx, cancel := storeCtx(c)
    defer cancel()
    e, err := h.svc.Watch(ctx, middleware.CurrentMovie(c), *who)
    if err != nil {
        return err
    }
    h.invalidateUser(ctx, who.Username)
    return c.JSON(http.StatusOK, e)
}

// Profile returns the caller's identity.
func Profile(c echo.Context) error {
    id := middleware.CurrentIdentity(c)
    if id == nil {
        return c.JSON(http.StatusForbidden, echo.Map{"error": http.StatusText(http.StatusForbidden)})
    }
    return c.JSON(http.StatusOK, id)
}

var _ FeedInvalidator = (*middleware.FeedCache)(nil)
