package middleware

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/model"
    "github.com/iliyamo/movie-catalog/internal/repository"
)

// MovieGetter loads a movie by id, returning repository.ErrMovieNotFound
// when it does not exist.
type MovieGetter interface {
    Get(ctx context.Context, id uint64) (*model.Movie, error)
}

// WithMovie resolves the movie named by the path parameter param and
// attaches it to the request state.  Unparsable ids are treated like
// missing movies.
func WithMovie(param string, movies MovieGetter) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := c.Param(param)
            notFound := echo.Map{"error": fmt.Sprintf("Could not find movie with ID %s", raw)}

            id, err := strconv.ParseUint(raw, 10, 64)
            if err != nil || id == 0 {
                return c.JSON(http.StatusNotFound, notFound)
            }
            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()
            m, err := movies.Get(ctx, id)
            if errors.Is(err, repository.ErrMovieNotFound) {
                return c.JSON(http.StatusNotFound, notFound)
            }
            if err != nil {
                return fmt.Errorf("load movie %d: %w", id, err)
            }
            State(c).Movie = m
            return next(c)
        }
    }
}
