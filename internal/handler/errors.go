package handler

import (
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/logging"
    "github.com/iliyamo/movie-catalog/internal/repository"
    "github.com/iliyamo/movie-catalog/internal/validate"
)

const msgUnknown = "An unknown error has occurred"

// fieldErrors reports payload problems found after validation, such as an
// unparsable date.
type fieldErrors map[string]string

func (f fieldErrors) Error() string { return fmt.Sprintf("invalid fields: %v", map[string]string(f)) }

// ErrorHandler is installed as echo's HTTPErrorHandler.  It is the single
// place where handler errors become responses:
//
//	validation errors      -> 400 {"error":"validation failed","fields":{...}}
//	*echo.HTTPError        -> its code and message
//	ErrMovieNotFound       -> 404
//	anything else          -> 500 with a generic body; details are logged
func ErrorHandler(err error, c echo.Context) {
    if c.Response().Committed {
        return
    }
    status, body := mapError(err)
    if status == http.StatusInternalServerError {
        logging.Ctx(c.Request().Context()).Error().Err(err).
            Str("method", c.Request().Method).
            Str("path", c.Request().URL.Path).
            Msg("unhandled error")
    }
    var werr error
    if c.Request().Method == http.MethodHead {
        werr = c.NoContent(status)
    } else {
        werr = c.JSON(status, body)
    }
    if werr != nil {
        logging.Ctx(c.Request().Context()).Warn().Err(werr).Msg("write error response")
    }
}

func mapError(err error) (int, echo.Map) {
    if fields := validate.Fields(err); fields != nil {
        return http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields}
    }
    var fe fieldErrors
    if errors.As(err, &fe) {
        return http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": map[string]string(fe)}
    }
    var he *echo.HTTPError
    if errors.As(err, &he) {
        msg := http.StatusText(he.Code)
        if s, ok := he.Message.(string); ok && s != "" {
            msg = s
        }
        return he.Code, echo.Map{"error": msg}
    }
    if errors.Is(err, repository.ErrMovieNotFound) {
        return http.StatusNotFound, echo.Map{"error": "movie not found"}
    }
    return http.StatusInternalServerError, echo.Map{"error": msgUnknown}
}
