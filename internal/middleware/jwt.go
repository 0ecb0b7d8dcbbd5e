package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/logging"
    "github.com/iliyamo/movie-catalog/internal/utils"
)

// Identify returns an Echo middleware that reads a Bearer access token and,
// when it verifies against secret, stores the caller's identity in the
// request state.  A missing or invalid token is not an error here: the
// request continues anonymously and RequireSignIn/RequireRoles decide.
func Identify(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return next(c)
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
            id, err := utils.ParseIdentity(secret, raw)
            if err != nil {
                logging.Ctx(c.Request().Context()).Debug().Err(err).Msg("ignoring invalid bearer token")
                return next(c)
            }
            State(c).Identity = id
            return next(c)
        }
    }
}
