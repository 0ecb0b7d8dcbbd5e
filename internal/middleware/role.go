package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

const (
    msgUnauthorized = "Authentication required to perform operation"
    msgForbidden    = "Missing required role(s) to perform operation"
)

// RequireSignIn aborts with 401 when the request carries no identity.
func RequireSignIn() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if CurrentIdentity(c) == nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgUnauthorized})
            }
            return next(c)
        }
    }
}

// RequireRoles enforces that the caller holds every one of roles.  A missing
// identity is reported as 401, never 403, so it can be used on its own.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := CurrentIdentity(c)
            if id == nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgUnauthorized})
            }
            if !id.HasRoles(roles...) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": msgForbidden})
            }
            return next(c)
        }
    }
}
