package middleware

// identity.go defines the typed per-request state shared by the middleware
// chain and the handlers.  Echo's context bag is only touched here.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-catalog/internal/model"
)

const stateKey = "movies.request_state"

// RequestState carries what the chain has resolved so far.  Identity is nil
// for anonymous callers; Movie is set by WithMovie.
type RequestState struct {
    Identity *model.Identity
    Movie    *model.Movie
}

// State returns the request's state, creating it on first use.
func State(c echo.Context) *RequestState {
    if st, ok := c.Get(stateKey).(*RequestState); ok {
        return st
    }
    st := &RequestState{}
    c.Set(stateKey, st)
    return st
}

// CurrentIdentity returns the caller's identity or nil.
func CurrentIdentity(c echo.Context) *model.Identity { return State(c).Identity }

// CurrentMovie returns the movie resolved by WithMovie or nil.
func CurrentMovie(c echo.Context) *model.Movie { return State(c).Movie }

// username returns the caller's username, or "anon" without an identity.
func username(c echo.Context) string {
    if id := CurrentIdentity(c); id != nil && id.Username != "" {
        return id.Username
    }
    return "anon"
}
