package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/movie-catalog/internal/config"
    "github.com/iliyamo/movie-catalog/internal/model"
    "github.com/iliyamo/movie-catalog/internal/repository"
    "github.com/iliyamo/movie-catalog/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, username string, roles ...string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, model.Identity{Username: username, Name: username, Roles: roles}, time.Hour)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if auth != "" {
        req.Header.Set(echo.HeaderAuthorization, auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestIdentifyIsPassthrough(t *testing.T) {
    e := echo.New()
    e.Use(Identify(secret))
    e.GET("/who", func(c echo.Context) error {
        if id := CurrentIdentity(c); id != nil {
            return c.String(http.StatusOK, id.Username)
        }
        return c.String(http.StatusOK, "anonymous")
    })

    assert.Equal(t, "anonymous", do(e, http.MethodGet, "/who", "").Body.String())
    assert.Equal(t, "anonymous", do(e, http.MethodGet, "/who", "Bearer garbage").Body.String())
    assert.Equal(t, "anonymous", do(e, http.MethodGet, "/who", "Basic Zm9vOmJhcg==").Body.String())
    assert.Equal(t, "ana", do(e, http.MethodGet, "/who", bearer(t, "ana")).Body.String())
}

func TestGuards(t *testing.T) {
    e := echo.New()
    e.Use(Identify(secret))
    ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
    e.GET("/profile", ok, RequireSignIn())
    e.GET("/rate", ok, RequireSignIn(), RequireRoles(model.PermViewMovies, model.PermRateMovies))
    e.GET("/roles-only", ok, RequireRoles(model.PermViewMovies))

    cases := []struct {
        name   string
        path   string
        auth   string
        status int
        body   string
    }{
        {"profile anonymous", "/profile", "", http.StatusUnauthorized, msgUnauthorized},
        {"profile signed in", "/profile", bearer(t, "ana"), http.StatusOK, ""},
        {"roles anonymous", "/rate", "", http.StatusUnauthorized, msgUnauthorized},
        {"roles bad token", "/rate", "Bearer nope", http.StatusUnauthorized, msgUnauthorized},
        {"one role missing", "/rate", bearer(t, "ana", model.PermViewMovies), http.StatusForbidden, msgForbidden},
        {"all roles", "/rate", bearer(t, "ana", model.PermRateMovies, model.PermViewMovies), http.StatusOK, ""},
        {"roles without sign-in guard", "/roles-only", "", http.StatusUnauthorized, msgUnauthorized},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec := do(e, http.MethodGet, tc.path, tc.auth)
            assert.Equal(t, tc.status, rec.Code)
            if tc.body != "" {
                assert.JSONEq(t, `{"error":"`+tc.body+`"}`, rec.Body.String())
            }
        })
    }
}

type fakeMovies map[uint64]*model.Movie

func (f fakeMovies) Get(_ context.Context, id uint64) (*model.Movie, error) {
    if m, ok := f[id]; ok {
        return m, nil
    }
    return nil, repository.ErrMovieNotFound
}

func TestWithMovie(t *testing.T) {
    e := echo.New()
    movies := fakeMovies{7: {ID: 7, Title: "Alien"}}
    e.GET("/movies/:movieId", func(c echo.Context) error {
        return c.String(http.StatusOK, CurrentMovie(c).Title)
    }, WithMovie("movieId", movies))

    rec := do(e, http.MethodGet, "/movies/7", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "Alien", rec.Body.String())

    for _, id := range []string{"8", "abc", "0", "-1"} {
        rec := do(e, http.MethodGet, "/movies/"+id, "")
        assert.Equal(t, http.StatusNotFound, rec.Code, id)
        assert.JSONEq(t, `{"error":"Could not find movie with ID `+id+`"}`, rec.Body.String())
    }
}

func newRedis(t *testing.T) *redis.Client {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb
}

func TestFeedCache(t *testing.T) {
    rdb := newRedis(t)
    fc := NewFeedCache(config.CacheConfig{
        Enabled:     true,
        Methods:     map[string]bool{http.MethodGet: true},
        TTL:         time.Minute,
        KeyStrategy: "user_route_query",
        Prefix:      "feed",
    }, rdb)

    calls := 0
    e := echo.New()
    e.Use(Identify(secret))
    e.GET("/feed", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"user": CurrentIdentity(c).Username, "calls": calls})
    }, RequireSignIn(), fc.Middleware())

    ana, bob := bearer(t, "ana"), bearer(t, "bob")

    first := do(e, http.MethodGet, "/feed", ana)
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
    second := do(e, http.MethodGet, "/feed", ana)
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.Equal(t, first.Body.String(), second.Body.String())
    assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
    assert.Equal(t, 1, calls)

    other := do(e, http.MethodGet, "/feed", bob)
    assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
    assert.Contains(t, other.Body.String(), `"user":"bob"`)

    require.NoError(t, fc.InvalidateUser(context.Background(), "ana"))
    assert.Equal(t, "MISS", do(e, http.MethodGet, "/feed", ana).Header().Get("X-Cache"))
    assert.Equal(t, "HIT", do(e, http.MethodGet, "/feed", bob).Header().Get("X-Cache"))

    require.NoError(t, fc.InvalidateAll(context.Background()))
    assert.Equal(t, "MISS", do(e, http.MethodGet, "/feed", ana).Header().Get("X-Cache"))
    assert.Equal(t, "MISS", do(e, http.MethodGet, "/feed", bob).Header().Get("X-Cache"))
}

func TestFeedCacheSkipsErrors(t *testing.T) {
    rdb := newRedis(t)
    fc := NewFeedCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}}, rdb)

    e := echo.New()
    e.GET("/broken", func(c echo.Context) error {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "nope"})
    }, fc.Middleware())

    do(e, http.MethodGet, "/broken", "")
    assert.Equal(t, "MISS", do(e, http.MethodGet, "/broken", "").Header().Get("X-Cache"))
}

func TestFeedCacheDisabled(t *testing.T) {
    fc := NewFeedCache(config.CacheConfig{Enabled: true}, nil)
    assert.NoError(t, fc.InvalidateAll(context.Background()))
    assert.NoError(t, fc.InvalidateUser(context.Background(), "ana"))

    e := echo.New()
    e.GET("/feed", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, fc.Middleware())
    assert.Empty(t, do(e, http.MethodGet, "/feed", "").Header().Get("X-Cache"))
}

func TestTokenBucket(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "user",
        Prefix:         "rl",
    }
    e := echo.New()
    e.Use(Identify(secret), NewTokenBucket(cfg, rdb))
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

    ana := bearer(t, "ana")
    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", ana).Code)
    rec := do(e, http.MethodGet, "/x", ana)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

    rec = do(e, http.MethodGet, "/x", ana)
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))

    // separate bucket per user
    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", bearer(t, "bob")).Code)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
    e := echo.New()
    e.Use(RequestLogger())
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
    e.GET("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "no") })

    rec := do(e, http.MethodGet, "/x", "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    req.Header.Set(echo.HeaderXRequestID, "abc-123")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))

    assert.Equal(t, http.StatusTeapot, do(e, http.MethodGet, "/fail", "").Code)
}

func TestFeedCacheInvalidateUserIsExact(t *testing.T) {
    rdb := newRedis(t)
    fc := NewFeedCache(config.CacheConfig{
        Enabled: true,
        Methods: map[string]bool{http.MethodGet: true},
        TTL:     time.Minute,
        Prefix:  "feed",
    }, rdb)

    e := echo.New()
    e.Use(Identify(secret))
    e.GET("/feed", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"user": CurrentIdentity(c).Username})
    }, RequireSignIn(), fc.Middleware())

    users := []string{"a", "a:b", "*", "a?"}
    tokens := map[string]string{}
    for _, u := range users {
        tokens[u] = bearer(t, u)
        assert.Equal(t, "MISS", do(e, http.MethodGet, "/feed", tokens[u]).Header().Get("X-Cache"), u)
    }

    require.NoError(t, fc.InvalidateUser(context.Background(), "*"))
    require.NoError(t, fc.InvalidateUser(context.Background(), "a"))

    assert.Equal(t, "MISS", do(e, http.MethodGet, "/feed", tokens["*"]).Header().Get("X-Cache"))
    assert.Equal(t, "MISS", do(e, http.MethodGet, "/feed", tokens["a"]).Header().Get("X-Cache"))
    assert.Equal(t, "HIT", do(e, http.MethodGet, "/feed", tokens["a:b"]).Header().Get("X-Cache"))
    assert.Equal(t, "HIT", do(e, http.MethodGet, "/feed", tokens["a?"]).Header().Get("X-Cache"))
}
