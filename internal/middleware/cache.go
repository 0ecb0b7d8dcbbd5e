package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/movie-catalog/internal/config"
    "github.com/iliyamo/movie-catalog/internal/logging"
    "github.com/iliyamo/movie-catalog/internal/metrics"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain := cw.limit - cw.size; remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// FeedCache caches GET feed responses in Redis, one key space per user so a
// personalized feed is never served to someone else.  Keys look like
// <prefix>:user:<sha1 of username>:<sha1 of route/query>.  Hashing the
// username keeps glob characters and ':' out of the SCAN patterns.
type FeedCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

// NewFeedCache returns a cache; with caching disabled or rdb nil every
// method is a no-op.
func NewFeedCache(cfg config.CacheConfig, rdb *redis.Client) *FeedCache {
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    if cfg.Prefix == "" {
        cfg.Prefix = "feed"
    }
    return &FeedCache{cfg: cfg, rdb: rdb}
}

func (fc *FeedCache) enabled() bool { return fc != nil && fc.cfg.Enabled && fc.rdb != nil }

func (fc *FeedCache) userPrefix(user string) string {
    sum := sha1.Sum([]byte(user))
    return fmt.Sprintf("%s:user:%x:", fc.cfg.Prefix, sum[:])
}

// key builds a stable cache key honoring the configured strategy.
func (fc *FeedCache) key(c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(fc.cfg.KeyStrategy) {
    case "user_route":
        parts = []string{"route", c.Path()}
    case "user_method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // "user_route_query"
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s%x", fc.userPrefix(username(c)), sum[:])
}

// Middleware serves cached responses and stores fresh 200 responses.  It
// must run after Identify so the key lands in the caller's key space.
func (fc *FeedCache) Middleware() echo.MiddlewareFunc {
    if !fc.enabled() {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    maxBody := int64(fc.cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !fc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := fc.key(c)

            if bs, err := fc.rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    metrics.CacheLookups.WithLabelValues("hit").Inc()
                    for k, vals := range hdr {
                        if strings.EqualFold(k, echo.HeaderContentLength) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }
            metrics.CacheLookups.WithLabelValues("miss").Inc()

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            // truncated bodies are never stored
            if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            if err := fc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, fc.cfg.TTL).Err(); err != nil {
                logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("feed cache store failed")
            }
            return nil
        }
    }
}

// InvalidateUser drops every cached feed of one user.
func (fc *FeedCache) InvalidateUser(ctx context.Context, user string) error {
    if !fc.enabled() {
        return nil
    }
    return fc.deleteMatching(ctx, fc.userPrefix(user)+"*")
}

// InvalidateAll drops every cached feed.
func (fc *FeedCache) InvalidateAll(ctx context.Context) error {
    if !fc.enabled() {
        return nil
    }
    return fc.deleteMatching(ctx, fc.cfg.Prefix+":user:*")
}

func (fc *FeedCache) deleteMatching(ctx context.Context, pattern string) error {
    var cursor uint64
    for {
        keys, next, err := fc.rdb.Scan(ctx, cursor, pattern, 200).Result()
        if err != nil {
            return fmt.Errorf("scan %s: %w", pattern, err)
        }
        if len(keys) > 0 {
            if err := fc.rdb.Del(ctx, keys...).Err(); err != nil {
                return fmt.Errorf("delete cached feeds: %w", err)
            }
        }
        if next == 0 {
            return nil
        }
        cursor = next
    }
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}
