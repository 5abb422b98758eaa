package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/yiyuan-he/agentic-enablement-eval/internal/config"
)

// cachedResponse is what the cache stores in Redis for one request key.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// teeWriter forwards writes to the client and keeps a copy of the body up to
// limit bytes.  A body larger than limit marks the response as uncacheable.
type teeWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// responseCacheKey hashes the parts selected by cfg.KeyStrategy under cfg.Prefix.
func responseCacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // "route_query"
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache serves repeated GETs from Redis for cfg.TTL.  Only 200
// responses are stored, and never one that carries Cache-Control: no-store;
// /api/buckets marks its failure body that way because it shares the 200
// status with success.  Responses are tagged with X-Cache: HIT or MISS.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 15 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := responseCacheKey(cfg, c)

            if hit, ok := lookupCached(c.Request().Context(), rdb, key); ok {
                return replayCached(c, hit)
            }

            tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = tw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if tw.status != http.StatusOK || tw.overflow || noStore(c.Response().Header()) {
                return nil
            }

            entry := cachedResponse{Status: tw.status, Header: c.Response().Header().Clone(), Body: tw.buf.Bytes()}
            entry.Header.Del("X-Cache")
            entry.Header.Del(echo.HeaderXRequestID)
            payload, err := json.Marshal(entry)
            if err != nil {
                return nil
            }
            // The request context may already be done once the client has its answer.
            if err := rdb.Set(context.WithoutCancel(c.Request().Context()), key, payload, ttl).Err(); err != nil {
                c.Logger().Warnf("[cache] store key=%s: %v", key, err)
            }
            return nil
        }
    }
}

func lookupCached(ctx context.Context, rdb *redis.Client, key string) (cachedResponse, bool) {
    raw, err := rdb.Get(ctx, key).Bytes()
    if err != nil {
        return cachedResponse{}, false
    }
    var entry cachedResponse
    if err := json.Unmarshal(raw, &entry); err != nil || entry.Status == 0 {
        return cachedResponse{}, false
    }
    return entry, true
}

func replayCached(c echo.Context, entry cachedResponse) error {
    h := c.Response().Header()
    for k, vals := range entry.Header {
        if strings.EqualFold(k, echo.HeaderContentLength) {
            continue
        }
        for _, v := range vals {
            h.Add(k, v)
        }
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(entry.Status)
    _, err := c.Response().Write(entry.Body)
    return err
}

func noStore(h http.Header) bool {
    for _, v := range h.Values("Cache-Control") {
        for _, d := range strings.Split(v, ",") {
            if strings.EqualFold(strings.TrimSpace(d), "no-store") {
                return true
            }
        }
    }
    return false
}
