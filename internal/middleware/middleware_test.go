package middleware

import (
    "net/http"
    "net/http/httptest"
    "strconv"
    "sync/atomic"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/yiyuan-he/agentic-enablement-eval/internal/config"
    "github.com/yiyuan-he/agentic-enablement-eval/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func get(e *echo.Echo, path string, header http.Header) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodGet, path, nil)
    for k, v := range header {
        req.Header[k] = v
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func cacheConfig() config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{http.MethodGet: true},
        TTL:          time.Minute,
        KeyStrategy:  "route_query",
        Prefix:       "test-cache",
        MaxBodyBytes: 1 << 20,
    }
}

func TestRedisCache_HitAfterMiss(t *testing.T) {
    t.Parallel()

    _, rdb := newRedis(t)
    var calls atomic.Int32
    e := echo.New()
    e.GET("/api/buckets", func(c echo.Context) error {
        calls.Add(1)
        return c.JSON(http.StatusOK, echo.Map{"bucket_count": 1, "buckets": []string{"a"}})
    }, NewRedisCache(cacheConfig(), rdb))

    first := get(e, "/api/buckets", nil)
    if first.Header().Get("X-Cache") != "MISS" {
        t.Fatalf("first X-Cache=%q, want MISS", first.Header().Get("X-Cache"))
    }
    second := get(e, "/api/buckets", nil)
    if second.Header().Get("X-Cache") != "HIT" {
        t.Fatalf("second X-Cache=%q, want HIT", second.Header().Get("X-Cache"))
    }
    if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
        t.Fatalf("cached status=%d body=%q, want %q", second.Code, second.Body.String(), first.Body.String())
    }
    if second.Header().Get(echo.HeaderContentType) != first.Header().Get(echo.HeaderContentType) {
        t.Fatalf("content type not replayed: %q", second.Header().Get(echo.HeaderContentType))
    }
    if calls.Load() != 1 {
        t.Fatalf("handler calls=%d, want 1", calls.Load())
    }

    // A different query string is a different key.
    if rec := get(e, "/api/buckets?x=1", nil); rec.Header().Get("X-Cache") != "MISS" {
        t.Fatalf("X-Cache=%q for new query, want MISS", rec.Header().Get("X-Cache"))
    }
}

func TestRedisCache_SkipsNoStoreAndErrors(t *testing.T) {
    t.Parallel()

    _, rdb := newRedis(t)
    var failures, errs atomic.Int32
    e := echo.New()
    mw := NewRedisCache(cacheConfig(), rdb)
    e.GET("/failure", func(c echo.Context) error {
        failures.Add(1)
        c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
        return c.JSON(http.StatusOK, echo.Map{"error": "access denied"})
    }, mw)
    e.GET("/error", func(c echo.Context) error {
        errs.Add(1)
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream"})
    }, mw)

    for i := 0; i < 2; i++ {
        if rec := get(e, "/failure", nil); rec.Header().Get("X-Cache") != "MISS" {
            t.Fatalf("failure call %d X-Cache=%q", i, rec.Header().Get("X-Cache"))
        }
        get(e, "/error", nil)
    }
    if failures.Load() != 2 || errs.Load() != 2 {
        t.Fatalf("handler calls failure=%d error=%d, want 2/2", failures.Load(), errs.Load())
    }
}

func TestRedisCache_SkipsOversizedBody(t *testing.T) {
    t.Parallel()

    _, rdb := newRedis(t)
    cfg := cacheConfig()
    cfg.MaxBodyBytes = 8
    var calls atomic.Int32
    e := echo.New()
    e.GET("/big", func(c echo.Context) error {
        calls.Add(1)
        return c.String(http.StatusOK, "this body is longer than eight bytes")
    }, NewRedisCache(cfg, rdb))

    get(e, "/big", nil)
    rec := get(e, "/big", nil)
    if rec.Header().Get("X-Cache") != "MISS" || calls.Load() != 2 {
        t.Fatalf("X-Cache=%q calls=%d, want MISS/2", rec.Header().Get("X-Cache"), calls.Load())
    }
    if rec.Body.String() != "this body is longer than eight bytes" {
        t.Fatalf("body truncated: %q", rec.Body.String())
    }
}

func TestRedisCache_DisabledWithoutRedis(t *testing.T) {
    t.Parallel()

    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewRedisCache(cacheConfig(), nil))
    if rec := get(e, "/x", nil); rec.Header().Get("X-Cache") != "" {
        t.Fatalf("X-Cache=%q, want none when disabled", rec.Header().Get("X-Cache"))
    }
}

func rateConfig(capacity int) config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled:        true,
        Capacity:       capacity,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            5 * time.Hour,
        KeyStrategy:    "ip_route",
        Prefix:         "rl-test",
    }
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
    t.Parallel()

    _, rdb := newRedis(t)
    e := echo.New()
    e.GET("/api/buckets", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(rateConfig(2), rdb))

    for i, wantRemaining := range []string{"1", "0"} {
        rec := get(e, "/api/buckets", nil)
        if rec.Code != http.StatusOK {
            t.Fatalf("request %d status=%d, want 200", i, rec.Code)
        }
        if got := rec.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
            t.Fatalf("request %d remaining=%q, want %q", i, got, wantRemaining)
        }
        if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
            t.Fatalf("limit=%q, want 2", got)
        }
    }

    rec := get(e, "/api/buckets", nil)
    if rec.Code != http.StatusTooManyRequests {
        t.Fatalf("status=%d, want 429", rec.Code)
    }
    secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
    if err != nil || secs <= 0 || secs > 3600 {
        t.Fatalf("Retry-After=%q", rec.Header().Get("Retry-After"))
    }

    // Another client address has its own bucket.
    other := get(e, "/api/buckets", http.Header{"X-Real-Ip": {"203.0.113.9"}})
    if other.Code != http.StatusOK {
        t.Fatalf("other client status=%d, want 200", other.Code)
    }
}

func TestTokenBucket_FailsOpen(t *testing.T) {
    t.Parallel()

    mr, rdb := newRedis(t)
    mr.Close()
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(rateConfig(1), rdb))

    for i := 0; i < 3; i++ {
        if rec := get(e, "/x", nil); rec.Code != http.StatusOK {
            t.Fatalf("request %d status=%d, want 200 while redis is down", i, rec.Code)
        }
    }
}

func TestRateLimitKey(t *testing.T) {
    t.Parallel()

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
    req.Header.Set(echo.HeaderXRealIP, "198.51.100.7")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/buckets")
    c.Set("user_id", "ops-1")

    cases := map[string]string{
        "ip":            "rl:ip:198.51.100.7",
        "route":         "rl:route:GET /api/buckets",
        "ip_route":      "rl:ip:198.51.100.7:route:GET /api/buckets",
        "ip_user_route": "rl:ip:198.51.100.7:user:ops-1:route:GET /api/buckets",
        "bogus":         "rl:ip:198.51.100.7:route:GET /api/buckets",
    }
    for strategy, want := range cases {
        got := rateLimitKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
        if got != want {
            t.Fatalf("strategy %s: key=%q, want %q", strategy, got, want)
        }
    }
}

func TestJWTAuthAndRole(t *testing.T) {
    t.Parallel()

    const secret = "test-secret"
    e := echo.New()
    e.GET("/secure", func(c echo.Context) error {
        return c.String(http.StatusOK, userID(c))
    }, JWTAuth(secret), RequireRole(utils.RoleOperator))

    operator, err := utils.NewAccessToken(secret, "ops-1", utils.RoleOperator, time.Minute)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    viewer, _ := utils.NewAccessToken(secret, "viewer-1", "VIEWER", time.Minute)
    forged, _ := utils.NewAccessToken("other-secret", "ops-1", utils.RoleOperator, time.Minute)

    cases := []struct {
        name   string
        auth   string
        status int
    }{
        {"missing header", "", http.StatusUnauthorized},
        {"not bearer", "Basic abc", http.StatusUnauthorized},
        {"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
        {"wrong secret", "Bearer " + forged.Token, http.StatusUnauthorized},
        {"wrong role", "Bearer " + viewer.Token, http.StatusForbidden},
        {"operator", "Bearer " + operator.Token, http.StatusOK},
    }
    for _, tc := range cases {
        h := http.Header{}
        if tc.auth != "" {
            h.Set(echo.HeaderAuthorization, tc.auth)
        }
        rec := get(e, "/secure", h)
        if rec.Code != tc.status {
            t.Fatalf("%s: status=%d, want %d body=%s", tc.name, rec.Code, tc.status, rec.Body.String())
        }
        if tc.status == http.StatusOK && rec.Body.String() != "ops-1" {
            t.Fatalf("%s: userID=%q, want ops-1", tc.name, rec.Body.String())
        }
    }
}

func TestUserID_Guest(t *testing.T) {
    t.Parallel()

    c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    if got := userID(c); got != "guest" {
        t.Fatalf("userID=%q, want guest", got)
    }
}
