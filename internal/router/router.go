package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/yiyuan-he/agentic-enablement-eval/internal/handler"    // request handlers
	"github.com/yiyuan-he/agentic-enablement-eval/internal/middleware" // cache, rate limit and auth middleware
	"github.com/yiyuan-he/agentic-enablement-eval/internal/utils"      // role names
)

// RegisterRoutes registers the probe endpoint.  /health sits outside the
// /api group so rate limiting and caching never affect orchestration checks.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/health", h.Health)
}

// APIMiddleware holds the middleware applied to the /api group, outermost
// first.  Nil entries are skipped.
type APIMiddleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterBuckets registers GET /api/buckets and returns the /api group so
// further routes share its middleware.
func RegisterBuckets(e *echo.Echo, b *handler.BucketHandler, mw APIMiddleware) *echo.Group {
	g := e.Group("/api")
	if mw.RateLimit != nil {
		g.Use(mw.RateLimit)
	}
	// The cache only wraps the listing; history reads must stay fresh.
	var routeMW []echo.MiddlewareFunc
	if mw.Cache != nil {
		routeMW = append(routeMW, mw.Cache)
	}
	g.GET("/buckets", b.ListBuckets, routeMW...)
	return g
}

// RegisterHistory registers GET /api/buckets/history on the /api group.
// When jwtSecret is non-empty the route requires a bearer token with the
// OPERATOR role.
func RegisterHistory(g *echo.Group, h *handler.HistoryHandler, jwtSecret string) {
	var mw []echo.MiddlewareFunc
	if jwtSecret != "" {
		mw = append(mw, middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleOperator))
	}
	g.GET("/buckets/history", h.ListHistory, mw...)
}
