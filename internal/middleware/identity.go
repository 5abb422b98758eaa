package middleware

import (
    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// userID identifies the caller for rate limiting.  It prefers the subject
// stored by JWTAuth and falls back to the raw token claims; unauthenticated
// callers are "guest".
func userID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    if tok, ok := c.Get("user").(*jwt.Token); ok {
        if sub, err := tok.Claims.GetSubject(); err == nil && sub != "" {
            return sub
        }
    }
    return "guest"
}
