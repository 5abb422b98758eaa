package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// HealthResponse is the body of GET /health.  Field order is part of the
// wire format: status first, then service.
type HealthResponse struct {
    Status  string `json:"status"`
    Service string `json:"service"`
}

// HealthHandler answers liveness and readiness probes.  It never touches the
// storage client or the network, so it stays green while S3 is unreachable.
type HealthHandler struct {
    resp HealthResponse
}

// NewHealthHandler builds the handler for the configured service name.
func NewHealthHandler(serviceName string) *HealthHandler {
    return &HealthHandler{resp: HealthResponse{Status: "healthy", Service: serviceName}}
}

// Health writes {"status":"healthy","service":"<name>"} with 200.
func (h *HealthHandler) Health(c echo.Context) error {
    return c.JSON(http.StatusOK, h.resp)
}
