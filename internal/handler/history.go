package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/yiyuan-he/agentic-enablement-eval/internal/model"
)

const (
    defaultHistoryLimit = 20
    maxHistoryLimit     = 100
)

// ListingHistory reads stored bucket listings.
type ListingHistory interface {
    ListRecent(ctx context.Context, limit int) ([]model.BucketListing, error)
}

// HistoryHandler serves GET /api/buckets/history.
type HistoryHandler struct {
    Store ListingHistory
}

// HistoryItem is one listing in the history response.
type HistoryItem struct {
    EventID     string    `json:"event_id"`
    ServiceName string    `json:"service_name"`
    Region      string    `json:"region"`
    BucketCount int       `json:"bucket_count"`
    Error       string    `json:"error,omitempty"`
    Succeeded   bool      `json:"succeeded"`
    ListedAt    time.Time `json:"listed_at"`
}

// NewHistoryHandler constructs a HistoryHandler.
func NewHistoryHandler(store ListingHistory) *HistoryHandler {
    if store == nil {
        panic("nil store passed to NewHistoryHandler")
    }
    return &HistoryHandler{Store: store}
}

// ListHistory returns {"items":[...]} newest first.  The optional limit
// query parameter must be between 1 and 100.
func (h *HistoryHandler) ListHistory(c echo.Context) error {
    limit := defaultHistoryLimit
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < 1 || n > maxHistoryLimit {
            return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
        }
        limit = n
    }

    rows, err := h.Store.ListRecent(c.Request().Context(), limit)
    if err != nil {
        c.Logger().Errorf("list history: %v", err)
        return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "database error"})
    }
    items := make([]HistoryItem, 0, len(rows))
    for _, r := range rows {
        items = append(items, HistoryItem{
            EventID:     r.EventID,
            ServiceName: r.ServiceName,
            Region:      r.Region,
            BucketCount: r.BucketCount,
            Error:       r.Error,
            Succeeded:   r.Succeeded(),
            ListedAt:    r.ListedAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
