package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/yiyuan-he/agentic-enablement-eval/internal/queue"
    "github.com/yiyuan-he/agentic-enablement-eval/internal/storage"
)

// BucketsResponse is the success body of GET /api/buckets.
// BucketCount always equals len(Buckets).
type BucketsResponse struct {
    BucketCount int      `json:"bucket_count"`
    Buckets     []string `json:"buckets"`
}

// ErrorResponse is the failure body; it never appears together with buckets.
type ErrorResponse struct {
    Error string `json:"error"`
}

// ListingRecorder receives the outcome of every bucket listing.
type ListingRecorder interface {
    RecordListing(ctx context.Context, ev queue.BucketsListedEvent) error
}

// BucketHandler serves GET /api/buckets.
type BucketHandler struct {
    Lister      storage.BucketLister // shared, read-only storage client
    ErrorStatus int                  // status written on the failure path
    ServiceName string
    Region      string
    Recorder    ListingRecorder // optional; nil disables audit events
}

// NewBucketHandler constructs a BucketHandler.  errorStatus is the status
// used when listing fails; 200 keeps the body shape as the only signal.
// Statuses other than 200 and 4xx/5xx fall back to 200.
func NewBucketHandler(lister storage.BucketLister, errorStatus int, serviceName, region string) *BucketHandler {
    if lister == nil {
        panic("nil lister passed to NewBucketHandler")
    }
    if !failureStatusAllowed(errorStatus) {
        errorStatus = http.StatusOK
    }
    return &BucketHandler{Lister: lister, ErrorStatus: errorStatus, ServiceName: serviceName, Region: region}
}

// ListBuckets performs one synchronous listing.  Every storage failure is
// collapsed into {"error": message}; the error is not re-raised to echo.
func (h *BucketHandler) ListBuckets(c echo.Context) error {
    names, err := h.Lister.ListBucketNames(c.Request().Context())
    if err != nil {
        c.Logger().Errorf("list buckets: %v", err)
        msg := errorMessage(err)
        h.record(0, msg)
        // Shares 200 with success by default; keep it out of shared caches.
        c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
        return c.JSON(h.ErrorStatus, ErrorResponse{Error: msg})
    }
    if names == nil {
        names = []string{}
    }
    h.record(len(names), "")
    return c.JSON(http.StatusOK, BucketsResponse{BucketCount: len(names), Buckets: names})
}

// record hands the outcome to the recorder without delaying the response.
func (h *BucketHandler) record(count int, errMsg string) {
    if h.Recorder == nil {
        return
    }
    ev := queue.NewBucketsListedEvent(h.ServiceName, h.Region, count, errMsg)
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = h.Recorder.RecordListing(ctx, ev)
    }()
}

// failureStatusAllowed reports whether status can carry the error body and
// does not read as a redirect or a different success.
func failureStatusAllowed(status int) bool {
    return status == http.StatusOK || (status >= 400 && status <= 599)
}

func errorMessage(err error) string {
    if msg := err.Error(); msg != "" {
        return msg
    }
    return "unknown error"
}
