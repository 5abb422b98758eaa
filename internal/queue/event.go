// Package queue defines message payloads exchanged over the message broker
// and the consumer that persists them.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/yiyuan-he/agentic-enablement-eval/internal/model"
)

// BucketsListedEvent is published after every bucket listing that reaches
// the storage service.  Responses replayed from the response cache do not
// produce one.  It carries the outcome only; bucket names are not included.
type BucketsListedEvent struct {
    EventID     string `json:"event_id"`
    ServiceName string `json:"service_name"`
    Region      string `json:"region"`
    BucketCount int    `json:"bucket_count"`
    Error       string `json:"error,omitempty"`
    ListedAt    string `json:"listed_at"` // RFC 3339, UTC
}

// NewBucketsListedEvent stamps a fresh event id and the current UTC time.
func NewBucketsListedEvent(service, region string, count int, errMsg string) BucketsListedEvent {
    return BucketsListedEvent{
        EventID:     uuid.NewString(),
        ServiceName: service,
        Region:      region,
        BucketCount: count,
        Error:       errMsg,
        ListedAt:    time.Now().UTC().Format(time.RFC3339Nano),
    }
}

// Record converts the event into the persisted history row.
func (e BucketsListedEvent) Record() (model.BucketListing, error) {
    at, err := time.Parse(time.RFC3339Nano, e.ListedAt)
    if err != nil {
        return model.BucketListing{}, err
    }
    return model.BucketListing{
        EventID:     e.EventID,
        ServiceName: e.ServiceName,
        Region:      e.Region,
        BucketCount: e.BucketCount,
        Error:       e.Error,
        ListedAt:    at.UTC(),
    }, nil
}
