package model

import "time"

// BucketListing records one call to the bucket listing endpoint.  Rows are
// written by the audit consumer and read by the history endpoint.  This
// struct corresponds to a row in the `bucket_listings` table.
//
// Fields:
//  ID          – primary key identifier.
//  EventID     – unique id of the buckets.listed event (deduplicates redeliveries).
//  ServiceName – service that performed the listing.
//  Region      – storage region the listing ran against.
//  BucketCount – number of buckets returned; zero on failure.
//  Error       – failure message, empty on success.
//  ListedAt    – when the listing completed.
type BucketListing struct {
    ID          uint64    // bucket_listings.id
    EventID     string    // bucket_listings.event_id
    ServiceName string    // bucket_listings.service_name
    Region      string    // bucket_listings.region
    BucketCount int       // bucket_listings.bucket_count
    Error       string    // bucket_listings.error
    ListedAt    time.Time // bucket_listings.listed_at
}

// Succeeded reports whether the listing returned buckets rather than an error.
func (b BucketListing) Succeeded() bool { return b.Error == "" }
