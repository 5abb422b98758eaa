package storage

import "context"

// BucketLister lists the names of the buckets visible to the caller.
type BucketLister interface {
	// ListBucketNames returns bucket names in the order the storage service
	// reported them. On success the slice is never nil. Any failure
	// (network, auth, throttling, malformed response) is returned as err.
	ListBucketNames(ctx context.Context) ([]string, error)
}
