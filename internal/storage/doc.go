// Package storage wraps the cloud object-storage service behind the small
// BucketLister interface used by the HTTP handlers.
//
// The production implementation talks to Amazon S3 (or an S3-compatible
// endpoint) through aws-sdk-go-v2. Mock is an in-memory implementation for
// tests.
package storage
