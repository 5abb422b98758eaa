package storage

import (
	"context"
	"sync/atomic"
	"time"
)

// Make sure *Mock satisfies BucketLister interface.
var _ BucketLister = (*Mock)(nil)

// Mock is an in-memory BucketLister for tests.
//
// It returns Err when set, otherwise a copy of Names. Delay mimics network
// latency and honors context cancellation.
type Mock struct {
	Names []string
	Err   error
	Delay time.Duration

	calls atomic.Int64
}

// ListBucketNames implements BucketLister.
func (m *Mock) ListBucketNames(ctx context.Context) ([]string, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]string, len(m.Names))
	copy(out, m.Names)
	return out, nil
}

// Calls reports how many times ListBucketNames has been invoked.
func (m *Mock) Calls() int64 {
	return m.calls.Load()
}
