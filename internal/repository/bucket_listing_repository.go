// Package repository contains data access logic separated from HTTP handlers.
// This file stores the history of bucket listings written by the audit
// consumer and read by the history endpoint.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers

	"github.com/yiyuan-he/agentic-enablement-eval/internal/model"
)

// listingSchema creates the history table.  event_id is unique so a
// redelivered event is stored once.
const listingSchema = `CREATE TABLE IF NOT EXISTS bucket_listings (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  event_id CHAR(36) NOT NULL,
  service_name VARCHAR(255) NOT NULL,
  region VARCHAR(64) NOT NULL,
  bucket_count INT NOT NULL,
  error TEXT NOT NULL,
  listed_at DATETIME(6) NOT NULL,
  UNIQUE KEY uq_bucket_listings_event (event_id),
  KEY idx_bucket_listings_listed_at (listed_at)
)`

// BucketListingRepo encapsulates all queries on bucket_listings.
type BucketListingRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewBucketListingRepo constructs a BucketListingRepo with the provided DB handle.
func NewBucketListingRepo(db *sql.DB) *BucketListingRepo {
	return &BucketListingRepo{db: db}
}

// EnsureSchema creates the bucket_listings table when it does not exist.
func (r *BucketListingRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, listingSchema)
	return err
}

// Insert stores a listing.  Duplicate event ids are ignored; in that case
// l.ID stays zero.
func (r *BucketListingRepo) Insert(ctx context.Context, l *model.BucketListing) error {
	const q = `INSERT IGNORE INTO bucket_listings (event_id, service_name, region, bucket_count, error, listed_at)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, l.EventID, l.ServiceName, l.Region, l.BucketCount, l.Error, l.ListedAt)
	if err != nil {
		return err // propagate DB errors to the caller
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// ListRecent returns at most limit listings, newest first.
func (r *BucketListingRepo) ListRecent(ctx context.Context, limit int) ([]model.BucketListing, error) {
	const q = `SELECT id, event_id, service_name, region, bucket_count, error, listed_at
FROM bucket_listings ORDER BY listed_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BucketListing, 0, limit)
	for rows.Next() {
		var l model.BucketListing
		if err := rows.Scan(&l.ID, &l.EventID, &l.ServiceName, &l.Region, &l.BucketCount, &l.Error, &l.ListedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
