package repository

import (
	"context"
	"time"

	"content-hub/domain/model"
)

// ContentQuery filters and pages a cache read
type ContentQuery struct {
	Platforms []model.Platform
	Types     []model.ContentType
	Page      int
	PerPage   int
	Sort      string // date, popularity
	Order     string // asc, desc
}

// IContentCache defines the content cache store. Implementations must be safe
// under concurrent writers; identical keys written by overlapping refresh
// cycles are serialized per key, never behind a global lock.
type IContentCache interface {
	// Upsert inserts or refreshes one item keyed by (platform, externalId).
	// Reports whether a new record was created.
	Upsert(ctx context.Context, item model.ContentItem) (created bool, err error)
	// UpsertBatch upserts many items and returns the newly created ones.
	UpsertBatch(ctx context.Context, items []model.ContentItem) ([]model.ContentItem, error)
	// Get returns the record for a key, expired or not, nil when absent.
	Get(ctx context.Context, key model.ContentKey) (*model.CacheRecord, error)
	// Query returns a sorted page of records matching the filter and the
	// total match count. Hard-expired records are excluded.
	Query(ctx context.Context, q ContentQuery) ([]model.CacheRecord, int64, error)
	// ExpireStale removes records past their hard TTL. Advisory: reads never
	// block on it.
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}
