package cache

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
)

const shardCount = 16

// shard holds a slice of the keyspace behind its own lock; there is no
// global cache lock.
type shard struct {
	mu      sync.RWMutex
	records map[model.ContentKey]*model.CacheRecord
}

// MemoryCache is the default IContentCache: a hash-sharded in-memory store.
// Writers on different keys never contend on the same lock; writers on the
// same key serialize on its shard.
type MemoryCache struct {
	shards  [shardCount]*shard
	hardTTL time.Duration
	seq     atomic.Uint64
	now     func() time.Time
}

// NewMemoryCache builds a cache whose records hard-expire after hardTTL
func NewMemoryCache(hardTTL time.Duration) *MemoryCache {
	c := &MemoryCache{hardTTL: hardTTL, now: time.Now}
	for i := range c.shards {
		c.shards[i] = &shard{records: make(map[model.ContentKey]*model.CacheRecord)}
	}
	return c
}

// WithClock overrides the time source (fluent, for tests)
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) shardFor(key model.ContentKey) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.Platform))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.ExternalID))
	return c.shards[h.Sum32()%shardCount]
}

// Upsert inserts or refreshes one item. On refresh the content and engagement
// are overwritten, createdAt and the insertion sequence are preserved and
// updatedAt advances.
func (c *MemoryCache) Upsert(ctx context.Context, item model.ContentItem) (bool, error) {
	key := item.Key()
	now := c.now()
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok {
		existing.Item = item
		existing.UpdatedAt = now
		existing.ExpiresAt = now.Add(c.hardTTL)
		return false, nil
	}
	s.records[key] = &model.CacheRecord{
		Item:      item,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(c.hardTTL),
		Seq:       c.seq.Add(1),
	}
	return true, nil
}

// UpsertBatch upserts items and returns the ones that were newly created
func (c *MemoryCache) UpsertBatch(ctx context.Context, items []model.ContentItem) ([]model.ContentItem, error) {
	var created []model.ContentItem
	for i := range items {
		isNew, err := c.Upsert(ctx, items[i])
		if err != nil {
			return created, err
		}
		if isNew {
			created = append(created, items[i])
		}
	}
	return created, nil
}

// Get returns a copy of the record for key, expired or not, nil when absent
func (c *MemoryCache) Get(ctx context.Context, key model.ContentKey) (*model.CacheRecord, error) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Query returns one sorted page of non-expired records matching the filter
// and the total match count. Ties on the sort key break by insertion order.
func (c *MemoryCache) Query(ctx context.Context, q repository.ContentQuery) ([]model.CacheRecord, int64, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	platformSet := make(map[model.Platform]struct{}, len(q.Platforms))
	for _, p := range q.Platforms {
		platformSet[p] = struct{}{}
	}
	typeSet := make(map[model.ContentType]struct{}, len(q.Types))
	for _, t := range q.Types {
		typeSet[t] = struct{}{}
	}

	now := c.now()
	var matched []model.CacheRecord
	for _, s := range c.shards {
		s.mu.RLock()
		for _, rec := range s.records {
			if now.After(rec.ExpiresAt) {
				continue
			}
			if len(platformSet) > 0 {
				if _, ok := platformSet[rec.Item.Platform]; !ok {
					continue
				}
			}
			if len(typeSet) > 0 {
				if _, ok := typeSet[rec.Item.ContentType]; !ok {
					continue
				}
			}
			matched = append(matched, *rec)
		}
		s.mu.RUnlock()
	}

	sortRecords(matched, q.Sort, q.Order)

	total := int64(len(matched))
	start := (page - 1) * perPage
	if start >= len(matched) {
		return []model.CacheRecord{}, total, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// ExpireStale removes records past their hard TTL and returns the count
func (c *MemoryCache) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, rec := range s.records {
			if now.After(rec.ExpiresAt) {
				delete(s.records, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}

func sortRecords(records []model.CacheRecord, sortBy, order string) {
	asc := order == "asc"
	less := func(a, b *model.CacheRecord) bool {
		switch sortBy {
		case "popularity":
			pa, pb := a.Item.Engagement.Total(), b.Item.Engagement.Total()
			if pa != pb {
				if asc {
					return pa < pb
				}
				return pa > pb
			}
		default: // date
			ta, tb := a.Item.PublishedAt, b.Item.PublishedAt
			if !ta.Equal(tb) {
				if asc {
					return ta.Before(tb)
				}
				return ta.After(tb)
			}
		}
		// insertion-order tie-break, independent of sort direction
		return a.Seq < b.Seq
	}
	sort.SliceStable(records, func(i, j int) bool { return less(&records[i], &records[j]) })
}
