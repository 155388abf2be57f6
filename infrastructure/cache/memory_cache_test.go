package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/cache"
)

func item(platform model.Platform, id string, published time.Time, likes int64) model.ContentItem {
	return model.ContentItem{
		Platform:    platform,
		ContentType: model.ContentTypeVideo,
		ExternalID:  id,
		Title:       "title-" + id,
		PublishedAt: published,
		Engagement:  model.Engagement{Likes: likes},
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	c := cache.NewMemoryCache(24 * time.Hour).WithClock(func() time.Time { return clock })

	it := item(model.PlatformYouTube, "v1", base, 10)
	created, err := c.Upsert(ctx, it)
	assert.NoError(t, err)
	assert.True(t, created)

	clock = base.Add(5 * time.Minute)
	it.Engagement.Likes = 25
	created, err = c.Upsert(ctx, it)
	assert.NoError(t, err)
	assert.False(t, created, "same identity must update, not create")

	rec, err := c.Get(ctx, it.Key())
	assert.NoError(t, err)
	if assert.NotNil(t, rec) {
		assert.Equal(t, base, rec.CreatedAt, "createdAt preserved")
		assert.Equal(t, base.Add(5*time.Minute), rec.UpdatedAt, "updatedAt advanced")
		assert.Equal(t, int64(25), rec.Item.Engagement.Likes, "engagement refreshed")
	}

	records, total, err := c.Query(ctx, repository.ContentQuery{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total, "exactly one record for one identity")
	assert.Len(t, records, 1)
}

func TestQuery_SortByDateWithStableTies(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(24 * time.Hour)
	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	_, _ = c.Upsert(ctx, item(model.PlatformYouTube, "a", t1, 0))
	_, _ = c.Upsert(ctx, item(model.PlatformYouTube, "b", t2, 0))
	_, _ = c.Upsert(ctx, item(model.PlatformYouTube, "c", t3, 0))
	// ties on t2, inserted in a known order
	_, _ = c.Upsert(ctx, item(model.PlatformTikTok, "tie1", t2, 0))
	_, _ = c.Upsert(ctx, item(model.PlatformTikTok, "tie2", t2, 0))

	records, _, err := c.Query(ctx, repository.ContentQuery{Sort: "date", Order: "desc"})
	assert.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Item.ExternalID)
	}
	assert.Equal(t, []string{"c", "b", "tie1", "tie2", "a"}, ids)

	records, _, err = c.Query(ctx, repository.ContentQuery{Sort: "date", Order: "asc"})
	assert.NoError(t, err)
	ids = ids[:0]
	for _, r := range records {
		ids = append(ids, r.Item.ExternalID)
	}
	assert.Equal(t, []string{"a", "b", "tie1", "tie2", "c"}, ids)
}

func TestQuery_SortByPopularity(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(24 * time.Hour)
	now := time.Now()

	_, _ = c.Upsert(ctx, item(model.PlatformYouTube, "cold", now, 1))
	_, _ = c.Upsert(ctx, item(model.PlatformYouTube, "hot", now, 500))
	warm := item(model.PlatformYouTube, "warm", now, 0)
	warm.Engagement = model.Engagement{Likes: 50, Comments: 30, Shares: 20}
	_, _ = c.Upsert(ctx, warm)

	records, _, err := c.Query(ctx, repository.ContentQuery{Sort: "popularity", Order: "desc"})
	assert.NoError(t, err)
	assert.Equal(t, "hot", records[0].Item.ExternalID)
	assert.Equal(t, "warm", records[1].Item.ExternalID)
	assert.Equal(t, "cold", records[2].Item.ExternalID)
}

func TestQuery_FiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(24 * time.Hour)
	now := time.Now()

	for i := 0; i < 30; i++ {
		it := item(model.PlatformYouTube, fmt.Sprintf("yt-%02d", i), now.Add(time.Duration(i)*time.Minute), 0)
		_, _ = c.Upsert(ctx, it)
	}
	reel := item(model.PlatformInstagram, "ig-1", now, 0)
	reel.ContentType = model.ContentTypeReel
	_, _ = c.Upsert(ctx, reel)

	records, total, err := c.Query(ctx, repository.ContentQuery{
		Platforms: []model.Platform{model.PlatformYouTube},
		Types:     []model.ContentType{model.ContentTypeVideo},
		Page:      2,
		PerPage:   10,
		Sort:      "date",
		Order:     "asc",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(30), total)
	assert.Len(t, records, 10)
	assert.Equal(t, "yt-10", records[0].Item.ExternalID)

	// page size clamps to 100, page clamps to 1
	records, _, err = c.Query(ctx, repository.ContentQuery{Page: 0, PerPage: 500})
	assert.NoError(t, err)
	assert.Len(t, records, 31)
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	c := cache.NewMemoryCache(time.Hour).WithClock(func() time.Time { return clock })

	_, _ = c.Upsert(ctx, item(model.PlatformYouTube, "old", base, 0))
	clock = base.Add(30 * time.Minute)
	_, _ = c.Upsert(ctx, item(model.PlatformYouTube, "fresh", base, 0))

	clock = base.Add(90 * time.Minute)
	// expired record is excluded from queries but still readable via Get
	records, total, err := c.Query(ctx, repository.ContentQuery{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "fresh", records[0].Item.ExternalID)

	rec, err := c.Get(ctx, model.ContentKey{Platform: model.PlatformYouTube, ExternalID: "old"})
	assert.NoError(t, err)
	assert.NotNil(t, rec, "reads never block on expired-but-present data")

	removed, err := c.ExpireStale(ctx, clock)
	assert.NoError(t, err)
	assert.Equal(t, 1, removed)

	rec, err = c.Get(ctx, model.ContentKey{Platform: model.PlatformYouTube, ExternalID: "old"})
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUpsert_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(24 * time.Hour)
	now := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				// half the writes share identities across workers
				id := fmt.Sprintf("shared-%d", i%50)
				if w%2 == 0 {
					id = fmt.Sprintf("w%d-%d", w, i)
				}
				_, err := c.Upsert(ctx, item(model.PlatformTikTok, id, now, int64(i)))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	_, total, err := c.Query(ctx, repository.ContentQuery{PerPage: 100})
	assert.NoError(t, err)
	// 4 even workers * 100 unique + 50 shared identities
	assert.Equal(t, int64(450), total)
}
