package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"content-hub/domain/dto"
	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/logger"
)

// IFeedService orchestrates multi-platform fetches into the unified feed
type IFeedService interface {
	GetFeed(ctx context.Context, req dto.FeedRequest) (*dto.FeedResponse, error)
	RefreshAll(ctx context.Context)
	PrefetchContent(ctx context.Context, ref model.ContentRef) error
	IsCached(ctx context.Context, ref model.ContentRef) bool
	GetChannelInfo(ctx context.Context, platform model.Platform, channelID string) (*model.ChannelInfo, error)
	GetStreamStatus(ctx context.Context, platform model.Platform, streamID string) (*model.StreamStatus, error)
}

// FeedService fans fetches out across platform adapters in bounded batches
// and aggregates the results through the content cache. One slow or failing
// platform never takes the feed down.
type FeedService struct {
	adapters      map[model.Platform]repository.IPlatformAdapter
	cache         repository.IContentCache
	maxConcurrent int
	softTTL       time.Duration
	broadcaster   func([]model.ContentItem)
	now           func() time.Time

	mu         sync.Mutex
	refreshing map[model.Platform]bool
}

func NewFeedService(adapters map[model.Platform]repository.IPlatformAdapter, cache repository.IContentCache, maxConcurrent int, softTTL time.Duration) *FeedService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxConcurrent > 10 {
		maxConcurrent = 10
	}
	return &FeedService{
		adapters:      adapters,
		cache:         cache,
		maxConcurrent: maxConcurrent,
		softTTL:       softTTL,
		now:           time.Now,
		refreshing:    make(map[model.Platform]bool),
	}
}

// WithBroadcaster registers the callback invoked with newly cached items
// (fluent). The notification dispatcher hangs off this hook.
func (s *FeedService) WithBroadcaster(fn func([]model.ContentItem)) *FeedService {
	s.broadcaster = fn
	return s
}

// WithClock overrides the time source (fluent, for tests)
func (s *FeedService) WithClock(now func() time.Time) *FeedService {
	s.now = now
	return s
}

// GetFeed serves the aggregated feed. A cache that can fill the requested
// page short-circuits the network; a soft-stale cache is served immediately
// while one background refresh per platform runs; an underfilled or
// force-refreshed feed fetches live.
func (s *FeedService) GetFeed(ctx context.Context, req dto.FeedRequest) (*dto.FeedResponse, error) {
	started := s.now()

	platforms, err := s.resolvePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}
	for _, t := range req.Types {
		if !t.IsValid() {
			return nil, &model.ValidationError{Field: "types", Message: "unknown content type: " + string(t)}
		}
	}

	q := repository.ContentQuery{
		Platforms: platforms,
		Types:     req.Types,
		Page:      req.Page,
		PerPage:   req.PerPage,
		Sort:      req.Sort,
		Order:     req.Order,
	}

	fetchErrors := map[string]string{}
	fromCache := false
	fetched := 0

	if !req.ForceRefresh {
		records, total, err := s.cache.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		// A page the cache cannot fill on its own still consults the network.
		if total >= int64(clampPerPage(q.PerPage)) {
			fromCache = true
			s.refreshStaleAsync(platforms, records)
			return s.assemble(ctx, q, platforms, fetchErrors, fromCache, fetched, started)
		}
	}

	results, errs := s.fetchAll(ctx, platforms, repository.FetchConfig{Types: req.Types})
	for p, msg := range errs {
		fetchErrors[string(p)] = msg
	}
	var all []model.ContentItem
	for _, items := range results {
		all = append(all, items...)
		fetched += len(items)
	}
	if len(all) > 0 {
		created, err := s.cache.UpsertBatch(ctx, all)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed caching fetched items")
		}
		s.broadcast(created)
	}

	return s.assemble(ctx, q, platforms, fetchErrors, fromCache, fetched, started)
}

// resolvePlatforms validates the request and falls back to every configured
// platform when none are named. Output order is fixed for determinism.
func (s *FeedService) resolvePlatforms(requested []model.Platform) ([]model.Platform, error) {
	if len(requested) == 0 {
		out := make([]model.Platform, 0, len(s.adapters))
		for p := range s.adapters {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out, nil
	}
	seen := make(map[model.Platform]struct{}, len(requested))
	out := make([]model.Platform, 0, len(requested))
	for _, p := range requested {
		if !p.IsValid() {
			return nil, &model.ValidationError{Field: "platforms", Message: "unknown platform: " + string(p)}
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// fetchAll runs one fetch per platform in batches of maxConcurrent. Failures
// are isolated per platform: each batch slot reports into its own result or
// error slot and nothing cancels siblings.
func (s *FeedService) fetchAll(ctx context.Context, platforms []model.Platform, cfg repository.FetchConfig) (map[model.Platform][]model.ContentItem, map[model.Platform]string) {
	results := make(map[model.Platform][]model.ContentItem, len(platforms))
	errs := make(map[model.Platform]string)
	var mu sync.Mutex

	for start := 0; start < len(platforms); start += s.maxConcurrent {
		end := start + s.maxConcurrent
		if end > len(platforms) {
			end = len(platforms)
		}
		var wg sync.WaitGroup
		for _, p := range platforms[start:end] {
			adapter, ok := s.adapters[p]
			if !ok {
				mu.Lock()
				errs[p] = "platform not configured"
				mu.Unlock()
				continue
			}
			wg.Add(1)
			go func(p model.Platform, adapter repository.IPlatformAdapter) {
				defer wg.Done()
				items, err := adapter.FetchContent(ctx, cfg)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					logger.GetLogger().WithField("platform", p).WithField("error", err).
						Warn("Platform fetch failed")
					errs[p] = err.Error()
					return
				}
				results[p] = items
			}(p, adapter)
		}
		wg.Wait()
	}
	return results, errs
}

// refreshStaleAsync spawns at most one background refresh per soft-stale
// platform; concurrent feed reads share the in-flight refresh.
func (s *FeedService) refreshStaleAsync(platforms []model.Platform, records []model.CacheRecord) {
	now := s.now()
	stale := make(map[model.Platform]bool)
	for i := range records {
		if records[i].StaleAfter(s.softTTL, now) {
			stale[records[i].Item.Platform] = true
		}
	}
	for _, p := range platforms {
		if !stale[p] {
			continue
		}
		adapter, ok := s.adapters[p]
		if !ok {
			continue
		}
		s.mu.Lock()
		if s.refreshing[p] {
			s.mu.Unlock()
			continue
		}
		s.refreshing[p] = true
		s.mu.Unlock()

		go func(p model.Platform, adapter repository.IPlatformAdapter) {
			defer func() {
				s.mu.Lock()
				s.refreshing[p] = false
				s.mu.Unlock()
			}()
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			items, err := adapter.FetchContent(ctx, repository.FetchConfig{})
			if err != nil {
				logger.GetLogger().WithField("platform", p).WithField("error", err).
					Warn("Background refresh failed")
				return
			}
			created, err := s.cache.UpsertBatch(ctx, items)
			if err != nil {
				logger.GetLogger().WithField("error", err).Error("Failed caching refreshed items")
				return
			}
			s.broadcast(created)
		}(p, adapter)
	}
}

// assemble builds the response page from the cache so sorting and pagination
// are uniform regardless of which platforms answered live.
func (s *FeedService) assemble(ctx context.Context, q repository.ContentQuery, platforms []model.Platform, fetchErrors map[string]string, fromCache bool, fetched int, started time.Time) (*dto.FeedResponse, error) {
	records, total, err := s.cache.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	items := make([]model.ContentItem, 0, len(records))
	for i := range records {
		items = append(items, records[i].Item)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := clampPerPage(q.PerPage)
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	status := "success"
	if len(fetchErrors) > 0 && len(fetchErrors) >= len(platforms) && !fromCache {
		status = "error"
	}
	return &dto.FeedResponse{
		Status: status,
		Items:  items,
		Errors: fetchErrors,
		Pagination: dto.Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
		Meta: dto.FeedMeta{
			FromCache:   fromCache,
			Fetched:     fetched,
			Platforms:   platforms,
			GeneratedAt: s.now(),
			ElapsedMs:   s.now().Sub(started).Milliseconds(),
		},
	}, nil
}

func clampPerPage(perPage int) int {
	if perPage < 1 {
		return 20
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}

func (s *FeedService) broadcast(created []model.ContentItem) {
	if s.broadcaster == nil || len(created) == 0 {
		return
	}
	s.broadcaster(created)
}

// RefreshAll force-fetches every configured platform; the periodic refresh
// ticker drives this.
func (s *FeedService) RefreshAll(ctx context.Context) {
	platforms, _ := s.resolvePlatforms(nil)
	results, errs := s.fetchAll(ctx, platforms, repository.FetchConfig{})
	var all []model.ContentItem
	for _, items := range results {
		all = append(all, items...)
	}
	if len(all) > 0 {
		created, err := s.cache.UpsertBatch(ctx, all)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed caching refreshed items")
		}
		s.broadcast(created)
	}
	logger.GetLogger().WithField("platforms", len(platforms)).WithField("items", len(all)).
		WithField("failures", len(errs)).Info("Feed refresh cycle finished")
}

// PrefetchContent resolves one predicted item through its platform adapter
// and warms the cache with it.
func (s *FeedService) PrefetchContent(ctx context.Context, ref model.ContentRef) error {
	adapter, ok := s.adapters[ref.Platform]
	if !ok {
		return &model.ValidationError{Field: "platform", Message: "platform not configured: " + string(ref.Platform)}
	}
	items, err := adapter.FetchContent(ctx, repository.FetchConfig{ContentID: ref.ID})
	if err != nil {
		return err
	}
	created, err := s.cache.UpsertBatch(ctx, items)
	if err != nil {
		return err
	}
	s.broadcast(created)
	return nil
}

// IsCached reports whether the referenced item is present and not hard-expired
func (s *FeedService) IsCached(ctx context.Context, ref model.ContentRef) bool {
	rec, err := s.cache.Get(ctx, model.ContentKey{Platform: ref.Platform, ExternalID: ref.ID})
	if err != nil || rec == nil {
		return false
	}
	return !s.now().After(rec.ExpiresAt)
}

func (s *FeedService) GetChannelInfo(ctx context.Context, platform model.Platform, channelID string) (*model.ChannelInfo, error) {
	adapter, ok := s.adapters[platform]
	if !ok {
		return nil, &model.ValidationError{Field: "platform", Message: "platform not configured: " + string(platform)}
	}
	return adapter.GetChannelInfo(ctx, channelID)
}

func (s *FeedService) GetStreamStatus(ctx context.Context, platform model.Platform, streamID string) (*model.StreamStatus, error) {
	adapter, ok := s.adapters[platform]
	if !ok {
		return nil, &model.ValidationError{Field: "platform", Message: "platform not configured: " + string(platform)}
	}
	return adapter.GetStreamStatus(ctx, streamID)
}
