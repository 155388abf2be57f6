package usecase

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/logger"
)

// IQuotaManager tracks, predicts and allocates the daily API budget per
// platform. It is the single gate in front of every platform call.
type IQuotaManager interface {
	repository.IQuotaGate
	States() []model.QuotaState
	PredictUsage(platform model.Platform, horizon time.Duration) int64
	AllocateByPriority(priorities map[model.Platform]float64) map[model.Platform]int64
	PlanMultiDay(platforms []model.Platform, days int) []model.QuotaDayPlan
}

// usage history kept for prediction
const historyWindow = 48 * time.Hour

type platformQuota struct {
	mu       sync.Mutex
	budget   int64
	consumed int64
	resetAt  time.Time
	history  []model.QuotaUsageSample
}

// QuotaManager holds one independently locked counter per platform, so
// concurrent adapters never double-spend budget and never contend across
// platforms.
type QuotaManager struct {
	platforms    map[model.Platform]*platformQuota
	safetyMargin float64
	store        repository.IQuotaStore // optional persistence
	now          func() time.Time
}

// NewQuotaManager builds a manager from per-platform daily budgets. The
// optional store seeds and persists today's counters across restarts.
func NewQuotaManager(budgets map[model.Platform]int64, safetyMargin float64, store repository.IQuotaStore) *QuotaManager {
	if safetyMargin <= 0 || safetyMargin >= 1 {
		safetyMargin = 0.1
	}
	m := &QuotaManager{
		platforms:    make(map[model.Platform]*platformQuota, len(budgets)),
		safetyMargin: safetyMargin,
		store:        store,
		now:          time.Now,
	}
	now := m.now()
	for platform, budget := range budgets {
		pq := &platformQuota{budget: budget, resetAt: nextUTCMidnight(now)}
		if store != nil {
			if consumed, err := store.Load(context.Background(), platform, now); err == nil {
				pq.consumed = consumed
			} else {
				logger.GetLogger().WithField("error", err).WithField("platform", platform).
					Warn("Quota store unavailable; starting from zero")
			}
		}
		m.platforms[platform] = pq
	}
	return m
}

// WithClock overrides the time source (fluent, for tests)
func (m *QuotaManager) WithClock(now func() time.Time) *QuotaManager {
	m.now = now
	for _, pq := range m.platforms {
		pq.resetAt = nextUTCMidnight(now())
	}
	return m
}

func nextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// rollIfDue resets the counter once the midnight boundary is crossed.
// Callers must hold pq.mu.
func (pq *platformQuota) rollIfDue(now time.Time) {
	if now.Before(pq.resetAt) {
		return
	}
	pq.consumed = 0
	pq.resetAt = nextUTCMidnight(now)
	pq.history = nil
}

// CheckQuota is the cheap pre-check before a call is issued
func (m *QuotaManager) CheckQuota(platform model.Platform, units int64) bool {
	pq, ok := m.platforms[platform]
	if !ok {
		return false
	}
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.rollIfDue(m.now())
	return pq.consumed+units <= pq.budget
}

// Consume charges units. Monotonic within the day; the counter may exceed
// the budget (the platform is then exhausted until reset), it never reverses.
func (m *QuotaManager) Consume(ctx context.Context, platform model.Platform, units int64) {
	pq, ok := m.platforms[platform]
	if !ok || units <= 0 {
		return
	}
	now := m.now()
	pq.mu.Lock()
	pq.rollIfDue(now)
	pq.consumed += units
	pq.history = append(pq.history, model.QuotaUsageSample{At: now, Consumed: units})
	pq.pruneHistory(now)
	pq.mu.Unlock()

	if m.store != nil {
		if _, err := m.store.Add(ctx, platform, now, units); err != nil {
			logger.GetLogger().WithField("error", err).WithField("platform", platform).
				Warn("Failed persisting quota consumption")
		}
	}
}

// pruneHistory drops samples older than the rolling window. Callers hold pq.mu.
func (pq *platformQuota) pruneHistory(now time.Time) {
	cutoff := now.Add(-historyWindow)
	i := 0
	for ; i < len(pq.history); i++ {
		if pq.history[i].At.After(cutoff) {
			break
		}
	}
	if i > 0 {
		pq.history = pq.history[i:]
	}
}

// State snapshots one platform
func (m *QuotaManager) State(platform model.Platform) model.QuotaState {
	pq, ok := m.platforms[platform]
	if !ok {
		return model.QuotaState{Platform: platform}
	}
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.rollIfDue(m.now())
	return model.QuotaState{
		Platform:      platform,
		DailyBudget:   pq.budget,
		ConsumedToday: pq.consumed,
		ResetAt:       pq.resetAt,
		Exhausted:     pq.consumed >= pq.budget,
	}
}

// States snapshots every platform in a fixed order
func (m *QuotaManager) States() []model.QuotaState {
	keys := make([]model.Platform, 0, len(m.platforms))
	for p := range m.platforms {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]model.QuotaState, 0, len(keys))
	for _, p := range keys {
		out = append(out, m.State(p))
	}
	return out
}

// PredictUsage extrapolates consumption over the horizon from the rolling
// per-hour rate observed in the history window.
func (m *QuotaManager) PredictUsage(platform model.Platform, horizon time.Duration) int64 {
	pq, ok := m.platforms[platform]
	if !ok || horizon <= 0 {
		return 0
	}
	now := m.now()
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.rollIfDue(now)
	if len(pq.history) == 0 {
		return 0
	}
	var total int64
	oldest := pq.history[0].At
	for _, s := range pq.history {
		total += s.Consumed
	}
	span := now.Sub(oldest)
	if span < time.Minute {
		span = time.Minute
	}
	ratePerHour := float64(total) / span.Hours()
	return int64(math.Ceil(ratePerHour * horizon.Hours()))
}

// AllocateByPriority splits the usable remaining budget (after the safety
// margin) across the given platforms proportionally to their priority
// weights, capping each share at that platform's own remaining units.
func (m *QuotaManager) AllocateByPriority(priorities map[model.Platform]float64) map[model.Platform]int64 {
	out := make(map[model.Platform]int64, len(priorities))
	var sumWeights float64
	var pool int64
	remaining := make(map[model.Platform]int64, len(priorities))
	for platform, w := range priorities {
		if w <= 0 {
			continue
		}
		st := m.State(platform)
		r := int64(float64(st.Remaining()) * (1 - m.safetyMargin))
		remaining[platform] = r
		pool += r
		sumWeights += w
	}
	if sumWeights == 0 || pool == 0 {
		for platform := range priorities {
			out[platform] = 0
		}
		return out
	}
	for platform, w := range priorities {
		if w <= 0 {
			out[platform] = 0
			continue
		}
		share := int64(float64(pool) * w / sumWeights)
		if limit := remaining[platform]; share > limit {
			share = limit
		}
		out[platform] = share
	}
	return out
}

// PlanMultiDay projects the next days assuming the current consumption trend
// continues; a day is feasible when every platform's projected usage fits
// inside its budget minus the safety margin. Used to decide whether a full
// backfill is safe today or should be deferred.
func (m *QuotaManager) PlanMultiDay(platforms []model.Platform, days int) []model.QuotaDayPlan {
	if days <= 0 {
		return nil
	}
	now := m.now()
	plans := make([]model.QuotaDayPlan, 0, days)
	projected := make(map[model.Platform]int64, len(platforms))
	budgets := make(map[model.Platform]int64, len(platforms))
	for _, p := range platforms {
		st := m.State(p)
		budgets[p] = st.DailyBudget
		projected[p] = m.projectDailyUsage(p, now, st)
	}
	day := now.UTC().Truncate(24 * time.Hour)
	for i := 0; i < days; i++ {
		plan := model.QuotaDayPlan{
			Day:           day.Add(time.Duration(i) * 24 * time.Hour),
			ExpectedUsage: make(map[model.Platform]int64, len(platforms)),
			Budgets:       make(map[model.Platform]int64, len(platforms)),
			Headroom:      make(map[model.Platform]int64, len(platforms)),
			Feasible:      true,
		}
		for _, p := range platforms {
			usable := int64(float64(budgets[p]) * (1 - m.safetyMargin))
			plan.ExpectedUsage[p] = projected[p]
			plan.Budgets[p] = budgets[p]
			head := usable - projected[p]
			if head < 0 {
				head = 0
				plan.Feasible = false
			}
			plan.Headroom[p] = head
		}
		plans = append(plans, plan)
	}
	return plans
}

// projectDailyUsage scales today's consumption to a full day
func (m *QuotaManager) projectDailyUsage(platform model.Platform, now time.Time, st model.QuotaState) int64 {
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	elapsed := u.Sub(midnight)
	if elapsed < time.Hour {
		// too early to extrapolate; fall back to the rolling-rate predictor
		return m.PredictUsage(platform, 24*time.Hour)
	}
	fraction := float64(elapsed) / float64(24*time.Hour)
	return int64(math.Ceil(float64(st.ConsumedToday) / fraction))
}
