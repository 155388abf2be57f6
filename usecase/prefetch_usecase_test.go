package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-hub/domain/model"
	"content-hub/usecase"
)

type fakeWarmer struct {
	mu      sync.Mutex
	cached  map[model.ContentRef]bool
	fetched []model.ContentRef
}

func (w *fakeWarmer) PrefetchContent(ctx context.Context, ref model.ContentRef) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fetched = append(w.fetched, ref)
	return nil
}

func (w *fakeWarmer) IsCached(ctx context.Context, ref model.ContentRef) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cached[ref]
}

func (w *fakeWarmer) fetchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.fetched)
}

func ref(id string) model.ContentRef {
	return model.ContentRef{Platform: model.PlatformYouTube, Type: model.ContentTypeVideo, ID: id}
}

// seedViewing builds a history where every signal points at A and most at B:
// one stale C access, a burst in yesterday's next-hour bucket, and user-1 and
// user-2 alternating A/B today while user-0 only ever sees A (so the
// collaborative signal can recommend B to them).
func seedViewing(e *usecase.PrefetchEngine, now time.Time) {
	yesterday := now.Add(-24 * time.Hour).Truncate(time.Hour).Add(30*time.Minute + 35*time.Minute) // 15:05 yesterday

	// stale, lonely access far in the past
	e.RecordBehavior(model.BehaviorRecord{UserID: "user-0", Action: "view", Content: ref("C"), Timestamp: now.Add(-100 * time.Hour)})

	// yesterday, in the hour after now's hour-of-day
	e.RecordBehavior(model.BehaviorRecord{UserID: "user-0", Action: "view", Content: ref("A"), Timestamp: yesterday})
	for _, u := range []string{"user-1", "user-2"} {
		e.RecordBehavior(model.BehaviorRecord{UserID: u, Action: "view", Content: ref("A"), Timestamp: yesterday})
		e.RecordBehavior(model.BehaviorRecord{UserID: u, Action: "view", Content: ref("B"), Timestamp: yesterday.Add(time.Minute)})
	}

	// today: user-1 and user-2 bounce A→B, user-0 sticks to A
	at := now.Add(-25 * time.Minute)
	e.RecordBehavior(model.BehaviorRecord{UserID: "user-0", Action: "view", Content: ref("A"), Timestamp: at})
	e.RecordBehavior(model.BehaviorRecord{UserID: "user-0", Action: "view", Content: ref("A"), Timestamp: at.Add(time.Minute)})
	for _, u := range []string{"user-1", "user-2"} {
		t := at
		for i := 0; i < 4; i++ {
			e.RecordBehavior(model.BehaviorRecord{UserID: u, Action: "view", Content: ref("A"), Timestamp: t})
			t = t.Add(time.Minute)
			e.RecordBehavior(model.BehaviorRecord{UserID: u, Action: "view", Content: ref("B"), Timestamp: t})
			t = t.Add(time.Minute)
		}
	}
}

func TestPredict_ConfidenceFloor(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	e := usecase.NewPrefetchEngine(&fakeWarmer{}, usecase.PrefetchConfig{}).
		WithClock(func() time.Time { return now })

	seedViewing(e, now)
	preds := e.Predict()

	ids := make([]string, 0, len(preds))
	for _, p := range preds {
		ids = append(ids, p.Content.ID)
		assert.GreaterOrEqual(t, p.Confidence, 0.6)
		assert.Equal(t, "hybrid", p.Algorithm)
	}
	assert.Contains(t, ids, "A")
	assert.Contains(t, ids, "B")
	assert.NotContains(t, ids, "C", "weak signals must stay below the floor")
	assert.Equal(t, "A", preds[0].Content.ID, "A carries every signal and ranks first")
}

func TestPredict_StricterFloorFiltersMore(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	e := usecase.NewPrefetchEngine(&fakeWarmer{}, usecase.PrefetchConfig{MinConfidence: 0.7}).
		WithClock(func() time.Time { return now })

	seedViewing(e, now)
	preds := e.Predict()

	assert.Len(t, preds, 1)
	assert.Equal(t, "A", preds[0].Content.ID)
}

func TestPredict_Deterministic(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	a := usecase.NewPrefetchEngine(&fakeWarmer{}, usecase.PrefetchConfig{}).WithClock(clock)
	b := usecase.NewPrefetchEngine(&fakeWarmer{}, usecase.PrefetchConfig{}).WithClock(clock)
	seedViewing(a, now)
	seedViewing(b, now)

	assert.Equal(t, a.Predict(), b.Predict(), "identical input must give identical output")
}

func TestExecutePrefetch_BatchBoundAndCacheSkip(t *testing.T) {
	now := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	warmer := &fakeWarmer{cached: map[model.ContentRef]bool{ref("v-0"): true}}
	e := usecase.NewPrefetchEngine(warmer, usecase.PrefetchConfig{BatchSize: 2, MinConfidence: 0.3}).
		WithClock(func() time.Time { return now })

	// every user touches every item recently, so all but the last-viewed
	// item clear the lowered floor
	for u := 0; u < 3; u++ {
		for i := 0; i < 6; i++ {
			e.RecordBehavior(model.BehaviorRecord{
				UserID:    fmt.Sprintf("user-%d", u),
				Action:    "view",
				Content:   ref(fmt.Sprintf("v-%d", i)),
				Timestamp: now.Add(-time.Duration(i) * time.Minute),
			})
		}
	}

	issued := e.ExecutePrefetch(context.Background())

	assert.Equal(t, 2, issued)
	assert.Equal(t, 2, warmer.fetchedCount())
	for _, f := range warmer.fetched {
		assert.NotEqual(t, "v-0", f.ID, "cached items are never re-fetched")
	}
}

func TestExecutePrefetch_AccuracyLearnsFromHits(t *testing.T) {
	now := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	warmer := &fakeWarmer{}
	e := usecase.NewPrefetchEngine(warmer, usecase.PrefetchConfig{MinConfidence: 0.15, EvalWindow: 30 * time.Minute}).
		WithClock(func() time.Time { return now })

	accuracyOf := func(alg string) (float64, float64) {
		for _, m := range e.Models() {
			if m.Algorithm == alg {
				return m.Accuracy, m.Weight
			}
		}
		t.Fatalf("unknown algorithm %s", alg)
		return 0, 0
	}

	prev, _ := accuracyOf("frequency")
	assert.Equal(t, 0.5, prev)

	for i := 0; i < 10; i++ {
		e.RecordBehavior(model.BehaviorRecord{UserID: "u1", Action: "view", Content: ref("A"), Timestamp: now})
		e.ExecutePrefetch(context.Background())

		// the predicted item really is accessed, then the window elapses
		now = now.Add(5 * time.Minute)
		e.RecordBehavior(model.BehaviorRecord{UserID: "u1", Action: "view", Content: ref("A"), Timestamp: now})
		now = now.Add(30 * time.Minute)

		e.ExecutePrefetch(context.Background())
		acc, weight := accuracyOf("frequency")
		assert.Greater(t, acc, prev, "every confirmed hit must raise the EMA")
		assert.LessOrEqual(t, acc, 1.0)
		assert.InDelta(t, 2*acc, weight, 1e-9)
		assert.LessOrEqual(t, weight, 2.0)
		prev = acc
	}
	assert.Greater(t, prev, 0.85, "ten straight hits should push accuracy toward 1")
}

func TestExecutePrefetch_MissLowersAccuracy(t *testing.T) {
	now := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	e := usecase.NewPrefetchEngine(&fakeWarmer{}, usecase.PrefetchConfig{MinConfidence: 0.15, EvalWindow: 30 * time.Minute}).
		WithClock(func() time.Time { return now })

	e.RecordBehavior(model.BehaviorRecord{UserID: "u1", Action: "view", Content: ref("A"), Timestamp: now})
	e.ExecutePrefetch(context.Background())

	// nobody touches A before the window elapses
	now = now.Add(time.Hour)
	e.ExecutePrefetch(context.Background())

	for _, m := range e.Models() {
		if m.Algorithm == "frequency" {
			assert.Less(t, m.Accuracy, 0.5)
			assert.GreaterOrEqual(t, m.Weight, 0.1)
		}
	}
}
