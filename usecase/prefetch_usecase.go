package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"content-hub/domain/model"
	"content-hub/infrastructure/logger"
)

// IContentWarmer is the slice of the feed orchestrator the prefetch engine
// needs: resolve one item and check cache presence.
type IContentWarmer interface {
	PrefetchContent(ctx context.Context, ref model.ContentRef) error
	IsCached(ctx context.Context, ref model.ContentRef) bool
}

// IPrefetchEngine predicts near-future content accesses from behavior history
// and warms the cache ahead of them.
type IPrefetchEngine interface {
	RecordBehavior(rec model.BehaviorRecord)
	Predict() []model.Prediction
	ExecutePrefetch(ctx context.Context) int
	Models() []model.PredictionModel
}

// PrefetchConfig tunes the engine; zero values fall back to defaults
type PrefetchConfig struct {
	MinConfidence  float64
	BatchSize      int
	HistoryLimit   int
	LearningWindow time.Duration
	EvalWindow     time.Duration
}

type pendingPrediction struct {
	content model.ContentRef
	madeAt  time.Time
	scores  map[string]float64
}

const emaAlpha = 0.2

// PrefetchEngine combines five scoring algorithms into hybrid predictions and
// learns each algorithm's weight online from observed hits.
type PrefetchEngine struct {
	warmer IContentWarmer
	cfg    PrefetchConfig

	mu      sync.Mutex
	history []model.BehaviorRecord
	models  map[string]*model.PredictionModel
	pending []pendingPrediction
	now     func() time.Time
}

func NewPrefetchEngine(warmer IContentWarmer, cfg PrefetchConfig) *PrefetchEngine {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.6
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 1000
	}
	if cfg.LearningWindow <= 0 {
		cfg.LearningWindow = 168 * time.Hour
	}
	if cfg.EvalWindow <= 0 {
		cfg.EvalWindow = time.Hour
	}
	e := &PrefetchEngine{
		warmer: warmer,
		cfg:    cfg,
		models: make(map[string]*model.PredictionModel, len(allAlgorithms)),
		now:    time.Now,
	}
	for _, name := range allAlgorithms {
		e.models[name] = &model.PredictionModel{Algorithm: name, Weight: 1.0, Accuracy: 0.5}
	}
	return e
}

// WithClock overrides the time source (fluent, for tests)
func (e *PrefetchEngine) WithClock(now func() time.Time) *PrefetchEngine {
	e.now = now
	return e
}

// RecordBehavior appends one access event. History is bounded: events older
// than the learning window and beyond the size limit are dropped oldest-first.
func (e *PrefetchEngine) RecordBehavior(rec model.BehaviorRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = e.now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, rec)
	e.pruneHistory()
}

// pruneHistory enforces the window and size bounds. Callers hold e.mu.
func (e *PrefetchEngine) pruneHistory() {
	cutoff := e.now().Add(-e.cfg.LearningWindow)
	i := 0
	for ; i < len(e.history); i++ {
		if e.history[i].Timestamp.After(cutoff) {
			break
		}
	}
	if i > 0 {
		e.history = e.history[i:]
	}
	if overflow := len(e.history) - e.cfg.HistoryLimit; overflow > 0 {
		e.history = e.history[overflow:]
	}
}

// Predict returns the hybrid predictions at or above the confidence floor,
// highest confidence first. Equal inputs always produce equal outputs.
func (e *PrefetchEngine) Predict() []model.Prediction {
	e.mu.Lock()
	defer e.mu.Unlock()
	preds, _ := e.predictLocked()
	return preds
}

func (e *PrefetchEngine) predictLocked() ([]model.Prediction, map[model.ContentRef]map[string]float64) {
	e.pruneHistory()
	now := e.now()
	st := deriveStats(e.history)
	scores := scoreAll(st, now)

	candidateSet := make(map[model.ContentRef]struct{})
	for _, m := range scores {
		for ref := range m {
			candidateSet[ref] = struct{}{}
		}
	}
	candidates := make([]model.ContentRef, 0, len(candidateSet))
	for ref := range candidateSet {
		candidates = append(candidates, ref)
	}
	sort.Slice(candidates, func(i, j int) bool { return lessRef(candidates[i], candidates[j]) })

	var totalWeight float64
	for _, name := range allAlgorithms {
		totalWeight += e.models[name].Weight
	}

	perRefScores := make(map[model.ContentRef]map[string]float64, len(candidates))
	preds := make([]model.Prediction, 0, len(candidates))
	for _, ref := range candidates {
		var weighted float64
		var topAlg string
		var topScore float64
		refScores := make(map[string]float64, len(allAlgorithms))
		for _, name := range allAlgorithms {
			s := scores[name][ref]
			refScores[name] = s
			weighted += e.models[name].Weight * s
			if s > topScore {
				topScore = s
				topAlg = name
			}
		}
		confidence := 0.0
		if totalWeight > 0 {
			confidence = weighted / totalWeight
		}
		if confidence < e.cfg.MinConfidence {
			continue
		}
		perRefScores[ref] = refScores
		preds = append(preds, model.Prediction{
			Content:    ref,
			Confidence: confidence,
			Reason:     "strongest signal: " + topAlg,
			Algorithm:  "hybrid",
		})
	}
	sort.SliceStable(preds, func(i, j int) bool {
		if preds[i].Confidence != preds[j].Confidence {
			return preds[i].Confidence > preds[j].Confidence
		}
		return lessRef(preds[i].Content, preds[j].Content)
	})
	return preds, perRefScores
}

func lessRef(a, b model.ContentRef) bool {
	if a.Platform != b.Platform {
		return a.Platform < b.Platform
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.ID < b.ID
}

// ExecutePrefetch runs one cycle: settle due predictions against observed
// accesses, predict, and warm up to BatchSize uncached items. Returns the
// number of items prefetched.
func (e *PrefetchEngine) ExecutePrefetch(ctx context.Context) int {
	e.mu.Lock()
	e.evaluatePendingLocked()
	preds, refScores := e.predictLocked()
	e.mu.Unlock()

	issued := 0
	attempted := make(map[model.ContentRef]struct{})
	for _, pred := range preds {
		if issued >= e.cfg.BatchSize {
			break
		}
		ref := pred.Content
		if _, dup := attempted[ref]; dup {
			continue
		}
		attempted[ref] = struct{}{}
		if e.warmer.IsCached(ctx, ref) {
			continue
		}
		if err := e.warmer.PrefetchContent(ctx, ref); err != nil {
			logger.GetLogger().WithField("content", ref.ID).WithField("platform", ref.Platform).
				WithField("error", err).Warn("Prefetch failed")
			continue
		}
		issued++
		e.mu.Lock()
		e.pending = append(e.pending, pendingPrediction{
			content: ref,
			madeAt:  e.now(),
			scores:  refScores[ref],
		})
		e.mu.Unlock()
	}
	if issued > 0 {
		logger.GetLogger().WithField("count", issued).Info("Prefetch cycle warmed items")
	}
	return issued
}

// evaluatePendingLocked settles predictions older than the evaluation window:
// a hit is an observed access after the prediction was made. Every algorithm
// that contributed a signal has its accuracy EMA and weight updated.
func (e *PrefetchEngine) evaluatePendingLocked() {
	now := e.now()
	remaining := e.pending[:0]
	for _, p := range e.pending {
		if now.Sub(p.madeAt) < e.cfg.EvalWindow {
			remaining = append(remaining, p)
			continue
		}
		hit := 0.0
		for i := len(e.history) - 1; i >= 0; i-- {
			if !e.history[i].Timestamp.After(p.madeAt) {
				break
			}
			if e.history[i].Content == p.content {
				hit = 1.0
				break
			}
		}
		for _, name := range allAlgorithms {
			if p.scores[name] <= 0 {
				continue
			}
			m := e.models[name]
			m.Accuracy = (1-emaAlpha)*m.Accuracy + emaAlpha*hit
			m.Evaluations++
			m.Weight = clampWeight(2 * m.Accuracy)
		}
	}
	e.pending = remaining
}

func clampWeight(w float64) float64 {
	if w < 0.1 {
		return 0.1
	}
	if w > 2.0 {
		return 2.0
	}
	return w
}

// Models snapshots the per-algorithm learning state in a fixed order
func (e *PrefetchEngine) Models() []model.PredictionModel {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.PredictionModel, 0, len(allAlgorithms))
	for _, name := range allAlgorithms {
		out = append(out, *e.models[name])
	}
	return out
}
