package usecase

import (
	"sort"
	"time"

	"content-hub/domain/model"
)

// Algorithm names. Every name has exactly one PredictionModel tracking its
// online accuracy and hybrid weight.
const (
	algFrequency     = "frequency"
	algTimePattern   = "time_pattern"
	algSimilarity    = "content_similarity"
	algSequence      = "behavior_sequence"
	algCollaborative = "collaborative"
)

var allAlgorithms = []string{algFrequency, algTimePattern, algSimilarity, algSequence, algCollaborative}

// accessStats is the per-cycle aggregate derived from the behavior history.
// Algorithms only read it, so one derivation serves all five.
type accessStats struct {
	counts      map[model.ContentRef]int
	users       map[model.ContentRef]map[string]struct{}
	byUser      map[string]map[model.ContentRef]struct{}
	hourly      map[model.ContentRef]*[24]int
	maxHourly   [24]int
	transitions map[model.ContentRef]map[model.ContentRef]int
	lastByUser  map[string]model.ContentRef
	maxCount    int
}

func deriveStats(history []model.BehaviorRecord) *accessStats {
	st := &accessStats{
		counts:      make(map[model.ContentRef]int),
		users:       make(map[model.ContentRef]map[string]struct{}),
		byUser:      make(map[string]map[model.ContentRef]struct{}),
		hourly:      make(map[model.ContentRef]*[24]int),
		transitions: make(map[model.ContentRef]map[model.ContentRef]int),
		lastByUser:  make(map[string]model.ContentRef),
	}
	for _, rec := range history {
		ref := rec.Content
		st.counts[ref]++
		if st.counts[ref] > st.maxCount {
			st.maxCount = st.counts[ref]
		}
		if st.users[ref] == nil {
			st.users[ref] = make(map[string]struct{})
		}
		st.users[ref][rec.UserID] = struct{}{}
		if st.byUser[rec.UserID] == nil {
			st.byUser[rec.UserID] = make(map[model.ContentRef]struct{})
		}
		st.byUser[rec.UserID][ref] = struct{}{}

		h := rec.Timestamp.UTC().Hour()
		if st.hourly[ref] == nil {
			st.hourly[ref] = &[24]int{}
		}
		st.hourly[ref][h]++
		if st.hourly[ref][h] > st.maxHourly[h] {
			st.maxHourly[h] = st.hourly[ref][h]
		}

		if prev, ok := st.lastByUser[rec.UserID]; ok && prev != ref {
			if st.transitions[prev] == nil {
				st.transitions[prev] = make(map[model.ContentRef]int)
			}
			st.transitions[prev][ref]++
		}
		st.lastByUser[rec.UserID] = ref
	}
	return st
}

// jaccard is |a∩b| / |a∪b| over two user sets
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// scoreFrequency favors the most accessed items: count relative to the
// hottest item, capped at 1.
func scoreFrequency(st *accessStats) map[model.ContentRef]float64 {
	out := make(map[model.ContentRef]float64, len(st.counts))
	if st.maxCount == 0 {
		return out
	}
	for ref, n := range st.counts {
		out[ref] = float64(n) / float64(st.maxCount)
	}
	return out
}

// scoreTimePattern favors items historically accessed in the upcoming
// hour-of-day bucket.
func scoreTimePattern(st *accessStats, now time.Time) map[model.ContentRef]float64 {
	out := make(map[model.ContentRef]float64, len(st.hourly))
	h := (now.UTC().Hour() + 1) % 24
	if st.maxHourly[h] == 0 {
		return out
	}
	for ref, buckets := range st.hourly {
		if buckets[h] > 0 {
			out[ref] = float64(buckets[h]) / float64(st.maxHourly[h])
		}
	}
	return out
}

// scoreSimilarity favors items co-accessed with what was just viewed: the
// best audience overlap between the candidate and any user's latest
// same-type access.
func scoreSimilarity(st *accessStats) map[model.ContentRef]float64 {
	recent := make(map[model.ContentRef]struct{}, len(st.lastByUser))
	for _, ref := range st.lastByUser {
		recent[ref] = struct{}{}
	}
	out := make(map[model.ContentRef]float64)
	for candidate := range st.counts {
		best := 0.0
		for viewed := range recent {
			if viewed == candidate || viewed.Type != candidate.Type {
				continue
			}
			if sim := jaccard(st.users[candidate], st.users[viewed]); sim > best {
				best = sim
			}
		}
		if best > 0 {
			out[candidate] = best
		}
	}
	return out
}

// scoreSequence predicts the successors of each user's latest access from
// the observed transition counts.
func scoreSequence(st *accessStats) map[model.ContentRef]float64 {
	out := make(map[model.ContentRef]float64)
	users := make([]string, 0, len(st.lastByUser))
	for u := range st.lastByUser {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		prev := st.lastByUser[u]
		successors := st.transitions[prev]
		if len(successors) == 0 {
			continue
		}
		var total int
		for _, n := range successors {
			total += n
		}
		for ref, n := range successors {
			score := float64(n) / float64(total)
			if score > out[ref] {
				out[ref] = score
			}
		}
	}
	return out
}

// scoreCollaborative recommends, for each user, what their most similar
// other user accessed and they have not, scored by that user-to-user
// Jaccard similarity.
func scoreCollaborative(st *accessStats) map[model.ContentRef]float64 {
	out := make(map[model.ContentRef]float64)
	users := make([]string, 0, len(st.byUser))
	for u := range st.byUser {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		var bestUser string
		best := 0.0
		for _, v := range users {
			if v == u {
				continue
			}
			sim := userJaccard(st.byUser[u], st.byUser[v])
			if sim > best {
				best = sim
				bestUser = v
			}
		}
		if best == 0 {
			continue
		}
		for ref := range st.byUser[bestUser] {
			if _, seen := st.byUser[u][ref]; seen {
				continue
			}
			if best > out[ref] {
				out[ref] = best
			}
		}
	}
	return out
}

// userJaccard is |a∩b| / |a∪b| over two content sets
func userJaccard(a, b map[model.ContentRef]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// scoreAll runs every algorithm over the stats and returns per-algorithm
// score maps keyed by algorithm name.
func scoreAll(st *accessStats, now time.Time) map[string]map[model.ContentRef]float64 {
	return map[string]map[model.ContentRef]float64{
		algFrequency:     scoreFrequency(st),
		algTimePattern:   scoreTimePattern(st, now),
		algSimilarity:    scoreSimilarity(st),
		algSequence:      scoreSequence(st),
		algCollaborative: scoreCollaborative(st),
	}
}
