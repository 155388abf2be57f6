package model

import "time"

// ContentRef is a plain value reference to a content item. It never points
// back into the cache; prefetch resolves it through the orchestrator.
type ContentRef struct {
	Platform Platform    `json:"platform"`
	Type     ContentType `json:"type"`
	ID       string      `json:"id"`
}

// BehaviorRecord is one observed client access event. Append-only, pruned to
// a bounded recent window by the prefetch engine.
type BehaviorRecord struct {
	UserID    string     `json:"user_id"`
	Action    string     `json:"action"`
	Content   ContentRef `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	SessionID string     `json:"session_id,omitempty"`
}

// Prediction is one algorithm's (or the hybrid's) output for a content key
type Prediction struct {
	Content    ContentRef `json:"content"`
	Confidence float64    `json:"confidence"`
	Reason     string     `json:"reason"`
	Algorithm  string     `json:"algorithm"`
}

// PredictionModel tracks one algorithm's online-learning state. Weight stays
// within [0.1, 2.0]; accuracy is an exponential moving average over observed
// hits.
type PredictionModel struct {
	Algorithm   string  `json:"algorithm"`
	Weight      float64 `json:"weight"`
	Accuracy    float64 `json:"accuracy"`
	Evaluations int64   `json:"evaluations"`
}
