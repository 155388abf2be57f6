package model

import "time"

// QuotaState is a snapshot of one platform's daily budget
type QuotaState struct {
	Platform      Platform  `json:"platform"`
	DailyBudget   int64     `json:"daily_budget"`
	ConsumedToday int64     `json:"consumed_today"`
	ResetAt       time.Time `json:"reset_at"`
	Exhausted     bool      `json:"exhausted"`
}

// Remaining returns the units left today, never negative
func (s QuotaState) Remaining() int64 {
	if s.ConsumedToday >= s.DailyBudget {
		return 0
	}
	return s.DailyBudget - s.ConsumedToday
}

// QuotaUsageSample is one point of the rolling consumption history
type QuotaUsageSample struct {
	At       time.Time `json:"at"`
	Consumed int64     `json:"consumed"`
}

// QuotaDayPlan is one day of a multi-day budget forecast
type QuotaDayPlan struct {
	Day           time.Time          `json:"day"`
	ExpectedUsage map[Platform]int64 `json:"expected_usage"`
	Feasible      bool               `json:"feasible"`
	Budgets       map[Platform]int64 `json:"budgets"`
	Headroom      map[Platform]int64 `json:"headroom"`
}
