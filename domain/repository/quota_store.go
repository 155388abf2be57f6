package repository

import (
	"context"
	"time"

	"content-hub/domain/model"
)

// IQuotaStore persists per-platform daily consumption counters so restarts do
// not forget spent budget. Implementations must keep Add atomic per platform.
type IQuotaStore interface {
	// Load returns today's consumed units for the platform.
	Load(ctx context.Context, platform model.Platform, day time.Time) (int64, error)
	// Add atomically increments today's counter and returns the new total.
	Add(ctx context.Context, platform model.Platform, day time.Time, units int64) (int64, error)
}
