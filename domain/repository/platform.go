package repository

import (
	"context"
	"time"

	"content-hub/domain/model"
)

// FetchConfig narrows a platform content fetch
type FetchConfig struct {
	Types          []model.ContentType
	MaxResults     int64
	PublishedAfter time.Time
	Query          string
	// ContentID targets a single item (prefetch path); empty means list.
	ContentID string
}

// IPlatformAdapter is the capability interface every platform implements.
// Calls are quota-gated, retried per policy and return normalized items;
// malformed source items are dropped individually, never failing the batch.
type IPlatformAdapter interface {
	Platform() model.Platform
	FetchContent(ctx context.Context, cfg FetchConfig) ([]model.ContentItem, error)
	GetChannelInfo(ctx context.Context, channelID string) (*model.ChannelInfo, error)
	GetStreamStatus(ctx context.Context, streamID string) (*model.StreamStatus, error)
}

// IQuotaGate is the narrow quota view the adapters depend on
type IQuotaGate interface {
	// CheckQuota is the cheap pre-check before issuing a call.
	CheckQuota(platform model.Platform, units int64) bool
	// Consume charges units against the platform's daily budget. Charged per
	// attempt, not per success.
	Consume(ctx context.Context, platform model.Platform, units int64)
	// State returns the current snapshot for error reporting.
	State(platform model.Platform) model.QuotaState
}
