package platform

import (
	"context"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/retry"
)

// Operation names a quota-charged platform call class
type Operation string

const (
	OpFetchContent Operation = "fetch_content"
	OpChannelInfo  Operation = "channel_info"
	OpStreamStatus Operation = "stream_status"
)

// API is the raw per-platform caller. Implementations live under
// infrastructure/clients and only talk to the network and normalize
// responses; gating, retries and charging happen here.
type API interface {
	Platform() model.Platform
	CostFor(op Operation) int64
	FetchContent(ctx context.Context, cfg repository.FetchConfig) ([]model.ContentItem, error)
	GetChannelInfo(ctx context.Context, channelID string) (*model.ChannelInfo, error)
	GetStreamStatus(ctx context.Context, streamID string) (*model.StreamStatus, error)
}

// Adapter implements repository.IPlatformAdapter around a raw API: every call
// pre-checks the quota gate (failing fast with QuotaExhaustedError), runs the
// network call through the retry executor under a per-call timeout, and
// charges the operation's estimated cost once per attempt, success or not.
type Adapter struct {
	api     API
	quota   repository.IQuotaGate
	retry   *retry.Executor
	timeout time.Duration
}

func NewAdapter(api API, quota repository.IQuotaGate, executor *retry.Executor, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Adapter{api: api, quota: quota, retry: executor, timeout: timeout}
}

func (a *Adapter) Platform() model.Platform { return a.api.Platform() }

func (a *Adapter) gate(op Operation) (int64, error) {
	cost := a.api.CostFor(op)
	if !a.quota.CheckQuota(a.api.Platform(), cost) {
		st := a.quota.State(a.api.Platform())
		return 0, &model.QuotaExhaustedError{Platform: a.api.Platform(), ResetAt: st.ResetAt}
	}
	return cost, nil
}

func (a *Adapter) FetchContent(ctx context.Context, cfg repository.FetchConfig) ([]model.ContentItem, error) {
	cost, err := a.gate(OpFetchContent)
	if err != nil {
		return nil, err
	}
	return retry.Execute(ctx, a.retry, func() ([]model.ContentItem, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		a.quota.Consume(callCtx, a.api.Platform(), cost)
		return a.api.FetchContent(callCtx, cfg)
	})
}

func (a *Adapter) GetChannelInfo(ctx context.Context, channelID string) (*model.ChannelInfo, error) {
	cost, err := a.gate(OpChannelInfo)
	if err != nil {
		return nil, err
	}
	return retry.Execute(ctx, a.retry, func() (*model.ChannelInfo, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		a.quota.Consume(callCtx, a.api.Platform(), cost)
		return a.api.GetChannelInfo(callCtx, channelID)
	})
}

func (a *Adapter) GetStreamStatus(ctx context.Context, streamID string) (*model.StreamStatus, error) {
	cost, err := a.gate(OpStreamStatus)
	if err != nil {
		return nil, err
	}
	return retry.Execute(ctx, a.retry, func() (*model.StreamStatus, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		a.quota.Consume(callCtx, a.api.Platform(), cost)
		return a.api.GetStreamStatus(callCtx, streamID)
	})
}
