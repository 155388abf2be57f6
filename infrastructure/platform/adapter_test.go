package platform_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/platform"
	"content-hub/infrastructure/retry"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    int
	failWith error
	items    []model.ContentItem
}

func (f *fakeAPI) Platform() model.Platform            { return model.PlatformYouTube }
func (f *fakeAPI) CostFor(op platform.Operation) int64 { return 100 }
func (f *fakeAPI) FetchContent(ctx context.Context, cfg repository.FetchConfig) ([]model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.items, nil
}
func (f *fakeAPI) GetChannelInfo(ctx context.Context, id string) (*model.ChannelInfo, error) {
	return &model.ChannelInfo{ID: id, Platform: model.PlatformYouTube}, nil
}
func (f *fakeAPI) GetStreamStatus(ctx context.Context, id string) (*model.StreamStatus, error) {
	return &model.StreamStatus{StreamID: id, Platform: model.PlatformYouTube, Live: true}, nil
}

type fakeGate struct {
	mu       sync.Mutex
	allow    bool
	consumed int64
}

func (g *fakeGate) CheckQuota(p model.Platform, units int64) bool { return g.allow }
func (g *fakeGate) Consume(ctx context.Context, p model.Platform, units int64) {
	g.mu.Lock()
	g.consumed += units
	g.mu.Unlock()
}
func (g *fakeGate) State(p model.Platform) model.QuotaState {
	return model.QuotaState{Platform: p, DailyBudget: 100, ConsumedToday: 100, ResetAt: time.Now().Add(time.Hour)}
}

func instantExecutor() *retry.Executor {
	return retry.NewExecutor(retry.Policy{BaseDelay: time.Nanosecond})
}

func TestFetchContent_QuotaExhaustedFailsFast(t *testing.T) {
	api := &fakeAPI{}
	gate := &fakeGate{allow: false}
	a := platform.NewAdapter(api, gate, instantExecutor(), time.Second)

	_, err := a.FetchContent(context.Background(), repository.FetchConfig{})

	var qe *model.QuotaExhaustedError
	assert.True(t, errors.As(err, &qe))
	assert.Equal(t, model.PlatformYouTube, qe.Platform)
	assert.Equal(t, 0, api.calls, "exhausted quota must not reach the network")
	assert.Equal(t, int64(0), gate.consumed)
	assert.False(t, model.IsRetryable(err), "quota exhaustion is terminal for the cycle")
}

func TestFetchContent_CostChargedPerAttempt(t *testing.T) {
	api := &fakeAPI{failWith: &model.TransportError{StatusCode: 500, Message: "boom"}}
	gate := &fakeGate{allow: true}
	a := platform.NewAdapter(api, gate, instantExecutor(), time.Second)

	_, err := a.FetchContent(context.Background(), repository.FetchConfig{})

	assert.Error(t, err)
	assert.Equal(t, 3, api.calls)
	assert.Equal(t, int64(300), gate.consumed, "cost is charged per attempt, not per success")
}

func TestFetchContent_Success(t *testing.T) {
	api := &fakeAPI{items: []model.ContentItem{{Platform: model.PlatformYouTube, ExternalID: "v1"}}}
	gate := &fakeGate{allow: true}
	a := platform.NewAdapter(api, gate, instantExecutor(), time.Second)

	items, err := a.FetchContent(context.Background(), repository.FetchConfig{MaxResults: 10})

	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(100), gate.consumed)
}

func TestGetStreamStatus_GatedAndCharged(t *testing.T) {
	api := &fakeAPI{}
	gate := &fakeGate{allow: true}
	a := platform.NewAdapter(api, gate, instantExecutor(), time.Second)

	st, err := a.GetStreamStatus(context.Background(), "stream-1")

	assert.NoError(t, err)
	assert.True(t, st.Live)
	assert.Equal(t, int64(100), gate.consumed)
}
