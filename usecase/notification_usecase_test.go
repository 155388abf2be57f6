package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-hub/domain/model"
	"content-hub/infrastructure/persistence"
	"content-hub/infrastructure/retry"
	"content-hub/usecase"
)

type fakeChannel struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (c *fakeChannel) Send(ctx context.Context, payload []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failures {
		return "", c.err
	}
	return "channel-msg-1", nil
}

func (c *fakeChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newDispatcher(channel *fakeChannel) (*usecase.NotificationDispatcher, *persistence.MemoryDeliveryLog) {
	log := persistence.NewMemoryDeliveryLog(100)
	executor := retry.NewExecutor(retry.Policy{BaseDelay: time.Nanosecond})
	return usecase.NewNotificationDispatcher(channel, log, executor), log
}

func liveEvent() model.NotificationEvent {
	return model.NotificationEvent{
		ContentID: "yt-1",
		Platform:  model.PlatformYouTube,
		EventType: model.NotificationStreamLive,
		Title:     "going live",
	}
}

func TestDeliver_RejectsInvalidEvents(t *testing.T) {
	d, log := newDispatcher(&fakeChannel{})

	_, err := d.Deliver(context.Background(), model.NotificationEvent{EventType: model.NotificationNewContent})
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = d.Deliver(context.Background(), model.NotificationEvent{ContentID: "yt-1", EventType: "carrier_pigeon"})
	assert.ErrorAs(t, err, &ve)

	entries, _ := log.List(context.Background(), 0)
	assert.Empty(t, entries, "rejected events never reach the audit trail")
}

func TestDeliver_FirstAttemptSucceeds(t *testing.T) {
	channel := &fakeChannel{}
	d, log := newDispatcher(channel)

	entry, err := d.Deliver(context.Background(), liveEvent())

	assert.NoError(t, err)
	assert.Equal(t, model.DeliveryDelivered, entry.Status)
	assert.Equal(t, 1, entry.Attempts)
	assert.Equal(t, 1, channel.callCount())

	entries, _ := log.List(context.Background(), 0)
	assert.Len(t, entries, 1)
	assert.Equal(t, model.DeliveryDelivered, entries[0].Status)
}

func TestDeliver_RetriesTransientFailures(t *testing.T) {
	channel := &fakeChannel{failures: 2, err: &model.TransportError{StatusCode: 503, Message: "busy"}}
	d, _ := newDispatcher(channel)

	entry, err := d.Deliver(context.Background(), liveEvent())

	assert.NoError(t, err)
	assert.Equal(t, model.DeliveryDelivered, entry.Status)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, 3, channel.callCount())
}

func TestDeliver_TerminalFailureSettlesAsFailed(t *testing.T) {
	channel := &fakeChannel{failures: 10, err: &model.TransportError{StatusCode: 400, Message: "bad payload"}}
	d, log := newDispatcher(channel)

	entry, err := d.Deliver(context.Background(), liveEvent())

	assert.Error(t, err)
	assert.Equal(t, model.DeliveryFailed, entry.Status)
	assert.Equal(t, 1, entry.Attempts, "client errors are terminal")
	assert.NotEmpty(t, entry.LastError)

	entries, _ := log.List(context.Background(), 0)
	assert.Equal(t, model.DeliveryFailed, entries[0].Status)
}

func TestDeliver_ExhaustionSettlesAsFailed(t *testing.T) {
	channel := &fakeChannel{failures: 10, err: &model.TransportError{StatusCode: 500, Message: "boom"}}
	d, _ := newDispatcher(channel)

	entry, err := d.Deliver(context.Background(), liveEvent())

	var re *model.RetryExhaustedError
	assert.ErrorAs(t, err, &re)
	assert.Equal(t, model.DeliveryFailed, entry.Status)
	assert.Equal(t, 3, entry.Attempts)
}

func TestConfirm_TransitionsDeliveredOnly(t *testing.T) {
	channel := &fakeChannel{}
	d, log := newDispatcher(channel)

	entry, err := d.Deliver(context.Background(), liveEvent())
	assert.NoError(t, err)

	assert.NoError(t, d.Confirm(context.Background(), entry.NotificationID))
	entries, _ := log.List(context.Background(), 0)
	assert.Equal(t, model.DeliveryConfirmed, entries[0].Status)
	assert.NotNil(t, entries[0].ConfirmedAt)

	assert.Error(t, d.Confirm(context.Background(), entry.NotificationID), "confirmed is a final state")
	assert.ErrorIs(t, d.Confirm(context.Background(), "nope"), persistence.ErrNotificationNotFound)
	assert.Error(t, d.Confirm(context.Background(), ""))
}

func TestStats_BankersRounding(t *testing.T) {
	channel := &fakeChannel{}
	d, log := newDispatcher(channel)

	empty, err := d.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, float64(0), empty.SuccessRate, "no deliveries means rate zero, not NaN")

	now := time.Now()
	seed := []model.DeliveryLogEntry{
		{NotificationID: "n1", Status: model.DeliveryDelivered, CreatedAt: now},
		{NotificationID: "n2", Status: model.DeliveryConfirmed, CreatedAt: now},
		{NotificationID: "n3", Status: model.DeliveryFailed, CreatedAt: now},
	}
	for i := range seed {
		assert.NoError(t, log.Append(context.Background(), &seed[i]))
	}

	stats, err := d.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSent)
	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(1), stats.Confirmed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 66.67, stats.SuccessRate, "2/3 rounds half-to-even at two decimals")
}

func TestDispatchNewContent_FansOutAsynchronously(t *testing.T) {
	channel := &fakeChannel{}
	d, log := newDispatcher(channel)

	d.DispatchNewContent([]model.ContentItem{
		{Platform: model.PlatformYouTube, ExternalID: "yt-1", Title: "one"},
		{Platform: model.PlatformTikTok, ExternalID: "tt-2", Title: "two"},
	})

	assert.Eventually(t, func() bool {
		entries, _ := log.List(context.Background(), 0)
		if len(entries) != 2 {
			return false
		}
		for _, e := range entries {
			if e.Status != model.DeliveryDelivered {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}
