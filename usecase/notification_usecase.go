package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/logger"
	"content-hub/infrastructure/retry"
)

// INotificationDispatcher delivers events through the configured channel and
// keeps the audit trail current.
type INotificationDispatcher interface {
	Deliver(ctx context.Context, event model.NotificationEvent) (*model.DeliveryLogEntry, error)
	Confirm(ctx context.Context, notificationID string) error
	Stats(ctx context.Context) (*model.DeliveryStats, error)
	Recent(ctx context.Context, limit int) ([]model.DeliveryLogEntry, error)
	DispatchNewContent(items []model.ContentItem)
	DispatchStreamStatus(prev, curr *model.StreamStatus)
}

// NotificationDispatcher validates, sends with retries and logs every
// attempt. Send failures never propagate into the fetch pipeline; the caller
// of DispatchNewContent is fire-and-forget.
type NotificationDispatcher struct {
	channel  repository.INotificationChannel
	log      repository.IDeliveryLog
	executor *retry.Executor
	now      func() time.Time
}

func NewNotificationDispatcher(channel repository.INotificationChannel, log repository.IDeliveryLog, executor *retry.Executor) *NotificationDispatcher {
	return &NotificationDispatcher{
		channel:  channel,
		log:      log,
		executor: executor,
		now:      time.Now,
	}
}

// WithClock overrides the time source (fluent, for tests)
func (d *NotificationDispatcher) WithClock(now func() time.Time) *NotificationDispatcher {
	d.now = now
	return d
}

func newNotificationID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Deliver sends one event. The audit row is appended as pending before the
// first attempt, advanced on every attempt, and settles as delivered or
// failed. The returned entry reflects the final state.
func (d *NotificationDispatcher) Deliver(ctx context.Context, event model.NotificationEvent) (*model.DeliveryLogEntry, error) {
	if event.ContentID == "" {
		return nil, &model.ValidationError{Field: "content_id", Message: "content_id is required"}
	}
	switch event.EventType {
	case model.NotificationNewContent, model.NotificationStreamLive, model.NotificationStreamOffline:
	default:
		return nil, &model.ValidationError{Field: "event_type", Message: "unknown event type: " + string(event.EventType)}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	entry := &model.DeliveryLogEntry{
		NotificationID: newNotificationID(),
		ContentID:      event.ContentID,
		EventType:      string(event.EventType),
		Status:         model.DeliveryPending,
		CreatedAt:      d.now(),
		UpdatedAt:      d.now(),
	}
	if err := d.log.Append(ctx, entry); err != nil {
		return nil, err
	}

	attempts := 0
	sendErr := d.executor.Do(ctx, func() error {
		attempts++
		channelID, err := d.channel.Send(ctx, payload)
		lastError := ""
		if err != nil {
			lastError = err.Error()
		} else if channelID != "" {
			logger.GetLogger().WithField("notificationId", entry.NotificationID).
				WithField("channelId", channelID).Debug("Channel acknowledged delivery")
		}
		if logErr := d.log.Update(ctx, entry.NotificationID, model.DeliveryPending, attempts, lastError, d.now()); logErr != nil {
			logger.GetLogger().WithField("error", logErr).Warn("Failed advancing delivery audit row")
		}
		return err
	})

	entry.Attempts = attempts
	entry.UpdatedAt = d.now()
	if sendErr != nil {
		entry.Status = model.DeliveryFailed
		entry.LastError = sendErr.Error()
		if err := d.log.Update(ctx, entry.NotificationID, model.DeliveryFailed, attempts, sendErr.Error(), entry.UpdatedAt); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed settling delivery audit row")
		}
		return entry, sendErr
	}
	entry.Status = model.DeliveryDelivered
	entry.LastError = ""
	if err := d.log.Update(ctx, entry.NotificationID, model.DeliveryDelivered, attempts, "", entry.UpdatedAt); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed settling delivery audit row")
	}
	return entry, nil
}

// Confirm settles the client-side acknowledgement. Only delivered entries can
// transition; anything else is rejected by the log.
func (d *NotificationDispatcher) Confirm(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return &model.ValidationError{Field: "notification_id", Message: "notification_id is required"}
	}
	return d.log.Confirm(ctx, notificationID, d.now())
}

// Stats aggregates the retained audit trail. SuccessRate is the percentage of
// sends that reached delivered or confirmed, rounded half-to-even to two
// decimals; no deliveries means a rate of exactly 0.
func (d *NotificationDispatcher) Stats(ctx context.Context) (*model.DeliveryStats, error) {
	entries, err := d.log.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	stats := &model.DeliveryStats{}
	for i := range entries {
		stats.TotalSent++
		switch entries[i].Status {
		case model.DeliveryDelivered:
			stats.Delivered++
		case model.DeliveryConfirmed:
			stats.Confirmed++
		case model.DeliveryFailed:
			stats.Failed++
		}
	}
	if stats.TotalSent > 0 {
		rate := float64(stats.Delivered+stats.Confirmed) / float64(stats.TotalSent) * 100
		stats.SuccessRate = roundHalfEven(rate, 2)
	}
	return stats, nil
}

// Recent returns the newest retained entries
func (d *NotificationDispatcher) Recent(ctx context.Context, limit int) ([]model.DeliveryLogEntry, error) {
	return d.log.List(ctx, limit)
}

// DispatchNewContent fans one new_content event out per freshly cached item.
// It is the feed orchestrator's broadcast hook.
func (d *NotificationDispatcher) DispatchNewContent(items []model.ContentItem) {
	for i := range items {
		item := items[i]
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			_, err := d.Deliver(ctx, model.NotificationEvent{
				ContentID:  item.ExternalID,
				Platform:   item.Platform,
				EventType:  model.NotificationNewContent,
				Title:      item.Title,
				OccurredAt: item.PublishedAt,
			})
			if err != nil {
				logger.GetLogger().WithField("contentId", item.ExternalID).WithField("error", err).
					Warn("New-content notification failed")
			}
		}()
	}
}

// DispatchStreamStatus emits stream_live / stream_offline on state edges only
func (d *NotificationDispatcher) DispatchStreamStatus(prev, curr *model.StreamStatus) {
	if curr == nil || (prev != nil && prev.Live == curr.Live) {
		return
	}
	if prev == nil && !curr.Live {
		return
	}
	eventType := model.NotificationStreamLive
	if !curr.Live {
		eventType = model.NotificationStreamOffline
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, err := d.Deliver(ctx, model.NotificationEvent{
			ContentID:  curr.StreamID,
			Platform:   curr.Platform,
			EventType:  eventType,
			Title:      curr.Title,
			OccurredAt: d.now(),
		})
		if err != nil {
			logger.GetLogger().WithField("streamId", curr.StreamID).WithField("error", err).
				Warn("Stream notification failed")
		}
	}()
}

// roundHalfEven rounds to the given number of decimals with banker's rounding
func roundHalfEven(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*scale) / scale
}
