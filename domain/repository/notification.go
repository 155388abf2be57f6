package repository

import (
	"context"
	"time"

	"content-hub/domain/model"
)

// INotificationChannel is the opaque delivery channel. Send returns the
// channel-assigned notification id on success.
type INotificationChannel interface {
	Send(ctx context.Context, payload []byte) (string, error)
}

// IDeliveryLog is the append-only delivery audit trail
type IDeliveryLog interface {
	Append(ctx context.Context, entry *model.DeliveryLogEntry) error
	// Update mutates status/attempts of an existing entry by notification id.
	Update(ctx context.Context, notificationID string, status model.DeliveryStatus, attempts int, lastError string, at time.Time) error
	// Confirm transitions a delivered entry to confirmed.
	Confirm(ctx context.Context, notificationID string, at time.Time) error
	// List returns retained entries, newest first, up to limit (0 = all).
	List(ctx context.Context, limit int) ([]model.DeliveryLogEntry, error)
}
