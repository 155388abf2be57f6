package model

import "time"

// NotificationEventType classifies what triggered a notification
type NotificationEventType string

const (
	NotificationNewContent    NotificationEventType = "new_content"
	NotificationStreamLive    NotificationEventType = "stream_live"
	NotificationStreamOffline NotificationEventType = "stream_offline"
)

// NotificationEvent is the payload handed to the dispatcher
type NotificationEvent struct {
	ContentID  string                `json:"content_id"`
	Platform   Platform              `json:"platform"`
	EventType  NotificationEventType `json:"event_type"`
	Title      string                `json:"title,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// DeliveryStatus is the lifecycle state of one notification delivery
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryConfirmed DeliveryStatus = "confirmed"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryLogEntry is one row of the append-only delivery audit trail.
// Statistics are derived by aggregating entries, never stored redundantly.
type DeliveryLogEntry struct {
	NotificationID string         `json:"notification_id" bson:"notification_id"`
	ContentID      string         `json:"content_id" bson:"content_id"`
	EventType      string         `json:"event_type" bson:"event_type"`
	Status         DeliveryStatus `json:"status" bson:"status"`
	Attempts       int            `json:"attempts" bson:"attempts"`
	LastError      string         `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" bson:"updated_at"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
}

// DeliveryStats aggregates the retained delivery log
type DeliveryStats struct {
	TotalSent   int64   `json:"total_sent"`
	Delivered   int64   `json:"delivered"`
	Confirmed   int64   `json:"confirmed"`
	Failed      int64   `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}
