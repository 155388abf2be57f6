package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub"

	"content-hub/infrastructure/logger"
)

// NewClient connects to Google Cloud Pub/Sub for the given project
func NewClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

// NotificationChannel delivers notification payloads through a Pub/Sub topic.
// The topic is created on first use when missing.
type NotificationChannel struct {
	client *pubsub.Client
	topic  string
}

func NewNotificationChannel(client *pubsub.Client, topic string) *NotificationChannel {
	return &NotificationChannel{client: client, topic: topic}
}

// Send publishes one payload and returns the server-assigned message id
func (c *NotificationChannel) Send(ctx context.Context, payload []byte) (string, error) {
	topic := c.client.Topic(c.topic)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return "", err
	}
	if !exists {
		logger.GetLogger().WithField("topic", c.topic).Info("Topic doesn't exist - creating it")
		if _, err = c.client.CreateTopic(ctx, c.topic); err != nil {
			return "", err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return "", err
	}
	logger.GetLogger().WithField("serverId", serverID).Debug("Notification published")
	return serverID, nil
}

// GetSubscription hands out a subscription for consumers that confirm
// deliveries out of band.
func (c *NotificationChannel) GetSubscription(subID string) (*pubsub.Subscription, error) {
	logger.GetLogger().WithField("subID", subID).Info("PubSub subscription requested")
	return c.client.Subscription(subID), nil
}
