package servicebus

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"content-hub/infrastructure/logger"
)

// NewClient connects to Azure Service Bus using the ambient Azure credential
func NewClient(namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed acquiring azure credential: %w", err)
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

// NotificationChannel delivers notification payloads through a Service Bus
// queue. Used as the alternative to Pub/Sub for Azure deployments.
type NotificationChannel struct {
	client *azservicebus.Client
	queue  string
}

func NewNotificationChannel(client *azservicebus.Client, queue string) *NotificationChannel {
	return &NotificationChannel{client: client, queue: queue}
}

// Send enqueues one payload. Service Bus assigns no send-side id, so the
// queue name stands in for observability.
func (c *NotificationChannel) Send(ctx context.Context, payload []byte) (string, error) {
	sender, err := c.client.NewSender(c.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return "", err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}(sender, ctx)

	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return "", err
	}
	return c.queue, nil
}

// Receive drains up to count messages, handing each to handle before
// completing it.
func (c *NotificationChannel) Receive(ctx context.Context, count int, handle func([]byte)) error {
	receiver, err := c.client.NewReceiverForQueue(c.queue, nil)
	if err != nil {
		return err
	}
	defer func(receiver *azservicebus.Receiver, ctx context.Context) {
		if err := receiver.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing receiver.")
		}
	}(receiver, ctx)

	messages, err := receiver.ReceiveMessages(ctx, count, nil)
	if err != nil {
		return err
	}
	for _, message := range messages {
		handle(message.Body)
		if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
			return err
		}
	}
	return nil
}
