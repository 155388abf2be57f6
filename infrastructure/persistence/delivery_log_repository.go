package persistence

import (
	"context"
	"fmt"
	"time"

	"content-hub/domain/model"
	"content-hub/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const deliveryLogCollection = "delivery_log"

// MongoDeliveryLog persists the delivery audit trail in MongoDB. Used instead
// of the in-memory log when a Mongo client is configured, so the trail
// survives restarts.
type MongoDeliveryLog struct {
	client   *mongo.Client
	database string
}

func NewMongoDeliveryLog(client *mongo.Client, database string) *MongoDeliveryLog {
	if database == "" {
		database = "content_hub"
	}
	return &MongoDeliveryLog{client: client, database: database}
}

func (l *MongoDeliveryLog) collection() *mongo.Collection {
	return l.client.Database(l.database).Collection(deliveryLogCollection)
}

func (l *MongoDeliveryLog) Append(ctx context.Context, entry *model.DeliveryLogEntry) error {
	if entry.NotificationID == "" {
		return fmt.Errorf("delivery log entry missing notification id")
	}
	if _, err := l.collection().InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed appending delivery log entry: %w", err)
	}
	return nil
}

func (l *MongoDeliveryLog) Update(ctx context.Context, notificationID string, status model.DeliveryStatus, attempts int, lastError string, at time.Time) error {
	res, err := l.collection().UpdateOne(ctx,
		bson.D{{Key: "notification_id", Value: notificationID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: "attempts", Value: attempts},
			{Key: "last_error", Value: lastError},
			{Key: "updated_at", Value: at},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed updating delivery log entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (l *MongoDeliveryLog) Confirm(ctx context.Context, notificationID string, at time.Time) error {
	res, err := l.collection().UpdateOne(ctx,
		bson.D{
			{Key: "notification_id", Value: notificationID},
			{Key: "status", Value: model.DeliveryDelivered},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: model.DeliveryConfirmed},
			{Key: "updated_at", Value: at},
			{Key: "confirmed_at", Value: at},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed confirming delivery log entry: %w", err)
	}
	if res.MatchedCount == 0 {
		// distinguish missing from a bad state transition
		count, err := l.collection().CountDocuments(ctx, bson.D{{Key: "notification_id", Value: notificationID}})
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while checking delivery log entry")
			return ErrNotificationNotFound
		}
		if count == 0 {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("cannot confirm notification %s: not in delivered state", notificationID)
	}
	return nil
}

func (l *MongoDeliveryLog) List(ctx context.Context, limit int) ([]model.DeliveryLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := l.collection().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed listing delivery log: %w", err)
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var entries []model.DeliveryLogEntry
	for cursor.Next(ctx) {
		var entry model.DeliveryLogEntry
		if err := cursor.Decode(&entry); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding delivery log entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, cursor.Err()
}
