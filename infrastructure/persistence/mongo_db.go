package persistence

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"content-hub/infrastructure/logger"
)

// NewMongoDb connects to MongoDB for the delivery audit trail. Credentials
// are optional for local setups.
func NewMongoDb(host, port, user, password, name string) (*mongo.Client, error) {
	if host == "" {
		return nil, fmt.Errorf("mongo host not configured")
	}
	if port == "" {
		port = "27017"
	}
	var uri string
	if user != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin", user, password, host, port, name)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%s", host, port)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while connecting to MongoDB.")
		return nil, err
	}
	return client, nil
}
