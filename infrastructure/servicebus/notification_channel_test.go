package servicebus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"content-hub/infrastructure/servicebus"
)

// TestNewNotificationChannel ensures construction works without a live
// client; sending itself needs a real Service Bus namespace.
func TestNewNotificationChannel(t *testing.T) {
	channel := servicebus.NewNotificationChannel(nil, "content-notifications")
	assert.NotNil(t, channel)
}
