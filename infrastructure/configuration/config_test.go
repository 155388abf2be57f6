package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitDefaults(t *testing.T) {
	var c Config
	initDefaults(&c)

	assert.Equal(t, 5, c.Feed.MaxConcurrent)
	assert.Equal(t, 60, c.Feed.SoftTTLMinutes)
	assert.Equal(t, 24, c.Feed.HardTTLHours)
	assert.Equal(t, int64(10000), c.Quota.DailyBudgets["youtube"])
	assert.Equal(t, 0.1, c.Quota.SafetyMargin)
	assert.Equal(t, 0.6, c.Prefetch.MinConfidence)
	assert.Equal(t, 5, c.Prefetch.BatchSize)
	assert.Equal(t, 3, c.Notification.MaxAttempts)
	assert.Equal(t, "content-notifications", c.Pubsub.Topic)
}

func TestInitDefaults_ClampsConcurrency(t *testing.T) {
	var c Config
	c.Feed.MaxConcurrent = 50
	initDefaults(&c)
	assert.Equal(t, 10, c.Feed.MaxConcurrent)

	c.Feed.MaxConcurrent = -1
	initDefaults(&c)
	assert.Equal(t, 1, c.Feed.MaxConcurrent)
}

func TestInitApp_DefaultPort(t *testing.T) {
	var c Config
	initApp(&c)
	assert.Equal(t, 10001, c.App.Port)
}
