package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"content-hub/domain/model"
)

func entry(id string) *model.DeliveryLogEntry {
	return &model.DeliveryLogEntry{
		NotificationID: id,
		ContentID:      "c-" + id,
		EventType:      string(model.NotificationNewContent),
		Status:         model.DeliveryPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func TestMemoryDeliveryLog_EvictsOldestBeyondRetention(t *testing.T) {
	log := NewMemoryDeliveryLog(3)
	for i := 0; i < 5; i++ {
		assert.NoError(t, log.Append(context.Background(), entry(fmt.Sprintf("n%d", i))))
	}

	entries, err := log.List(context.Background(), 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "n4", entries[0].NotificationID, "newest first")
	assert.Equal(t, "n2", entries[2].NotificationID, "oldest evicted")

	assert.ErrorIs(t, log.Update(context.Background(), "n0", model.DeliveryDelivered, 1, "", time.Now()),
		ErrNotificationNotFound)
}

func TestMemoryDeliveryLog_ConfirmRequiresDelivered(t *testing.T) {
	log := NewMemoryDeliveryLog(10)
	assert.NoError(t, log.Append(context.Background(), entry("n1")))

	now := time.Now()
	assert.Error(t, log.Confirm(context.Background(), "n1", now), "pending cannot confirm")

	assert.NoError(t, log.Update(context.Background(), "n1", model.DeliveryDelivered, 2, "", now))
	assert.NoError(t, log.Confirm(context.Background(), "n1", now))

	entries, _ := log.List(context.Background(), 1)
	assert.Equal(t, model.DeliveryConfirmed, entries[0].Status)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.NotNil(t, entries[0].ConfirmedAt)

	assert.Error(t, log.Confirm(context.Background(), "n1", now), "confirmed is final")
	assert.ErrorIs(t, log.Confirm(context.Background(), "ghost", now), ErrNotificationNotFound)
}

func TestMemoryDeliveryLog_RejectsDuplicates(t *testing.T) {
	log := NewMemoryDeliveryLog(10)
	assert.NoError(t, log.Append(context.Background(), entry("n1")))
	assert.Error(t, log.Append(context.Background(), entry("n1")))
	assert.Error(t, log.Append(context.Background(), &model.DeliveryLogEntry{}))
}
