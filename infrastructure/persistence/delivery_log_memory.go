package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"content-hub/domain/model"
)

// ErrNotificationNotFound is returned for unknown notification ids
var ErrNotificationNotFound = errors.New("notification not found")

// MemoryDeliveryLog is the default IDeliveryLog: a bounded in-memory ring of
// audit entries, oldest evicted first.
type MemoryDeliveryLog struct {
	mu       sync.Mutex
	retained int
	order    []string
	entries  map[string]*model.DeliveryLogEntry
}

func NewMemoryDeliveryLog(retained int) *MemoryDeliveryLog {
	if retained <= 0 {
		retained = 5000
	}
	return &MemoryDeliveryLog{
		retained: retained,
		entries:  make(map[string]*model.DeliveryLogEntry),
	}
}

func (l *MemoryDeliveryLog) Append(ctx context.Context, entry *model.DeliveryLogEntry) error {
	if entry.NotificationID == "" {
		return fmt.Errorf("delivery log entry missing notification id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.entries[entry.NotificationID]; exists {
		return fmt.Errorf("duplicate notification id %s", entry.NotificationID)
	}
	cp := *entry
	l.entries[entry.NotificationID] = &cp
	l.order = append(l.order, entry.NotificationID)
	for len(l.order) > l.retained {
		delete(l.entries, l.order[0])
		l.order = l.order[1:]
	}
	return nil
}

func (l *MemoryDeliveryLog) Update(ctx context.Context, notificationID string, status model.DeliveryStatus, attempts int, lastError string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[notificationID]
	if !ok {
		return ErrNotificationNotFound
	}
	entry.Status = status
	entry.Attempts = attempts
	entry.LastError = lastError
	entry.UpdatedAt = at
	return nil
}

// Confirm transitions delivered entries only; any other state is an invalid
// transition.
func (l *MemoryDeliveryLog) Confirm(ctx context.Context, notificationID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[notificationID]
	if !ok {
		return ErrNotificationNotFound
	}
	if entry.Status != model.DeliveryDelivered {
		return fmt.Errorf("cannot confirm notification %s in status %s", notificationID, entry.Status)
	}
	entry.Status = model.DeliveryConfirmed
	entry.UpdatedAt = at
	entry.ConfirmedAt = &at
	return nil
}

func (l *MemoryDeliveryLog) List(ctx context.Context, limit int) ([]model.DeliveryLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.DeliveryLogEntry, 0, n)
	for i := len(l.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *l.entries[l.order[i]])
	}
	return out, nil
}
