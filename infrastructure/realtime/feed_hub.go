package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"

	"content-hub/domain/model"
)

// FeedEvent represents an SSE payload for live feed updates
type FeedEvent struct {
	Type      string `json:"type"`
	Platform  string `json:"platform"`
	ContentID string `json:"content_id"`
	Title     string `json:"title,omitempty"`
	Live      *bool  `json:"live,omitempty"`
}

// Hub maintains SSE subscribers listening for feed updates
type Hub struct {
	mu   sync.RWMutex
	subs map[chan FeedEvent]struct{}
}

func NewFeedHub() *Hub {
	return &Hub{subs: make(map[chan FeedEvent]struct{})}
}

// Serve registers an SSE stream on the request and pumps events until the
// client disconnects.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan FeedEvent, 8)
	h.addSubscriber(ch)
	defer h.removeSubscriber(ch)

	// Initial comment to keep connection open
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: feed_update\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(ch chan FeedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) removeSubscriber(ch chan FeedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) broadcast(evt FeedEvent) {
	h.mu.RLock()
	for ch := range h.subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}

// BroadcastNewContent pushes one event per freshly cached item
func (h *Hub) BroadcastNewContent(items []model.ContentItem) {
	for i := range items {
		h.broadcast(FeedEvent{
			Type:      "new_content",
			Platform:  string(items[i].Platform),
			ContentID: items[i].ExternalID,
			Title:     items[i].Title,
		})
	}
}

// BroadcastStreamStatus pushes one stream state edge
func (h *Hub) BroadcastStreamStatus(status *model.StreamStatus) {
	if status == nil {
		return
	}
	live := status.Live
	h.broadcast(FeedEvent{
		Type:      "stream_status",
		Platform:  string(status.Platform),
		ContentID: status.StreamID,
		Title:     status.Title,
		Live:      &live,
	})
}
