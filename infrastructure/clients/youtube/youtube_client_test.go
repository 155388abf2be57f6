package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"content-hub/domain/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	service, err := youtube.NewService(context.Background(),
		option.WithAPIKey("test-key"),
		option.WithEndpoint(srv.URL))
	assert.NoError(t, err)
	return &Client{service: service, channelID: "UC123"}
}

func TestGetStreamStatus_ChannelIDResolvesLiveBroadcast(t *testing.T) {
	var searchCalls, videoCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searchCalls, 1)
		assert.Equal(t, "UC123", r.URL.Query().Get("channelId"))
		assert.Equal(t, "live", r.URL.Query().Get("eventType"))
		fmt.Fprint(w, `{"items":[{"id":{"videoId":"live-42"}}]}`)
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&videoCalls, 1)
		assert.Equal(t, "live-42", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"items":[{"id":"live-42","snippet":{"title":"Launch day"},"liveStreamingDetails":{"actualStartTime":"2026-08-20T07:00:00Z","concurrentViewers":"37"}}]}`)
	})
	client := newTestClient(t, mux)

	status, err := client.GetStreamStatus(context.Background(), "UC123")

	assert.NoError(t, err)
	assert.True(t, status.Live)
	assert.Equal(t, model.PlatformYouTube, status.Platform)
	assert.Equal(t, "live-42", status.StreamID)
	assert.Equal(t, "Launch day", status.Title)
	assert.EqualValues(t, 37, status.ViewerCount)
	assert.WithinDuration(t, time.Date(2026, 8, 20, 7, 0, 0, 0, time.UTC), status.StartedAt, 0)
	assert.EqualValues(t, 1, atomic.LoadInt32(&searchCalls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&videoCalls))
}

func TestGetStreamStatus_OfflineChannelReportsNotLive(t *testing.T) {
	var videoCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&videoCalls, 1)
		fmt.Fprint(w, `{"items":[]}`)
	})
	client := newTestClient(t, mux)

	status, err := client.GetStreamStatus(context.Background(), "UC123")

	assert.NoError(t, err)
	assert.False(t, status.Live)
	assert.Zero(t, atomic.LoadInt32(&videoCalls), "an offline channel is not a video lookup")
}

func TestGetStreamStatus_VideoIDCheckedDirectly(t *testing.T) {
	var searchCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searchCalls, 1)
		fmt.Fprint(w, `{"items":[]}`)
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vid-9", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"items":[{"id":"vid-9","snippet":{"title":"Replay"},"liveStreamingDetails":{"actualStartTime":"2026-08-19T07:00:00Z","actualEndTime":"2026-08-19T09:00:00Z"}}]}`)
	})
	client := newTestClient(t, mux)

	status, err := client.GetStreamStatus(context.Background(), "vid-9")

	assert.NoError(t, err)
	assert.False(t, status.Live, "an ended broadcast is not live")
	assert.Equal(t, "vid-9", status.StreamID)
	assert.Zero(t, atomic.LoadInt32(&searchCalls), "a video id skips the live lookup")
}
