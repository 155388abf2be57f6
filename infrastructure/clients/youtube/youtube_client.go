package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/logger"
	"content-hub/infrastructure/platform"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Config represents YouTube API configuration
type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ChannelID    string `json:"channel_id"`
	APIKey       string `json:"api_key"`
}

// Client is the raw YouTube API caller behind the platform adapter
type Client struct {
	service   *youtube.Service
	channelID string
}

// NewClient creates a YouTube client. With only an API key it runs in
// read-only key mode; with tokens it uses OAuth2 and refreshes on first use.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if (config.AccessToken == "" || config.RefreshToken == "") && config.APIKey != "" {
		service, err := youtube.NewService(ctx, option.WithAPIKey(config.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service with API key: %w", err)
		}
		return &Client{service: service, channelID: config.ChannelID}, nil
	}

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       []string{youtube.YoutubeReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	token := &oauth2.Token{
		AccessToken:  config.AccessToken,
		RefreshToken: config.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-1 * time.Minute), // force refresh on first use
	}
	httpClient := oauth2Config.Client(ctx, token)
	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{service: service, channelID: config.ChannelID}, nil
}

func (c *Client) Platform() model.Platform { return model.PlatformYouTube }

// CostFor reflects the YouTube Data API unit pricing: search is 100 units,
// everything else 1.
func (c *Client) CostFor(op platform.Operation) int64 {
	if op == platform.OpFetchContent {
		return 100
	}
	return 1
}

// FetchContent lists recent channel videos (or one targeted video on the
// prefetch path) and normalizes them. Malformed entries are dropped
// individually with a logged reason.
func (c *Client) FetchContent(ctx context.Context, cfg repository.FetchConfig) ([]model.ContentItem, error) {
	if cfg.ContentID != "" {
		return c.fetchByID(ctx, cfg.ContentID)
	}

	call := c.service.Search.List([]string{"id", "snippet"}).
		Context(ctx).
		ChannelId(c.channelID).
		Type("video").
		Order("date")
	if cfg.MaxResults > 0 {
		call = call.MaxResults(cfg.MaxResults)
	} else {
		call = call.MaxResults(25)
	}
	if cfg.Query != "" {
		call = call.Q(cfg.Query)
	}
	if !cfg.PublishedAfter.IsZero() {
		call = call.PublishedAfter(cfg.PublishedAfter.Format(time.RFC3339))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, classify(err)
	}

	items := make([]model.ContentItem, 0, len(resp.Items))
	for _, raw := range resp.Items {
		item, reason := normalizeSearchResult(raw)
		if reason != "" {
			logger.GetLogger().WithField("reason", reason).Debug("Dropping malformed YouTube item")
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

func (c *Client) fetchByID(ctx context.Context, videoID string) ([]model.ContentItem, error) {
	resp, err := c.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
		Context(ctx).
		Id(videoID).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	items := make([]model.ContentItem, 0, len(resp.Items))
	for _, v := range resp.Items {
		item, reason := normalizeVideo(v)
		if reason != "" {
			logger.GetLogger().WithField("reason", reason).WithField("videoId", videoID).
				Debug("Dropping malformed YouTube video")
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

// GetChannelInfo returns channel metadata and statistics
func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*model.ChannelInfo, error) {
	if channelID == "" {
		channelID = c.channelID
	}
	resp, err := c.service.Channels.List([]string{"snippet", "statistics"}).
		Context(ctx).
		Id(channelID).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Items) == 0 {
		return nil, &model.TransportError{StatusCode: 404, Message: "channel not found: " + channelID}
	}
	ch := resp.Items[0]
	info := &model.ChannelInfo{
		ID:       ch.Id,
		Platform: model.PlatformYouTube,
	}
	if ch.Snippet != nil {
		info.Name = ch.Snippet.Title
		info.Description = ch.Snippet.Description
		if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
			info.AvatarURL = ch.Snippet.Thumbnails.Default.Url
		}
		if t, err := time.Parse(time.RFC3339, ch.Snippet.PublishedAt); err == nil {
			info.CreatedAt = t
		}
	}
	if ch.Statistics != nil {
		info.FollowerCount = int64(ch.Statistics.SubscriberCount)
		info.ContentCount = int64(ch.Statistics.VideoCount)
	}
	return info, nil
}

// GetStreamStatus reports live status. Given the configured channel id (or an
// empty id) it first resolves the channel's current live broadcast, reporting
// Live=false when the channel is offline; a video id is checked directly.
func (c *Client) GetStreamStatus(ctx context.Context, streamID string) (*model.StreamStatus, error) {
	if streamID == "" || streamID == c.channelID {
		videoID, err := c.liveVideoID(ctx, streamID)
		if err != nil {
			return nil, err
		}
		if videoID == "" {
			return &model.StreamStatus{StreamID: streamID, Platform: model.PlatformYouTube}, nil
		}
		streamID = videoID
	}
	resp, err := c.service.Videos.List([]string{"snippet", "liveStreamingDetails"}).
		Context(ctx).
		Id(streamID).
		Do()
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Items) == 0 {
		return nil, &model.TransportError{StatusCode: 404, Message: "stream not found: " + streamID}
	}
	v := resp.Items[0]
	status := &model.StreamStatus{StreamID: streamID, Platform: model.PlatformYouTube}
	if v.Snippet != nil {
		status.Title = v.Snippet.Title
	}
	if d := v.LiveStreamingDetails; d != nil {
		status.Live = d.ActualStartTime != "" && d.ActualEndTime == ""
		status.ViewerCount = int64(d.ConcurrentViewers)
		if t, err := time.Parse(time.RFC3339, d.ActualStartTime); err == nil {
			status.StartedAt = t
		}
	}
	return status, nil
}

// liveVideoID finds the channel's currently live video, "" when offline
func (c *Client) liveVideoID(ctx context.Context, channelID string) (string, error) {
	if channelID == "" {
		channelID = c.channelID
	}
	resp, err := c.service.Search.List([]string{"id"}).
		Context(ctx).
		ChannelId(channelID).
		EventType("live").
		Type("video").
		MaxResults(1).
		Do()
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil {
		return "", nil
	}
	return resp.Items[0].Id.VideoId, nil
}

func normalizeSearchResult(raw *youtube.SearchResult) (*model.ContentItem, string) {
	if raw.Id == nil || raw.Id.VideoId == "" {
		return nil, "missing video id"
	}
	if raw.Snippet == nil {
		return nil, "missing snippet"
	}
	publishedAt, err := time.Parse(time.RFC3339, raw.Snippet.PublishedAt)
	if err != nil {
		return nil, "unparseable published_at: " + raw.Snippet.PublishedAt
	}
	item := &model.ContentItem{
		Platform:    model.PlatformYouTube,
		ContentType: model.ContentTypeVideo,
		ExternalID:  raw.Id.VideoId,
		Title:       raw.Snippet.Title,
		Description: raw.Snippet.Description,
		OriginalURL: "https://www.youtube.com/watch?v=" + raw.Id.VideoId,
		PublishedAt: publishedAt,
		Author: model.Author{
			Name:       raw.Snippet.ChannelTitle,
			ProfileURL: "https://www.youtube.com/channel/" + raw.Snippet.ChannelId,
		},
	}
	if raw.Snippet.LiveBroadcastContent == "live" {
		item.ContentType = model.ContentTypeLive
	}
	if raw.Snippet.Thumbnails != nil && raw.Snippet.Thumbnails.High != nil {
		item.ThumbnailURL = raw.Snippet.Thumbnails.High.Url
	}
	return item, ""
}

func normalizeVideo(v *youtube.Video) (*model.ContentItem, string) {
	if v.Id == "" {
		return nil, "missing video id"
	}
	if v.Snippet == nil {
		return nil, "missing snippet"
	}
	publishedAt, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
	if err != nil {
		return nil, "unparseable published_at: " + v.Snippet.PublishedAt
	}
	item := &model.ContentItem{
		Platform:    model.PlatformYouTube,
		ContentType: model.ContentTypeVideo,
		ExternalID:  v.Id,
		Title:       v.Snippet.Title,
		Description: v.Snippet.Description,
		OriginalURL: "https://www.youtube.com/watch?v=" + v.Id,
		PublishedAt: publishedAt,
		Author: model.Author{
			Name:       v.Snippet.ChannelTitle,
			ProfileURL: "https://www.youtube.com/channel/" + v.Snippet.ChannelId,
		},
	}
	if v.Snippet.Thumbnails != nil && v.Snippet.Thumbnails.High != nil {
		item.ThumbnailURL = v.Snippet.Thumbnails.High.Url
	}
	if v.Statistics != nil {
		item.Engagement = model.Engagement{
			Likes:    int64(v.Statistics.LikeCount),
			Comments: int64(v.Statistics.CommentCount),
		}
	}
	if v.ContentDetails != nil {
		item.Duration = v.ContentDetails.Duration
		if isShort(v.ContentDetails.Duration) {
			item.ContentType = model.ContentTypeShort
		}
	}
	return item, ""
}

// isShort treats sub-minute ISO 8601 durations as shorts
func isShort(duration string) bool {
	return strings.HasPrefix(duration, "PT") &&
		!strings.Contains(duration, "H") &&
		!strings.Contains(duration, "M")
}

// classify maps Google API errors onto the transport taxonomy
func classify(err error) error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return &model.TransportError{StatusCode: ge.Code, Message: ge.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.TransportError{Timeout: true, Message: err.Error()}
	}
	return err
}
