package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/logger"
	"content-hub/infrastructure/platform"

	"github.com/google/go-querystring/query"
)

const defaultBaseURL = "https://graph.instagram.com/v19.0"

// Config represents Instagram Graph API configuration
type Config struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	BaseURL     string `json:"base_url"`
}

// Client calls the Instagram Graph API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	userID      string
}

func NewClient(config *Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:  &http.Client{},
		baseURL:     baseURL,
		accessToken: config.AccessToken,
		userID:      config.UserID,
	}
}

func (c *Client) Platform() model.Platform { return model.PlatformInstagram }

func (c *Client) CostFor(platform.Operation) int64 { return 1 }

type mediaParams struct {
	Fields      string `url:"fields"`
	Limit       int64  `url:"limit,omitempty"`
	Since       int64  `url:"since,omitempty"`
	AccessToken string `url:"access_token"`
}

type mediaEntry struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	MediaURL      string `json:"media_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
	Username      string `json:"username"`
}

type mediaResponse struct {
	Data []mediaEntry `json:"data"`
}

// FetchContent lists recent media for the configured user
func (c *Client) FetchContent(ctx context.Context, cfg repository.FetchConfig) ([]model.ContentItem, error) {
	target := c.userID + "/media"
	if cfg.ContentID != "" {
		target = cfg.ContentID
	}
	params := mediaParams{
		Fields:      "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp,like_count,comments_count,username",
		Limit:       cfg.MaxResults,
		AccessToken: c.accessToken,
	}
	if !cfg.PublishedAfter.IsZero() {
		params.Since = cfg.PublishedAfter.Unix()
	}

	var resp mediaResponse
	if cfg.ContentID != "" {
		var single mediaEntry
		if err := c.get(ctx, target, params, &single); err != nil {
			return nil, err
		}
		resp.Data = []mediaEntry{single}
	} else if err := c.get(ctx, target, params, &resp); err != nil {
		return nil, err
	}

	items := make([]model.ContentItem, 0, len(resp.Data))
	for _, m := range resp.Data {
		item, reason := normalizeMedia(m)
		if reason != "" {
			logger.GetLogger().WithField("reason", reason).Debug("Dropping malformed Instagram media")
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

type profileResponse struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Biography         string `json:"biography"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowersCount    int64  `json:"followers_count"`
	MediaCount        int64  `json:"media_count"`
}

func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*model.ChannelInfo, error) {
	if channelID == "" {
		channelID = c.userID
	}
	params := mediaParams{
		Fields:      "id,username,biography,profile_picture_url,followers_count,media_count",
		AccessToken: c.accessToken,
	}
	var resp profileResponse
	if err := c.get(ctx, channelID, params, &resp); err != nil {
		return nil, err
	}
	return &model.ChannelInfo{
		ID:            resp.ID,
		Platform:      model.PlatformInstagram,
		Name:          resp.Username,
		Description:   resp.Biography,
		AvatarURL:     resp.ProfilePictureURL,
		FollowerCount: resp.FollowersCount,
		ContentCount:  resp.MediaCount,
	}, nil
}

type liveMediaResponse struct {
	Data []struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"data"`
}

// GetStreamStatus checks the user's live_media edge for an active broadcast.
// Given the account id (or an empty id) any LIVE entry counts; a broadcast id
// is matched exactly.
func (c *Client) GetStreamStatus(ctx context.Context, streamID string) (*model.StreamStatus, error) {
	params := mediaParams{
		Fields:      "id,title,status",
		AccessToken: c.accessToken,
	}
	var resp liveMediaResponse
	if err := c.get(ctx, c.userID+"/live_media", params, &resp); err != nil {
		return nil, err
	}
	status := &model.StreamStatus{StreamID: streamID, Platform: model.PlatformInstagram}
	accountScoped := streamID == "" || streamID == c.userID
	for _, lm := range resp.Data {
		if accountScoped {
			if lm.Status == "LIVE" {
				status.StreamID = lm.ID
				status.Live = true
				status.Title = lm.Title
				break
			}
			continue
		}
		if lm.ID == streamID {
			status.Live = lm.Status == "LIVE"
			status.Title = lm.Title
			break
		}
	}
	return status, nil
}

func normalizeMedia(m mediaEntry) (*model.ContentItem, string) {
	if m.ID == "" {
		return nil, "missing media id"
	}
	publishedAt, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return nil, "unparseable timestamp: " + m.Timestamp
	}
	item := &model.ContentItem{
		Platform:     model.PlatformInstagram,
		ContentType:  model.ContentTypePost,
		ExternalID:   m.ID,
		Title:        m.Caption,
		MediaURL:     m.MediaURL,
		ThumbnailURL: m.ThumbnailURL,
		OriginalURL:  m.Permalink,
		PublishedAt:  publishedAt,
		Engagement: model.Engagement{
			Likes:    m.LikeCount,
			Comments: m.CommentsCount,
		},
		Author: model.Author{Name: m.Username},
	}
	if m.MediaType == "VIDEO" {
		item.ContentType = model.ContentTypeReel
	}
	return item, ""
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, params interface{}, out interface{}) error {
	values, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("failed to encode query params: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path+"?"+values.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		return &model.TransportError{StatusCode: resp.StatusCode, Message: ae.Error.Message}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
