package tiktok

import (
	"bytes"
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

const defaultBaseURL = "https://open.tiktokapis.com/v2"

// Config represents TikTok open API configuration
type Config struct {
	AccessToken string `json:"access_token"`
	BaseURL     string `json:"base_url"`
}

// Client calls the TikTok open API. List endpoints are POST with a JSON
// cursor body; the requested fields travel in the query string.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
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
	}
}

func (c *Client) Platform() model.Platform { return model.PlatformTikTok }

func (c *Client) CostFor(platform.Operation) int64 { return 1 }

type fieldsParams struct {
	Fields string `url:"fields"`
}

type videoEntry struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	VideoDesc    string `json:"video_description"`
	CoverURL     string `json:"cover_image_url"`
	ShareURL     string `json:"share_url"`
	Duration     int64  `json:"duration"`
	CreateTime   int64  `json:"create_time"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	ShareCount   int64  `json:"share_count"`
}

type videoListResponse struct {
	Data struct {
		Videos  []videoEntry `json:"videos"`
		Cursor  int64        `json:"cursor"`
		HasMore bool         `json:"has_more"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchContent lists the authorized user's recent videos
func (c *Client) FetchContent(ctx context.Context, cfg repository.FetchConfig) ([]model.ContentItem, error) {
	body := map[string]interface{}{}
	if cfg.MaxResults > 0 {
		body["max_count"] = cfg.MaxResults
	}
	if cfg.ContentID != "" {
		body["filters"] = map[string]interface{}{"video_ids": []string{cfg.ContentID}}
	}
	params := fieldsParams{
		Fields: "id,title,video_description,cover_image_url,share_url,duration,create_time,like_count,comment_count,share_count",
	}

	var resp videoListResponse
	endpoint := "/video/list/"
	if cfg.ContentID != "" {
		endpoint = "/video/query/"
	}
	if err := c.post(ctx, endpoint, params, body, &resp); err != nil {
		return nil, err
	}
	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return nil, &model.TransportError{StatusCode: 400, Message: resp.Error.Message}
	}

	items := make([]model.ContentItem, 0, len(resp.Data.Videos))
	for _, v := range resp.Data.Videos {
		item, reason := normalizeVideo(v, cfg.PublishedAfter)
		if reason != "" {
			logger.GetLogger().WithField("reason", reason).Debug("Dropping malformed TikTok video")
			continue
		}
		if item == nil {
			continue // filtered by PublishedAfter
		}
		items = append(items, *item)
	}
	return items, nil
}

type userInfoResponse struct {
	Data struct {
		User struct {
			OpenID         string `json:"open_id"`
			DisplayName    string `json:"display_name"`
			BioDescription string `json:"bio_description"`
			AvatarURL      string `json:"avatar_url"`
			FollowerCount  int64  `json:"follower_count"`
			VideoCount     int64  `json:"video_count"`
		} `json:"user"`
	} `json:"data"`
}

func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*model.ChannelInfo, error) {
	params := fieldsParams{
		Fields: "open_id,display_name,bio_description,avatar_url,follower_count,video_count",
	}
	var resp userInfoResponse
	if err := c.get(ctx, "/user/info/", params, &resp); err != nil {
		return nil, err
	}
	u := resp.Data.User
	return &model.ChannelInfo{
		ID:            u.OpenID,
		Platform:      model.PlatformTikTok,
		Name:          u.DisplayName,
		Description:   u.BioDescription,
		AvatarURL:     u.AvatarURL,
		FollowerCount: u.FollowerCount,
		ContentCount:  u.VideoCount,
	}, nil
}

type liveInfoResponse struct {
	Data struct {
		RoomID      string `json:"room_id"`
		Title       string `json:"title"`
		Status      int    `json:"status"` // 2 while live
		ViewerCount int64  `json:"viewer_count"`
	} `json:"data"`
}

func (c *Client) GetStreamStatus(ctx context.Context, streamID string) (*model.StreamStatus, error) {
	params := fieldsParams{Fields: "room_id,title,status,viewer_count"}
	var resp liveInfoResponse
	if err := c.post(ctx, "/live/info/", params, map[string]interface{}{"room_id": streamID}, &resp); err != nil {
		return nil, err
	}
	return &model.StreamStatus{
		StreamID:    streamID,
		Platform:    model.PlatformTikTok,
		Live:        resp.Data.Status == 2,
		Title:       resp.Data.Title,
		ViewerCount: resp.Data.ViewerCount,
	}, nil
}

func normalizeVideo(v videoEntry, publishedAfter time.Time) (*model.ContentItem, string) {
	if v.ID == "" {
		return nil, "missing video id"
	}
	if v.CreateTime <= 0 {
		return nil, "missing create_time"
	}
	publishedAt := time.Unix(v.CreateTime, 0).UTC()
	if !publishedAfter.IsZero() && publishedAt.Before(publishedAfter) {
		return nil, ""
	}
	title := v.Title
	if title == "" {
		title = v.VideoDesc
	}
	return &model.ContentItem{
		Platform:     model.PlatformTikTok,
		ContentType:  model.ContentTypeShort,
		ExternalID:   v.ID,
		Title:        title,
		Description:  v.VideoDesc,
		ThumbnailURL: v.CoverURL,
		OriginalURL:  v.ShareURL,
		PublishedAt:  publishedAt,
		Duration:     fmt.Sprintf("PT%dS", v.Duration),
		Engagement: model.Engagement{
			Likes:    v.LikeCount,
			Comments: v.CommentCount,
			Shares:   v.ShareCount,
		},
	}, ""
}

func (c *Client) get(ctx context.Context, path string, params interface{}, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) post(ctx context.Context, path string, params interface{}, body map[string]interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, params, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params interface{}, body map[string]interface{}, out interface{}) error {
	values, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("failed to encode query params: %w", err)
	}
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+values.Encode(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &model.TransportError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
