package facebook

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

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// timeLayout is the Graph API timestamp format (RFC 3339 without the colon
// in the zone offset).
const timeLayout = "2006-01-02T15:04:05-0700"

// Config represents Facebook Graph API configuration
type Config struct {
	AccessToken string `json:"access_token"`
	PageID      string `json:"page_id"`
	BaseURL     string `json:"base_url"`
}

// Client calls the Facebook Graph API for a single page
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	pageID      string
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
		pageID:      config.PageID,
	}
}

func (c *Client) Platform() model.Platform { return model.PlatformFacebook }

func (c *Client) CostFor(platform.Operation) int64 { return 1 }

type requestParams struct {
	Fields      string `url:"fields"`
	Limit       int64  `url:"limit,omitempty"`
	Since       int64  `url:"since,omitempty"`
	AccessToken string `url:"access_token"`
}

type postEntry struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	CreatedTime  string `json:"created_time"`
	PermalinkURL string `json:"permalink_url"`
	FullPicture  string `json:"full_picture"`
	Shares       struct {
		Count int64 `json:"count"`
	} `json:"shares"`
	Likes struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"likes"`
	Comments struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
}

type postsResponse struct {
	Data []postEntry `json:"data"`
}

// FetchContent lists recent page posts
func (c *Client) FetchContent(ctx context.Context, cfg repository.FetchConfig) ([]model.ContentItem, error) {
	params := requestParams{
		Fields:      "id,message,created_time,permalink_url,full_picture,shares,likes.summary(true),comments.summary(true)",
		Limit:       cfg.MaxResults,
		AccessToken: c.accessToken,
	}
	if !cfg.PublishedAfter.IsZero() {
		params.Since = cfg.PublishedAfter.Unix()
	}

	var resp postsResponse
	if cfg.ContentID != "" {
		var single postEntry
		if err := c.get(ctx, cfg.ContentID, params, &single); err != nil {
			return nil, err
		}
		resp.Data = []postEntry{single}
	} else if err := c.get(ctx, c.pageID+"/posts", params, &resp); err != nil {
		return nil, err
	}

	items := make([]model.ContentItem, 0, len(resp.Data))
	for _, p := range resp.Data {
		item, reason := normalizePost(p)
		if reason != "" {
			logger.GetLogger().WithField("reason", reason).Debug("Dropping malformed Facebook post")
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

type pageResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	About        string `json:"about"`
	FollowersCnt int64  `json:"followers_count"`
	PublishedCnt int64  `json:"published_posts_count"`
	Picture      struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*model.ChannelInfo, error) {
	if channelID == "" {
		channelID = c.pageID
	}
	params := requestParams{
		Fields:      "id,name,about,followers_count,published_posts_count,picture",
		AccessToken: c.accessToken,
	}
	var resp pageResponse
	if err := c.get(ctx, channelID, params, &resp); err != nil {
		return nil, err
	}
	return &model.ChannelInfo{
		ID:            resp.ID,
		Platform:      model.PlatformFacebook,
		Name:          resp.Name,
		Description:   resp.About,
		AvatarURL:     resp.Picture.Data.URL,
		FollowerCount: resp.FollowersCnt,
		ContentCount:  resp.PublishedCnt,
	}, nil
}

type liveVideoResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"` // LIVE, LIVE_STOPPED, VOD, ...
	LiveViews    int64  `json:"live_views"`
	CreationTime string `json:"creation_time"`
}

func (c *Client) GetStreamStatus(ctx context.Context, streamID string) (*model.StreamStatus, error) {
	params := requestParams{
		Fields:      "id,title,status,live_views,creation_time",
		AccessToken: c.accessToken,
	}
	var resp liveVideoResponse
	if err := c.get(ctx, streamID, params, &resp); err != nil {
		return nil, err
	}
	status := &model.StreamStatus{
		StreamID:    streamID,
		Platform:    model.PlatformFacebook,
		Live:        resp.Status == "LIVE",
		Title:       resp.Title,
		ViewerCount: resp.LiveViews,
	}
	if t, err := time.Parse(timeLayout, resp.CreationTime); err == nil {
		status.StartedAt = t
	}
	return status, nil
}

func normalizePost(p postEntry) (*model.ContentItem, string) {
	if p.ID == "" {
		return nil, "missing post id"
	}
	publishedAt, err := time.Parse(timeLayout, p.CreatedTime)
	if err != nil {
		return nil, "unparseable created_time: " + p.CreatedTime
	}
	title := p.Message
	if len(title) > 120 {
		title = title[:120]
	}
	return &model.ContentItem{
		Platform:     model.PlatformFacebook,
		ContentType:  model.ContentTypePost,
		ExternalID:   p.ID,
		Title:        title,
		Description:  p.Message,
		ThumbnailURL: p.FullPicture,
		OriginalURL:  p.PermalinkURL,
		PublishedAt:  publishedAt,
		Engagement: model.Engagement{
			Likes:    p.Likes.Summary.TotalCount,
			Comments: p.Comments.Summary.TotalCount,
			Shares:   p.Shares.Count,
		},
	}, ""
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
