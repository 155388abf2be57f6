package model

import "time"

// Platform identifies an external content source
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
)

// AllPlatforms lists every platform the system knows about, in a fixed order
var AllPlatforms = []Platform{PlatformYouTube, PlatformInstagram, PlatformTikTok, PlatformFacebook}

// IsValid reports whether p is one of the known platforms
func (p Platform) IsValid() bool {
	switch p {
	case PlatformYouTube, PlatformInstagram, PlatformTikTok, PlatformFacebook:
		return true
	}
	return false
}

// ContentType classifies a content item
type ContentType string

const (
	ContentTypeVideo ContentType = "video"
	ContentTypeShort ContentType = "short"
	ContentTypePost  ContentType = "post"
	ContentTypeReel  ContentType = "reel"
	ContentTypeLive  ContentType = "live"
)

// IsValid reports whether t is a known content type
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypeVideo, ContentTypeShort, ContentTypePost, ContentTypeReel, ContentTypeLive:
		return true
	}
	return false
}

// Engagement holds the engagement counters of a content item
type Engagement struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// Total is the popularity score used for sorting
func (e Engagement) Total() int64 {
	return e.Likes + e.Comments + e.Shares
}

// Author describes the creator of a content item
type Author struct {
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// ContentKey is the cache identity of a content item
type ContentKey struct {
	Platform   Platform `json:"platform"`
	ExternalID string   `json:"external_id"`
}

// ContentItem represents one piece of content fetched from a platform
type ContentItem struct {
	Platform     Platform    `json:"platform"`
	ContentType  ContentType `json:"content_type"`
	ExternalID   string      `json:"external_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	MediaURL     string      `json:"media_url,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	OriginalURL  string      `json:"original_url,omitempty"`
	PublishedAt  time.Time   `json:"published_at"`
	Engagement   Engagement  `json:"engagement"`
	Author       Author      `json:"author"`
	Duration     string      `json:"duration,omitempty"`
}

// Key returns the (platform, externalId) identity of the item
func (c *ContentItem) Key() ContentKey {
	return ContentKey{Platform: c.Platform, ExternalID: c.ExternalID}
}

// CacheRecord wraps a ContentItem with cache bookkeeping. Records are owned
// exclusively by the content cache; Seq is the insertion sequence used as the
// stable sort tie-breaker.
type CacheRecord struct {
	Item      ContentItem `json:"item"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Seq       uint64      `json:"seq"`
}

// StaleAfter reports whether the record is older than the given soft TTL
func (r *CacheRecord) StaleAfter(softTTL time.Duration, now time.Time) bool {
	return now.Sub(r.UpdatedAt) > softTTL
}

// ChannelInfo describes a platform channel/account
type ChannelInfo struct {
	ID            string    `json:"id"`
	Platform      Platform  `json:"platform"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	FollowerCount int64     `json:"follower_count"`
	ContentCount  int64     `json:"content_count"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// StreamStatus describes the live state of a stream
type StreamStatus struct {
	StreamID    string    `json:"stream_id"`
	Platform    Platform  `json:"platform"`
	Live        bool      `json:"live"`
	Title       string    `json:"title,omitempty"`
	ViewerCount int64     `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}
