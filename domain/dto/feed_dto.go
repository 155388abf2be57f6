package dto

import (
	"time"

	"content-hub/domain/model"
)

// FeedRequest represents a feed fetch/query request
type FeedRequest struct {
	Platforms    []model.Platform    `json:"platforms,omitempty"`
	Types        []model.ContentType `json:"types,omitempty"`
	Page         int                 `json:"page,omitempty"`
	PerPage      int                 `json:"per_page,omitempty"`
	Sort         string              `json:"sort,omitempty"`  // date, popularity
	Order        string              `json:"order,omitempty"` // asc, desc
	ForceRefresh bool                `json:"force_refresh,omitempty"`
}

// Pagination describes the page window of a feed response
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// FeedMeta carries aggregation metadata alongside the items
type FeedMeta struct {
	FromCache   bool             `json:"from_cache"`
	Fetched     int              `json:"fetched"`
	Platforms   []model.Platform `json:"platforms"`
	GeneratedAt time.Time        `json:"generated_at"`
	ElapsedMs   int64            `json:"elapsed_ms"`
}

// FeedResponse always carries both data and errors. Status is "success" when
// at least one platform succeeded, "error" when every platform failed.
type FeedResponse struct {
	Status     string              `json:"status"`
	Items      []model.ContentItem `json:"data"`
	Errors     map[string]string   `json:"errors"`
	Pagination Pagination          `json:"pagination"`
	Meta       FeedMeta            `json:"meta"`
}

// BehaviorEventRequest records one client access event
type BehaviorEventRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Action    string `json:"action" binding:"required"`
	Platform  string `json:"platform" binding:"required"`
	Type      string `json:"type" binding:"required"`
	ContentID string `json:"content_id" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// NotificationConfirmRequest is the asynchronous confirmation callback body
type NotificationConfirmRequest struct {
	NotificationID string `json:"notification_id" binding:"required"`
	Status         string `json:"status,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// Res is the generic response envelope
type Res struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}
