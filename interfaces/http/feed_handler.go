package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"content-hub/domain/dto"
	"content-hub/domain/model"
	"content-hub/usecase"

	"github.com/gin-gonic/gin"
)

// IFeedHandler defines the aggregated feed HTTP handlers
type IFeedHandler interface {
	GetFeed(ctx *gin.Context)
	RefreshFeed(ctx *gin.Context)
	GetChannelInfo(ctx *gin.Context)
	GetStreamStatus(ctx *gin.Context)
	Healthz(ctx *gin.Context)
}

type FeedHandler struct {
	feedService usecase.IFeedService
}

func NewFeedHandler(feedService usecase.IFeedService) IFeedHandler {
	return &FeedHandler{feedService: feedService}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	var qe *model.QuotaExhaustedError
	if errors.As(err, &qe) {
		return http.StatusTooManyRequests
	}
	var te *model.TransportError
	if errors.As(err, &te) {
		return http.StatusBadGateway
	}
	var re *model.RetryExhaustedError
	if errors.As(err, &re) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithError(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(statusFor(err), dto.Res{
		ResponseCode:    strconv.Itoa(statusFor(err)),
		ResponseMessage: err.Error(),
	})
}

func parseFeedRequest(ctx *gin.Context) dto.FeedRequest {
	req := dto.FeedRequest{
		Sort:  ctx.DefaultQuery("sort", "date"),
		Order: ctx.DefaultQuery("order", "desc"),
	}
	if raw := ctx.Query("platforms"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				req.Platforms = append(req.Platforms, model.Platform(p))
			}
		}
	}
	if raw := ctx.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Types = append(req.Types, model.ContentType(t))
			}
		}
	}
	if v, err := strconv.Atoi(ctx.Query("page")); err == nil {
		req.Page = v
	}
	// Support both snake_case and camelCase query params from frontend
	perPageRaw := ctx.Query("per_page")
	if perPageRaw == "" {
		perPageRaw = ctx.Query("perPage")
	}
	if v, err := strconv.Atoi(perPageRaw); err == nil {
		req.PerPage = v
	}
	req.ForceRefresh = ctx.Query("force_refresh") == "true" || ctx.Query("forceRefresh") == "true"
	return req
}

// GetFeed handles GET /api/feed
func (h *FeedHandler) GetFeed(ctx *gin.Context) {
	resp, err := h.feedService.GetFeed(ctx.Request.Context(), parseFeedRequest(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// RefreshFeed handles POST /api/feed/refresh
func (h *FeedHandler) RefreshFeed(ctx *gin.Context) {
	req := parseFeedRequest(ctx)
	req.ForceRefresh = true
	resp, err := h.feedService.GetFeed(ctx.Request.Context(), req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetChannelInfo handles GET /api/feed/:platform/channel/:channelId
func (h *FeedHandler) GetChannelInfo(ctx *gin.Context) {
	platform := model.Platform(ctx.Param("platform"))
	info, err := h.feedService.GetChannelInfo(ctx.Request.Context(), platform, ctx.Param("channelId"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: info})
}

// GetStreamStatus handles GET /api/feed/:platform/stream/:streamId
func (h *FeedHandler) GetStreamStatus(ctx *gin.Context) {
	platform := model.Platform(ctx.Param("platform"))
	status, err := h.feedService.GetStreamStatus(ctx.Request.Context(), platform, ctx.Param("streamId"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: status})
}

// Healthz returns OK for health checks
func (h *FeedHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
