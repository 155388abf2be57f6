package http

import (
	"context"
	"net/http"
	"strconv"

	"content-hub/domain/dto"
	"content-hub/domain/model"
	"content-hub/infrastructure/logger"
	"content-hub/usecase"

	"github.com/gin-gonic/gin"
)

// IPrefetchHandler exposes behavior recording and the prediction engine
type IPrefetchHandler interface {
	RecordBehavior(ctx *gin.Context)
	GetPredictions(ctx *gin.Context)
	TriggerPrefetch(ctx *gin.Context)
	GetModels(ctx *gin.Context)
}

type PrefetchHandler struct {
	engine usecase.IPrefetchEngine
	// sink persists events beyond the engine's rolling window; optional
	sink func(ctx context.Context, rec model.BehaviorRecord) error
}

func NewPrefetchHandler(engine usecase.IPrefetchEngine, sink func(ctx context.Context, rec model.BehaviorRecord) error) IPrefetchHandler {
	return &PrefetchHandler{engine: engine, sink: sink}
}

// RecordBehavior handles POST /api/behavior/events
func (h *PrefetchHandler) RecordBehavior(ctx *gin.Context) {
	var req dto.BehaviorEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.Res{
			ResponseCode:    "400",
			ResponseMessage: err.Error(),
		})
		return
	}
	platform := model.Platform(req.Platform)
	contentType := model.ContentType(req.Type)
	if !platform.IsValid() || !contentType.IsValid() {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.Res{
			ResponseCode:    "400",
			ResponseMessage: "unknown platform or content type",
		})
		return
	}
	rec := model.BehaviorRecord{
		UserID:    req.UserID,
		Action:    req.Action,
		SessionID: req.SessionID,
		Content: model.ContentRef{
			Platform: platform,
			Type:     contentType,
			ID:       req.ContentID,
		},
	}
	h.engine.RecordBehavior(rec)
	if h.sink != nil {
		if err := h.sink(ctx.Request.Context(), rec); err != nil {
			// persistence is best-effort; the engine already has the event
			logger.GetLogger().WithField("error", err).Warn("Failed persisting behavior event.")
		}
	}
	ctx.JSON(http.StatusAccepted, dto.Res{ResponseCode: "202", ResponseMessage: "Accepted"})
}

// GetPredictions handles GET /api/prefetch/predictions
func (h *PrefetchHandler) GetPredictions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "OK",
		Data:            h.engine.Predict(),
	})
}

// TriggerPrefetch handles POST /api/prefetch/run
func (h *PrefetchHandler) TriggerPrefetch(ctx *gin.Context) {
	issued := h.engine.ExecutePrefetch(ctx.Request.Context())
	ctx.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "OK",
		Data:            gin.H{"prefetched": issued},
	})
}

// GetModels handles GET /api/prefetch/models
func (h *PrefetchHandler) GetModels(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "OK",
		Data:            h.engine.Models(),
	})
}

// parseLimit reads an optional positive "limit" query param
func parseLimit(ctx *gin.Context, fallback int) int {
	if v, err := strconv.Atoi(ctx.Query("limit")); err == nil && v > 0 {
		return v
	}
	return fallback
}
