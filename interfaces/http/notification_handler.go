package http

import (
	"errors"
	"net/http"
	"strconv"

	"content-hub/domain/dto"
	"content-hub/infrastructure/persistence"
	"content-hub/usecase"

	"github.com/gin-gonic/gin"
)

// INotificationHandler exposes the delivery audit trail
type INotificationHandler interface {
	Confirm(ctx *gin.Context)
	GetStats(ctx *gin.Context)
	GetRecent(ctx *gin.Context)
}

type NotificationHandler struct {
	dispatcher usecase.INotificationDispatcher
}

func NewNotificationHandler(dispatcher usecase.INotificationDispatcher) INotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// Confirm handles POST /api/notifications/confirm, the asynchronous
// receipt callback from downstream consumers.
func (h *NotificationHandler) Confirm(ctx *gin.Context) {
	var req dto.NotificationConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.Res{
			ResponseCode:    "400",
			ResponseMessage: err.Error(),
		})
		return
	}
	if err := h.dispatcher.Confirm(ctx.Request.Context(), req.NotificationID); err != nil {
		code := http.StatusConflict
		if errors.Is(err, persistence.ErrNotificationNotFound) {
			code = http.StatusNotFound
		}
		ctx.AbortWithStatusJSON(code, dto.Res{
			ResponseCode:    strconv.Itoa(code),
			ResponseMessage: err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Confirmed"})
}

// GetStats handles GET /api/notifications/stats
func (h *NotificationHandler) GetStats(ctx *gin.Context) {
	stats, err := h.dispatcher.Stats(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: stats})
}

// GetRecent handles GET /api/notifications/recent?limit=N
func (h *NotificationHandler) GetRecent(ctx *gin.Context) {
	entries, err := h.dispatcher.Recent(ctx.Request.Context(), parseLimit(ctx, 50))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: entries})
}
