package http

import (
	"net/http"
	"strconv"

	"content-hub/domain/dto"
	"content-hub/domain/model"
	"content-hub/usecase"

	"github.com/gin-gonic/gin"
)

// IQuotaHandler exposes quota state and planning
type IQuotaHandler interface {
	GetStates(ctx *gin.Context)
	GetPlan(ctx *gin.Context)
	Allocate(ctx *gin.Context)
}

type QuotaHandler struct {
	quota usecase.IQuotaManager
}

func NewQuotaHandler(quota usecase.IQuotaManager) IQuotaHandler {
	return &QuotaHandler{quota: quota}
}

// GetStates handles GET /api/quota
func (h *QuotaHandler) GetStates(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "OK",
		Data:            h.quota.States(),
	})
}

// GetPlan handles GET /api/quota/plan?days=N
func (h *QuotaHandler) GetPlan(ctx *gin.Context) {
	days := 3
	if v, err := strconv.Atoi(ctx.Query("days")); err == nil && v > 0 {
		days = v
	}
	states := h.quota.States()
	platforms := make([]model.Platform, 0, len(states))
	for _, st := range states {
		platforms = append(platforms, st.Platform)
	}
	ctx.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "OK",
		Data:            h.quota.PlanMultiDay(platforms, days),
	})
}

// Allocate handles POST /api/quota/allocate with a platform→priority body
func (h *QuotaHandler) Allocate(ctx *gin.Context) {
	var priorities map[model.Platform]float64
	if err := ctx.ShouldBindJSON(&priorities); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.Res{
			ResponseCode:    "400",
			ResponseMessage: err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "OK",
		Data:            h.quota.AllocateByPriority(priorities),
	})
}
