package server

import (
	"net/http"
	"time"

	httpHandler "content-hub/interfaces/http"
	"content-hub/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SSEHandler streams live feed updates; satisfied by realtime.Hub
type SSEHandler interface {
	Serve(c *gin.Context)
}

func InitiateRouter(
	feedHandler httpHandler.IFeedHandler,
	prefetchHandler httpHandler.IPrefetchHandler,
	notificationHandler httpHandler.INotificationHandler,
	quotaHandler httpHandler.IQuotaHandler,
	feedHub SSEHandler,
	secretKey string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	router.GET("/healthz", feedHandler.Healthz)

	// Live updates are consumed by EventSource, which cannot send an
	// Authorization header, so the stream stays outside the api group.
	if feedHub != nil {
		router.GET("/events", feedHub.Serve)
	}

	api.GET("/feed", feedHandler.GetFeed)
	api.POST("/feed/refresh", feedHandler.RefreshFeed)
	api.GET("/feed/:platform/channel/:channelId", feedHandler.GetChannelInfo)
	api.GET("/feed/:platform/stream/:streamId", feedHandler.GetStreamStatus)

	if prefetchHandler != nil {
		api.POST("/behavior/events", prefetchHandler.RecordBehavior)
		prefetch := api.Group("/prefetch")
		{
			prefetch.GET("/predictions", prefetchHandler.GetPredictions)
			prefetch.POST("/run", prefetchHandler.TriggerPrefetch)
			prefetch.GET("/models", prefetchHandler.GetModels)
		}
	}

	if notificationHandler != nil {
		notifications := api.Group("/notifications")
		{
			notifications.POST("/confirm", notificationHandler.Confirm)
			notifications.GET("/stats", notificationHandler.GetStats)
			notifications.GET("/recent", notificationHandler.GetRecent)
		}
	} else {
		api.GET("/notifications/stats", func(ctx *gin.Context) {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "notification channel not configured",
				"message": "Configure Pub/Sub or Service Bus credentials to enable notifications",
			})
		})
	}

	if quotaHandler != nil {
		quota := api.Group("/quota")
		{
			quota.GET("", quotaHandler.GetStates)
			quota.GET("/plan", quotaHandler.GetPlan)
			quota.POST("/allocate", quotaHandler.Allocate)
		}
	}

	return router
}
