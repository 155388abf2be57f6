package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/cache"
	"content-hub/infrastructure/clients"
	"content-hub/infrastructure/configuration"
	"content-hub/infrastructure/logger"
	"content-hub/infrastructure/persistence"
	"content-hub/infrastructure/pubsub"
	"content-hub/infrastructure/realtime"
	"content-hub/infrastructure/retry"
	"content-hub/infrastructure/servicebus"
	httpHandler "content-hub/interfaces/http"
	"content-hub/server"
	"content-hub/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	app := configuration.C.App
	feedCfg := configuration.C.Feed

	psqlDb, mssqlDb := InitiateDatabase()

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - delivery log falls back to memory")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - delivery log falls back to memory")
		mongoDb = nil
	} else {
		logger.GetLogger().Info("MongoDB connected successfully")
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - quota counters will not survive restarts")
		redisClient = nil
	}

	// Content cache: PostgreSQL first, MSSQL second, in-process memory last.
	hardTTL := time.Duration(feedCfg.HardTTLHours) * time.Hour
	softTTL := time.Duration(feedCfg.SoftTTLMinutes) * time.Minute
	var contentCache repository.IContentCache
	switch {
	case psqlDb != nil:
		if err := persistence.EnsureContentCacheSchema(psqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring content cache schema")
		}
		contentCache = persistence.NewContentCacheRepository(psqlDb, hardTTL)
		logger.GetLogger().Info("Content cache backed by PostgreSQL")
	case mssqlDb != nil:
		if err := persistence.EnsureContentCacheSchemaMSSQL(mssqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring content cache schema")
		}
		contentCache = persistence.NewContentCacheRepositoryMSSQL(mssqlDb, hardTTL)
		logger.GetLogger().Info("Content cache backed by MSSQL")
	default:
		contentCache = cache.NewMemoryCache(hardTTL)
		logger.GetLogger().Info("No database available; content cache kept in memory")
	}

	// Quota manager with optional Redis-backed counters
	budgets := make(map[model.Platform]int64, len(configuration.C.Quota.DailyBudgets))
	for name, budget := range configuration.C.Quota.DailyBudgets {
		budgets[model.Platform(name)] = budget
	}
	var quotaStore repository.IQuotaStore
	if redisClient != nil {
		quotaStore = cache.NewQuotaStore(redisClient)
	}
	quotaManager := usecase.NewQuotaManager(budgets, configuration.C.Quota.SafetyMargin, quotaStore)

	fetchExecutor := retry.NewExecutor(retry.Policy{})
	fetchTimeout := time.Duration(feedCfg.TimeoutSeconds) * time.Second
	adapters := clients.BuildAdapters(ctx, configuration.C.Platforms, quotaManager, fetchExecutor, fetchTimeout)
	if len(adapters) == 0 {
		logger.GetLogger().Warn("No platform adapters configured; the feed will serve cache contents only")
	}

	feedService := usecase.NewFeedService(adapters, contentCache, feedCfg.MaxConcurrent, softTTL)

	// Notification channel: Pub/Sub first, Service Bus as the Azure alternative
	var channel repository.INotificationChannel
	if configuration.C.Pubsub.ProjectID != "" {
		pubSubClient, err := pubsub.NewClient(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available")
		} else {
			channel = pubsub.NewNotificationChannel(pubSubClient, configuration.C.Pubsub.Topic)
			logger.GetLogger().Info("Notifications published via Pub/Sub")
		}
	}
	if channel == nil && configuration.C.ServiceBus.Namespace != "" {
		sbClient, err := servicebus.NewClient(configuration.C.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available")
		} else {
			channel = servicebus.NewNotificationChannel(sbClient, configuration.C.ServiceBus.Queue)
			logger.GetLogger().Info("Notifications published via Service Bus")
		}
	}

	var dispatcher usecase.INotificationDispatcher
	if channel != nil {
		var deliveryLog repository.IDeliveryLog
		if mongoDb != nil {
			deliveryLog = persistence.NewMongoDeliveryLog(mongoDb, configuration.C.Database.Mongo.Name)
		} else {
			deliveryLog = persistence.NewMemoryDeliveryLog(configuration.C.Notification.RetainedEntries)
		}
		notifyExecutor := retry.NewExecutor(retry.Policy{
			MaxAttempts: configuration.C.Notification.MaxAttempts,
			BaseDelay:   time.Duration(configuration.C.Notification.BaseDelaySeconds) * time.Second,
		})
		dispatcher = usecase.NewNotificationDispatcher(channel, deliveryLog, notifyExecutor)
	} else {
		logger.GetLogger().Info("No notification channel configured; notification features disabled")
	}

	feedHub := realtime.NewFeedHub()
	feedService = feedService.WithBroadcaster(func(items []model.ContentItem) {
		feedHub.BroadcastNewContent(items)
		if dispatcher != nil {
			dispatcher.DispatchNewContent(items)
		}
	})

	// Prefetch engine, warmed by the feed service and optionally seeded from
	// the MySQL behavior history.
	prefetchCfg := configuration.C.Prefetch
	prefetchEngine := usecase.NewPrefetchEngine(feedService, usecase.PrefetchConfig{
		MinConfidence:  prefetchCfg.MinConfidence,
		BatchSize:      prefetchCfg.BatchSize,
		HistoryLimit:   prefetchCfg.HistoryLimit,
		LearningWindow: time.Duration(prefetchCfg.LearningWindowHours) * time.Hour,
		EvalWindow:     time.Duration(prefetchCfg.EvaluationWindowMinutes) * time.Minute,
	})

	var behaviorSink func(ctx context.Context, rec model.BehaviorRecord) error
	if configuration.C.Database.Mysql.Host != "" {
		behaviorDb, err := persistence.NewBehaviorDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MySQL not available - behavior history kept in memory only")
		} else {
			behaviorStore := persistence.NewBehaviorStore(behaviorDb)
			behaviorSink = behaviorStore.Save
			seeded, err := behaviorStore.LoadRecent(ctx, prefetchCfg.HistoryLimit)
			if err != nil {
				logger.GetLogger().WithField("error", err).Warn("Failed loading behavior history")
			} else {
				for _, rec := range seeded {
					prefetchEngine.RecordBehavior(rec)
				}
				logger.GetLogger().WithField("events", len(seeded)).Info("Prefetch engine seeded from behavior history")
			}
		}
	}

	feedHandler := httpHandler.NewFeedHandler(feedService)
	prefetchHandler := httpHandler.NewPrefetchHandler(prefetchEngine, behaviorSink)
	quotaHandler := httpHandler.NewQuotaHandler(quotaManager)
	var notificationHandler httpHandler.INotificationHandler
	if dispatcher != nil {
		notificationHandler = httpHandler.NewNotificationHandler(dispatcher)
	}

	router := server.InitiateRouter(feedHandler, prefetchHandler, notificationHandler, quotaHandler, feedHub, app.SecretKey)

	// Periodic full refresh keeps the cache warm ahead of client requests
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(feedCfg.RefreshIntervalSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				refreshCtx, cancelRefresh := context.WithTimeout(ctx, fetchTimeout+10*time.Second)
				feedService.RefreshAll(refreshCtx)
				cancelRefresh()
			}
		}
	})

	// Prefetch cycle: evaluate pending predictions, then warm the next batch
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(prefetchCfg.CycleIntervalSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				prefetchCtx, cancelPrefetch := context.WithTimeout(ctx, fetchTimeout)
				issued := prefetchEngine.ExecutePrefetch(prefetchCtx)
				cancelPrefetch()
				if issued > 0 {
					logger.GetLogger().WithField("issued", issued).Debug("Prefetch cycle completed")
				}
			}
		}
	})

	// Hard-TTL sweep
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(feedCfg.SweepIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sweepCtx, cancelSweep := context.WithTimeout(ctx, 30*time.Second)
				removed, err := contentCache.ExpireStale(sweepCtx, time.Now())
				cancelSweep()
				if err != nil {
					logger.GetLogger().WithField("error", err).Warn("Cache sweep failed")
				} else if removed > 0 {
					logger.GetLogger().WithField("removed", removed).Info("Swept hard-expired cache records")
				}
			}
		}
	})

	// Stream status watcher: polls the configured channels and raises
	// edge-triggered live/offline events.
	watched := watchedStreams()
	if len(watched) > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(time.Duration(feedCfg.RefreshIntervalSeconds) * time.Second)
			defer ticker.Stop()
			prev := make(map[model.Platform]*model.StreamStatus, len(watched))
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					for platform, streamID := range watched {
						pollCtx, cancelPoll := context.WithTimeout(ctx, fetchTimeout)
						curr, err := feedService.GetStreamStatus(pollCtx, platform, streamID)
						cancelPoll()
						if err != nil {
							logger.GetLogger().WithField("error", err).WithField("platform", platform).
								Debug("Stream status poll failed")
							continue
						}
						feedHub.BroadcastStreamStatus(curr)
						if dispatcher != nil {
							dispatcher.DispatchStreamStatus(prev[platform], curr)
						}
						prev[platform] = curr
					}
				}
			}
		})
	}

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase connects the SQL backends. Both are optional: DB_VENDOR or
// a production ENV selects MSSQL, otherwise PostgreSQL is tried first.
func InitiateDatabase() (*sql.DB, *sql.DB) {
	env := os.Getenv("ENV")
	if v := os.Getenv("DB_VENDOR"); v == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, nil
		}
		return nil, mssql
	}
	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PostgreSQL not available")
		return nil, nil
	}
	return postgres, nil
}

// watchedStreams maps each enabled platform to the channel or account the
// status watcher polls; the platform client resolves the channel's current
// live broadcast from that id.
func watchedStreams() map[model.Platform]string {
	out := make(map[model.Platform]string)
	platforms := configuration.C.Platforms
	if platforms.YouTube.Enabled && platforms.YouTube.ChannelID != "" {
		out[model.PlatformYouTube] = platforms.YouTube.ChannelID
	}
	if platforms.Instagram.Enabled && platforms.Instagram.ChannelID != "" {
		out[model.PlatformInstagram] = platforms.Instagram.ChannelID
	}
	if platforms.TikTok.Enabled && platforms.TikTok.ChannelID != "" {
		out[model.PlatformTikTok] = platforms.TikTok.ChannelID
	}
	if platforms.Facebook.Enabled && platforms.Facebook.ChannelID != "" {
		out[model.PlatformFacebook] = platforms.Facebook.ChannelID
	}
	return out
}
