package clients

import (
	"context"
	"time"

	"content-hub/domain/model"
	"content-hub/domain/repository"
	"content-hub/infrastructure/clients/facebook"
	"content-hub/infrastructure/clients/instagram"
	"content-hub/infrastructure/clients/tiktok"
	"content-hub/infrastructure/clients/youtube"
	"content-hub/infrastructure/configuration"
	"content-hub/infrastructure/logger"
	"content-hub/infrastructure/platform"
	"content-hub/infrastructure/retry"
)

// BuildAdapters constructs one quota-gated adapter per enabled, credentialed
// platform. Platforms that are disabled or missing credentials are skipped
// with a warning so the rest of the system keeps running.
func BuildAdapters(ctx context.Context, cfg configuration.Platforms, quota repository.IQuotaGate, executor *retry.Executor, timeout time.Duration) map[model.Platform]repository.IPlatformAdapter {
	adapters := make(map[model.Platform]repository.IPlatformAdapter, 4)

	if cfg.YouTube.Enabled {
		if cfg.YouTube.APIKey == "" && cfg.YouTube.AccessToken == "" {
			logger.GetLogger().Warn("YouTube enabled but no API key or access token; skipping")
		} else if api, err := youtube.NewClient(ctx, &youtube.Config{
			ClientID:     cfg.YouTube.ClientID,
			ClientSecret: cfg.YouTube.ClientSecret,
			AccessToken:  cfg.YouTube.AccessToken,
			RefreshToken: cfg.YouTube.RefreshToken,
			ChannelID:    cfg.YouTube.ChannelID,
			APIKey:       cfg.YouTube.APIKey,
		}); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to initialize YouTube client; skipping")
		} else {
			adapters[model.PlatformYouTube] = platform.NewAdapter(api, quota, executor, timeout)
		}
	}

	if cfg.Instagram.Enabled {
		if cfg.Instagram.AccessToken == "" || cfg.Instagram.ChannelID == "" {
			logger.GetLogger().Warn("Instagram enabled but missing access token or user id; skipping")
		} else {
			api := instagram.NewClient(&instagram.Config{
				AccessToken: cfg.Instagram.AccessToken,
				UserID:      cfg.Instagram.ChannelID,
				BaseURL:     cfg.Instagram.BaseURL,
			})
			adapters[model.PlatformInstagram] = platform.NewAdapter(api, quota, executor, timeout)
		}
	}

	if cfg.TikTok.Enabled {
		if cfg.TikTok.AccessToken == "" {
			logger.GetLogger().Warn("TikTok enabled but missing access token; skipping")
		} else {
			api := tiktok.NewClient(&tiktok.Config{
				AccessToken: cfg.TikTok.AccessToken,
				BaseURL:     cfg.TikTok.BaseURL,
			})
			adapters[model.PlatformTikTok] = platform.NewAdapter(api, quota, executor, timeout)
		}
	}

	if cfg.Facebook.Enabled {
		if cfg.Facebook.AccessToken == "" || cfg.Facebook.ChannelID == "" {
			logger.GetLogger().Warn("Facebook enabled but missing access token or page id; skipping")
		} else {
			api := facebook.NewClient(&facebook.Config{
				AccessToken: cfg.Facebook.AccessToken,
				PageID:      cfg.Facebook.ChannelID,
				BaseURL:     cfg.Facebook.BaseURL,
			})
			adapters[model.PlatformFacebook] = platform.NewAdapter(api, quota, executor, timeout)
		}
	}

	return adapters
}
