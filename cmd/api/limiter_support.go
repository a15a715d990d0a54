package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/hello-gin/internal/config"
	"github.com/yourusername/hello-gin/internal/ratelimit"
)

// setupLimiter は設定に応じてレート制限のバックエンドを選びます。
// RATE_LIMIT_REDIS_URL が空ならプロセス内メモリで数えます。
func setupLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimitRedisURL == "" {
		limiter := ratelimit.NewMemory(cfg.RateLimitMax, cfg.RateLimitWindow)
		return limiter, limiter.Stop, nil
	}

	limiter, err := ratelimit.NewRedisFromURL(cfg.RateLimitRedisURL, cfg.RateLimitMax, cfg.RateLimitWindow)
	if err != nil {
		return nil, nil, err
	}
	if err := limiter.Ping(ctx); err != nil {
		_ = limiter.Close()
		return nil, nil, fmt.Errorf("failed to reach rate limit redis: %w", err)
	}
	logger.Info("using redis rate limiter")

	closeFn := func() {
		if err := limiter.Close(); err != nil {
			logger.Warn("failed to close rate limit redis", zap.Error(err))
		}
	}
	return limiter, closeFn, nil
}
