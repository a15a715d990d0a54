// Package ratelimit はクライアントアドレス単位の固定ウィンドウ方式レート制限を提供します。
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/hello-gin/internal/httperr"
)

// DefaultMessage は制限超過時に返す文言です。
const DefaultMessage = "Too many requests, please try again later."

// Result は1回のカウント結果です。
type Result struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	Allowed    bool
}

// Limiter はキーごとのリクエストを数えます。
type Limiter interface {
	Take(ctx context.Context, key string) (Result, error)
}

func newResult(limit, count int, resetAt, now time.Time) Result {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
		Allowed:   count <= limit,
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
	}
	return res
}

// Middleware は c.ClientIP() をキーにレート制限を行うミドルウェアです。
// 制限超過時は429のエラーを登録して後続を止めます。Limiter 自体の障害時はリクエストを通します。
func Middleware(limiter Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		res, err := limiter.Take(c.Request.Context(), ip)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", zap.String("ip", ip), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			// Retry-After は秒数で返す（切り上げ）
			seconds := int64((res.RetryAfter + time.Second - 1) / time.Second)
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			_ = c.Error(httperr.TooManyRequests(DefaultMessage))
			c.Abort()
			return
		}

		c.Next()
	}
}
