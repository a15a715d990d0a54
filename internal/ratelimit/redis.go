package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// Redis は複数プロセスでカウンターを共有するための Limiter です。
// キーの有効期限がウィンドウの終わりを表します。
type Redis struct {
	rdb    *redis.Client
	limit  int
	period time.Duration
	now    func() time.Time
}

// NewRedis は Redis バックエンドの Limiter を作成します。
func NewRedis(rdb *redis.Client, limit int, period time.Duration) *Redis {
	return &Redis{
		rdb:    rdb,
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// NewRedisFromURL は redis:// URL から Limiter を作成します。
func NewRedisFromURL(rawURL string, limit int, period time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REDIS_URL: %w", err)
	}
	return NewRedis(redis.NewClient(opt), limit, period), nil
}

// Take はキーのカウントを1増やします。
func (r *Redis) Take(ctx context.Context, key string) (Result, error) {
	k := redisKeyPrefix + key

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	ttl := pttl.Val()
	// 新しいウィンドウ、または期限が付いていないキー（途中で失敗した場合）は期限を設定する
	if count == 1 || ttl < 0 {
		if err := r.rdb.PExpire(ctx, k, r.period).Err(); err != nil {
			return Result{}, err
		}
		ttl = r.period
	}

	now := r.now()
	return newResult(r.limit, count, now.Add(ttl), now), nil
}

// Close は Redis クライアントを閉じます。
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Ping は Redis への疎通を確認します。
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
