package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis counts requests per key in fixed windows shared by every instance
// pointed at the same server.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	limit     int64
	window    time.Duration
	now       func() time.Time
}

// NewRedis builds a limiter on an existing client
func NewRedis(client redis.UniversalClient, namespace string, perMinute int) *Redis {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Redis{
		client:    client,
		namespace: namespace,
		limit:     int64(perMinute),
		window:    time.Minute,
		now:       time.Now,
	}
}

// Dial connects to a single Redis node and checks it answers
func Dial(ctx context.Context, addr, password string, db int) (redis.UniversalClient, error) {
	cl := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cl.Ping(pingCtx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return cl, nil
}

func (r *Redis) windowKey(key string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%d", r.namespace, key, at.Unix()/int64(r.window/time.Second))
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.windowKey(key, r.now())

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter %s: %w", k, err)
	}
	return incr.Val() <= r.limit, nil
}
