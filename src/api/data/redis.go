package data

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
)

const (
	revokedPrefix = "revoked:"
	ratePrefix    = "ratelimit:"
	StreamHistory = "dualagents.history"
)

func NewRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return redis.NewClient(opt), nil
}

func MustRedis(url string) *redis.Client {
	rdb, err := NewRedis(url)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return rdb
}

// PublishHistory appends a history.created event to the history stream.
func PublishHistory(ctx context.Context, rdb *redis.Client, rec *types.SearchHistory) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamHistory,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"event":      "history.created",
			"id":         rec.ID,
			"agent_id":   rec.AgentID,
			"session_id": rec.SessionID,
			"user_id":    rec.CreatedBy,
			"time":       rec.CreatedAt.Unix(),
		},
	}).Result()
	return err
}

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	rdb    *redis.Client
	rate   int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, rate: rate, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := time.Now().UnixNano() / int64(l.window)
	k := ratePrefix + key + ":" + strconv.FormatInt(slot, 10)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.rate), nil
}

func (l *RedisLimiter) Describe() string {
	return fmt.Sprintf("%d requests per %v", l.rate, l.window)
}

// Revocations keeps logged-out token IDs until their natural expiry.
type Revocations struct {
	rdb *redis.Client
}

func NewRevocations(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb}
}

func (r *Revocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
