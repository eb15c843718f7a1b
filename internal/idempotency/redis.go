package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisDetector shares seen tokens across instances. Each entry stores the first-seen
// unix millis under SET NX with the retention period as its TTL.
type RedisDetector struct {
	rdb    goredis.Cmdable
	prefix string
	cfg    Config
	now    func() time.Time
}

func NewRedis(rdb goredis.Cmdable, prefix string, cfg Config, now func() time.Time) (*RedisDetector, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "sf:idem"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisDetector{rdb: rdb, prefix: prefix, cfg: cfg.withDefaults(), now: now}, nil
}

func (d *RedisDetector) Backend() string { return "redis" }

func (d *RedisDetector) Seen(ctx context.Context, orderID uuid.UUID, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	raw, err := d.rdb.Get(ctx, d.redisKey(orderID, token)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("idempotency get: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Unparseable entries count as recent so a retry is never charged twice.
		return true, nil
	}
	return d.now().Sub(time.UnixMilli(ms)) <= d.cfg.Window, nil
}

func (d *RedisDetector) Remember(ctx context.Context, orderID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	val := strconv.FormatInt(d.now().UnixMilli(), 10)
	if err := d.rdb.SetNX(ctx, d.redisKey(orderID, token), val, d.cfg.Retention).Err(); err != nil {
		return fmt.Errorf("idempotency set: %w", err)
	}
	return nil
}

func (d *RedisDetector) redisKey(orderID uuid.UUID, token string) string {
	return d.prefix + ":" + key(orderID, token)
}
