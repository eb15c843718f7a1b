package idempotency

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *goredis.Client {
	t.Helper()
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisDetectorWindow(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	d, err := NewRedis(rdb, "sf:test:"+uuid.NewString(), Config{}, clock.Now)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	orderID := uuid.New()

	if seen, err := d.Seen(ctx, orderID, "tok"); err != nil || seen {
		t.Fatalf("fresh token: want false,nil got %v,%v", seen, err)
	}
	if err := d.Remember(ctx, orderID, "tok"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if seen, err := d.Seen(ctx, orderID, "tok"); err != nil || !seen {
		t.Fatalf("expected duplicate: got %v,%v", seen, err)
	}
	clock.Advance(6 * time.Minute)
	if seen, err := d.Seen(ctx, orderID, "tok"); err != nil || seen {
		t.Fatalf("expected window to have passed: got %v,%v", seen, err)
	}
}

func TestNewRedisRequiresClient(t *testing.T) {
	if _, err := NewRedis(nil, "", Config{}, nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
