package stocknotify

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type call struct {
	productID uuid.UUID
	qty       int
}

func TestMultiFansOut(t *testing.T) {
	var a, b []call
	n := Multi(
		Func(func(_ context.Context, id uuid.UUID, q int) { a = append(a, call{id, q}) }),
		nil,
		Func(func(_ context.Context, id uuid.UUID, q int) { b = append(b, call{id, q}) }),
	)
	id := uuid.New()
	n.OnStockChanged(context.Background(), id, 3)

	if len(a) != 1 || len(b) != 1 || a[0].productID != id || b[0].qty != 3 {
		t.Fatalf("unexpected calls: a=%+v b=%+v", a, b)
	}
	if _, ok := Multi(nil, nil).(nop); !ok {
		t.Fatalf("Multi of nothing should be a no-op notifier")
	}
}

func TestLowStockCountsAlerts(t *testing.T) {
	m := observability.NewMetrics()
	n := NewLowStock(logger.Nop(), m, 5)

	n.OnStockChanged(context.Background(), uuid.New(), 10)
	n.OnStockChanged(context.Background(), uuid.New(), 4)
	n.OnStockChanged(context.Background(), uuid.New(), 0)

	if got := m.LowStockAlerts(); got != 2 {
		t.Fatalf("expected 2 low stock alerts, got %v", got)
	}
}

func TestRedisPublisherRoundTrip(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	pub, err := NewRedisPublisher(logger.Nop(), rdb, "stock-test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("NewRedisPublisher: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan Event, 1)
	if err := pub.Subscribe(ctx, func(ev Event) { got <- ev }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	id := uuid.New()
	pub.OnStockChanged(ctx, id, 7)

	select {
	case ev := <-got:
		if ev.ProductID != id || ev.AvailableQuantity != 7 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for stock event")
	}
}
