package stocknotify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

const DefaultChannel = "stock"

type Event struct {
	ProductID         uuid.UUID `json:"product_id"`
	AvailableQuantity int       `json:"available_quantity"`
	ChangedAt         time.Time `json:"changed_at"`
}

// RedisPublisher publishes each change as a JSON Event on a pub/sub channel so catalog
// caches in other processes can refresh.
type RedisPublisher struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	timeout time.Duration
}

func NewRedisPublisher(log *logger.Logger, rdb *goredis.Client, channel string) (*RedisPublisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		log:     log.With("service", "RedisStockPublisher"),
		rdb:     rdb,
		channel: channel,
		timeout: 2 * time.Second,
	}, nil
}

func (p *RedisPublisher) OnStockChanged(ctx context.Context, productID uuid.UUID, newQuantity int) {
	if err := p.Publish(ctx, Event{ProductID: productID, AvailableQuantity: newQuantity, ChangedAt: time.Now().UTC()}); err != nil {
		p.log.Warn("stock event publish failed", "product_id", productID, "error", err)
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	// The request context may already be finishing once the transaction has committed.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return p.rdb.Publish(pctx, p.channel, raw).Err()
}

// Subscribe forwards events from the channel to onEvent until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	sub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					p.log.Warn("bad stock event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}
