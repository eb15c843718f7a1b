package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/paygateway"
	"github.com/yungbote/storefront-backend/internal/platform/sendgrid"
)

type Clients struct {
	// Redis is nil when no REDIS_ADDR is configured.
	Redis   *goredis.Client
	Gateway payment.Gateway
	// Mailer is nil unless SENDGRID_API_KEY is set.
	Mailer sendgrid.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping %s: %w", addr, err)
		}
		out.Redis = rdb
	}

	out.Gateway = paygateway.NewSandbox(log, cfg.GatewayConfig())

	if strings.TrimSpace(cfg.SendGridAPIKey) != "" {
		mailer, err := sendgrid.New(log, cfg.SendGridConfig())
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init sendgrid: %w", err)
		}
		out.Mailer = mailer
	}
	return out, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
