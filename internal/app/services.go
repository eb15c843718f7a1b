package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/aggregates"
	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/idempotency"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/stocknotify"
)

type Services struct {
	Carts     domainagg.CartAggregate
	Placement domainagg.OrderPlacementAggregate
	Lifecycle domainagg.OrderLifecycleAggregate
	Payments  domainagg.PaymentAggregate
	Stock     domainagg.StockAggregate

	Idempotency idempotency.Detector
	Notifier    stocknotify.Notifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, reposet repos.Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	detector, err := wireIdempotency(cfg, clients)
	if err != nil {
		return Services{}, err
	}
	notifier, err := wireNotifier(log, cfg, metrics, clients)
	if err != nil {
		return Services{}, err
	}

	base := aggregates.BaseDeps{DB: db, Log: log, Metrics: metrics}
	return Services{
		Carts: aggregates.NewCartAggregate(aggregates.CartAggregateDeps{
			Base:     base,
			Carts:    reposet.Carts,
			Products: reposet.Products,
		}),
		Placement: aggregates.NewOrderPlacementAggregate(aggregates.OrderPlacementAggregateDeps{
			Base:     base,
			Users:    reposet.Users,
			Carts:    reposet.Carts,
			Products: reposet.Products,
			Orders:   reposet.Orders,
			Notifier: notifier,
		}),
		Lifecycle: aggregates.NewOrderLifecycleAggregate(aggregates.OrderLifecycleAggregateDeps{
			Base:     base,
			Orders:   reposet.Orders,
			Products: reposet.Products,
			Notifier: notifier,
		}),
		Payments: aggregates.NewPaymentAggregate(aggregates.PaymentAggregateDeps{
			Base:           base,
			Orders:         reposet.Orders,
			Payments:       reposet.Payments,
			Gateway:        clients.Gateway,
			Idempotency:    detector,
			InFlightWindow: cfg.PaymentInFlight,
		}),
		Stock: aggregates.NewStockAggregate(aggregates.StockAggregateDeps{
			Base:     base,
			Products: reposet.Products,
			Notifier: notifier,
		}),
		Idempotency: detector,
		Notifier:    notifier,
	}, nil
}

func wireIdempotency(cfg Config, clients Clients) (idempotency.Detector, error) {
	switch cfg.IdempotencyBackend {
	case "redis":
		if clients.Redis == nil {
			return nil, fmt.Errorf("idempotency backend redis requires a redis client")
		}
		return idempotency.NewRedis(clients.Redis, "", cfg.IdempotencyConfig(), nil)
	default:
		return idempotency.NewMemory(cfg.IdempotencyConfig(), nil), nil
	}
}

// wireNotifier fans stock changes out to every configured notifier.
func wireNotifier(log *logger.Logger, cfg Config, metrics *observability.Metrics, clients Clients) (stocknotify.Notifier, error) {
	notifiers := []stocknotify.Notifier{stocknotify.NewLowStock(log, metrics, cfg.LowStockThreshold)}
	if clients.Redis != nil {
		pub, err := stocknotify.NewRedisPublisher(log, clients.Redis, cfg.StockChannel)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, pub)
	}
	if clients.Mailer != nil && len(cfg.LowStockEmails) > 0 {
		alert, err := stocknotify.NewEmailAlert(log, clients.Mailer, stocknotify.EmailAlertConfig{
			Threshold:  cfg.LowStockThreshold,
			Recipients: cfg.LowStockEmails,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, alert)
	}
	return stocknotify.Multi(notifiers...), nil
}
