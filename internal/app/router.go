package app

import (
	apphttp "github.com/yungbote/storefront-backend/internal/http"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *apphttp.Server {
	return apphttp.NewServer(log, cfg.HTTPAddr, apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		ServiceName:    cfg.OtelServiceName,
		TracingEnabled: cfg.OtelEnabled,
		AuthMiddleware: middleware.Auth,
		HealthHandler:  handlers.Health,
		CartHandler:    handlers.Cart,
		OrderHandler:   handlers.Order,
		PaymentHandler: handlers.Payment,
		StockHandler:   handlers.Stock,
	})
}
