package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/repos"
	httpH "github.com/yungbote/storefront-backend/internal/http/handlers"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Cart    *httpH.CartHandler
	Order   *httpH.OrderHandler
	Payment *httpH.PaymentHandler
	Stock   *httpH.StockHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, reposet repos.Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db),
		Cart:    httpH.NewCartHandler(services.Carts),
		Order:   httpH.NewOrderHandler(reposet.Orders, services.Placement, services.Lifecycle),
		Payment: httpH.NewPaymentHandler(reposet.Orders, reposet.Payments, services.Payments),
		Stock:   httpH.NewStockHandler(services.Stock),
	}
}
