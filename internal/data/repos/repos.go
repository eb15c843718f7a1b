package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/repos/carts"
	"github.com/yungbote/storefront-backend/internal/data/repos/catalog"
	"github.com/yungbote/storefront-backend/internal/data/repos/orders"
	"github.com/yungbote/storefront-backend/internal/data/repos/payments"
	"github.com/yungbote/storefront-backend/internal/data/repos/user"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type ProductRepo = catalog.ProductRepo
type CartRepo = carts.CartRepo
type OrderRepo = orders.OrderRepo
type PaymentRepo = payments.PaymentRepo

// Repos bundles every table repo the engine uses.
type Repos struct {
	Users    UserRepo
	Products ProductRepo
	Carts    CartRepo
	Orders   OrderRepo
	Payments PaymentRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Users:    user.NewUserRepo(db, log),
		Products: catalog.NewProductRepo(db, log),
		Carts:    carts.NewCartRepo(db, log),
		Orders:   orders.NewOrderRepo(db, log),
		Payments: payments.NewPaymentRepo(db, log),
	}
}
