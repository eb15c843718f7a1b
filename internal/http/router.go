package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/storefront-backend/internal/http/handlers"
	httpMW "github.com/yungbote/storefront-backend/internal/http/middleware"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	ServiceName    string
	TracingEnabled bool

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler  *httpH.HealthHandler
	CartHandler    *httpH.CartHandler
	OrderHandler   *httpH.OrderHandler
	PaymentHandler *httpH.PaymentHandler
	StockHandler   *httpH.StockHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(httpMW.CORS(cfg.CORSOrigins))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	admin := api.Group("/")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireRole(httpMW.RoleAdmin))
	}

	// Cart
	if cfg.CartHandler != nil {
		api.GET("/cart", cfg.CartHandler.GetCart)
		api.DELETE("/cart", cfg.CartHandler.Clear)
		api.POST("/cart/items", cfg.CartHandler.AddItem)
		api.PATCH("/cart/items/:productId", cfg.CartHandler.UpdateItem)
		api.DELETE("/cart/items/:productId", cfg.CartHandler.RemoveItem)
	}

	// Orders
	if cfg.OrderHandler != nil {
		api.POST("/orders", cfg.OrderHandler.PlaceOrder)
		api.GET("/orders", cfg.OrderHandler.ListOrders)
		api.GET("/orders/:id", cfg.OrderHandler.GetOrder)
		api.POST("/orders/:id/cancel", cfg.OrderHandler.CancelOrder)
		admin.POST("/orders/:id/status", cfg.OrderHandler.TransitionStatus)
	}

	// Payments
	if cfg.PaymentHandler != nil {
		api.POST("/orders/:id/payments", cfg.PaymentHandler.ProcessPayment)
		api.GET("/orders/:id/payments", cfg.PaymentHandler.ListPayments)
		admin.POST("/payments/:id/refunds", cfg.PaymentHandler.RefundPayment)
		admin.POST("/payments/:id/reconcile", cfg.PaymentHandler.ReconcilePayment)
	}

	// Inventory
	if cfg.StockHandler != nil {
		admin.POST("/products/:id/stock", cfg.StockHandler.AdjustStock)
	}

	return r
}
