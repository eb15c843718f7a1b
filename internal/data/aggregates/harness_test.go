package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/data/repos"
	repotest "github.com/yungbote/storefront-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/domain/values"
	"github.com/yungbote/storefront-backend/internal/idempotency"
	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/paygateway"
)

type harness struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	repos    repos.Repos
	base     BaseDeps
	metrics  *observability.Metrics
	notifier *spyNotifier
	gateway  *spyGateway
	idem     *idempotency.MemoryDetector
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := repotest.SQLite(t)
	log := repotest.Logger(t)
	metrics := observability.NewMetrics()
	h := &harness{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		repos:    repos.New(db, log),
		metrics:  metrics,
		notifier: &spyNotifier{},
		gateway:  &spyGateway{Sandbox: paygateway.NewSandbox(log, paygateway.Config{})},
		idem:     idempotency.NewMemory(idempotency.Config{}, nil),
	}
	h.base = BaseDeps{DB: db, Log: log, Metrics: metrics}
	return h
}

func (h *harness) placement() *orderPlacementAggregate {
	return NewOrderPlacementAggregate(OrderPlacementAggregateDeps{
		Base:     h.base,
		Users:    h.repos.Users,
		Carts:    h.repos.Carts,
		Products: h.repos.Products,
		Orders:   h.repos.Orders,
		Notifier: h.notifier,
	}).(*orderPlacementAggregate)
}

func (h *harness) lifecycle() *orderLifecycleAggregate {
	return NewOrderLifecycleAggregate(OrderLifecycleAggregateDeps{
		Base:     h.base,
		Orders:   h.repos.Orders,
		Products: h.repos.Products,
		Notifier: h.notifier,
	}).(*orderLifecycleAggregate)
}

func (h *harness) payments() *paymentAggregate {
	return NewPaymentAggregate(PaymentAggregateDeps{
		Base:        h.base,
		Orders:      h.repos.Orders,
		Payments:    h.repos.Payments,
		Gateway:     h.gateway,
		Idempotency: h.idem,
	}).(*paymentAggregate)
}

func (h *harness) stock() *stockAggregate {
	return NewStockAggregate(StockAggregateDeps{
		Base:     h.base,
		Products: h.repos.Products,
		Notifier: h.notifier,
	}).(*stockAggregate)
}

func (h *harness) carts() *cartAggregate {
	return NewCartAggregate(CartAggregateDeps{
		Base:     h.base,
		Carts:    h.repos.Carts,
		Products: h.repos.Products,
	}).(*cartAggregate)
}

func (h *harness) user() uuid.UUID {
	h.t.Helper()
	return repotest.SeedUser(h.t, h.ctx, h.db).ID
}

func (h *harness) product(name, price string, available int) *records.Product {
	h.t.Helper()
	return repotest.SeedProduct(h.t, h.ctx, h.db, name, price, "USD", available)
}

func (h *harness) cart(userID uuid.UUID, items ...repotest.CartItem) {
	h.t.Helper()
	repotest.SeedCart(h.t, h.ctx, h.db, userID, items...)
}

func (h *harness) available(productID uuid.UUID) int {
	h.t.Helper()
	return repotest.AvailableQuantity(h.t, h.ctx, h.db, productID)
}

func (h *harness) cartLines(userID uuid.UUID) int {
	h.t.Helper()
	var n int64
	if err := h.db.Model(&records.CartLine{}).
		Joins("JOIN cart ON cart.id = cart_line.cart_id").
		Where("cart.user_id = ?", userID).
		Count(&n).Error; err != nil {
		h.t.Fatalf("count cart lines: %v", err)
	}
	return int(n)
}

func (h *harness) loadOrder(id uuid.UUID) *order.Order {
	h.t.Helper()
	var row records.Order
	if err := h.db.Preload("Lines").Where("id = ?", id).First(&row).Error; err != nil {
		h.t.Fatalf("load order: %v", err)
	}
	o, err := row.ToDomain()
	if err != nil {
		h.t.Fatalf("order to domain: %v", err)
	}
	return o
}

func (h *harness) loadPayment(id uuid.UUID) *payment.Payment {
	h.t.Helper()
	var row records.Payment
	if err := h.db.Where("id = ?", id).First(&row).Error; err != nil {
		h.t.Fatalf("load payment: %v", err)
	}
	p, err := row.ToDomain()
	if err != nil {
		h.t.Fatalf("payment to domain: %v", err)
	}
	return p
}

// placeOrder seeds a user with one product line and places the order.
func (h *harness) placeOrder(price string, qty int) (*order.Order, *records.Product) {
	h.t.Helper()
	userID := h.user()
	p := h.product("Widget", price, qty+10)
	h.cart(userID, repotest.CartItem{Product: p, Quantity: qty})
	res, err := h.placement().PlaceOrder(h.ctx, placeInput(userID))
	if err != nil {
		h.t.Fatalf("PlaceOrder: %v", err)
	}
	return res.Order, p
}

func shipping() order.Address {
	return order.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

func placeInput(userID uuid.UUID) domainagg.PlaceOrderInput {
	return domainagg.PlaceOrderInput{UserID: userID, Shipping: shipping()}
}

func usd(s string) values.Money { return values.MustMoney(s, "USD") }

type stockEvent struct {
	ProductID uuid.UUID
	Quantity  int
}

type spyNotifier struct {
	mu     sync.Mutex
	Events []stockEvent
}

func (n *spyNotifier) OnStockChanged(_ context.Context, productID uuid.UUID, newQuantity int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, stockEvent{ProductID: productID, Quantity: newQuantity})
}

// spyGateway counts provider calls around the sandbox and can force failures.
type spyGateway struct {
	*paygateway.Sandbox

	mu          sync.Mutex
	ChargeCalls int
	RefundCalls int
	FailRefunds bool
	ChargeErr   error
}

func (g *spyGateway) ProcessPayment(ctx context.Context, req payment.ChargeRequest) (payment.GatewayResult, error) {
	g.mu.Lock()
	g.ChargeCalls++
	chargeErr := g.ChargeErr
	g.mu.Unlock()
	if chargeErr != nil {
		return payment.GatewayResult{}, chargeErr
	}
	return g.Sandbox.ProcessPayment(ctx, req)
}

func (g *spyGateway) RefundPayment(ctx context.Context, txnID string, amount values.Money) (payment.GatewayResult, error) {
	g.mu.Lock()
	g.RefundCalls++
	fail := g.FailRefunds
	g.mu.Unlock()
	if fail {
		return payment.GatewayResult{}, errors.New("refund endpoint unavailable")
	}
	return g.Sandbox.RefundPayment(ctx, txnID, amount)
}
