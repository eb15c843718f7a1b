package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/data/repos"
	repotest "github.com/yungbote/storefront-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/order"
)

func TestPlaceOrderConvertsCart(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	p1 := h.product("Mug", "10.00", 5)
	p2 := h.product("Pen", "5.00", 3)
	h.cart(userID,
		repotest.CartItem{Product: p1, Quantity: 2},
		repotest.CartItem{Product: p2, Quantity: 1},
	)

	res, err := h.placement().PlaceOrder(h.ctx, placeInput(userID))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	o := res.Order
	if o.Status() != order.StatusPending {
		t.Fatalf("status: want pending got %s", o.Status())
	}
	if !o.Total().Equal(usd("25.00")) {
		t.Fatalf("total: want 25.00 USD got %s", o.Total())
	}
	if len(o.Lines()) != 2 || o.Lines()[0].ProductID != p1.ID || o.Lines()[1].ProductID != p2.ID {
		t.Fatalf("lines not in cart order: %+v", o.Lines())
	}
	if got := h.available(p1.ID); got != 3 {
		t.Fatalf("p1 stock: want 3 got %d", got)
	}
	if got := h.available(p2.ID); got != 2 {
		t.Fatalf("p2 stock: want 2 got %d", got)
	}
	if n := h.cartLines(userID); n != 0 {
		t.Fatalf("cart should be empty, has %d lines", n)
	}

	stored := h.loadOrder(o.ID())
	if !stored.Total().Equal(o.Total()) || stored.UserID() != userID {
		t.Fatalf("stored order mismatch: total=%s user=%s", stored.Total(), stored.UserID())
	}
	var sum = usd("0")
	for _, l := range stored.Lines() {
		sum, _ = sum.Add(l.Subtotal())
	}
	if !sum.Equal(stored.Total()) {
		t.Fatalf("total %s != sum of subtotals %s", stored.Total(), sum)
	}

	if len(h.notifier.Events) != 2 {
		t.Fatalf("want 2 stock notifications, got %d", len(h.notifier.Events))
	}
	if h.metrics.OrdersPlaced() != 1 {
		t.Fatalf("orders placed metric: %v", h.metrics.OrdersPlaced())
	}
	if h.metrics.StockChanges("placement") != 2 {
		t.Fatalf("stock change metric: %v", h.metrics.StockChanges("placement"))
	}
}

func TestPlaceOrderTotalIgnoresLaterPriceChange(t *testing.T) {
	h := newHarness(t)
	o, p := h.placeOrder("12.50", 2)

	if err := h.db.Model(&records.Product{}).Where("id = ?", p.ID).Update("price_amount", "99.00").Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if got := h.loadOrder(o.ID()).Total(); !got.Equal(usd("25.00")) {
		t.Fatalf("total changed after reprice: %s", got)
	}
}

func TestPlaceOrderOutOfStockChangesNothing(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	p1 := h.product("Lamp", "10.00", 1)
	p2 := h.product("Bulb", "2.00", 10)
	h.cart(userID,
		repotest.CartItem{Product: p2, Quantity: 3},
		repotest.CartItem{Product: p1, Quantity: 2},
	)

	_, err := h.placement().PlaceOrder(h.ctx, placeInput(userID))
	if !domainagg.IsCode(err, domainagg.CodeOutOfStock) {
		t.Fatalf("want out_of_stock, got %v", err)
	}
	var oos *domainagg.OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("want OutOfStockError in chain, got %T", err)
	}
	if oos.ProductID != p1.ID || oos.Requested != 2 || oos.Available != 1 {
		t.Fatalf("unexpected out-of-stock detail: %+v", oos)
	}
	if got := h.available(p1.ID); got != 1 {
		t.Fatalf("p1 stock changed: %d", got)
	}
	if got := h.available(p2.ID); got != 10 {
		t.Fatalf("p2 stock changed: %d", got)
	}
	if n := h.cartLines(userID); n != 2 {
		t.Fatalf("cart should keep 2 lines, has %d", n)
	}
	var orders int64
	h.db.Model(&records.Order{}).Count(&orders)
	if orders != 0 {
		t.Fatalf("no order should exist, found %d", orders)
	}
	if len(h.notifier.Events) != 0 {
		t.Fatalf("no notifications expected, got %d", len(h.notifier.Events))
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	h := newHarness(t)

	noCart := h.user()
	if _, err := h.placement().PlaceOrder(h.ctx, placeInput(noCart)); !domainagg.IsCode(err, domainagg.CodeEmptyCart) {
		t.Fatalf("missing cart: want empty_cart, got %v", err)
	}

	emptyCart := h.user()
	h.cart(emptyCart)
	if _, err := h.placement().PlaceOrder(h.ctx, placeInput(emptyCart)); !domainagg.IsCode(err, domainagg.CodeEmptyCart) {
		t.Fatalf("empty cart: want empty_cart, got %v", err)
	}
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	userID := h.user()

	if _, err := h.placement().PlaceOrder(h.ctx, domainagg.PlaceOrderInput{UserID: userID}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing shipping: want validation, got %v", err)
	}
	if _, err := h.placement().PlaceOrder(h.ctx, placeInput(uuid.Nil)); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing user: want validation, got %v", err)
	}
	if _, err := h.placement().PlaceOrder(h.ctx, placeInput(uuid.New())); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown user: want not_found, got %v", err)
	}
}

func TestPlaceOrderDeletedProduct(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	p := h.product("Discontinued", "3.00", 4)
	h.cart(userID, repotest.CartItem{Product: p, Quantity: 1})
	if err := h.db.Delete(&records.Product{}, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err := h.placement().PlaceOrder(h.ctx, placeInput(userID))
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
	if n := h.cartLines(userID); n != 1 {
		t.Fatalf("cart should be untouched, has %d lines", n)
	}
}

func TestPlaceOrderMixedCurrency(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	usdItem := h.product("Book", "10.00", 5)
	eurItem := repotest.SeedProduct(t, h.ctx, h.db, "Poster", "8.00", "EUR", 5)
	h.cart(userID,
		repotest.CartItem{Product: usdItem, Quantity: 1},
		repotest.CartItem{Product: eurItem, Quantity: 1},
	)

	_, err := h.placement().PlaceOrder(h.ctx, placeInput(userID))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got %v", err)
	}
	if !errors.Is(err, order.ErrMixedCurrency) {
		t.Fatalf("want ErrMixedCurrency in chain, got %v", err)
	}
	if got := h.available(usdItem.ID); got != 5 {
		t.Fatalf("stock changed: %d", got)
	}
}

func TestPlaceOrderSequentialBuyersNeverOversell(t *testing.T) {
	h := newHarness(t)
	p := h.product("Limited", "20.00", 3)
	first, second := h.user(), h.user()
	h.cart(first, repotest.CartItem{Product: p, Quantity: 2})
	h.cart(second, repotest.CartItem{Product: p, Quantity: 2})

	if _, err := h.placement().PlaceOrder(h.ctx, placeInput(first)); err != nil {
		t.Fatalf("first buyer: %v", err)
	}
	_, err := h.placement().PlaceOrder(h.ctx, placeInput(second))
	if !domainagg.IsCode(err, domainagg.CodeOutOfStock) {
		t.Fatalf("second buyer: want out_of_stock, got %v", err)
	}
	if got := h.available(p.ID); got != 1 {
		t.Fatalf("stock: want 1 got %d", got)
	}
}

// Runs against Postgres when TEST_POSTGRES_DSN is set so FOR UPDATE and the version
// compare-and-set are exercised; sqlite serializes on its single connection.
func TestPlaceOrderConcurrentBuyersNeverOversell(t *testing.T) {
	const buyers, stock = 10, 3
	ctx := context.Background()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	rs := repos.New(db, log)

	p := repotest.SeedProduct(t, ctx, db, "Limited", "20.00", "USD", stock)
	users := make([]uuid.UUID, buyers)
	for i := range users {
		users[i] = repotest.SeedUser(t, ctx, db).ID
		repotest.SeedCart(t, ctx, db, users[i], repotest.CartItem{Product: p, Quantity: 1})
	}
	agg := NewOrderPlacementAggregate(OrderPlacementAggregateDeps{
		Base:     BaseDeps{DB: db, Log: log},
		Users:    rs.Users,
		Carts:    rs.Carts,
		Products: rs.Products,
		Orders:   rs.Orders,
	})

	errs := make([]error, buyers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, userID := range users {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			<-start
			_, errs[i] = agg.PlaceOrder(ctx, placeInput(userID))
		}(i, userID)
	}
	close(start)
	wg.Wait()

	placed, outOfStock := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			placed++
		case domainagg.IsCode(err, domainagg.CodeOutOfStock):
			outOfStock++
		default:
			t.Fatalf("buyer %d: unexpected error %v", i, err)
		}
	}
	if placed != stock || outOfStock != buyers-stock {
		t.Fatalf("placed=%d out_of_stock=%d, want %d and %d", placed, outOfStock, stock, buyers-stock)
	}
	if got := repotest.AvailableQuantity(t, ctx, db, p.ID); got != 0 {
		t.Fatalf("final stock: want 0 got %d", got)
	}
	var orders int64
	if err := db.Model(&records.Order{}).Where("user_id IN ?", users).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != stock {
		t.Fatalf("orders: want %d got %d", stock, orders)
	}
}

func TestPlaceOrderUsesCartSnapshotPrice(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	p := h.product("Chair", "40.00", 2)
	h.cart(userID, repotest.CartItem{Product: p, Quantity: 1})
	if err := h.db.Model(&records.Product{}).Where("id = ?", p.ID).Update("price_amount", "55.00").Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}

	res, err := h.placement().PlaceOrder(h.ctx, placeInput(userID))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !res.Order.Total().Equal(usd("40.00")) {
		t.Fatalf("want cart price 40.00, got %s", res.Order.Total())
	}
}
