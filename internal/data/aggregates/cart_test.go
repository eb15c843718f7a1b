package aggregates

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/records"
	repotest "github.com/yungbote/storefront-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/cart"
)

func (h *harness) addItem(userID, productID uuid.UUID, qty int) (*cart.Cart, error) {
	return h.carts().AddItem(h.ctx, domainagg.CartItemInput{UserID: userID, ProductID: productID, Quantity: qty})
}

func TestGetCartCreatesEmptyCart(t *testing.T) {
	h := newHarness(t)
	userID := h.user()

	c, err := h.carts().GetCart(h.ctx, userID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if !c.IsEmpty() || c.UserID() != userID {
		t.Fatalf("want empty cart for user, got %d lines", len(c.Lines()))
	}
	again, err := h.carts().GetCart(h.ctx, userID)
	if err != nil {
		t.Fatalf("GetCart again: %v", err)
	}
	if again.ID() != c.ID() {
		t.Fatalf("second read created another cart")
	}
	var n int64
	h.db.Model(&records.Cart{}).Where("user_id = ?", userID).Count(&n)
	if n != 1 {
		t.Fatalf("want 1 cart row, got %d", n)
	}
}

func TestAddItemMergesLines(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	mug := h.product("Mug", "10.00", 10)
	pen := h.product("Pen", "2.50", 10)

	if _, err := h.addItem(userID, mug.ID, 2); err != nil {
		t.Fatalf("add mug: %v", err)
	}
	if _, err := h.addItem(userID, pen.ID, 1); err != nil {
		t.Fatalf("add pen: %v", err)
	}
	c, err := h.addItem(userID, mug.ID, 3)
	if err != nil {
		t.Fatalf("add mug again: %v", err)
	}
	if len(c.Lines()) != 2 {
		t.Fatalf("want 2 lines, got %d", len(c.Lines()))
	}
	line, _ := c.Line(mug.ID)
	if line.Quantity.Int() != 5 {
		t.Fatalf("merged quantity: want 5 got %d", line.Quantity.Int())
	}
	total, err := c.Total()
	if err != nil || !total.Equal(usd("52.50")) {
		t.Fatalf("total: want 52.50 got %s (%v)", total, err)
	}

	reloaded, err := h.carts().GetCart(h.ctx, userID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if got := reloaded.Lines(); len(got) != 2 || got[0].ProductID != mug.ID || got[1].ProductID != pen.ID {
		t.Fatalf("lines not persisted in insertion order: %+v", got)
	}
}

func TestAddItemRejections(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	scarce := h.product("Rare", "10.00", 2)
	euro := repotest.SeedProduct(t, h.ctx, h.db, "Croissant", "1.20", "EUR", 50)

	if _, err := h.addItem(userID, scarce.ID, 0); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("zero quantity: want validation, got %v", err)
	}
	if _, err := h.addItem(userID, scarce.ID, 101); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("quantity over cap: want validation, got %v", err)
	}
	if _, err := h.addItem(userID, uuid.New(), 1); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown product: want not_found, got %v", err)
	}
	if _, err := h.addItem(userID, scarce.ID, 3); !domainagg.IsCode(err, domainagg.CodeOutOfStock) {
		t.Fatalf("over stock: want out_of_stock, got %v", err)
	}

	if _, err := h.addItem(userID, scarce.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := h.addItem(userID, euro.ID, 1)
	if !domainagg.IsCode(err, domainagg.CodeValidation) || !errors.Is(err, cart.ErrMixedCurrency) {
		t.Fatalf("mixed currency: want validation, got %v", err)
	}
	if n := h.cartLines(userID); n != 1 {
		t.Fatalf("rejected adds must not persist, cart has %d lines", n)
	}
}

func TestUpdateRemoveAndClear(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	a := h.product("A", "1.00", 20)
	b := h.product("B", "2.00", 20)
	if _, err := h.addItem(userID, a.ID, 1); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := h.addItem(userID, b.ID, 1); err != nil {
		t.Fatalf("add b: %v", err)
	}

	c, err := h.carts().UpdateQuantity(h.ctx, domainagg.CartItemInput{UserID: userID, ProductID: a.ID, Quantity: 7})
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if line, _ := c.Line(a.ID); line.Quantity.Int() != 7 {
		t.Fatalf("quantity: want 7 got %d", line.Quantity.Int())
	}
	if _, err := h.carts().UpdateQuantity(h.ctx, domainagg.CartItemInput{UserID: userID, ProductID: uuid.New(), Quantity: 1}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing line: want not_found, got %v", err)
	}

	c, err = h.carts().RemoveItem(h.ctx, userID, b.ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(c.Lines()) != 1 {
		t.Fatalf("want 1 line after remove, got %d", len(c.Lines()))
	}
	if _, err := h.carts().RemoveItem(h.ctx, userID, b.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("remove twice: want not_found, got %v", err)
	}

	c, err = h.carts().Clear(h.ctx, userID)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !c.IsEmpty() || h.cartLines(userID) != 0 {
		t.Fatalf("cart not cleared")
	}
}

func TestCartFeedsPlacement(t *testing.T) {
	h := newHarness(t)
	userID := h.user()
	p := h.product("Desk", "120.00", 3)
	if _, err := h.addItem(userID, p.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := h.placement().PlaceOrder(h.ctx, placeInput(userID))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !res.Order.Total().Equal(usd("240.00")) {
		t.Fatalf("total: want 240.00 got %s", res.Order.Total())
	}
	c, err := h.carts().GetCart(h.ctx, userID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("cart should be empty after placement")
	}
}
