package cart

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

func newCart(t *testing.T) *Cart {
	t.Helper()
	c, err := New(uuid.Nil, uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAddItemMergesLinesAndTotals(t *testing.T) {
	c := newCart(t)
	p1, p2 := uuid.New(), uuid.New()
	now := time.Now()

	if err := c.AddItem(p1, "P1", values.MustMoney("10.00", "USD"), 1, now); err != nil {
		t.Fatalf("AddItem p1: %v", err)
	}
	if err := c.AddItem(p1, "P1", values.MustMoney("10.00", "USD"), 1, now); err != nil {
		t.Fatalf("AddItem p1 again: %v", err)
	}
	if err := c.AddItem(p2, "P2", values.MustMoney("5.00", "USD"), 1, now); err != nil {
		t.Fatalf("AddItem p2: %v", err)
	}
	if len(c.Lines()) != 2 {
		t.Fatalf("lines: want=2 got=%d", len(c.Lines()))
	}
	line, ok := c.Line(p1)
	if !ok || line.Quantity.Int() != 2 {
		t.Fatalf("merged line: %+v ok=%v", line, ok)
	}
	total, err := c.Total()
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if !total.Equal(values.MustMoney("25.00", "USD")) {
		t.Fatalf("total: want=25.00 USD got=%s", total)
	}
	if c.ItemCount() != 3 {
		t.Fatalf("item count: want=3 got=%d", c.ItemCount())
	}
}

func TestAddItemEnforcesBoundsAndCurrency(t *testing.T) {
	c := newCart(t)
	p := uuid.New()
	now := time.Now()
	if err := c.AddItem(p, "P", values.MustMoney("1.00", "USD"), 0, now); !errors.Is(err, values.ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange for 0, got %v", err)
	}
	if err := c.AddItem(p, "P", values.MustMoney("1.00", "USD"), 99, now); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := c.AddItem(p, "P", values.MustMoney("1.00", "USD"), 2, now); !errors.Is(err, values.ErrQuantityOutOfRange) {
		t.Fatalf("expected merged quantity over 100 to fail, got %v", err)
	}
	if err := c.AddItem(uuid.New(), "Q", values.MustMoney("1.00", "EUR"), 1, now); !errors.Is(err, ErrMixedCurrency) {
		t.Fatalf("expected ErrMixedCurrency, got %v", err)
	}
}

func TestUpdateRemoveClear(t *testing.T) {
	c := newCart(t)
	p := uuid.New()
	now := time.Now()
	if err := c.UpdateQuantity(p, 2, now); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
	if err := c.AddItem(p, "P", values.MustMoney("2.00", "USD"), 1, now); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := c.UpdateQuantity(p, 4, now); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if l, _ := c.Line(p); l.Quantity.Int() != 4 {
		t.Fatalf("quantity: want=4 got=%d", l.Quantity.Int())
	}
	if err := c.RemoveItem(p, now); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart after remove")
	}
	_ = c.AddItem(p, "P", values.MustMoney("2.00", "USD"), 1, now)
	id := c.ID()
	c.Clear(now)
	if !c.IsEmpty() || c.ID() != id {
		t.Fatalf("clear must empty lines and keep the cart")
	}
}
