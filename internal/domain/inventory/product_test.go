package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

func newProduct(t *testing.T, available int) *Product {
	t.Helper()
	p, err := NewProduct(uuid.New(), "Widget", values.MustMoney("10.00", "USD"), available, time.Now())
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	return p
}

func TestReduceNeverGoesNegative(t *testing.T) {
	p := newProduct(t, 1)
	err := p.Reduce(2, time.Now())
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 2 || stockErr.Available != 1 || stockErr.ProductName != "Widget" {
		t.Fatalf("unexpected error payload: %+v", stockErr)
	}
	if p.Available() != 1 {
		t.Fatalf("available changed on failure: %d", p.Available())
	}
	if err := p.Reduce(1, time.Now()); err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if p.Available() != 0 {
		t.Fatalf("available: want=0 got=%d", p.Available())
	}
}

func TestIncreaseAndAdjust(t *testing.T) {
	p := newProduct(t, 3)
	if err := p.Increase(2, time.Now()); err != nil {
		t.Fatalf("Increase: %v", err)
	}
	if err := p.Adjust(-4, time.Now()); err != nil {
		t.Fatalf("Adjust(-4): %v", err)
	}
	if p.Available() != 1 {
		t.Fatalf("available: want=1 got=%d", p.Available())
	}
	if err := p.Adjust(-2, time.Now()); err == nil {
		t.Fatalf("expected adjust below zero to fail")
	}
	if err := p.Adjust(0, time.Now()); !errors.Is(err, ErrNonPositiveQuantity) {
		t.Fatalf("expected ErrNonPositiveQuantity, got %v", err)
	}
	if err := p.Increase(0, time.Now()); !errors.Is(err, ErrNonPositiveQuantity) {
		t.Fatalf("expected ErrNonPositiveQuantity, got %v", err)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	p := newProduct(t, 7)
	s := p.Snapshot()
	s.Version = 4
	r := Restore(s)
	if r.ID() != p.ID() || r.Available() != 7 || r.Version() != 4 || !r.Price().Equal(p.Price()) {
		t.Fatalf("restore mismatch: %+v", r.Snapshot())
	}
}
