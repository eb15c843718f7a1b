package order

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

func testAddress() Address {
	return Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

func line(t *testing.T, price string, qty int) Line {
	t.Helper()
	q, err := values.OrderQuantity(qty)
	if err != nil {
		t.Fatalf("OrderQuantity: %v", err)
	}
	return Line{ProductID: uuid.New(), ProductName: "item", UnitPrice: values.MustMoney(price, "USD"), Quantity: q}
}

func newOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New(uuid.Nil, uuid.New(), []Line{line(t, "10.00", 2), line(t, "5.00", 1)}, testAddress(), time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestNewComputesTotalOnce(t *testing.T) {
	o := newOrder(t)
	if o.Status() != StatusPending {
		t.Fatalf("status: want=pending got=%s", o.Status())
	}
	if !o.Total().Equal(values.MustMoney("25.00", "USD")) {
		t.Fatalf("total: want=25.00 USD got=%s", o.Total())
	}
	lines := o.Lines()
	lines[0].Quantity = 999
	if !o.Total().Equal(values.MustMoney("25.00", "USD")) || o.Lines()[0].Quantity.Int() != 2 {
		t.Fatalf("order lines must not be mutable through Lines()")
	}
}

func TestNewRejectsInvalidOrders(t *testing.T) {
	if _, err := New(uuid.Nil, uuid.New(), nil, testAddress(), time.Now()); !errors.Is(err, ErrNoLines) {
		t.Fatalf("expected ErrNoLines, got %v", err)
	}
	mixed := []Line{line(t, "1.00", 1), {ProductID: uuid.New(), UnitPrice: values.MustMoney("1.00", "EUR"), Quantity: 1}}
	if _, err := New(uuid.Nil, uuid.New(), mixed, testAddress(), time.Now()); !errors.Is(err, ErrMixedCurrency) {
		t.Fatalf("expected ErrMixedCurrency, got %v", err)
	}
	if _, err := New(uuid.Nil, uuid.New(), []Line{line(t, "1.00", 1)}, Address{}, time.Now()); err == nil {
		t.Fatalf("expected address validation error")
	}
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	allowed := map[Status][]Status{
		StatusPending:    {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusShipped, StatusCancelled},
		StatusShipped:    {StatusDelivered},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s: want=%v got=%v", from, to, want, got)
			}
		}
	}
}

func TestTransitionSkippingStatesFails(t *testing.T) {
	o := newOrder(t)
	err := o.Transition(StatusDelivered, time.Now())
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.From != StatusPending || te.To != StatusDelivered {
		t.Fatalf("unexpected transition error: %+v", te)
	}
	if o.Status() != StatusPending || o.DeliveredAt() != nil {
		t.Fatalf("failed transition must not change the order")
	}
}

func TestTransitionSetsTimestamps(t *testing.T) {
	o := newOrder(t)
	now := time.Now()
	for _, s := range []Status{StatusConfirmed, StatusProcessing, StatusShipped} {
		if err := o.Transition(s, now); err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
	}
	if o.ShippedAt() == nil {
		t.Fatalf("expected shippedAt")
	}
	if o.CanBeCancelled() {
		t.Fatalf("shipped order must not be cancellable")
	}
	if err := o.Cancel(now); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
	if err := o.Transition(StatusDelivered, now); err != nil {
		t.Fatalf("Transition(delivered): %v", err)
	}
	if o.DeliveredAt() == nil {
		t.Fatalf("expected deliveredAt")
	}
}

func TestCancelPending(t *testing.T) {
	o := newOrder(t)
	if err := o.Cancel(time.Now()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.Status() != StatusCancelled || o.CancelledAt() == nil {
		t.Fatalf("expected cancelled with timestamp, got %s", o.Status())
	}
}

func TestMarkPaidIsOneShot(t *testing.T) {
	o := newOrder(t)
	pid := uuid.New()
	changed, err := o.MarkPaid(pid, time.Now())
	if err != nil || !changed {
		t.Fatalf("MarkPaid: changed=%v err=%v", changed, err)
	}
	if o.Status() != StatusConfirmed || o.PaymentID() == nil || *o.PaymentID() != pid {
		t.Fatalf("unexpected order after MarkPaid: %+v", o.Snapshot())
	}
	changed, err = o.MarkPaid(uuid.New(), time.Now())
	if err != nil || changed {
		t.Fatalf("second MarkPaid must be a no-op: changed=%v err=%v", changed, err)
	}
	if *o.PaymentID() != pid {
		t.Fatalf("payment must be attached exactly once")
	}
}
