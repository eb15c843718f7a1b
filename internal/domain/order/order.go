// Package order holds the order aggregate and its lifecycle.
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

var (
	ErrNoLines        = errors.New("order must have at least one line")
	ErrMixedCurrency  = errors.New("order lines must share one currency")
	ErrNotCancellable = errors.New("order cannot be cancelled")
	ErrMissingOwner   = errors.New("order owner is required")
)

type Line struct {
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   values.Money
	Quantity    values.Quantity
}

func (l Line) Subtotal() values.Money {
	return l.UnitPrice.Mul(l.Quantity.Int())
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a Address) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Errorf("shipping address missing %s", strings.Join(missing, ", "))
	}
	return nil
}

type Order struct {
	identity    values.Identity
	userID      uuid.UUID
	lines       []Line
	status      Status
	shipping    Address
	total       values.Money
	paymentID   *uuid.UUID
	shippedAt   *time.Time
	deliveredAt *time.Time
	cancelledAt *time.Time
}

type Snapshot struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Lines       []Line
	Status      Status
	Shipping    Address
	Total       values.Money
	PaymentID   *uuid.UUID
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds a Pending order. The total is fixed here and never recomputed.
func New(id, userID uuid.UUID, lines []Line, shipping Address, now time.Time) (*Order, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingOwner
	}
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if err := shipping.Validate(); err != nil {
		return nil, err
	}
	own := make([]Line, len(lines))
	copy(own, lines)

	currency := own[0].UnitPrice.Currency()
	total := values.Zero(currency)
	for _, l := range own {
		if l.ProductID == uuid.Nil {
			return nil, errors.New("order line product id is required")
		}
		if _, err := values.OrderQuantity(l.Quantity.Int()); err != nil {
			return nil, err
		}
		if l.UnitPrice.Currency() != currency {
			return nil, fmt.Errorf("%w: %s vs %s", ErrMixedCurrency, currency, l.UnitPrice.Currency())
		}
		next, err := total.Add(l.Subtotal())
		if err != nil {
			return nil, err
		}
		total = next
	}

	return &Order{
		identity: values.NewIdentity(id, now),
		userID:   userID,
		lines:    own,
		status:   StatusPending,
		shipping: shipping,
		total:    total,
	}, nil
}

func Restore(s Snapshot) *Order {
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return &Order{
		identity:    values.RestoreIdentity(s.ID, s.CreatedAt, s.UpdatedAt),
		userID:      s.UserID,
		lines:       lines,
		status:      s.Status,
		shipping:    s.Shipping,
		total:       s.Total,
		paymentID:   s.PaymentID,
		shippedAt:   s.ShippedAt,
		deliveredAt: s.DeliveredAt,
		cancelledAt: s.CancelledAt,
	}
}

func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:          o.identity.ID(),
		UserID:      o.userID,
		Lines:       o.Lines(),
		Status:      o.status,
		Shipping:    o.shipping,
		Total:       o.total,
		PaymentID:   o.paymentID,
		ShippedAt:   o.shippedAt,
		DeliveredAt: o.deliveredAt,
		CancelledAt: o.cancelledAt,
		CreatedAt:   o.identity.CreatedAt(),
		UpdatedAt:   o.identity.UpdatedAt(),
	}
}

func (o *Order) ID() uuid.UUID           { return o.identity.ID() }
func (o *Order) UserID() uuid.UUID       { return o.userID }
func (o *Order) Status() Status          { return o.status }
func (o *Order) Shipping() Address       { return o.shipping }
func (o *Order) Total() values.Money     { return o.total }
func (o *Order) PaymentID() *uuid.UUID   { return o.paymentID }
func (o *Order) ShippedAt() *time.Time   { return o.shippedAt }
func (o *Order) DeliveredAt() *time.Time { return o.deliveredAt }
func (o *Order) CancelledAt() *time.Time { return o.cancelledAt }
func (o *Order) CreatedAt() time.Time    { return o.identity.CreatedAt() }
func (o *Order) UpdatedAt() time.Time    { return o.identity.UpdatedAt() }

func (o *Order) Lines() []Line {
	out := make([]Line, len(o.lines))
	copy(out, o.lines)
	return out
}

func (o *Order) CanBeCancelled() bool {
	switch o.status {
	case StatusCancelled, StatusShipped, StatusDelivered:
		return false
	}
	return true
}

// Transition moves the order along one lifecycle edge and stamps the
// matching timestamp. Invalid edges return *TransitionError.
func (o *Order) Transition(to Status, now time.Time) error {
	if !o.status.CanTransitionTo(to) {
		return &TransitionError{From: o.status, To: to}
	}
	ts := now.UTC()
	switch to {
	case StatusShipped:
		o.shippedAt = &ts
	case StatusDelivered:
		o.deliveredAt = &ts
	case StatusCancelled:
		o.cancelledAt = &ts
	}
	o.status = to
	o.identity = o.identity.Touched(now)
	return nil
}

func (o *Order) Cancel(now time.Time) error {
	if !o.CanBeCancelled() {
		return fmt.Errorf("%w: status is %s", ErrNotCancellable, o.status)
	}
	return o.Transition(StatusCancelled, now)
}

// MarkPaid attaches the payment and confirms a Pending order. Once the order
// is past Pending it does nothing and reports false.
func (o *Order) MarkPaid(paymentID uuid.UUID, now time.Time) (bool, error) {
	if o.status != StatusPending {
		return false, nil
	}
	if paymentID == uuid.Nil {
		return false, errors.New("payment id is required")
	}
	if err := o.Transition(StatusConfirmed, now); err != nil {
		return false, err
	}
	if o.paymentID == nil {
		pid := paymentID
		o.paymentID = &pid
	}
	return true, nil
}
