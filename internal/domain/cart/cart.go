// Package cart holds the per-user shopping basket aggregate.
package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

var (
	ErrLineNotFound   = errors.New("cart line not found")
	ErrMixedCurrency  = errors.New("cart lines must share one currency")
	ErrMissingProduct = errors.New("product id is required")
)

// Line is a price/name snapshot of a product at the time it was added.
type Line struct {
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   values.Money
	Quantity    values.Quantity
}

func (l Line) Subtotal() values.Money {
	return l.UnitPrice.Mul(l.Quantity.Int())
}

type Cart struct {
	identity values.Identity
	userID   uuid.UUID
	lines    []Line
}

type Snapshot struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, userID uuid.UUID, now time.Time) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, errors.New("cart owner is required")
	}
	return &Cart{identity: values.NewIdentity(id, now), userID: userID}, nil
}

func Restore(s Snapshot) *Cart {
	lines := make([]Line, len(s.Lines))
	copy(lines, s.Lines)
	return &Cart{
		identity: values.RestoreIdentity(s.ID, s.CreatedAt, s.UpdatedAt),
		userID:   s.UserID,
		lines:    lines,
	}
}

func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		ID:        c.identity.ID(),
		UserID:    c.userID,
		Lines:     c.Lines(),
		CreatedAt: c.identity.CreatedAt(),
		UpdatedAt: c.identity.UpdatedAt(),
	}
}

func (c *Cart) ID() uuid.UUID        { return c.identity.ID() }
func (c *Cart) UserID() uuid.UUID    { return c.userID }
func (c *Cart) UpdatedAt() time.Time { return c.identity.UpdatedAt() }
func (c *Cart) IsEmpty() bool        { return len(c.lines) == 0 }

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(productID uuid.UUID) (Line, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Currency is the currency of the first line, or "" for an empty cart.
func (c *Cart) Currency() string {
	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[0].UnitPrice.Currency()
}

func (c *Cart) Total() (values.Money, error) {
	if len(c.lines) == 0 {
		return values.Money{}, nil
	}
	total := values.Zero(c.Currency())
	for _, l := range c.lines {
		next, err := total.Add(l.Subtotal())
		if err != nil {
			return values.Money{}, err
		}
		total = next
	}
	return total, nil
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity.Int()
	}
	return n
}

// AddItem merges into an existing line for the same product; the merged
// quantity must stay within cart bounds.
func (c *Cart) AddItem(productID uuid.UUID, productName string, unitPrice values.Money, qty int, now time.Time) error {
	if productID == uuid.Nil {
		return ErrMissingProduct
	}
	if cur := c.Currency(); cur != "" && cur != unitPrice.Currency() {
		return fmt.Errorf("%w: cart is %s, item is %s", ErrMixedCurrency, cur, unitPrice.Currency())
	}
	q, err := values.CartQuantity(qty)
	if err != nil {
		return err
	}
	if i := c.indexOf(productID); i >= 0 {
		merged, err := values.CartQuantity(c.lines[i].Quantity.Int() + qty)
		if err != nil {
			return err
		}
		c.lines[i].Quantity = merged
		c.identity = c.identity.Touched(now)
		return nil
	}
	c.lines = append(c.lines, Line{
		ProductID:   productID,
		ProductName: strings.TrimSpace(productName),
		UnitPrice:   unitPrice,
		Quantity:    q,
	})
	c.identity = c.identity.Touched(now)
	return nil
}

func (c *Cart) UpdateQuantity(productID uuid.UUID, qty int, now time.Time) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	q, err := values.CartQuantity(qty)
	if err != nil {
		return err
	}
	c.lines[i].Quantity = q
	c.identity = c.identity.Touched(now)
	return nil
}

func (c *Cart) RemoveItem(productID uuid.UUID, now time.Time) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.identity = c.identity.Touched(now)
	return nil
}

// Clear empties the cart; the cart itself is kept.
func (c *Cart) Clear(now time.Time) {
	c.lines = nil
	c.identity = c.identity.Touched(now)
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
