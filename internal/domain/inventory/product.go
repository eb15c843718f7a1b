// Package inventory holds the stock ledger: per-product available quantity
// that can never go negative.
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

var ErrNonPositiveQuantity = errors.New("stock change must be positive")

// InsufficientStockError reports a reduction larger than the available quantity.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// Product is the stock-bearing view of a catalog item.
type Product struct {
	identity  values.Identity
	name      string
	price     values.Money
	available int
	version   int
}

type Snapshot struct {
	ID                uuid.UUID
	Name              string
	Price             values.Money
	AvailableQuantity int
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewProduct(id uuid.UUID, name string, price values.Money, available int, now time.Time) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("product name is required")
	}
	if available < 0 {
		return nil, errors.New("available quantity must not be negative")
	}
	return &Product{
		identity:  values.NewIdentity(id, now),
		name:      name,
		price:     price,
		available: available,
	}, nil
}

func Restore(s Snapshot) *Product {
	return &Product{
		identity:  values.RestoreIdentity(s.ID, s.CreatedAt, s.UpdatedAt),
		name:      s.Name,
		price:     s.Price,
		available: s.AvailableQuantity,
		version:   s.Version,
	}
}

func (p *Product) Snapshot() Snapshot {
	return Snapshot{
		ID:                p.identity.ID(),
		Name:              p.name,
		Price:             p.price,
		AvailableQuantity: p.available,
		Version:           p.version,
		CreatedAt:         p.identity.CreatedAt(),
		UpdatedAt:         p.identity.UpdatedAt(),
	}
}

func (p *Product) ID() uuid.UUID             { return p.identity.ID() }
func (p *Product) Name() string              { return p.name }
func (p *Product) Price() values.Money       { return p.price }
func (p *Product) Available() int            { return p.available }
func (p *Product) Version() int              { return p.version }
func (p *Product) UpdatedAt() time.Time      { return p.identity.UpdatedAt() }
func (p *Product) HasStock(n int) bool       { return n > 0 && n <= p.available }
func (p *Product) Identity() values.Identity { return p.identity }

// Reduce removes n units. Nothing changes on failure.
func (p *Product) Reduce(n int, now time.Time) error {
	if n <= 0 {
		return ErrNonPositiveQuantity
	}
	if n > p.available {
		return &InsufficientStockError{
			ProductID:   p.identity.ID(),
			ProductName: p.name,
			Requested:   n,
			Available:   p.available,
		}
	}
	p.available -= n
	p.identity = p.identity.Touched(now)
	return nil
}

func (p *Product) Increase(n int, now time.Time) error {
	if n <= 0 {
		return ErrNonPositiveQuantity
	}
	p.available += n
	p.identity = p.identity.Touched(now)
	return nil
}

// Adjust applies a signed admin correction.
func (p *Product) Adjust(delta int, now time.Time) error {
	switch {
	case delta > 0:
		return p.Increase(delta, now)
	case delta < 0:
		return p.Reduce(-delta, now)
	default:
		return ErrNonPositiveQuantity
	}
}
