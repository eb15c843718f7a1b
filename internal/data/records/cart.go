package records

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/storefront-backend/internal/domain/cart"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`
	Lines     []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Cart) TableName() string { return "cart" }

type CartLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CartID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line_product,priority:1;column:cart_id" json:"cart_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line_product,priority:2;column:product_id" json:"product_id"`
	ProductName string          `gorm:"not null;column:product_name" json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null;column:unit_price" json:"unit_price"`
	Currency    string          `gorm:"type:char(3);not null;column:currency" json:"currency"`
	Quantity    int             `gorm:"not null;column:quantity" json:"quantity"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (CartLine) TableName() string { return "cart_line" }

func CartFromDomain(c *cart.Cart) *Cart {
	s := c.Snapshot()
	out := &Cart{
		ID:        s.ID,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Lines:     make([]CartLine, 0, len(s.Lines)),
	}
	for i, l := range s.Lines {
		out.Lines = append(out.Lines, CartLine{
			ID:          uuid.New(),
			CartID:      s.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.Amount(),
			Currency:    l.UnitPrice.Currency(),
			Quantity:    l.Quantity.Int(),
			// Staggered so reloads keep insertion order.
			CreatedAt: s.UpdatedAt.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return out
}

func (r *Cart) ToDomain() (*cart.Cart, error) {
	lines := make([]cart.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		price, err := values.NewMoney(l.UnitPrice, l.Currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, cart.Line{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   price,
			Quantity:    values.Quantity(l.Quantity),
		})
	}
	return cart.Restore(cart.Snapshot{
		ID:        r.ID,
		UserID:    r.UserID,
		Lines:     lines,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}), nil
}
