package records

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/domain/inventory"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

type Product struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string          `gorm:"not null;column:name" json:"name"`
	PriceAmount       decimal.Decimal `gorm:"type:numeric(14,2);not null;column:price_amount" json:"price_amount"`
	Currency          string          `gorm:"type:char(3);not null;column:currency" json:"currency"`
	AvailableQuantity int             `gorm:"not null;default:0;column:available_quantity;check:chk_product_available_nonneg,available_quantity >= 0" json:"available_quantity"`
	Version           int             `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Product) TableName() string { return "product" }

func ProductFromDomain(p *inventory.Product) *Product {
	s := p.Snapshot()
	return &Product{
		ID:                s.ID,
		Name:              s.Name,
		PriceAmount:       s.Price.Amount(),
		Currency:          s.Price.Currency(),
		AvailableQuantity: s.AvailableQuantity,
		Version:           s.Version,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func (r *Product) ToDomain() (*inventory.Product, error) {
	price, err := values.NewMoney(r.PriceAmount, r.Currency)
	if err != nil {
		return nil, err
	}
	return inventory.Restore(inventory.Snapshot{
		ID:                r.ID,
		Name:              r.Name,
		Price:             price,
		AvailableQuantity: r.AvailableQuantity,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}), nil
}
