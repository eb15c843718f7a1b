package records

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

type Order struct {
	ID              uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID                         `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Status          string                            `gorm:"not null;index;column:status" json:"status"`
	ShippingAddress datatypes.JSONType[order.Address] `gorm:"column:shipping_address" json:"shipping_address"`
	TotalAmount     decimal.Decimal                   `gorm:"type:numeric(14,2);not null;column:total_amount" json:"total_amount"`
	Currency        string                            `gorm:"type:char(3);not null;column:currency" json:"currency"`
	PaymentID       *uuid.UUID                        `gorm:"type:uuid;column:payment_id" json:"payment_id,omitempty"`
	ShippedAt       *time.Time                        `gorm:"column:shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time                        `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CancelledAt     *time.Time                        `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	Lines           []OrderLine                       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt       time.Time                         `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time                         `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "customer_order" }

type OrderLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index;column:order_id" json:"order_id"`
	Position    int             `gorm:"not null;column:position" json:"position"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;column:product_id" json:"product_id"`
	ProductName string          `gorm:"not null;column:product_name" json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null;column:unit_price" json:"unit_price"`
	Currency    string          `gorm:"type:char(3);not null;column:currency" json:"currency"`
	Quantity    int             `gorm:"not null;column:quantity" json:"quantity"`
}

func (OrderLine) TableName() string { return "order_line" }

func OrderFromDomain(o *order.Order) *Order {
	s := o.Snapshot()
	out := &Order{
		ID:              s.ID,
		UserID:          s.UserID,
		Status:          string(s.Status),
		ShippingAddress: datatypes.NewJSONType(s.Shipping),
		TotalAmount:     s.Total.Amount(),
		Currency:        s.Total.Currency(),
		PaymentID:       s.PaymentID,
		ShippedAt:       s.ShippedAt,
		DeliveredAt:     s.DeliveredAt,
		CancelledAt:     s.CancelledAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		Lines:           make([]OrderLine, 0, len(s.Lines)),
	}
	for i, l := range s.Lines {
		out.Lines = append(out.Lines, OrderLine{
			ID:          uuid.New(),
			OrderID:     s.ID,
			Position:    i,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.Amount(),
			Currency:    l.UnitPrice.Currency(),
			Quantity:    l.Quantity.Int(),
		})
	}
	return out
}

func (r *Order) ToDomain() (*order.Order, error) {
	status, ok := order.ParseStatus(r.Status)
	if !ok {
		return nil, &UnknownStatusError{Table: "customer_order", Status: r.Status}
	}
	total, err := values.NewMoney(r.TotalAmount, r.Currency)
	if err != nil {
		return nil, err
	}
	lines := make([]order.Line, len(r.Lines))
	for _, l := range r.Lines {
		price, err := values.NewMoney(l.UnitPrice, l.Currency)
		if err != nil {
			return nil, err
		}
		idx := l.Position
		if idx < 0 || idx >= len(lines) {
			return nil, &CorruptRowError{Table: "order_line", ID: l.ID}
		}
		lines[idx] = order.Line{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   price,
			Quantity:    values.Quantity(l.Quantity),
		}
	}
	return order.Restore(order.Snapshot{
		ID:          r.ID,
		UserID:      r.UserID,
		Lines:       lines,
		Status:      status,
		Shipping:    r.ShippingAddress.Data(),
		Total:       total,
		PaymentID:   r.PaymentID,
		ShippedAt:   r.ShippedAt,
		DeliveredAt: r.DeliveredAt,
		CancelledAt: r.CancelledAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}), nil
}
