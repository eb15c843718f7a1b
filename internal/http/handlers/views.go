package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/domain/cart"
	"github.com/yungbote/storefront-backend/internal/domain/inventory"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

type MoneyView struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func moneyView(m values.Money) MoneyView {
	return MoneyView{Amount: m.Amount().StringFixed(2), Currency: m.Currency()}
}

type LineView struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   MoneyView `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	Subtotal    MoneyView `json:"subtotal"`
}

type CartView struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Lines     []LineView `json:"lines"`
	ItemCount int        `json:"item_count"`
	Total     *MoneyView `json:"total,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func cartView(c *cart.Cart) CartView {
	out := CartView{
		ID:        c.ID(),
		UserID:    c.UserID(),
		Lines:     []LineView{},
		ItemCount: c.ItemCount(),
		UpdatedAt: c.UpdatedAt(),
	}
	for _, l := range c.Lines() {
		out.Lines = append(out.Lines, LineView{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   moneyView(l.UnitPrice),
			Quantity:    l.Quantity.Int(),
			Subtotal:    moneyView(l.Subtotal()),
		})
	}
	if !c.IsEmpty() {
		if total, err := c.Total(); err == nil {
			tv := moneyView(total)
			out.Total = &tv
		}
	}
	return out
}

type OrderView struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	Status      string        `json:"status"`
	Lines       []LineView    `json:"lines"`
	Total       MoneyView     `json:"total"`
	Shipping    order.Address `json:"shipping_address"`
	PaymentID   *uuid.UUID    `json:"payment_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ShippedAt   *time.Time    `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time    `json:"delivered_at,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
}

func orderView(o *order.Order) OrderView {
	out := OrderView{
		ID:          o.ID(),
		UserID:      o.UserID(),
		Status:      string(o.Status()),
		Lines:       []LineView{},
		Total:       moneyView(o.Total()),
		Shipping:    o.Shipping(),
		PaymentID:   o.PaymentID(),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
		ShippedAt:   o.ShippedAt(),
		DeliveredAt: o.DeliveredAt(),
		CancelledAt: o.CancelledAt(),
	}
	for _, l := range o.Lines() {
		out.Lines = append(out.Lines, LineView{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   moneyView(l.UnitPrice),
			Quantity:    l.Quantity.Int(),
			Subtotal:    moneyView(l.Subtotal()),
		})
	}
	return out
}

type PaymentView struct {
	ID                  uuid.UUID         `json:"id"`
	OrderID             uuid.UUID         `json:"order_id"`
	Status              string            `json:"status"`
	Amount              MoneyView         `json:"amount"`
	Method              string            `json:"method"`
	TransactionID       string            `json:"transaction_id,omitempty"`
	FailureReason       string            `json:"failure_reason,omitempty"`
	Refunded            MoneyView         `json:"refunded"`
	RemainingRefundable MoneyView         `json:"remaining_refundable"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func paymentView(p *payment.Payment) *PaymentView {
	if p == nil {
		return nil
	}
	return &PaymentView{
		ID:                  p.ID(),
		OrderID:             p.OrderID(),
		Status:              string(p.Status()),
		Amount:              moneyView(p.Amount()),
		Method:              p.Method(),
		TransactionID:       p.TransactionID(),
		FailureReason:       p.FailureReason(),
		Refunded:            moneyView(p.RefundedAmount()),
		RemainingRefundable: moneyView(p.RemainingRefundable()),
		Metadata:            p.Metadata(),
		UpdatedAt:           p.UpdatedAt(),
	}
}

type ProductView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     MoneyView `json:"price"`
	Available int       `json:"available_quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func productView(p *inventory.Product) ProductView {
	return ProductView{
		ID:        p.ID(),
		Name:      p.Name(),
		Price:     moneyView(p.Price()),
		Available: p.Available(),
		UpdatedAt: p.UpdatedAt(),
	}
}
