package records

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

type Payment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index;column:order_id" json:"order_id"`
	Status         string          `gorm:"not null;index;column:status" json:"status"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null;column:amount" json:"amount"`
	Currency       string          `gorm:"type:char(3);not null;column:currency" json:"currency"`
	Method         string          `gorm:"not null;column:method" json:"method"`
	TransactionID  string          `gorm:"column:transaction_id;index" json:"transaction_id"`
	FailureReason  string          `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	RefundedAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;column:refunded_amount" json:"refunded_amount"`
	IdempotencyKey string          `gorm:"column:idempotency_key;index" json:"-"`
	Metadata       datatypes.JSON  `gorm:"column:metadata" json:"metadata"`
	Version        int             `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt      time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

// PaymentRefund is one row of the append-only refund ledger.
type PaymentRefund struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID            uuid.UUID       `gorm:"type:uuid;not null;index;column:payment_id" json:"payment_id"`
	Amount               decimal.Decimal `gorm:"type:numeric(14,2);not null;column:amount" json:"amount"`
	Currency             string          `gorm:"type:char(3);not null;column:currency" json:"currency"`
	GatewayTransactionID string          `gorm:"column:gateway_transaction_id" json:"gateway_transaction_id"`
	Reason               string          `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt            time.Time       `gorm:"not null" json:"created_at"`
}

func (PaymentRefund) TableName() string { return "payment_refund" }

func PaymentFromDomain(p *payment.Payment) (*Payment, error) {
	s := p.Snapshot()
	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return nil, err
	}
	return &Payment{
		ID:             s.ID,
		OrderID:        s.OrderID,
		Status:         string(s.Status),
		Amount:         s.Amount.Amount(),
		Currency:       s.Amount.Currency(),
		Method:         s.Method,
		TransactionID:  s.TransactionID,
		FailureReason:  s.FailureReason,
		RefundedAmount: s.RefundedAmount.Amount(),
		Metadata:       datatypes.JSON(meta),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}, nil
}

func (r *Payment) ToDomain() (*payment.Payment, error) {
	status, ok := payment.ParseStatus(r.Status)
	if !ok {
		return nil, &UnknownStatusError{Table: "payment", Status: r.Status}
	}
	amount, err := values.NewMoney(r.Amount, r.Currency)
	if err != nil {
		return nil, err
	}
	refunded, err := values.NewMoney(r.RefundedAmount, r.Currency)
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &meta); err != nil {
			return nil, err
		}
	}
	return payment.Restore(payment.Snapshot{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Amount:         amount,
		Status:         status,
		Method:         r.Method,
		TransactionID:  r.TransactionID,
		FailureReason:  r.FailureReason,
		RefundedAmount: refunded,
		Metadata:       meta,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}), nil
}
