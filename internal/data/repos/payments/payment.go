package payments

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type PaymentRepo interface {
	Create(dbc dbctx.Context, p *records.Payment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*records.Payment, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*records.Payment, error)
	// GetLatestByOrderID returns the most recent attempt for an order.
	GetLatestByOrderID(dbc dbctx.Context, orderID uuid.UUID) (*records.Payment, error)
	// GetSettledByOrderID returns a completed or refunded payment for the order, if any.
	GetSettledByOrderID(dbc dbctx.Context, orderID uuid.UUID) (*records.Payment, error)
	ListByOrderID(dbc dbctx.Context, orderID uuid.UUID) ([]*records.Payment, error)
	// UpdateByVersion writes the mutable columns when version still matches and bumps it.
	UpdateByVersion(dbc dbctx.Context, p *records.Payment) (bool, error)
	CreateRefund(dbc dbctx.Context, r *records.PaymentRefund) error
	ListRefunds(dbc dbctx.Context, paymentID uuid.UUID) ([]*records.PaymentRefund, error)
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) Create(dbc dbctx.Context, p *records.Payment) error {
	if p == nil {
		return nil
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return dbc.Conn(r.db).Create(p).Error
}

func (r *paymentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*records.Payment, error) {
	return r.first(dbc.Conn(r.db).Where("id = ?", id), id != uuid.Nil)
}

func (r *paymentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*records.Payment, error) {
	return r.first(dbc.Conn(r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id), id != uuid.Nil)
}

func (r *paymentRepo) GetLatestByOrderID(dbc dbctx.Context, orderID uuid.UUID) (*records.Payment, error) {
	return r.first(dbc.Conn(r.db).Where("order_id = ?", orderID).Order("created_at DESC, id DESC"), orderID != uuid.Nil)
}

func (r *paymentRepo) GetSettledByOrderID(dbc dbctx.Context, orderID uuid.UUID) (*records.Payment, error) {
	return r.first(dbc.Conn(r.db).
		Where("order_id = ? AND status IN ?", orderID, []string{"completed", "refunded"}).
		Order("created_at DESC"), orderID != uuid.Nil)
}

func (r *paymentRepo) first(q *gorm.DB, ok bool) (*records.Payment, error) {
	if !ok {
		return nil, nil
	}
	var row records.Payment
	if err := q.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *paymentRepo) ListByOrderID(dbc dbctx.Context, orderID uuid.UUID) ([]*records.Payment, error) {
	if orderID == uuid.Nil {
		return nil, nil
	}
	var rows []*records.Payment
	if err := dbc.Conn(r.db).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *paymentRepo) UpdateByVersion(dbc dbctx.Context, p *records.Payment) (bool, error) {
	if p == nil || p.ID == uuid.Nil {
		return false, nil
	}
	res := dbc.Conn(r.db).
		Model(&records.Payment{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"status":          p.Status,
			"transaction_id":  p.TransactionID,
			"failure_reason":  p.FailureReason,
			"refunded_amount": p.RefundedAmount,
			"version":         p.Version + 1,
			"updated_at":      p.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	p.Version++
	return true, nil
}

func (r *paymentRepo) CreateRefund(dbc dbctx.Context, row *records.PaymentRefund) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return dbc.Conn(r.db).Create(row).Error
}

func (r *paymentRepo) ListRefunds(dbc dbctx.Context, paymentID uuid.UUID) ([]*records.PaymentRefund, error) {
	if paymentID == uuid.Nil {
		return nil, nil
	}
	var rows []*records.PaymentRefund
	if err := dbc.Conn(r.db).Where("payment_id = ?", paymentID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
