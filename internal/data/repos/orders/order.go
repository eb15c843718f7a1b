package orders

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type OrderRepo interface {
	Create(dbc dbctx.Context, o *records.Order) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*records.Order, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*records.Order, error)
	ListByUserID(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*records.Order, error)
	// UpdateState persists the mutable part of an order: status, payment link and timestamps.
	UpdateState(dbc dbctx.Context, o *records.Order) error
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{db: db, log: baseLog.With("repo", "OrderRepo")}
}

func (r *orderRepo) Create(dbc dbctx.Context, o *records.Order) error {
	if o == nil {
		return nil
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return dbc.Conn(r.db).Create(o).Error
}

func (r *orderRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*records.Order, error) {
	return r.get(dbc, id, false)
}

func (r *orderRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*records.Order, error) {
	return r.get(dbc, id, true)
}

func (r *orderRepo) get(dbc dbctx.Context, id uuid.UUID, lock bool) (*records.Order, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	q := dbc.Conn(r.db)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row records.Order
	if err := q.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	if err := dbc.Conn(r.db).Where("order_id = ?", row.ID).Order("position ASC").Find(&row.Lines).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *orderRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*records.Order, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []*records.Order
	if err := dbc.Conn(r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *orderRepo) UpdateState(dbc dbctx.Context, o *records.Order) error {
	if o == nil || o.ID == uuid.Nil {
		return nil
	}
	updatedAt := o.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return dbc.Conn(r.db).
		Model(&records.Order{}).
		Where("id = ?", o.ID).
		Updates(map[string]interface{}{
			"status":       o.Status,
			"payment_id":   o.PaymentID,
			"shipped_at":   o.ShippedAt,
			"delivered_at": o.DeliveredAt,
			"cancelled_at": o.CancelledAt,
			"updated_at":   updatedAt.UTC(),
		}).Error
}
