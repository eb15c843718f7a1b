package carts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type CartRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*records.Cart, error)
	LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*records.Cart, error)
	Create(dbc dbctx.Context, c *records.Cart) error
	// ReplaceLines swaps the cart's lines for lines and bumps updated_at.
	ReplaceLines(dbc dbctx.Context, cartID uuid.UUID, lines []records.CartLine, updatedAt time.Time) error
}

type cartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	return &cartRepo{db: db, log: baseLog.With("repo", "CartRepo")}
}

func (r *cartRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*records.Cart, error) {
	return r.getByUserID(dbc, userID, false)
}

func (r *cartRepo) LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*records.Cart, error) {
	return r.getByUserID(dbc, userID, true)
}

func (r *cartRepo) getByUserID(dbc dbctx.Context, userID uuid.UUID, lock bool) (*records.Cart, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	q := dbc.Conn(r.db)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row records.Cart
	if err := q.Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	if err := dbc.Conn(r.db).Where("cart_id = ?", row.ID).Order("created_at ASC, id ASC").Find(&row.Lines).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *cartRepo) Create(dbc dbctx.Context, c *records.Cart) error {
	if c == nil {
		return nil
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return dbc.Conn(r.db).Omit(clause.Associations).Create(c).Error
}

func (r *cartRepo) ReplaceLines(dbc dbctx.Context, cartID uuid.UUID, lines []records.CartLine, updatedAt time.Time) error {
	if cartID == uuid.Nil {
		return nil
	}
	t := dbc.Conn(r.db)
	if err := t.Where("cart_id = ?", cartID).Delete(&records.CartLine{}).Error; err != nil {
		return err
	}
	if len(lines) > 0 {
		for i := range lines {
			lines[i].CartID = cartID
			if lines[i].ID == uuid.Nil {
				lines[i].ID = uuid.New()
			}
		}
		if err := t.Create(&lines).Error; err != nil {
			return err
		}
	}
	return t.Model(&records.Cart{}).Where("id = ?", cartID).Update("updated_at", updatedAt.UTC()).Error
}
