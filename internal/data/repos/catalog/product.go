package catalog

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type ProductRepo interface {
	Create(dbc dbctx.Context, p *records.Product) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*records.Product, error)
	// LockByIDs locks rows FOR UPDATE in ascending id order. Missing ids are absent from the map.
	LockByIDs(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*records.Product, error)
	// UpdateStock writes a new available quantity guarded by version; it
	// reports false when another writer got there first.
	UpdateStock(dbc dbctx.Context, id uuid.UUID, expectedVersion, available int, updatedAt time.Time) (bool, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) Create(dbc dbctx.Context, p *records.Product) error {
	if p == nil {
		return nil
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return dbc.Conn(r.db).Create(p).Error
}

func (r *productRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*records.Product, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row records.Product
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *productRepo) LockByIDs(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*records.Product, error) {
	out := map[uuid.UUID]*records.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	uniq := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].String() < uniq[j].String() })

	var rows []*records.Product
	if err := dbc.Conn(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", uniq).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *productRepo) UpdateStock(dbc dbctx.Context, id uuid.UUID, expectedVersion, available int, updatedAt time.Time) (bool, error) {
	if id == uuid.Nil || available < 0 {
		return false, nil
	}
	res := dbc.Conn(r.db).
		Model(&records.Product{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"available_quantity": available,
			"version":            expectedVersion + 1,
			"updated_at":         updatedAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *productRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).Where("id = ?", id).Delete(&records.Product{}).Error
}
