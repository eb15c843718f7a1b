package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/records"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(records.All()...)
}

// EnsureCommerceIndexes adds the Postgres-only partial indexes gorm tags cannot express.
func EnsureCommerceIndexes(db *gorm.DB) error {
	// At most one settled payment per order.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_order_completed
		ON payment(order_id)
		WHERE status = 'completed';
	`).Error; err != nil {
		return fmt.Errorf("create idx_payment_order_completed: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payment_order_created_at
		ON payment(order_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_payment_order_created_at: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_customer_order_user_created_at
		ON customer_order(user_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_customer_order_user_created_at: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_product_active
		ON product(id)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_product_active: %w", err)
	}
	return nil
}

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.driver != DriverPostgres {
		return nil
	}
	if err := EnsureCommerceIndexes(s.db); err != nil {
		s.log.Error("Commerce index migration failed", "error", err)
		return err
	}
	return nil
}
