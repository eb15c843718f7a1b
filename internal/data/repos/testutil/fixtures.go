package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/records"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB) *records.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &records.User{
		ID:          uuid.New(),
		Email:       uuid.NewString() + "@example.com",
		DisplayName: "Test Shopper",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, name, price, currency string, available int) *records.Product {
	tb.Helper()
	now := time.Now().UTC()
	p := &records.Product{
		ID:                uuid.New(),
		Name:              name,
		PriceAmount:       decimal.RequireFromString(price),
		Currency:          currency,
		AvailableQuantity: available,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

// CartItem seeds one cart line from a product row.
type CartItem struct {
	Product  *records.Product
	Quantity int
}

func SeedCart(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, items ...CartItem) *records.Cart {
	tb.Helper()
	now := time.Now().UTC()
	c := &records.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	for _, it := range items {
		c.Lines = append(c.Lines, records.CartLine{
			ID:          uuid.New(),
			CartID:      c.ID,
			ProductID:   it.Product.ID,
			ProductName: it.Product.Name,
			UnitPrice:   it.Product.PriceAmount,
			Currency:    it.Product.Currency,
			Quantity:    it.Quantity,
			CreatedAt:   now,
		})
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cart: %v", err)
	}
	return c
}

// AvailableQuantity reads stock straight from the table.
func AvailableQuantity(tb testing.TB, ctx context.Context, tx *gorm.DB, productID uuid.UUID) int {
	tb.Helper()
	var row records.Product
	if err := tx.WithContext(ctx).Unscoped().Where("id = ?", productID).First(&row).Error; err != nil {
		tb.Fatalf("load product: %v", err)
	}
	return row.AvailableQuantity
}
