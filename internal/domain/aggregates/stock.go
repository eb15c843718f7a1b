package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/inventory"
)

var StockAggregateContract = Contract{
	Name:             "Inventory.StockAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns admin stock corrections; available quantity never drops below zero.",
}

// StockAggregate owns explicit stock updates outside order placement/cancellation.
type StockAggregate interface {
	Aggregate

	AdjustStock(ctx context.Context, in AdjustStockInput) (AdjustStockResult, error)
}

type AdjustStockInput struct {
	ProductID  uuid.UUID
	Delta      int
	AdjustedAt time.Time
}

type AdjustStockResult struct {
	Product *inventory.Product
}
