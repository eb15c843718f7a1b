package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/order"
)

var OrderPlacementAggregateContract = Contract{
	Name:             "Orders.PlacementAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Converts a cart into a Pending order, reduces product stock and clears the cart " +
		"in one transaction.",
}

// OrderPlacementAggregate owns cart -> order conversion.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeEmptyCart, CodeOutOfStock, CodeConflict, CodeRetryable, CodeInternal.
type OrderPlacementAggregate interface {
	Aggregate

	// PlaceOrder creates an order from the user's cart. No stock changes on failure.
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error)
}

type PlaceOrderInput struct {
	UserID   uuid.UUID
	OrderID  uuid.UUID
	Shipping order.Address
	PlacedAt time.Time
}

type PlaceOrderResult struct {
	Order *order.Order
}
