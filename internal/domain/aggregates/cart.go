package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/cart"
)

var CartAggregateContract = Contract{
	Name:             "Carts.CartAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns the user's single cart; lines snapshot product name and price when added.",
}

// CartAggregate owns cart mutations. The cart is created lazily.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeOutOfStock, CodeConflict, CodeInternal.
type CartAggregate interface {
	Aggregate

	GetCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	AddItem(ctx context.Context, in CartItemInput) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, in CartItemInput) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
}

type CartItemInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	At        time.Time
}
