package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/order"
)

var OrderLifecycleAggregateContract = Contract{
	Name:             "Orders.LifecycleAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns order status transitions; cancellation restores stock for every line.",
}

// OrderLifecycleAggregate owns order status transitions after placement.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeInvalidTransition, CodePreconditionFailed, CodeConflict, CodeInternal.
type OrderLifecycleAggregate interface {
	Aggregate

	// TransitionStatus moves the order along one lifecycle edge.
	TransitionStatus(ctx context.Context, in TransitionOrderStatusInput) (TransitionOrderStatusResult, error)

	// CancelOrder cancels a cancellable order and restores stock.
	CancelOrder(ctx context.Context, in CancelOrderInput) (CancelOrderResult, error)
}

type TransitionOrderStatusInput struct {
	OrderID      uuid.UUID
	ToStatus     order.Status
	TransitionAt time.Time
}

type TransitionOrderStatusResult struct {
	Order *order.Order
	From  order.Status
}

type CancelOrderInput struct {
	OrderID uuid.UUID
	// RequestedBy, when set, must own the order.
	RequestedBy uuid.UUID
	CancelledAt time.Time
}

type CancelOrderResult struct {
	Order *order.Order
	// SkippedProducts lists lines whose product no longer exists.
	SkippedProducts []uuid.UUID
}
