package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/stocknotify"
)

type OrderPlacementAggregateDeps struct {
	Base BaseDeps

	Users    repos.UserRepo
	Carts    repos.CartRepo
	Products repos.ProductRepo
	Orders   repos.OrderRepo
	Notifier stocknotify.Notifier
}

type orderPlacementAggregate struct {
	deps OrderPlacementAggregateDeps
	log  *logger.Logger
}

func NewOrderPlacementAggregate(deps OrderPlacementAggregateDeps) domainagg.OrderPlacementAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Notifier == nil {
		deps.Notifier = stocknotify.Nop()
	}
	return &orderPlacementAggregate{
		deps: deps,
		log:  deps.Base.Log.With("aggregate", "OrderPlacementAggregate"),
	}
}

func (a *orderPlacementAggregate) Contract() domainagg.Contract {
	return domainagg.OrderPlacementAggregateContract
}

type stockChange struct {
	productID uuid.UUID
	available int
}

func (a *orderPlacementAggregate) PlaceOrder(ctx context.Context, in domainagg.PlaceOrderInput) (domainagg.PlaceOrderResult, error) {
	const op = "Orders.Placement.PlaceOrder"
	var out domainagg.PlaceOrderResult

	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if err := in.Shipping.Validate(); err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	if a.deps.Users == nil || a.deps.Carts == nil || a.deps.Products == nil || a.deps.Orders == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "order placement repos not configured", nil)
	}
	placedAt := a.deps.Base.at(in.PlacedAt)

	var changes []stockChange
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		changes = changes[:0]

		ok, err := a.deps.Users.Exists(dbc, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("user not found: %s", in.UserID), nil)
		}

		cartRow, err := a.deps.Carts.LockByUserID(dbc, in.UserID)
		if err != nil {
			return err
		}
		if cartRow == nil || len(cartRow.Lines) == 0 {
			return domainagg.NewError(domainagg.CodeEmptyCart, op, "cart is empty", nil)
		}
		c, err := cartRow.ToDomain()
		if err != nil {
			return err
		}
		cartLines := c.Lines()

		ids := make([]uuid.UUID, 0, len(cartLines))
		for _, l := range cartLines {
			ids = append(ids, l.ProductID)
		}
		// Locks are taken in ascending id order so concurrent placements cannot deadlock.
		locked, err := a.deps.Products.LockByIDs(dbc, ids)
		if err != nil {
			return err
		}

		lines := make([]order.Line, 0, len(cartLines))
		for _, l := range cartLines {
			row := locked[l.ProductID]
			if row == nil {
				return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("product not found: %s", l.ProductID), nil)
			}
			if row.AvailableQuantity < l.Quantity.Int() {
				oos := &domainagg.OutOfStockError{
					ProductID:   row.ID,
					ProductName: row.Name,
					Requested:   l.Quantity.Int(),
					Available:   row.AvailableQuantity,
				}
				return domainagg.NewError(domainagg.CodeOutOfStock, op, oos.Error(), oos)
			}
			lines = append(lines, order.Line{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				UnitPrice:   l.UnitPrice,
				Quantity:    l.Quantity,
			})
		}

		o, err := order.New(in.OrderID, in.UserID, lines, in.Shipping, placedAt)
		if err != nil {
			return err
		}

		for _, l := range o.Lines() {
			row := locked[l.ProductID]
			p, err := row.ToDomain()
			if err != nil {
				return err
			}
			if err := p.Reduce(l.Quantity.Int(), placedAt); err != nil {
				return err
			}
			updated, err := a.deps.Products.UpdateStock(dbc, p.ID(), row.Version, p.Available(), placedAt)
			if err != nil {
				return err
			}
			if err := RequireCASSuccess(updated, fmt.Sprintf("product %s changed concurrently", p.ID())); err != nil {
				return err
			}
			changes = append(changes, stockChange{productID: p.ID(), available: p.Available()})
		}

		if err := a.deps.Carts.ReplaceLines(dbc, cartRow.ID, nil, placedAt); err != nil {
			return err
		}
		if err := a.deps.Orders.Create(dbc, records.OrderFromDomain(o)); err != nil {
			return err
		}

		out.Order = o
		return nil
	})
	if err != nil {
		a.log.Warn("Place order failed", "user_id", in.UserID, "code", domainagg.CodeOf(err), "error", err)
		return domainagg.PlaceOrderResult{}, err
	}

	a.deps.Base.Metrics.IncOrderPlaced()
	notifyStockChanges(ctx, a.deps.Notifier, a.deps.Base, "placement", changes)
	a.log.Info("Order placed",
		"order_id", out.Order.ID(),
		"user_id", in.UserID,
		"lines", len(out.Order.Lines()),
		"total", out.Order.Total().String(),
	)
	return out, nil
}

// notifyStockChanges runs after commit; notifier failures never affect the caller.
func notifyStockChanges(ctx context.Context, n stocknotify.Notifier, base BaseDeps, reason string, changes []stockChange) {
	for _, ch := range changes {
		base.Metrics.IncStockChange(reason)
		n.OnStockChanged(ctx, ch.productID, ch.available)
	}
}
