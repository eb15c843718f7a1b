package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/stocknotify"
)

type OrderLifecycleAggregateDeps struct {
	Base BaseDeps

	Orders   repos.OrderRepo
	Products repos.ProductRepo
	Notifier stocknotify.Notifier
}

type orderLifecycleAggregate struct {
	deps OrderLifecycleAggregateDeps
	log  *logger.Logger
}

func NewOrderLifecycleAggregate(deps OrderLifecycleAggregateDeps) domainagg.OrderLifecycleAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Notifier == nil {
		deps.Notifier = stocknotify.Nop()
	}
	return &orderLifecycleAggregate{
		deps: deps,
		log:  deps.Base.Log.With("aggregate", "OrderLifecycleAggregate"),
	}
}

func (a *orderLifecycleAggregate) Contract() domainagg.Contract {
	return domainagg.OrderLifecycleAggregateContract
}

func (a *orderLifecycleAggregate) TransitionStatus(ctx context.Context, in domainagg.TransitionOrderStatusInput) (domainagg.TransitionOrderStatusResult, error) {
	const op = "Orders.Lifecycle.TransitionStatus"
	var out domainagg.TransitionOrderStatusResult

	if in.OrderID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	to, ok := order.ParseStatus(string(in.ToStatus))
	if !ok {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown order status %q", in.ToStatus), nil)
	}
	if a.deps.Orders == nil || a.deps.Products == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "order lifecycle repos not configured", nil)
	}
	at := a.deps.Base.at(in.TransitionAt)

	var changes []stockChange
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		changes = changes[:0]
		o, err := a.lockOrder(dbc, op, in.OrderID)
		if err != nil {
			return err
		}
		from := o.Status()

		if to == order.StatusCancelled {
			if err := o.Cancel(at); err != nil {
				return err
			}
			restored, _, err := a.restoreStock(dbc, o, at)
			if err != nil {
				return err
			}
			changes = restored
		} else if err := o.Transition(to, at); err != nil {
			return err
		}

		if err := a.persistState(dbc, o, from); err != nil {
			return err
		}
		out = domainagg.TransitionOrderStatusResult{Order: o, From: from}
		return nil
	})
	if err != nil {
		a.log.Warn("Order transition failed", "order_id", in.OrderID, "to", to, "code", domainagg.CodeOf(err), "error", err)
		return domainagg.TransitionOrderStatusResult{}, err
	}

	a.deps.Base.Metrics.IncOrderTransition(string(to))
	notifyStockChanges(ctx, a.deps.Notifier, a.deps.Base, "cancellation", changes)
	a.log.Info("Order status changed", "order_id", in.OrderID, "from", out.From, "to", to)
	return out, nil
}

func (a *orderLifecycleAggregate) CancelOrder(ctx context.Context, in domainagg.CancelOrderInput) (domainagg.CancelOrderResult, error) {
	const op = "Orders.Lifecycle.CancelOrder"
	var out domainagg.CancelOrderResult

	if in.OrderID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	if a.deps.Orders == nil || a.deps.Products == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "order lifecycle repos not configured", nil)
	}
	at := a.deps.Base.at(in.CancelledAt)

	var changes []stockChange
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		changes = changes[:0]
		o, err := a.lockOrder(dbc, op, in.OrderID)
		if err != nil {
			return err
		}
		// Another user's order is reported as missing.
		if in.RequestedBy != uuid.Nil && o.UserID() != in.RequestedBy {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order not found: %s", in.OrderID), nil)
		}
		from := o.Status()
		if err := o.Cancel(at); err != nil {
			return err
		}
		restored, skipped, err := a.restoreStock(dbc, o, at)
		if err != nil {
			return err
		}
		if err := a.persistState(dbc, o, from); err != nil {
			return err
		}
		changes = restored
		out = domainagg.CancelOrderResult{Order: o, SkippedProducts: skipped}
		return nil
	})
	if err != nil {
		a.log.Warn("Cancel order failed",
			"order_id", in.OrderID,
			"requested_by", in.RequestedBy,
			"code", domainagg.CodeOf(err),
			"error", err,
		)
		return domainagg.CancelOrderResult{}, err
	}

	a.deps.Base.Metrics.IncOrderTransition(string(order.StatusCancelled))
	notifyStockChanges(ctx, a.deps.Notifier, a.deps.Base, "cancellation", changes)
	a.log.Info("Order cancelled", "order_id", in.OrderID, "restored_products", len(changes), "skipped_products", len(out.SkippedProducts))
	return out, nil
}

func (a *orderLifecycleAggregate) lockOrder(dbc dbctx.Context, op string, id uuid.UUID) (*order.Order, error) {
	row, err := a.deps.Orders.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order not found: %s", id), nil)
	}
	return row.ToDomain()
}

// persistState writes the order's mutable columns guarded on the status it was loaded with.
func (a *orderLifecycleAggregate) persistState(dbc dbctx.Context, o *order.Order, from order.Status) error {
	ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, orderTable, o.ID(), []string{string(from)}, orderStateUpdates(o))
	if err != nil {
		return err
	}
	return RequireCASSuccess(ok, fmt.Sprintf("order %s changed concurrently", o.ID()))
}

// restoreStock returns every line's quantity to its product. Products deleted since
// placement are logged and skipped.
func (a *orderLifecycleAggregate) restoreStock(dbc dbctx.Context, o *order.Order, at time.Time) ([]stockChange, []uuid.UUID, error) {
	qty := map[uuid.UUID]int{}
	ids := make([]uuid.UUID, 0, len(o.Lines()))
	for _, l := range o.Lines() {
		if _, seen := qty[l.ProductID]; !seen {
			ids = append(ids, l.ProductID)
		}
		qty[l.ProductID] += l.Quantity.Int()
	}

	locked, err := a.deps.Products.LockByIDs(dbc, ids)
	if err != nil {
		return nil, nil, err
	}

	var changes []stockChange
	var skipped []uuid.UUID
	for _, id := range ids {
		row := locked[id]
		if row == nil {
			a.log.Warn("Product missing while restoring stock", "order_id", o.ID(), "product_id", id, "quantity", qty[id])
			skipped = append(skipped, id)
			continue
		}
		p, err := row.ToDomain()
		if err != nil {
			return nil, nil, err
		}
		if err := p.Increase(qty[id], at); err != nil {
			return nil, nil, err
		}
		ok, err := a.deps.Products.UpdateStock(dbc, id, row.Version, p.Available(), at)
		if err != nil {
			return nil, nil, err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("product %s changed concurrently", id)); err != nil {
			return nil, nil, err
		}
		changes = append(changes, stockChange{productID: id, available: p.Available()})
	}
	return changes, skipped, nil
}
