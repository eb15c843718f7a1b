package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/stocknotify"
)

type StockAggregateDeps struct {
	Base BaseDeps

	Products repos.ProductRepo
	Notifier stocknotify.Notifier
}

type stockAggregate struct {
	deps StockAggregateDeps
	log  *logger.Logger
}

func NewStockAggregate(deps StockAggregateDeps) domainagg.StockAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Notifier == nil {
		deps.Notifier = stocknotify.Nop()
	}
	return &stockAggregate{
		deps: deps,
		log:  deps.Base.Log.With("aggregate", "StockAggregate"),
	}
}

func (a *stockAggregate) Contract() domainagg.Contract {
	return domainagg.StockAggregateContract
}

func (a *stockAggregate) AdjustStock(ctx context.Context, in domainagg.AdjustStockInput) (domainagg.AdjustStockResult, error) {
	const op = "Inventory.Stock.AdjustStock"
	var out domainagg.AdjustStockResult

	if in.ProductID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing product_id", nil)
	}
	if in.Delta == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "delta must be non-zero", nil)
	}
	if a.deps.Products == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "product repo not configured", nil)
	}
	at := a.deps.Base.at(in.AdjustedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		locked, err := a.deps.Products.LockByIDs(dbc, []uuid.UUID{in.ProductID})
		if err != nil {
			return err
		}
		row := locked[in.ProductID]
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("product not found: %s", in.ProductID), nil)
		}
		p, err := row.ToDomain()
		if err != nil {
			return err
		}
		if err := p.Adjust(in.Delta, at); err != nil {
			return err
		}
		ok, err := a.deps.Products.UpdateStock(dbc, p.ID(), row.Version, p.Available(), at)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("product %s changed concurrently", p.ID())); err != nil {
			return err
		}
		out.Product = p
		return nil
	})
	if err != nil {
		a.log.Warn("Stock adjustment failed", "product_id", in.ProductID, "delta", in.Delta, "code", domainagg.CodeOf(err), "error", err)
		return domainagg.AdjustStockResult{}, err
	}

	notifyStockChanges(ctx, a.deps.Notifier, a.deps.Base, "adjustment", []stockChange{{productID: in.ProductID, available: out.Product.Available()}})
	a.log.Info("Stock adjusted", "product_id", in.ProductID, "delta", in.Delta, "available_quantity", out.Product.Available())
	return out, nil
}
