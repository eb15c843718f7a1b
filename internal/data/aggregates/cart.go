package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/cart"
	"github.com/yungbote/storefront-backend/internal/domain/inventory"
	"github.com/yungbote/storefront-backend/internal/domain/values"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type CartAggregateDeps struct {
	Base BaseDeps

	Carts    repos.CartRepo
	Products repos.ProductRepo
}

type cartAggregate struct {
	deps CartAggregateDeps
	log  *logger.Logger
}

func NewCartAggregate(deps CartAggregateDeps) domainagg.CartAggregate {
	deps.Base = deps.Base.withDefaults()
	return &cartAggregate{
		deps: deps,
		log:  deps.Base.Log.With("aggregate", "CartAggregate"),
	}
}

func (a *cartAggregate) Contract() domainagg.Contract {
	return domainagg.CartAggregateContract
}

func (a *cartAggregate) GetCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	const op = "Carts.Cart.GetCart"
	if err := a.validate(op, userID); err != nil {
		return nil, err
	}
	row, err := a.deps.Carts.GetByUserID(dbctx.Background(ctx), userID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if row != nil {
		c, err := row.ToDomain()
		return c, MapError(op, err)
	}
	return a.mutate(ctx, op, userID, time.Time{}, func(*cart.Cart, dbctx.Context, time.Time) error { return nil })
}

func (a *cartAggregate) AddItem(ctx context.Context, in domainagg.CartItemInput) (*cart.Cart, error) {
	const op = "Carts.Cart.AddItem"
	if err := a.validate(op, in.UserID); err != nil {
		return nil, err
	}
	if in.ProductID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing product_id", nil)
	}
	if _, err := values.CartQuantity(in.Quantity); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}

	c, err := a.mutate(ctx, op, in.UserID, in.At, func(c *cart.Cart, dbc dbctx.Context, at time.Time) error {
		p, err := a.loadProduct(dbc, op, in.ProductID)
		if err != nil {
			return err
		}
		if err := c.AddItem(p.ID(), p.Name(), p.Price(), in.Quantity, at); err != nil {
			return err
		}
		line, _ := c.Line(p.ID())
		return checkAdvisoryStock(op, p.ID(), p.Name(), line.Quantity.Int(), p.Available())
	})
	if err == nil {
		a.log.Debug("Cart item added", "user_id", in.UserID, "product_id", in.ProductID, "quantity", in.Quantity)
	}
	return c, err
}

func (a *cartAggregate) UpdateQuantity(ctx context.Context, in domainagg.CartItemInput) (*cart.Cart, error) {
	const op = "Carts.Cart.UpdateQuantity"
	if err := a.validate(op, in.UserID); err != nil {
		return nil, err
	}
	if _, err := values.CartQuantity(in.Quantity); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	return a.mutate(ctx, op, in.UserID, in.At, func(c *cart.Cart, dbc dbctx.Context, at time.Time) error {
		if err := c.UpdateQuantity(in.ProductID, in.Quantity, at); err != nil {
			return err
		}
		p, err := a.loadProduct(dbc, op, in.ProductID)
		if err != nil {
			return err
		}
		return checkAdvisoryStock(op, p.ID(), p.Name(), in.Quantity, p.Available())
	})
}

func (a *cartAggregate) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error) {
	const op = "Carts.Cart.RemoveItem"
	if err := a.validate(op, userID); err != nil {
		return nil, err
	}
	return a.mutate(ctx, op, userID, time.Time{}, func(c *cart.Cart, _ dbctx.Context, at time.Time) error {
		return c.RemoveItem(productID, at)
	})
}

func (a *cartAggregate) Clear(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	const op = "Carts.Cart.Clear"
	if err := a.validate(op, userID); err != nil {
		return nil, err
	}
	return a.mutate(ctx, op, userID, time.Time{}, func(c *cart.Cart, _ dbctx.Context, at time.Time) error {
		c.Clear(at)
		return nil
	})
}

func (a *cartAggregate) validate(op string, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if a.deps.Carts == nil || a.deps.Products == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "cart aggregate repos not configured", nil)
	}
	return nil
}

// mutate locks (or lazily creates) the user's cart, applies fn and rewrites the lines.
func (a *cartAggregate) mutate(ctx context.Context, op string, userID uuid.UUID, ts time.Time, fn func(c *cart.Cart, dbc dbctx.Context, at time.Time) error) (*cart.Cart, error) {
	at := a.deps.Base.at(ts)
	var out *cart.Cart
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row, err := a.deps.Carts.LockByUserID(dbc, userID)
		if err != nil {
			return err
		}
		var c *cart.Cart
		if row == nil {
			c, err = cart.New(uuid.Nil, userID, at)
			if err != nil {
				return err
			}
			if err := a.deps.Carts.Create(dbc, records.CartFromDomain(c)); err != nil {
				return err
			}
		} else if c, err = row.ToDomain(); err != nil {
			return err
		}

		if err := fn(c, dbc, at); err != nil {
			return err
		}
		next := records.CartFromDomain(c)
		if err := a.deps.Carts.ReplaceLines(dbc, c.ID(), next.Lines, c.UpdatedAt()); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		a.log.Debug("Cart update failed", "user_id", userID, "op", op, "code", domainagg.CodeOf(err), "error", err)
		return nil, err
	}
	return out, nil
}

func (a *cartAggregate) loadProduct(dbc dbctx.Context, op string, id uuid.UUID) (*inventory.Product, error) {
	row, err := a.deps.Products.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("product not found: %s", id), nil)
	}
	return row.ToDomain()
}

// checkAdvisoryStock rejects cart quantities the shelf cannot cover right now.
// Placement re-checks under lock.
func checkAdvisoryStock(op string, productID uuid.UUID, name string, want, available int) error {
	if want <= available {
		return nil
	}
	oos := &domainagg.OutOfStockError{ProductID: productID, ProductName: name, Requested: want, Available: available}
	return domainagg.NewError(domainagg.CodeOutOfStock, op, oos.Error(), oos)
}
