package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/http/response"
	"github.com/yungbote/storefront-backend/internal/platform/apierr"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
)

const (
	defaultOrderListLimit = 20
	maxOrderListLimit     = 100
)

type OrderHandler struct {
	orders    repos.OrderRepo
	placement domainagg.OrderPlacementAggregate
	lifecycle domainagg.OrderLifecycleAggregate
}

func NewOrderHandler(orders repos.OrderRepo, placement domainagg.OrderPlacementAggregate, lifecycle domainagg.OrderLifecycleAggregate) *OrderHandler {
	return &OrderHandler{orders: orders, placement: placement, lifecycle: lifecycle}
}

// POST /api/orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		ShippingAddress order.Address `json:"shipping_address"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.placement.PlaceOrder(c.Request.Context(), domainagg.PlaceOrderInput{
		UserID:   userID,
		Shipping: req.ShippingAddress,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"order": orderView(res.Order)})
}

// GET /api/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	limit := defaultOrderListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondErr(c, apierr.BadRequest("invalid_limit", fmt.Errorf("limit must be a positive integer")))
			return
		}
		limit = min(n, maxOrderListLimit)
	}
	rows, err := h.orders.ListByUserID(dbctx.Background(c.Request.Context()), userID, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out := make([]OrderView, 0, len(rows))
	for _, row := range rows {
		o, err := row.ToDomain()
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		out = append(out, orderView(o))
	}
	response.RespondOK(c, gin.H{"orders": out})
}

// GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	o, err := h.ownedOrder(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": orderView(o)})
}

// POST /api/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	orderID, err := uuidParam(c, "id", "invalid_order_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.lifecycle.CancelOrder(c.Request.Context(), domainagg.CancelOrderInput{
		OrderID:     orderID,
		RequestedBy: userID,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": orderView(res.Order), "skipped_products": res.SkippedProducts})
}

// POST /api/orders/:id/status
func (h *OrderHandler) TransitionStatus(c *gin.Context) {
	orderID, err := uuidParam(c, "id", "invalid_order_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.lifecycle.TransitionStatus(c.Request.Context(), domainagg.TransitionOrderStatusInput{
		OrderID:  orderID,
		ToStatus: order.Status(req.Status),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": orderView(res.Order), "from": res.From})
}

// ownedOrder loads the path order for the request user. Other users' orders are reported missing.
func (h *OrderHandler) ownedOrder(c *gin.Context) (*order.Order, error) {
	userID, err := requestUser(c)
	if err != nil {
		return nil, err
	}
	orderID, err := uuidParam(c, "id", "invalid_order_id")
	if err != nil {
		return nil, err
	}
	return loadOwnedOrder(c, h.orders, orderID, userID)
}

func loadOwnedOrder(c *gin.Context, orders repos.OrderRepo, orderID, userID uuid.UUID) (*order.Order, error) {
	const op = "Orders.Read.GetOrder"
	row, err := orders.GetByID(dbctx.Background(c.Request.Context()), orderID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.UserID != userID {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order not found: %s", orderID), nil)
	}
	return row.ToDomain()
}
