package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/http/response"
)

type CartHandler struct {
	carts domainagg.CartAggregate
}

func NewCartHandler(carts domainagg.CartAggregate) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	cart, err := h.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": cartView(cart)})
}

// POST /api/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req cartItemRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	cart, err := h.carts.AddItem(c.Request.Context(), domainagg.CartItemInput{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": cartView(cart)})
}

// PATCH /api/cart/items/:productId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	productID, err := uuidParam(c, "productId", "invalid_product_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	cart, err := h.carts.UpdateQuantity(c.Request.Context(), domainagg.CartItemInput{
		UserID:    userID,
		ProductID: productID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": cartView(cart)})
}

// DELETE /api/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	productID, err := uuidParam(c, "productId", "invalid_product_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	cart, err := h.carts.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": cartView(cart)})
}

// DELETE /api/cart
func (h *CartHandler) Clear(c *gin.Context) {
	userID, err := requestUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	cart, err := h.carts.Clear(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": cartView(cart)})
}
