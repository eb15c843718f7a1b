package handlers

import (
	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/http/response"
)

type StockHandler struct {
	stock domainagg.StockAggregate
}

func NewStockHandler(stock domainagg.StockAggregate) *StockHandler {
	return &StockHandler{stock: stock}
}

// POST /api/products/:id/stock
func (h *StockHandler) AdjustStock(c *gin.Context) {
	productID, err := uuidParam(c, "id", "invalid_product_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.stock.AdjustStock(c.Request.Context(), domainagg.AdjustStockInput{
		ProductID: productID,
		Delta:     req.Delta,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": productView(res.Product)})
}
