package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/values"
	"github.com/yungbote/storefront-backend/internal/http/response"
	"github.com/yungbote/storefront-backend/internal/platform/apierr"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
)

const headerIdempotencyKey = "Idempotency-Key"

type PaymentHandler struct {
	orders   repos.OrderRepo
	payments repos.PaymentRepo
	agg      domainagg.PaymentAggregate
}

func NewPaymentHandler(orders repos.OrderRepo, payments repos.PaymentRepo, agg domainagg.PaymentAggregate) *PaymentHandler {
	return &PaymentHandler{orders: orders, payments: payments, agg: agg}
}

type payRequest struct {
	Method  string            `json:"method"`
	Details map[string]string `json:"details"`
}

// POST /api/orders/:id/payments
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
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
	var req payRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	if _, err := loadOwnedOrder(c, h.orders, orderID, userID); err != nil {
		response.RespondErr(c, err)
		return
	}

	res, err := h.agg.ProcessPayment(c.Request.Context(), domainagg.ProcessPaymentInput{
		OrderID:        orderID,
		Method:         req.Method,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
		Details:        req.Details,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}

	switch res.Outcome {
	case domainagg.PaymentOutcomePaid, domainagg.PaymentOutcomeAlreadyPaid:
		response.RespondOK(c, gin.H{"outcome": res.Outcome, "payment": paymentView(res.Payment)})
	case domainagg.PaymentOutcomeDuplicate:
		response.RespondError(c, http.StatusConflict, string(domainagg.CodeDuplicatePayment),
			errors.New("a payment attempt for this order is already in progress"))
	case domainagg.PaymentOutcomeGatewayError:
		c.JSON(http.StatusPaymentRequired, gin.H{
			"outcome": res.Outcome,
			"payment": paymentView(res.Payment),
			"error":   response.APIError{Message: res.GatewayMessage, Code: "payment_declined"},
		})
	default:
		response.RespondErr(c, fmt.Errorf("unknown payment outcome %q", res.Outcome))
	}
}

// GET /api/orders/:id/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
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
	if _, err := loadOwnedOrder(c, h.orders, orderID, userID); err != nil {
		response.RespondErr(c, err)
		return
	}
	rows, err := h.payments.ListByOrderID(dbctx.Background(c.Request.Context()), orderID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out := make([]*PaymentView, 0, len(rows))
	for _, row := range rows {
		p, err := row.ToDomain()
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		out = append(out, paymentView(p))
	}
	response.RespondOK(c, gin.H{"payments": out})
}

// POST /api/payments/:id/refunds
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	paymentID, err := uuidParam(c, "id", "invalid_payment_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		Amount string `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}

	in := domainagg.RefundPaymentInput{PaymentID: paymentID, Reason: req.Reason}
	if strings.TrimSpace(req.Amount) != "" {
		row, err := h.payments.GetByID(dbctx.Background(c.Request.Context()), paymentID)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		if row == nil {
			response.RespondErr(c, domainagg.NewError(domainagg.CodeNotFound, "Payments.Read.GetPayment",
				fmt.Sprintf("payment not found: %s", paymentID), nil))
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
		if err != nil {
			response.RespondErr(c, apierr.BadRequest("invalid_amount", err))
			return
		}
		m, err := values.NewMoney(amount, row.Currency)
		if err != nil {
			response.RespondErr(c, apierr.BadRequest("invalid_amount", err))
			return
		}
		in.Amount = &m
	}

	res, err := h.agg.RefundPayment(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"payment":              paymentView(res.Payment),
		"refunded":             moneyView(res.Refunded),
		"remaining_refundable": moneyView(res.RemainingRefundable),
		"transaction_id":       res.GatewayTransaction,
	})
}

// POST /api/payments/:id/reconcile
func (h *PaymentHandler) ReconcilePayment(c *gin.Context) {
	paymentID, err := uuidParam(c, "id", "invalid_payment_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.agg.ReconcilePayment(c.Request.Context(), domainagg.ReconcilePaymentInput{PaymentID: paymentID})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"payment":         paymentView(res.Payment),
		"gateway_status":  res.GatewayStatus,
		"changed":         res.Changed,
		"order_confirmed": res.OrderConfirmed,
	})
}
