package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/aggregates"
	"github.com/yungbote/storefront-backend/internal/data/repos"
	repotest "github.com/yungbote/storefront-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/storefront-backend/internal/http/handlers"
	httpMW "github.com/yungbote/storefront-backend/internal/http/middleware"
	"github.com/yungbote/storefront-backend/internal/idempotency"
	"github.com/yungbote/storefront-backend/internal/platform/paygateway"
)

const testSecret = "router-test-secret"

type apiHarness struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	router *gin.Engine
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := repotest.SQLite(t)
	log := repotest.Logger(t)
	rs := repos.New(db, log)
	base := aggregates.BaseDeps{DB: db, Log: log}

	placement := aggregates.NewOrderPlacementAggregate(aggregates.OrderPlacementAggregateDeps{
		Base: base, Users: rs.Users, Carts: rs.Carts, Products: rs.Products, Orders: rs.Orders,
	})
	lifecycle := aggregates.NewOrderLifecycleAggregate(aggregates.OrderLifecycleAggregateDeps{
		Base: base, Orders: rs.Orders, Products: rs.Products,
	})
	payments := aggregates.NewPaymentAggregate(aggregates.PaymentAggregateDeps{
		Base:        base,
		Orders:      rs.Orders,
		Payments:    rs.Payments,
		Gateway:     paygateway.NewSandbox(log, paygateway.Config{}),
		Idempotency: idempotency.NewMemory(idempotency.Config{}, nil),
	})

	router := NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, testSecret),
		HealthHandler:  httpH.NewHealthHandler(db),
		CartHandler: httpH.NewCartHandler(aggregates.NewCartAggregate(aggregates.CartAggregateDeps{
			Base: base, Carts: rs.Carts, Products: rs.Products,
		})),
		OrderHandler:   httpH.NewOrderHandler(rs.Orders, placement, lifecycle),
		PaymentHandler: httpH.NewPaymentHandler(rs.Orders, rs.Payments, payments),
		StockHandler: httpH.NewStockHandler(aggregates.NewStockAggregate(aggregates.StockAggregateDeps{
			Base: base, Products: rs.Products,
		})),
	})
	return &apiHarness{t: t, ctx: context.Background(), db: db, router: router}
}

func (h *apiHarness) token(userID uuid.UUID, role string) string {
	h.t.Helper()
	tok, err := httpMW.SignToken(testSecret, userID, role, time.Hour)
	if err != nil {
		h.t.Fatalf("SignToken: %v", err)
	}
	return tok
}

func (h *apiHarness) do(method, path, token string, body any, headers ...string) (int, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			h.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func field(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[p]
	}
	return cur
}

func errorCode(body map[string]any) any { return field(body, "error", "code") }

var testAddress = map[string]any{
	"shipping_address": map[string]string{
		"line1":       "1 Main St",
		"city":        "Springfield",
		"postal_code": "12345",
		"country":     "US",
	},
}

func TestHealthcheck(t *testing.T) {
	h := newAPIHarness(t)
	if code, _ := h.do(http.MethodGet, "/healthcheck", "", nil); code != http.StatusOK {
		t.Fatalf("healthcheck code=%d", code)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	h := newAPIHarness(t)
	code, body := h.do(http.MethodGet, "/api/cart", "", nil)
	if code != http.StatusUnauthorized || errorCode(body) != "unauthorized" {
		t.Fatalf("code=%d body=%v", code, body)
	}
}

func TestCheckoutFlow(t *testing.T) {
	h := newAPIHarness(t)
	user := repotest.SeedUser(t, h.ctx, h.db)
	product := repotest.SeedProduct(t, h.ctx, h.db, "Lamp", "12.50", "USD", 5)
	shopper := h.token(user.ID, "")
	admin := h.token(uuid.New(), httpMW.RoleAdmin)

	code, body := h.do(http.MethodPost, "/api/cart/items", shopper, map[string]any{
		"product_id": product.ID, "quantity": 2,
	})
	if code != http.StatusOK || field(body, "cart", "total", "amount") != "25.00" {
		t.Fatalf("add item: code=%d body=%v", code, body)
	}

	code, body = h.do(http.MethodPost, "/api/orders", shopper, testAddress)
	if code != http.StatusCreated {
		t.Fatalf("place order: code=%d body=%v", code, body)
	}
	if field(body, "order", "status") != "pending" || field(body, "order", "total", "amount") != "25.00" {
		t.Fatalf("order=%v", body["order"])
	}
	orderID, _ := field(body, "order", "id").(string)
	if got := repotest.AvailableQuantity(t, h.ctx, h.db, product.ID); got != 3 {
		t.Fatalf("available=%d want 3", got)
	}

	other := h.token(repotest.SeedUser(t, h.ctx, h.db).ID, "")
	if code, _ := h.do(http.MethodGet, "/api/orders/"+orderID, other, nil); code != http.StatusNotFound {
		t.Fatalf("foreign order read code=%d", code)
	}
	if code, _ := h.do(http.MethodGet, "/api/orders/"+orderID, shopper, nil); code != http.StatusOK {
		t.Fatalf("own order read code=%d", code)
	}

	code, body = h.do(http.MethodPost, "/api/orders/"+orderID+"/payments", shopper,
		map[string]any{"method": "card"}, "Idempotency-Key", "key-1")
	if code != http.StatusOK || body["outcome"] != "paid" {
		t.Fatalf("pay: code=%d body=%v", code, body)
	}
	paymentID, _ := field(body, "payment", "id").(string)

	code, body = h.do(http.MethodPost, "/api/orders/"+orderID+"/payments", shopper,
		map[string]any{"method": "card"}, "Idempotency-Key", "key-2")
	if code != http.StatusOK || body["outcome"] != "already_paid" || field(body, "payment", "id") != paymentID {
		t.Fatalf("second pay: code=%d body=%v", code, body)
	}

	code, body = h.do(http.MethodGet, "/api/orders/"+orderID, shopper, nil)
	if code != http.StatusOK || field(body, "order", "status") != "confirmed" || field(body, "order", "payment_id") != paymentID {
		t.Fatalf("confirmed order: code=%d body=%v", code, body)
	}

	refundPath := "/api/payments/" + paymentID + "/refunds"
	if code, _ := h.do(http.MethodPost, refundPath, shopper, map[string]any{"amount": "5.00"}); code != http.StatusForbidden {
		t.Fatalf("shopper refund code=%d", code)
	}
	code, body = h.do(http.MethodPost, refundPath, admin, map[string]any{"amount": "5.00"})
	if code != http.StatusOK || field(body, "remaining_refundable", "amount") != "20.00" {
		t.Fatalf("refund: code=%d body=%v", code, body)
	}
	code, body = h.do(http.MethodPost, refundPath, admin, map[string]any{"amount": "25.00"})
	if code != http.StatusBadRequest || errorCode(body) != "validation" {
		t.Fatalf("over-refund: code=%d body=%v", code, body)
	}

	code, body = h.do(http.MethodPost, "/api/orders/"+orderID+"/status", admin, map[string]any{"status": "delivered"})
	if code != http.StatusConflict || errorCode(body) != "invalid_state_transition" {
		t.Fatalf("skip transition: code=%d body=%v", code, body)
	}
	code, body = h.do(http.MethodPost, "/api/orders/"+orderID+"/status", admin, map[string]any{"status": "processing"})
	if code != http.StatusOK || field(body, "order", "status") != "processing" {
		t.Fatalf("transition: code=%d body=%v", code, body)
	}

	code, body = h.do(http.MethodGet, "/api/orders", shopper, nil)
	orders, _ := body["orders"].([]any)
	if code != http.StatusOK || len(orders) != 1 {
		t.Fatalf("list: code=%d body=%v", code, body)
	}
}

func TestPlaceOrderErrors(t *testing.T) {
	h := newAPIHarness(t)
	user := repotest.SeedUser(t, h.ctx, h.db)
	shopper := h.token(user.ID, "")

	code, body := h.do(http.MethodPost, "/api/orders", shopper, testAddress)
	if code != http.StatusUnprocessableEntity || errorCode(body) != "empty_cart" {
		t.Fatalf("empty cart: code=%d body=%v", code, body)
	}

	product := repotest.SeedProduct(t, h.ctx, h.db, "Chair", "40.00", "USD", 1)
	code, body = h.do(http.MethodPost, "/api/cart/items", shopper, map[string]any{
		"product_id": product.ID, "quantity": 3,
	})
	if code != http.StatusUnprocessableEntity || errorCode(body) != "out_of_stock" {
		t.Fatalf("out of stock: code=%d body=%v", code, body)
	}
	if field(body, "error", "details", "available") != float64(1) {
		t.Fatalf("details=%v", field(body, "error", "details"))
	}

	if code, _ := h.do(http.MethodGet, "/api/orders/not-a-uuid", shopper, nil); code != http.StatusBadRequest {
		t.Fatalf("bad id code=%d", code)
	}
}

func TestDeclinedPaymentThenCancel(t *testing.T) {
	h := newAPIHarness(t)
	user := repotest.SeedUser(t, h.ctx, h.db)
	product := repotest.SeedProduct(t, h.ctx, h.db, "Desk", "99.00", "USD", 2)
	repotest.SeedCart(t, h.ctx, h.db, user.ID, repotest.CartItem{Product: product, Quantity: 1})
	shopper := h.token(user.ID, "")

	code, body := h.do(http.MethodPost, "/api/orders", shopper, testAddress)
	if code != http.StatusCreated {
		t.Fatalf("place: code=%d body=%v", code, body)
	}
	orderID, _ := field(body, "order", "id").(string)

	code, body = h.do(http.MethodPost, "/api/orders/"+orderID+"/payments", shopper, map[string]any{
		"method": "card", "details": map[string]string{"token": paygateway.DefaultDeclineToken},
	})
	if code != http.StatusPaymentRequired || body["outcome"] != "gateway_error" {
		t.Fatalf("decline: code=%d body=%v", code, body)
	}
	if field(body, "payment", "status") != "failed" {
		t.Fatalf("payment=%v", body["payment"])
	}

	code, body = h.do(http.MethodPost, "/api/orders/"+orderID+"/cancel", shopper, nil)
	if code != http.StatusOK || field(body, "order", "status") != "cancelled" {
		t.Fatalf("cancel: code=%d body=%v", code, body)
	}
	if got := repotest.AvailableQuantity(t, h.ctx, h.db, product.ID); got != 2 {
		t.Fatalf("available=%d want 2", got)
	}

	code, body = h.do(http.MethodGet, "/api/orders/"+orderID+"/payments", shopper, nil)
	payments, _ := body["payments"].([]any)
	if code != http.StatusOK || len(payments) != 1 {
		t.Fatalf("payments: code=%d body=%v", code, body)
	}
}

func TestAdjustStockRequiresAdmin(t *testing.T) {
	h := newAPIHarness(t)
	product := repotest.SeedProduct(t, h.ctx, h.db, "Rug", "15.00", "USD", 4)
	path := "/api/products/" + product.ID.String() + "/stock"

	if code, _ := h.do(http.MethodPost, path, h.token(uuid.New(), ""), map[string]any{"delta": 3}); code != http.StatusForbidden {
		t.Fatalf("shopper code=%d", code)
	}
	admin := h.token(uuid.New(), httpMW.RoleAdmin)
	code, body := h.do(http.MethodPost, path, admin, map[string]any{"delta": 3})
	if code != http.StatusOK || field(body, "product", "available_quantity") != float64(7) {
		t.Fatalf("adjust: code=%d body=%v", code, body)
	}
	code, body = h.do(http.MethodPost, path, admin, map[string]any{"delta": -8})
	if code != http.StatusUnprocessableEntity || errorCode(body) != "out_of_stock" {
		t.Fatalf("over-reduce: code=%d body=%v", code, body)
	}
}
