package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/platform/apierr"
)

func respond(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondErr(c, err)
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec.Code, env
}

func TestRespondErrMapsAggregateCodes(t *testing.T) {
	cases := []struct {
		code   domainagg.ErrorCode
		status int
	}{
		{domainagg.CodeValidation, http.StatusBadRequest},
		{domainagg.CodeNotFound, http.StatusNotFound},
		{domainagg.CodeOutOfStock, http.StatusUnprocessableEntity},
		{domainagg.CodeEmptyCart, http.StatusUnprocessableEntity},
		{domainagg.CodeInvalidTransition, http.StatusConflict},
		{domainagg.CodeDuplicatePayment, http.StatusConflict},
		{domainagg.CodePreconditionFailed, http.StatusPreconditionFailed},
		{domainagg.CodeGatewayFailure, http.StatusBadGateway},
		{domainagg.CodeRetryable, http.StatusServiceUnavailable},
		{domainagg.CodeInvariantViolation, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, env := respond(t, domainagg.NewError(tc.code, "op", "boom", nil))
		if status != tc.status {
			t.Fatalf("%s: status=%d want %d", tc.code, status, tc.status)
		}
		if env.Error.Code != string(tc.code) {
			t.Fatalf("%s: code=%q", tc.code, env.Error.Code)
		}
	}
}

func TestRespondErrHidesInternalMessages(t *testing.T) {
	status, env := respond(t, fmt.Errorf("dial tcp 10.0.0.3:5432: refused"))
	if status != http.StatusInternalServerError {
		t.Fatalf("status=%d", status)
	}
	if env.Error.Code != "internal" || env.Error.Message != "internal error" {
		t.Fatalf("envelope=%+v", env.Error)
	}
}

func TestRespondErrOutOfStockDetails(t *testing.T) {
	pid := uuid.New()
	oos := &domainagg.OutOfStockError{ProductID: pid, ProductName: "Lamp", Requested: 3, Available: 1}
	status, env := respond(t, domainagg.NewError(domainagg.CodeOutOfStock, "op", oos.Error(), oos))
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", status)
	}
	details, ok := env.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("details=%T", env.Error.Details)
	}
	if details["product_id"] != pid.String() || details["available"] != float64(1) {
		t.Fatalf("details=%v", details)
	}
}

func TestRespondErrUsesAPIErrorStatus(t *testing.T) {
	status, env := respond(t, apierr.BadRequest("invalid_id", errors.New("bad id")))
	if status != http.StatusBadRequest || env.Error.Code != "invalid_id" || env.Error.Message != "bad id" {
		t.Fatalf("status=%d envelope=%+v", status, env.Error)
	}
}
