package payment

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/storefront-backend/internal/domain/values"
)

// Gateway status strings reported by the provider.
const (
	GatewayRequiresPaymentMethod = "requires_payment_method"
	GatewayRequiresConfirmation  = "requires_confirmation"
	GatewayRequiresAction        = "requires_action"
	GatewayProcessing            = "processing"
	GatewaySucceeded             = "succeeded"
	GatewayCanceled              = "canceled"
)

type ChargeRequest struct {
	Amount   values.Money
	Token    string
	Method   string
	Metadata map[string]string
}

type GatewayResult struct {
	Success       bool
	TransactionID string
	Status        string
	Amount        values.Money
	ErrorMessage  string
}

type GatewayStatus struct {
	TransactionID string
	Status        string
	Amount        values.Money
	ProcessedAt   time.Time
}

// Gateway is the adapter to the external payment provider.
type Gateway interface {
	ProcessPayment(ctx context.Context, req ChargeRequest) (GatewayResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount values.Money) (GatewayResult, error)
	GetPaymentStatus(ctx context.Context, transactionID string) (GatewayStatus, error)
}

// MapGatewayStatus converts a provider status into a payment Status.
func MapGatewayStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case GatewayRequiresPaymentMethod, GatewayRequiresConfirmation:
		return StatusPending, true
	case GatewayRequiresAction, GatewayProcessing:
		return StatusProcessing, true
	case GatewaySucceeded:
		return StatusCompleted, true
	case GatewayCanceled:
		return StatusFailed, true
	}
	return "", false
}
