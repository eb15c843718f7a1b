package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

var PaymentAggregateContract = Contract{
	Name:             "Payments.PaymentAggregate",
	WriteTxOwnership: WriteTxSplitAroundExternalCall,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Persists a Pending payment audit row, calls the gateway outside any transaction, records " +
		"an approved charge as Processing, then completes it and marks the order paid atomically. " +
		"Refunds hold the payment row lock across the gateway refund.",
}

// PaymentAggregate owns payment settlement, refunds and reconciliation.
//
// Expected outcomes (already paid, duplicate attempt, gateway decline) are
// reported through ProcessPaymentResult.Outcome, not as errors.
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodePreconditionFailed, CodeInvalidTransition,
// CodeGatewayFailure, CodeConflict, CodeRetryable, CodeInternal.
type PaymentAggregate interface {
	Aggregate

	ProcessPayment(ctx context.Context, in ProcessPaymentInput) (ProcessPaymentResult, error)
	RefundPayment(ctx context.Context, in RefundPaymentInput) (RefundPaymentResult, error)
	ReconcilePayment(ctx context.Context, in ReconcilePaymentInput) (ReconcilePaymentResult, error)
}

type PaymentOutcome string

const (
	PaymentOutcomePaid         PaymentOutcome = "paid"
	PaymentOutcomeAlreadyPaid  PaymentOutcome = "already_paid"
	PaymentOutcomeDuplicate    PaymentOutcome = "duplicate"
	PaymentOutcomeGatewayError PaymentOutcome = "gateway_error"
)

type ProcessPaymentInput struct {
	OrderID        uuid.UUID
	Method         string
	IdempotencyKey string
	Details        map[string]string
	RequestedAt    time.Time
}

type ProcessPaymentResult struct {
	Outcome PaymentOutcome
	// Payment is the attempt created by this call, or the existing settled
	// payment for AlreadyPaid. Nil for Duplicate.
	Payment *payment.Payment
	// GatewayMessage is set for GatewayError.
	GatewayMessage string
}

func (r ProcessPaymentResult) Succeeded() bool { return r.Outcome == PaymentOutcomePaid }

type RefundPaymentInput struct {
	PaymentID uuid.UUID
	// Amount nil means the full remaining refundable amount.
	Amount     *values.Money
	Reason     string
	RefundedAt time.Time
}

type RefundPaymentResult struct {
	Payment             *payment.Payment
	Refunded            values.Money
	GatewayTransaction  string
	RemainingRefundable values.Money
}

type ReconcilePaymentInput struct {
	PaymentID    uuid.UUID
	ReconciledAt time.Time
}

type ReconcilePaymentResult struct {
	Payment        *payment.Payment
	GatewayStatus  string
	Changed        bool
	OrderConfirmed bool
}
