package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/data/repos"
	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/domain/values"
	"github.com/yungbote/storefront-backend/internal/idempotency"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type PaymentAggregateDeps struct {
	Base BaseDeps

	Orders      repos.OrderRepo
	Payments    repos.PaymentRepo
	Gateway     payment.Gateway
	Idempotency idempotency.Detector

	// InFlightWindow is how long a Pending attempt blocks a new one. Older Pending
	// attempts that never reached the gateway are failed as abandoned.
	InFlightWindow time.Duration
}

type paymentAggregate struct {
	deps PaymentAggregateDeps
	log  *logger.Logger
}

func NewPaymentAggregate(deps PaymentAggregateDeps) domainagg.PaymentAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Idempotency == nil {
		deps.Idempotency = idempotency.NewMemory(idempotency.Config{}, deps.Base.Now)
	}
	if deps.InFlightWindow <= 0 {
		deps.InFlightWindow = idempotency.DefaultWindow
	}
	return &paymentAggregate{
		deps: deps,
		log:  deps.Base.Log.With("aggregate", "PaymentAggregate"),
	}
}

func (a *paymentAggregate) Contract() domainagg.Contract {
	return domainagg.PaymentAggregateContract
}

// Detail keys that are forwarded to the gateway but never stored.
var gatewayOnlyDetails = map[string]bool{
	"token":       true,
	"card_number": true,
	"cvc":         true,
	"cvv":         true,
}

func (a *paymentAggregate) ProcessPayment(ctx context.Context, in domainagg.ProcessPaymentInput) (domainagg.ProcessPaymentResult, error) {
	const op = "Payments.Payment.ProcessPayment"
	var out domainagg.ProcessPaymentResult

	if in.OrderID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing payment method", nil)
	}
	if a.deps.Orders == nil || a.deps.Payments == nil || a.deps.Gateway == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "payment aggregate deps not configured", nil)
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	requestedAt := a.deps.Base.at(in.RequestedAt)
	log := a.log.With("order_id", in.OrderID)

	if key != "" {
		dup, err := a.deps.Idempotency.Seen(ctx, in.OrderID, key)
		if err != nil {
			// The fast path is advisory; the settled-payment check below still runs.
			log.Warn("Idempotency check failed", "backend", a.deps.Idempotency.Backend(), "error", err)
		}
		a.deps.Base.Metrics.IncIdempotencyCheck(a.deps.Idempotency.Backend(), dup)
		if dup {
			log.Info("Duplicate payment attempt", "source", "idempotency")
			return a.outcome(domainagg.ProcessPaymentResult{Outcome: domainagg.PaymentOutcomeDuplicate}), nil
		}
	}

	token := strings.TrimSpace(in.Details["token"])
	stored := map[string]string{}
	for k, v := range in.Details {
		if !gatewayOnlyDetails[strings.ToLower(k)] {
			stored[k] = v
		}
	}

	// Phase 1: record the Pending attempt so it survives a gateway failure.
	var p *payment.Payment
	var version int
	early := false
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		orow, err := a.deps.Orders.LockByID(dbc, in.OrderID)
		if err != nil {
			return err
		}
		if orow == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order not found: %s", in.OrderID), nil)
		}
		o, err := orow.ToDomain()
		if err != nil {
			return err
		}
		if o.Status() == order.StatusCancelled {
			return domainagg.NewError(domainagg.CodePreconditionFailed, op, "order is cancelled", nil)
		}

		settled, err := a.deps.Payments.GetSettledByOrderID(dbc, in.OrderID)
		if err != nil {
			return err
		}
		if settled != nil {
			sp, err := settled.ToDomain()
			if err != nil {
				return err
			}
			out = domainagg.ProcessPaymentResult{Outcome: domainagg.PaymentOutcomeAlreadyPaid, Payment: sp}
			early = true
			return nil
		}

		latest, err := a.deps.Payments.GetLatestByOrderID(dbc, in.OrderID)
		if err != nil {
			return err
		}
		if latest != nil {
			blocked, err := a.resolveInFlight(dbc, latest, requestedAt)
			if err != nil {
				return err
			}
			if blocked {
				out = domainagg.ProcessPaymentResult{Outcome: domainagg.PaymentOutcomeDuplicate}
				early = true
				return nil
			}
		}

		np, err := payment.New(uuid.Nil, in.OrderID, o.Total(), method, stored, requestedAt)
		if err != nil {
			return err
		}
		row, err := records.PaymentFromDomain(np)
		if err != nil {
			return err
		}
		row.IdempotencyKey = key
		if err := a.deps.Payments.Create(dbc, row); err != nil {
			return err
		}
		p = np
		version = row.Version
		return nil
	})
	if err != nil {
		log.Warn("Payment attempt rejected", "code", domainagg.CodeOf(err), "error", err)
		return domainagg.ProcessPaymentResult{}, err
	}
	if early {
		log.Info("Payment short-circuited", "outcome", out.Outcome)
		return a.outcome(out), nil
	}

	// Phase 2: no transaction is open while the provider is called.
	meta := map[string]string{}
	for k, v := range in.Details {
		meta[k] = v
	}
	meta["order_id"] = in.OrderID.String()
	meta["payment_id"] = p.ID().String()
	gres, gerr := a.deps.Gateway.ProcessPayment(ctx, payment.ChargeRequest{
		Amount:   p.Amount(),
		Token:    token,
		Method:   method,
		Metadata: meta,
	})
	approved := gerr == nil && gres.Success && strings.TrimSpace(gres.TransactionID) != ""
	reason := gatewayMessage(gres, gerr)

	// Phase 3: apply the outcome even if the caller went away meanwhile.
	settleCtx := context.WithoutCancel(ctx)
	settledAt := a.deps.Base.Now().UTC()
	if approved {
		// A failed settle must leave a Processing row carrying the transaction id.
		if err := a.recordCharge(settleCtx, op+".RecordCharge", p, version, gres.TransactionID, settledAt); err != nil {
			return domainagg.ProcessPaymentResult{}, err
		}
		version++
	}
	const settleOp = op + ".Settle"
	err = executeWrite(settleCtx, a.deps.Base, settleOp, func(dbc dbctx.Context) error {
		if approved {
			if err := p.Complete(settledAt); err != nil {
				return err
			}
		} else if err := p.Fail(reason, settledAt); err != nil {
			return err
		}
		if err := a.savePayment(dbc, p, version); err != nil {
			return err
		}
		if !approved {
			return nil
		}
		_, err := a.markOrderPaid(dbc, settleOp, in.OrderID, p.ID(), settledAt)
		return err
	})
	if err != nil {
		log.Error("Recording payment outcome failed",
			"payment_id", p.ID(),
			"transaction_id", gres.TransactionID,
			"approved", approved,
			"error", err,
		)
		return domainagg.ProcessPaymentResult{}, err
	}

	if !approved {
		log.Warn("Payment declined", "payment_id", p.ID(), "reason", reason)
		return a.outcome(domainagg.ProcessPaymentResult{
			Outcome:        domainagg.PaymentOutcomeGatewayError,
			Payment:        p,
			GatewayMessage: reason,
		}), nil
	}

	if key != "" {
		if err := a.deps.Idempotency.Remember(ctx, in.OrderID, key); err != nil {
			log.Warn("Remembering idempotency key failed", "payment_id", p.ID(), "error", err)
		}
	}
	log.Info("Payment completed", "payment_id", p.ID(), "transaction_id", p.TransactionID(), "amount", p.Amount().String())
	return a.outcome(domainagg.ProcessPaymentResult{Outcome: domainagg.PaymentOutcomePaid, Payment: p}), nil
}

// recordCharge moves the attempt to Processing with the gateway transaction id. When the
// write fails the row is updated outside a transaction so the charge stays traceable.
func (a *paymentAggregate) recordCharge(ctx context.Context, op string, p *payment.Payment, version int, txnID string, at time.Time) error {
	if err := p.StartProcessing(txnID, at); err != nil {
		return MapError(op, err)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		return a.savePayment(dbc, p, version)
	})
	if err == nil {
		return nil
	}
	log := a.log.With("order_id", p.OrderID(), "payment_id", p.ID(), "transaction_id", txnID)
	log.Error("Recording gateway charge failed", "error", err)
	if ferr := a.savePayment(dbctx.Background(ctx), p, version); ferr != nil {
		log.Error("Charge left unrecorded; reconcile by transaction id", "error", ferr)
	} else {
		log.Warn("Charge recorded outside transaction", "status", p.Status())
	}
	return err
}

// resolveInFlight reports whether the latest attempt still blocks a new one. A Pending
// attempt older than the in-flight window without a transaction id never reached the
// gateway and is failed here. Attempts carrying a transaction id always block.
func (a *paymentAggregate) resolveInFlight(dbc dbctx.Context, row *records.Payment, now time.Time) (bool, error) {
	prev, err := row.ToDomain()
	if err != nil {
		return false, err
	}
	switch prev.Status() {
	case payment.StatusProcessing:
		return true, nil
	case payment.StatusPending:
		if prev.TransactionID() != "" || strings.TrimSpace(row.TransactionID) != "" {
			return true, nil
		}
		if now.Sub(row.CreatedAt) < a.deps.InFlightWindow {
			return true, nil
		}
		if err := prev.Fail("abandoned before reaching the gateway", now); err != nil {
			return false, err
		}
		if err := a.savePayment(dbc, prev, row.Version); err != nil {
			return false, err
		}
		a.log.Warn("Abandoned payment attempt failed", "order_id", row.OrderID, "payment_id", row.ID)
	}
	return false, nil
}

func (a *paymentAggregate) RefundPayment(ctx context.Context, in domainagg.RefundPaymentInput) (domainagg.RefundPaymentResult, error) {
	const op = "Payments.Payment.RefundPayment"
	var out domainagg.RefundPaymentResult

	if in.PaymentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing payment_id", nil)
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, payment.ErrNonPositiveAmount.Error(), payment.ErrNonPositiveAmount)
	}
	if a.deps.Payments == nil || a.deps.Gateway == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "payment aggregate deps not configured", nil)
	}
	at := a.deps.Base.at(in.RefundedAt)
	log := a.log.With("payment_id", in.PaymentID)

	// Set once the provider has returned money.
	var refundedTxn string
	var refundedAmount values.Money
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		refundedTxn = ""
		row, err := a.deps.Payments.LockByID(dbc, in.PaymentID)
		if err != nil {
			return err
		}
		if row == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("payment not found: %s", in.PaymentID), nil)
		}
		p, err := row.ToDomain()
		if err != nil {
			return err
		}

		amount := p.RemainingRefundable()
		if in.Amount != nil {
			amount = *in.Amount
		}
		if err := p.ValidateRefund(amount); err != nil {
			return err
		}

		// The row lock is held across the provider call so two refunds cannot both pass validation.
		gres, gerr := a.deps.Gateway.RefundPayment(dbc.Ctx, p.TransactionID(), amount)
		if gerr != nil || !gres.Success {
			msg := gatewayMessage(gres, gerr)
			return domainagg.NewError(domainagg.CodeGatewayFailure, op, msg, gerr)
		}
		refundedTxn, refundedAmount = gres.TransactionID, amount

		if err := p.Refund(amount, at); err != nil {
			return err
		}
		if err := a.savePayment(dbc, p, row.Version); err != nil {
			return err
		}
		if err := a.deps.Payments.CreateRefund(dbc, &records.PaymentRefund{
			PaymentID:            p.ID(),
			Amount:               amount.Amount(),
			Currency:             amount.Currency(),
			GatewayTransactionID: gres.TransactionID,
			Reason:               strings.TrimSpace(in.Reason),
			CreatedAt:            at,
		}); err != nil {
			return err
		}

		out = domainagg.RefundPaymentResult{
			Payment:             p,
			Refunded:            amount,
			GatewayTransaction:  gres.TransactionID,
			RemainingRefundable: p.RemainingRefundable(),
		}
		return nil
	})
	if err != nil {
		a.deps.Base.Metrics.IncRefund(string(domainagg.CodeOf(err)))
		if refundedTxn != "" {
			log.Error("Gateway refund issued but not recorded",
				"refund_transaction_id", refundedTxn,
				"amount", refundedAmount.String(),
				"error", err,
			)
			return domainagg.RefundPaymentResult{}, err
		}
		log.Warn("Refund failed", "code", domainagg.CodeOf(err), "error", err)
		return domainagg.RefundPaymentResult{}, err
	}

	a.deps.Base.Metrics.IncRefund("success")
	log.Info("Payment refunded",
		"order_id", out.Payment.OrderID(),
		"amount", out.Refunded.String(),
		"remaining", out.RemainingRefundable.String(),
	)
	return out, nil
}

func (a *paymentAggregate) ReconcilePayment(ctx context.Context, in domainagg.ReconcilePaymentInput) (domainagg.ReconcilePaymentResult, error) {
	const op = "Payments.Payment.ReconcilePayment"
	var out domainagg.ReconcilePaymentResult

	if in.PaymentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing payment_id", nil)
	}
	if a.deps.Orders == nil || a.deps.Payments == nil || a.deps.Gateway == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "payment aggregate deps not configured", nil)
	}
	at := a.deps.Base.at(in.ReconciledAt)
	log := a.log.With("payment_id", in.PaymentID)

	// The provider is queried outside the transaction; the row is re-read under lock below.
	row, err := a.deps.Payments.GetByID(dbctx.Background(ctx), in.PaymentID)
	if err != nil {
		return out, MapError(op, err)
	}
	if row == nil {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("payment not found: %s", in.PaymentID), nil)
	}
	if strings.TrimSpace(row.TransactionID) == "" {
		return out, domainagg.NewError(domainagg.CodePreconditionFailed, op, "payment has no gateway transaction", nil)
	}
	gst, gerr := a.deps.Gateway.GetPaymentStatus(ctx, row.TransactionID)
	if gerr != nil {
		return out, domainagg.NewError(domainagg.CodeGatewayFailure, op, gerr.Error(), gerr)
	}
	reported, ok := payment.MapGatewayStatus(gst.Status)
	if !ok {
		return out, domainagg.NewError(domainagg.CodeGatewayFailure, op, fmt.Sprintf("unknown gateway status %q", gst.Status), nil)
	}

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		locked, err := a.deps.Payments.LockByID(dbc, in.PaymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("payment not found: %s", in.PaymentID), nil)
		}
		p, err := locked.ToDomain()
		if err != nil {
			return err
		}
		changed, err := p.Reconcile(reported, gst.TransactionID, "gateway reported "+gst.Status, at)
		if err != nil {
			return err
		}
		out = domainagg.ReconcilePaymentResult{Payment: p, GatewayStatus: gst.Status, Changed: changed}
		if !changed {
			return nil
		}
		if err := a.savePayment(dbc, p, locked.Version); err != nil {
			return err
		}
		if p.Status() == payment.StatusCompleted {
			confirmed, err := a.markOrderPaid(dbc, op, p.OrderID(), p.ID(), at)
			if err != nil {
				return err
			}
			out.OrderConfirmed = confirmed
		}
		return nil
	})
	if err != nil {
		log.Warn("Reconcile failed", "code", domainagg.CodeOf(err), "error", err)
		return domainagg.ReconcilePaymentResult{}, err
	}
	log.Info("Payment reconciled",
		"gateway_status", out.GatewayStatus,
		"status", out.Payment.Status(),
		"changed", out.Changed,
		"order_confirmed", out.OrderConfirmed,
	)
	return out, nil
}

func (a *paymentAggregate) savePayment(dbc dbctx.Context, p *payment.Payment, version int) error {
	row, err := records.PaymentFromDomain(p)
	if err != nil {
		return err
	}
	row.Version = version
	ok, err := a.deps.Payments.UpdateByVersion(dbc, row)
	if err != nil {
		return err
	}
	return RequireCASSuccess(ok, fmt.Sprintf("payment %s changed concurrently", p.ID()))
}

// markOrderPaid confirms a Pending order and attaches the payment. It is a no-op for
// orders already past Pending.
func (a *paymentAggregate) markOrderPaid(dbc dbctx.Context, op string, orderID, paymentID uuid.UUID, at time.Time) (bool, error) {
	orow, err := a.deps.Orders.LockByID(dbc, orderID)
	if err != nil {
		return false, err
	}
	if orow == nil {
		return false, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order not found: %s", orderID), nil)
	}
	o, err := orow.ToDomain()
	if err != nil {
		return false, err
	}
	from := o.Status()
	changed, err := o.MarkPaid(paymentID, at)
	if err != nil || !changed {
		return false, err
	}
	ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, orderTable, orderID, []string{string(from)}, orderStateUpdates(o))
	if err != nil {
		return false, err
	}
	if err := RequireCASSuccess(ok, fmt.Sprintf("order %s changed concurrently", orderID)); err != nil {
		return false, err
	}
	a.deps.Base.Metrics.IncOrderTransition(string(order.StatusConfirmed))
	return true, nil
}

func (a *paymentAggregate) outcome(res domainagg.ProcessPaymentResult) domainagg.ProcessPaymentResult {
	a.deps.Base.Metrics.IncPaymentOutcome(string(res.Outcome))
	return res
}

func gatewayMessage(res payment.GatewayResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if msg := strings.TrimSpace(res.ErrorMessage); msg != "" {
		return msg
	}
	if !res.Success {
		return "payment declined"
	}
	return "gateway returned no transaction id"
}
