// Package payment holds the payment aggregate, its refund ledger and the
// gateway adapter contract.
package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/storefront-backend/internal/domain/values"
)

var (
	ErrRefundExceedsRemaining = errors.New("exceeds remaining refundable amount")
	ErrNonPositiveAmount      = errors.New("amount must be positive")
	ErrCurrencyMismatch       = errors.New("currency does not match payment currency")
)

type Payment struct {
	identity      values.Identity
	orderID       uuid.UUID
	amount        values.Money
	status        Status
	method        string
	transactionID string
	failureReason string
	refunded      values.Money
	metadata      map[string]string
}

type Snapshot struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Amount         values.Money
	Status         Status
	Method         string
	TransactionID  string
	FailureReason  string
	RefundedAmount values.Money
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New creates a Pending payment for the full amount of an order.
func New(id, orderID uuid.UUID, amount values.Money, method string, metadata map[string]string, now time.Time) (*Payment, error) {
	if orderID == uuid.Nil {
		return nil, errors.New("order id is required")
	}
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, errors.New("payment method is required")
	}
	return &Payment{
		identity: values.NewIdentity(id, now),
		orderID:  orderID,
		amount:   amount,
		status:   StatusPending,
		method:   method,
		refunded: values.Zero(amount.Currency()),
		metadata: copyMetadata(metadata),
	}, nil
}

func Restore(s Snapshot) *Payment {
	refunded := s.RefundedAmount
	if refunded.Currency() == "" {
		refunded = values.Zero(s.Amount.Currency())
	}
	return &Payment{
		identity:      values.RestoreIdentity(s.ID, s.CreatedAt, s.UpdatedAt),
		orderID:       s.OrderID,
		amount:        s.Amount,
		status:        s.Status,
		method:        s.Method,
		transactionID: s.TransactionID,
		failureReason: s.FailureReason,
		refunded:      refunded,
		metadata:      copyMetadata(s.Metadata),
	}
}

func (p *Payment) Snapshot() Snapshot {
	return Snapshot{
		ID:             p.identity.ID(),
		OrderID:        p.orderID,
		Amount:         p.amount,
		Status:         p.status,
		Method:         p.method,
		TransactionID:  p.transactionID,
		FailureReason:  p.failureReason,
		RefundedAmount: p.refunded,
		Metadata:       copyMetadata(p.metadata),
		CreatedAt:      p.identity.CreatedAt(),
		UpdatedAt:      p.identity.UpdatedAt(),
	}
}

func (p *Payment) ID() uuid.UUID                { return p.identity.ID() }
func (p *Payment) OrderID() uuid.UUID           { return p.orderID }
func (p *Payment) Amount() values.Money         { return p.amount }
func (p *Payment) Status() Status               { return p.status }
func (p *Payment) Method() string               { return p.method }
func (p *Payment) TransactionID() string        { return p.transactionID }
func (p *Payment) FailureReason() string        { return p.failureReason }
func (p *Payment) RefundedAmount() values.Money { return p.refunded }
func (p *Payment) Metadata() map[string]string  { return copyMetadata(p.metadata) }
func (p *Payment) UpdatedAt() time.Time         { return p.identity.UpdatedAt() }

// StartProcessing records the gateway transaction id and moves Pending -> Processing.
func (p *Payment) StartProcessing(transactionID string, now time.Time) error {
	transactionID = strings.TrimSpace(transactionID)
	if p.status != StatusPending {
		return &StateError{Action: "start processing", Status: p.status}
	}
	if transactionID == "" {
		return &StateError{Action: "start processing", Status: p.status, Reason: "missing transaction id"}
	}
	p.transactionID = transactionID
	p.status = StatusProcessing
	p.identity = p.identity.Touched(now)
	return nil
}

func (p *Payment) Complete(now time.Time) error {
	if p.status != StatusProcessing {
		return &StateError{Action: "complete", Status: p.status}
	}
	if p.transactionID == "" {
		return &StateError{Action: "complete", Status: p.status, Reason: "missing transaction id"}
	}
	p.status = StatusCompleted
	p.failureReason = ""
	p.identity = p.identity.Touched(now)
	return nil
}

func (p *Payment) Fail(reason string, now time.Time) error {
	if !p.status.CanTransitionTo(StatusFailed) {
		return &StateError{Action: "fail", Status: p.status}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "payment declined"
	}
	p.status = StatusFailed
	p.failureReason = reason
	p.identity = p.identity.Touched(now)
	return nil
}

// RemainingRefundable is amount minus refunds, or zero if the payment never settled.
func (p *Payment) RemainingRefundable() values.Money {
	if !p.status.IsSettled() {
		return values.Zero(p.amount.Currency())
	}
	rem, err := p.amount.Sub(p.refunded)
	if err != nil {
		return values.Zero(p.amount.Currency())
	}
	return rem
}

func (p *Payment) CanRefund() bool {
	return p.status.IsSettled() && p.RemainingRefundable().IsPositive()
}

// ValidateRefund checks a refund request without changing anything.
func (p *Payment) ValidateRefund(amount values.Money) error {
	if !p.status.IsSettled() {
		return &StateError{Action: "refund", Status: p.status}
	}
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if amount.Currency() != p.amount.Currency() {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, amount.Currency(), p.amount.Currency())
	}
	cmp, err := amount.Cmp(p.RemainingRefundable())
	if err != nil {
		return err
	}
	if cmp > 0 {
		return fmt.Errorf("%w: requested %s, remaining %s", ErrRefundExceedsRemaining, amount, p.RemainingRefundable())
	}
	return nil
}

// Refund adds amount to the cumulative ledger and marks the payment Refunded.
func (p *Payment) Refund(amount values.Money, now time.Time) error {
	if err := p.ValidateRefund(amount); err != nil {
		return err
	}
	next, err := p.refunded.Add(amount)
	if err != nil {
		return err
	}
	p.refunded = next
	p.status = StatusRefunded
	p.identity = p.identity.Touched(now)
	return nil
}

// Reconcile applies a status reported by the gateway when it is a legal
// forward move. It returns whether anything changed.
func (p *Payment) Reconcile(reported Status, transactionID string, reason string, now time.Time) (bool, error) {
	if reported == p.status {
		return false, nil
	}
	switch reported {
	case StatusProcessing:
		if p.status != StatusPending {
			return false, nil
		}
		return true, p.StartProcessing(firstNonEmpty(p.transactionID, transactionID), now)
	case StatusCompleted:
		if p.status == StatusPending {
			if err := p.StartProcessing(firstNonEmpty(p.transactionID, transactionID), now); err != nil {
				return false, err
			}
		}
		if p.status != StatusProcessing {
			return false, nil
		}
		return true, p.Complete(now)
	case StatusFailed:
		if !p.status.CanTransitionTo(StatusFailed) {
			return false, nil
		}
		return true, p.Fail(reason, now)
	}
	return false, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
