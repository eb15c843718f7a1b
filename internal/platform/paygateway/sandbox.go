// Package paygateway holds payment provider adapters.
//
// Sandbox is a deterministic in-process provider used for local runs and tests. It
// approves every charge except those carrying the decline token, and remembers charges
// so refunds and status lookups behave like a real provider.
package paygateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/domain/payment"
	"github.com/yungbote/storefront-backend/internal/domain/values"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

var ErrUnknownTransaction = errors.New("unknown transaction")

// ErrUnavailable is returned for the error token to mimic a transport failure.
var ErrUnavailable = errors.New("payment provider unavailable")

const (
	DefaultDeclineToken = "tok_decline"
	DefaultErrorToken   = "tok_unavailable"
)

type Config struct {
	DeclineToken string
	ErrorToken   string
	Latency      time.Duration
}

type charge struct {
	amount      values.Money
	refunded    values.Money
	status      string
	processedAt time.Time
}

type Sandbox struct {
	log *logger.Logger
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	charges map[string]*charge
}

var _ payment.Gateway = (*Sandbox)(nil)

func NewSandbox(log *logger.Logger, cfg Config) *Sandbox {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.DeclineToken) == "" {
		cfg.DeclineToken = DefaultDeclineToken
	}
	if strings.TrimSpace(cfg.ErrorToken) == "" {
		cfg.ErrorToken = DefaultErrorToken
	}
	return &Sandbox{
		log:     log.With("service", "SandboxGateway"),
		cfg:     cfg,
		now:     time.Now,
		charges: map[string]*charge{},
	}
}

func (g *Sandbox) ProcessPayment(ctx context.Context, req payment.ChargeRequest) (payment.GatewayResult, error) {
	if err := g.wait(ctx); err != nil {
		return payment.GatewayResult{}, err
	}
	token := strings.TrimSpace(req.Token)
	switch {
	case token == g.cfg.ErrorToken:
		return payment.GatewayResult{}, ErrUnavailable
	case !req.Amount.IsPositive():
		return payment.GatewayResult{
			Status:       payment.GatewayRequiresPaymentMethod,
			Amount:       req.Amount,
			ErrorMessage: "amount must be positive",
		}, nil
	case token == g.cfg.DeclineToken:
		g.log.Info("Sandbox charge declined", "method", req.Method, "amount", req.Amount.String())
		return payment.GatewayResult{
			Status:       payment.GatewayRequiresPaymentMethod,
			Amount:       req.Amount,
			ErrorMessage: "card declined",
		}, nil
	}

	txnID := "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g.mu.Lock()
	g.charges[txnID] = &charge{
		amount:      req.Amount,
		refunded:    values.Zero(req.Amount.Currency()),
		status:      payment.GatewaySucceeded,
		processedAt: g.now().UTC(),
	}
	g.mu.Unlock()

	g.log.Debug("Sandbox charge approved", "transaction_id", txnID, "amount", req.Amount.String())
	return payment.GatewayResult{
		Success:       true,
		TransactionID: txnID,
		Status:        payment.GatewaySucceeded,
		Amount:        req.Amount,
	}, nil
}

func (g *Sandbox) RefundPayment(ctx context.Context, transactionID string, amount values.Money) (payment.GatewayResult, error) {
	if err := g.wait(ctx); err != nil {
		return payment.GatewayResult{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.charges[transactionID]
	if !ok {
		return payment.GatewayResult{Amount: amount, ErrorMessage: ErrUnknownTransaction.Error()}, nil
	}
	if !amount.IsPositive() {
		return payment.GatewayResult{Amount: amount, ErrorMessage: "refund amount must be positive"}, nil
	}
	next, err := c.refunded.Add(amount)
	if err != nil {
		return payment.GatewayResult{Amount: amount, ErrorMessage: err.Error()}, nil
	}
	if cmp, _ := next.Cmp(c.amount); cmp > 0 {
		return payment.GatewayResult{
			Amount:       amount,
			ErrorMessage: fmt.Sprintf("refund of %s exceeds charge %s", next, c.amount),
		}, nil
	}
	c.refunded = next

	refundID := "re_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	g.log.Debug("Sandbox refund approved", "transaction_id", transactionID, "refund_id", refundID, "amount", amount.String())
	return payment.GatewayResult{
		Success:       true,
		TransactionID: refundID,
		Status:        payment.GatewaySucceeded,
		Amount:        amount,
	}, nil
}

func (g *Sandbox) GetPaymentStatus(ctx context.Context, transactionID string) (payment.GatewayStatus, error) {
	if err := ctx.Err(); err != nil {
		return payment.GatewayStatus{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.charges[transactionID]
	if !ok {
		return payment.GatewayStatus{}, fmt.Errorf("%w: %s", ErrUnknownTransaction, transactionID)
	}
	return payment.GatewayStatus{
		TransactionID: transactionID,
		Status:        c.status,
		Amount:        c.amount,
		ProcessedAt:   c.processedAt,
	}, nil
}

// SetStatus overrides the provider-side status of a charge, for example to simulate an
// asynchronous settlement that reconciliation later picks up.
func (g *Sandbox) SetStatus(transactionID, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.charges[transactionID]
	if !ok {
		return ErrUnknownTransaction
	}
	c.status = status
	return nil
}

// Register adds a charge created outside ProcessPayment.
func (g *Sandbox) Register(transactionID string, amount values.Money, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[transactionID] = &charge{
		amount:      amount,
		refunded:    values.Zero(amount.Currency()),
		status:      status,
		processedAt: g.now().UTC(),
	}
}

func (g *Sandbox) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.cfg.Latency <= 0 {
		return nil
	}
	t := time.NewTimer(g.cfg.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
