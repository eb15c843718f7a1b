// Package stocknotify delivers stock-level changes after the owning transaction commits.
// Notifiers never fail the workflow that triggered them; delivery errors are logged.
package stocknotify

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/observability"
	"github.com/yungbote/storefront-backend/internal/platform/logger"
)

type Notifier interface {
	OnStockChanged(ctx context.Context, productID uuid.UUID, newQuantity int)
}

type nop struct{}

func (nop) OnStockChanged(context.Context, uuid.UUID, int) {}

func Nop() Notifier { return nop{} }

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, productID uuid.UUID, newQuantity int)

func (f Func) OnStockChanged(ctx context.Context, productID uuid.UUID, newQuantity int) {
	if f != nil {
		f(ctx, productID, newQuantity)
	}
}

type multi []Notifier

// Multi fans a change out to every non-nil notifier in order.
func Multi(ns ...Notifier) Notifier {
	out := make(multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multi) OnStockChanged(ctx context.Context, productID uuid.UUID, newQuantity int) {
	for _, n := range m {
		n.OnStockChanged(ctx, productID, newQuantity)
	}
}

// LowStock logs every change and warns when the new quantity drops below Threshold.
type LowStock struct {
	log       *logger.Logger
	metrics   *observability.Metrics
	threshold int
}

func NewLowStock(log *logger.Logger, metrics *observability.Metrics, threshold int) *LowStock {
	if log == nil {
		log = logger.Nop()
	}
	return &LowStock{
		log:       log.With("service", "LowStockNotifier"),
		metrics:   metrics,
		threshold: threshold,
	}
}

func (n *LowStock) OnStockChanged(ctx context.Context, productID uuid.UUID, newQuantity int) {
	if n.threshold > 0 && newQuantity < n.threshold {
		n.metrics.IncLowStockAlert()
		n.log.Warn("Low stock", "product_id", productID, "available_quantity", newQuantity, "threshold", n.threshold)
		return
	}
	n.log.Debug("Stock changed", "product_id", productID, "available_quantity", newQuantity)
}
