package stocknotify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/sendgrid"
)

const DefaultEmailCooldown = time.Hour

type EmailAlertConfig struct {
	Threshold  int
	Recipients []string
	// Cooldown suppresses repeat alerts for the same product.
	Cooldown time.Duration
	Timeout  time.Duration
}

// EmailAlert mails operators when a product drops below Threshold. Sends run
// in the background so the committing request never waits on the mail API.
type EmailAlert struct {
	log    *logger.Logger
	client sendgrid.Client
	cfg    EmailAlertConfig
	now    func() time.Time

	mu       sync.Mutex
	lastSent map[uuid.UUID]time.Time
	wg       sync.WaitGroup
}

func NewEmailAlert(log *logger.Logger, client sendgrid.Client, cfg EmailAlertConfig) (*EmailAlert, error) {
	if client == nil {
		return nil, fmt.Errorf("sendgrid client required")
	}
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("at least one alert recipient required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultEmailCooldown
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &EmailAlert{
		log:      log.With("service", "LowStockEmailAlert"),
		client:   client,
		cfg:      cfg,
		now:      time.Now,
		lastSent: map[uuid.UUID]time.Time{},
	}, nil
}

func (n *EmailAlert) OnStockChanged(_ context.Context, productID uuid.UUID, newQuantity int) {
	if n.cfg.Threshold <= 0 || newQuantity >= n.cfg.Threshold {
		return
	}
	now := n.now()
	n.mu.Lock()
	if last, ok := n.lastSent[productID]; ok && now.Sub(last) < n.cfg.Cooldown {
		n.mu.Unlock()
		return
	}
	n.lastSent[productID] = now
	n.mu.Unlock()

	to := make([]sendgrid.EmailAddress, 0, len(n.cfg.Recipients))
	for _, r := range n.cfg.Recipients {
		to = append(to, sendgrid.EmailAddress{Email: r})
	}
	req := sendgrid.SendEmailRequest{
		To:         to,
		Subject:    fmt.Sprintf("Low stock: product %s", productID),
		Text:       fmt.Sprintf("Product %s has %d units available (threshold %d).", productID, newQuantity, n.cfg.Threshold),
		Categories: []string{"low-stock"},
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout)
		defer cancel()
		if _, err := n.client.Send(ctx, req); err != nil {
			n.log.Warn("Low stock email failed", "product_id", productID, "error", err)
			return
		}
		n.log.Info("Low stock email sent", "product_id", productID, "available_quantity", newQuantity)
	}()
}

// Wait blocks until in-flight sends finish.
func (n *EmailAlert) Wait() { n.wg.Wait() }
