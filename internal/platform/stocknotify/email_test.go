package stocknotify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/platform/sendgrid"
)

type spyMailer struct {
	mu   sync.Mutex
	sent []sendgrid.SendEmailRequest
	err  error
}

func (s *spyMailer) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	if s.err != nil {
		return nil, s.err
	}
	return &sendgrid.SendEmailResult{StatusCode: 202}, nil
}

func (s *spyMailer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestEmailAlertSendsBelowThresholdWithCooldown(t *testing.T) {
	mailer := &spyMailer{}
	n, err := NewEmailAlert(logger.Nop(), mailer, EmailAlertConfig{
		Threshold:  5,
		Recipients: []string{"ops@shop.example"},
		Cooldown:   time.Hour,
	})
	if err != nil {
		t.Fatalf("NewEmailAlert: %v", err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	pid := uuid.New()
	n.OnStockChanged(context.Background(), pid, 10)
	n.OnStockChanged(context.Background(), pid, 4)
	n.OnStockChanged(context.Background(), pid, 3)
	n.Wait()
	if mailer.count() != 1 {
		t.Fatalf("sent=%d want 1", mailer.count())
	}

	now = now.Add(2 * time.Hour)
	n.OnStockChanged(context.Background(), pid, 2)
	n.OnStockChanged(context.Background(), uuid.New(), 0)
	n.Wait()
	if mailer.count() != 3 {
		t.Fatalf("sent=%d want 3", mailer.count())
	}
	if mailer.sent[0].To[0].Email != "ops@shop.example" {
		t.Fatalf("recipient=%v", mailer.sent[0].To)
	}
}

func TestEmailAlertSwallowsSendErrors(t *testing.T) {
	mailer := &spyMailer{err: errors.New("boom")}
	n, err := NewEmailAlert(logger.Nop(), mailer, EmailAlertConfig{Threshold: 2, Recipients: []string{"ops@shop.example"}})
	if err != nil {
		t.Fatalf("NewEmailAlert: %v", err)
	}
	n.OnStockChanged(context.Background(), uuid.New(), 1)
	n.Wait()
	if mailer.count() != 1 {
		t.Fatalf("sent=%d", mailer.count())
	}
}

func TestNewEmailAlertRequiresRecipients(t *testing.T) {
	if _, err := NewEmailAlert(logger.Nop(), &spyMailer{}, EmailAlertConfig{Threshold: 2}); err == nil {
		t.Fatalf("expected error without recipients")
	}
}
