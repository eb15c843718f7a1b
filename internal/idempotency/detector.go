// Package idempotency recognizes rapid client retries of a payment request.
//
// A Detector is the fast path only. The payment workflow still checks the order for a
// settled payment, which catches every duplicate the short window misses.
package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultWindow    = 5 * time.Minute
	DefaultRetention = 10 * time.Minute
)

type Detector interface {
	// Seen reports whether (orderID, token) was remembered within the window.
	// An empty token is never a duplicate.
	Seen(ctx context.Context, orderID uuid.UUID, token string) (bool, error)
	// Remember records (orderID, token). The first remembered time wins until the entry expires.
	Remember(ctx context.Context, orderID uuid.UUID, token string) error
	Backend() string
}

type Config struct {
	Window    time.Duration
	Retention time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.Retention < c.Window {
		c.Retention = c.Window
	}
	return c
}

func key(orderID uuid.UUID, token string) string {
	return orderID.String() + ":" + token
}
