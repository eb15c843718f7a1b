package idempotency

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDetector is a process-local TTL cache. Entries older than the retention period
// are evicted lazily on access, so no background goroutine is needed.
type MemoryDetector struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemory(cfg Config, now func() time.Time) *MemoryDetector {
	if now == nil {
		now = time.Now
	}
	return &MemoryDetector{
		cfg:     cfg.withDefaults(),
		now:     now,
		entries: map[string]time.Time{},
	}
}

func (d *MemoryDetector) Backend() string { return "memory" }

func (d *MemoryDetector) Seen(ctx context.Context, orderID uuid.UUID, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked(now)
	at, ok := d.entries[key(orderID, token)]
	if !ok {
		return false, nil
	}
	return now.Sub(at) <= d.cfg.Window, nil
}

func (d *MemoryDetector) Remember(ctx context.Context, orderID uuid.UUID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked(now)
	k := key(orderID, token)
	if _, ok := d.entries[k]; !ok {
		d.entries[k] = now
	}
	return nil
}

// Len returns the number of retained entries.
func (d *MemoryDetector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked(d.now())
	return len(d.entries)
}

func (d *MemoryDetector) evictLocked(now time.Time) {
	for k, at := range d.entries {
		if now.Sub(at) > d.cfg.Retention {
			delete(d.entries, k)
		}
	}
}
