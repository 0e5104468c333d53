// Package dedupe reserves ingestion identity keys while a queued write is pending.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long a reservation survives if its consumer never releases it.
const DefaultTTL = 10 * time.Minute

// MemoryDeduper keeps reservations in process. It is used when no Redis is configured.
type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryDeduper{
		ttl:  ttl,
		now:  time.Now,
		keys: make(map[string]time.Time),
	}
}

// Reserve reports true if key was free (or its reservation had expired).
func (d *MemoryDeduper) Reserve(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.keys[key] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	delete(d.keys, key)
	d.mu.Unlock()
	return nil
}
