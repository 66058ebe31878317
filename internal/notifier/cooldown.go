package notifier

import (
	"context"
	"sync"
	"time"
)

// MemoryCooldown is an in-process cooldown store.
type MemoryCooldown struct {
	mu     sync.Mutex
	until  map[string]time.Time
	nowFnc func() time.Time
}

// NewMemoryCooldown creates an empty in-process cooldown store.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		until:  make(map[string]time.Time),
		nowFnc: time.Now,
	}
}

// Cooling reports whether symbol is inside its cooldown.
func (c *MemoryCooldown) Cooling(_ context.Context, symbol string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	until, ok := c.until[symbol]
	return ok && c.nowFnc().Before(until), nil
}

// Mark starts a cooldown of ttl for symbol.
func (c *MemoryCooldown) Mark(_ context.Context, symbol string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFnc()
	// Drop expired entries so the map does not grow with stale symbols.
	for s, until := range c.until {
		if !now.Before(until) {
			delete(c.until, s)
		}
	}
	c.until[symbol] = now.Add(ttl)
	return nil
}
