package materials

import (
	"context"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache fetches the phases of each chemical system once and shares them
// across callers. Concurrent misses for one system share a single fetch.
type Cache struct {
	source Source
	mu     sync.RWMutex
	items  map[string][]Phase
	flight singleflight.Group
}

// NewCache wraps source.
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		items:  make(map[string][]Phase),
	}
}

// Phases returns the cached phases for elements, fetching them on first use.
// The returned slice must not be modified.
func (c *Cache) Phases(ctx context.Context, elements []string) ([]Phase, error) {
	els := slices.Clone(elements)
	slices.Sort(els)
	els = slices.Compact(els)
	key := strings.Join(els, "-")

	c.mu.RLock()
	phases, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return phases, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		phases, err := c.source.Phases(ctx, els)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[key] = phases
		c.mu.Unlock()
		return phases, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Phase), nil
}

// Len returns the number of cached chemical systems.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
