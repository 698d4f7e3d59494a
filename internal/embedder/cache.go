package embedder

import (
	"context"
	"fmt"
	"sync"
)

// DefaultCacheSize is the default entry cap for the embedding cache.
const DefaultCacheSize = 4096

// Cached decorates an Embedder with a concurrent text-keyed result cache.
// The cache is an optimization, not a correctness dependency: writes are
// last-writer-wins, and hitting the size cap resets the whole cache rather
// than tracking eviction order.
type Cached struct {
	inner Embedder

	mu      sync.RWMutex
	entries map[string][]float32
	maxSize int
}

// WithCache wraps an embedder with a result cache. maxSize <= 0 uses the default.
func WithCache(inner Embedder, maxSize int) *Cached {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cached{
		inner:   inner,
		entries: make(map[string][]float32),
		maxSize: maxSize,
	}
}

// Embed returns a cached vector when available, otherwise delegates.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	vec, ok := c.entries[text]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.maxSize {
		c.entries = make(map[string][]float32)
	}
	c.entries[text] = vec
	c.mu.Unlock()

	return vec, nil
}

// EmbedBatch delegates per-text through the cache.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var misses []string
	var missIdx []int

	c.mu.RLock()
	for i, text := range texts {
		if vec, ok := c.entries[text]; ok {
			results[i] = vec
		} else {
			misses = append(misses, text)
			missIdx = append(missIdx, i)
		}
	}
	c.mu.RUnlock()

	if len(misses) == 0 {
		return results, nil
	}

	fetched, err := c.inner.EmbedBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(misses) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(fetched), len(misses))
	}

	c.mu.Lock()
	for i, vec := range fetched {
		if len(c.entries) >= c.maxSize {
			c.entries = make(map[string][]float32)
		}
		c.entries[misses[i]] = vec
		results[missIdx[i]] = vec
	}
	c.mu.Unlock()

	return results, nil
}

// Len reports the current number of cached entries.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dimension returns the inner embedder's dimension.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// ModelName returns the inner embedder's model name.
func (c *Cached) ModelName() string { return c.inner.ModelName() }

// Ensure Cached implements Embedder interface.
var _ Embedder = (*Cached)(nil)
