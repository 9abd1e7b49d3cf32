package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedProvider memoizes embeddings per text in an LRU cache. Only cache
// misses are forwarded to the inner provider, as one batch.
type CachedProvider struct {
	inner  Provider
	cache  *lru.Cache[string, []float32]
	size   int
	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries  int   `json:"entries"`
	Capacity int   `json:"capacity"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

// NewCachedProvider wraps inner with an LRU cache of capacity entries.
func NewCachedProvider(inner Provider, capacity int) (*CachedProvider, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	c, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedProvider{inner: inner, cache: c, size: capacity}, nil
}

// Embed returns cached embeddings where available and embeds the rest.
// Repeated texts within one batch are embedded once.
func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	positions := make(map[string][]int)
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			c.hits.Add(1)
			out[i] = cloneVec(vec)
			continue
		}
		if _, pending := positions[text]; !pending {
			missTexts = append(missTexts, text)
		}
		positions[text] = append(positions[text], i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	c.misses.Add(int64(len(missTexts)))

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("provider %s returned %d embeddings for %d texts", c.inner.Name(), len(vecs), len(missTexts))
	}
	for k, text := range missTexts {
		c.cache.Add(text, cloneVec(vecs[k]))
		for _, pos := range positions[text] {
			out[pos] = cloneVec(vecs[k])
		}
	}
	return out, nil
}

// Dimensions returns the inner provider's dimension.
func (c *CachedProvider) Dimensions() int { return c.inner.Dimensions() }

// Name returns the inner provider's name.
func (c *CachedProvider) Name() string { return c.inner.Name() }

// Close purges the cache and closes the inner provider.
func (c *CachedProvider) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// Stats returns the current cache counters.
func (c *CachedProvider) Stats() CacheStats {
	return CacheStats{
		Entries:  c.cache.Len(),
		Capacity: c.size,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}

func cloneVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Unwrap returns the inner provider.
func (c *CachedProvider) Unwrap() Provider { return c.inner }
