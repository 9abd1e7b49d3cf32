package embedding

import (
	"context"
	"sync"
)

// countingProvider records every batch it is asked to embed.
type countingProvider struct {
	mu      sync.Mutex
	inner   *MockEmbedder
	batches [][]string
	err     error
	closed  bool
}

func newCountingProvider(dims int) *countingProvider {
	return &countingProvider{inner: NewMockEmbedder(dims)}
}

func (c *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batches = append(c.batches, append([]string(nil), texts...))
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.inner.Embed(ctx, texts)
}

func (c *countingProvider) Dimensions() int { return c.inner.Dimensions() }
func (c *countingProvider) Name() string    { return "counting" }

func (c *countingProvider) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *countingProvider) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *countingProvider) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
