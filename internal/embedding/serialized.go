package embedding

import "context"

// SerializedProvider allows one Embed call at a time on a provider that is
// not safe for concurrent use.
type SerializedProvider struct {
	inner Provider
	sem   chan struct{}
}

// NewSerializedProvider wraps inner with a one-slot semaphore.
func NewSerializedProvider(inner Provider) *SerializedProvider {
	return &SerializedProvider{inner: inner, sem: make(chan struct{}, 1)}
}

// Embed waits for exclusive access, or for ctx to be done, then embeds.
func (s *SerializedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return s.inner.Embed(ctx, texts)
}

func (s *SerializedProvider) Dimensions() int { return s.inner.Dimensions() }

func (s *SerializedProvider) Name() string { return s.inner.Name() }

// Close waits for an in-flight call to finish before closing inner.
func (s *SerializedProvider) Close() error {
	_ = s.acquire(context.Background())
	defer s.release()
	return s.inner.Close()
}

// Unwrap returns the inner provider.
func (s *SerializedProvider) Unwrap() Provider { return s.inner }

func (s *SerializedProvider) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SerializedProvider) release() { <-s.sem }
