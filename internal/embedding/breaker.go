package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the provider's circuit breaker is open.
var ErrCircuitOpen = errors.New("embedding provider circuit open")

const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerSettings configures BreakerProvider. Zero values use defaults.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout time.Duration
	// Interval clears failure counts periodically while closed.
	Interval time.Duration
}

// BreakerProvider fails fast once the wrapped provider has failed repeatedly.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[[][]float32]
}

// NewBreakerProvider wraps inner with a circuit breaker. logger may be nil.
func NewBreakerProvider(inner Provider, s BreakerSettings, logger *zap.Logger) *BreakerProvider {
	if s.MaxFailures == 0 {
		s.MaxFailures = defaultBreakerMaxFailures
	}
	if s.Timeout == 0 {
		s.Timeout = defaultBreakerTimeout
	}
	if s.Interval == 0 {
		s.Interval = defaultBreakerInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := s.MaxFailures
	cb := gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:        "embedding:" + inner.Name(),
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerProvider{inner: inner, breaker: cb}
}

// Embed forwards to the inner provider through the breaker.
func (b *BreakerProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := b.breaker.Execute(func() ([][]float32, error) {
		return b.inner.Embed(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("provider %q: %w", b.inner.Name(), ErrCircuitOpen)
		}
		return nil, err
	}
	return vecs, nil
}

// State returns the breaker state name: "closed", "half-open" or "open".
func (b *BreakerProvider) State() string { return b.breaker.State().String() }

// Dimensions returns the inner provider's dimension.
func (b *BreakerProvider) Dimensions() int { return b.inner.Dimensions() }

// Name returns the inner provider's name.
func (b *BreakerProvider) Name() string { return b.inner.Name() }

// Close closes the inner provider.
func (b *BreakerProvider) Close() error { return b.inner.Close() }

// Unwrap returns the inner provider.
func (b *BreakerProvider) Unwrap() Provider { return b.inner }
