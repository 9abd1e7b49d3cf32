// Package embedding provides text embedding providers (ONNX, OpenAI, Ollama,
// mock) and decorators for caching, circuit breaking and serialization.
package embedding

import (
	"context"
	"errors"
)

// Provider produces vector embeddings for text. Implementations must be
// deterministic for identical text and return vectors of Dimensions() length.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// ErrEmbeddingFailed wraps transport and decoding failures of remote providers.
var ErrEmbeddingFailed = errors.New("embedding failed")

var (
	_ Provider = (*MockEmbedder)(nil)
	_ Provider = (*ONNXEmbedder)(nil)
	_ Provider = (*OpenAIEmbedder)(nil)
	_ Provider = (*OllamaEmbedder)(nil)
	_ Provider = (*CachedProvider)(nil)
	_ Provider = (*BreakerProvider)(nil)
	_ Provider = (*SerializedProvider)(nil)
)

// Info describes a provider and its decorators.
type Info struct {
	Name         string      `json:"name"`
	Dimensions   int         `json:"dimensions"`
	Cache        *CacheStats `json:"cache,omitempty"`
	BreakerState string      `json:"breaker_state,omitempty"`
}

// Describe walks the decorator chain of p.
func Describe(p Provider) Info {
	info := Info{Name: p.Name(), Dimensions: p.Dimensions()}
	for p != nil {
		switch d := p.(type) {
		case *CachedProvider:
			stats := d.Stats()
			info.Cache = &stats
		case *BreakerProvider:
			info.BreakerState = d.State()
		}
		u, ok := p.(interface{ Unwrap() Provider })
		if !ok {
			break
		}
		p = u.Unwrap()
	}
	return info
}
