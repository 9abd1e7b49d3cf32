package embedding

import (
	"fmt"
	"os"

	"github.com/hyperjump/sentembed/internal/config"
	"go.uber.org/zap"
)

// NewProvider builds the configured provider and its decorators:
// remote providers get a circuit breaker, serialize adds a call lock, and
// every provider gets the LRU cache unless cache_size is negative. logger
// may be nil.
func NewProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := newBaseProvider(cfg)
	if err != nil {
		if cfg.Provider != config.ProviderONNX || !cfg.FallbackToMock {
			return nil, err
		}
		logger.Warn("ONNX embedder unavailable, falling back to mock embeddings", zap.Error(err))
		base = NewMockEmbedder(cfg.Dimensions)
	}

	var p Provider = base
	switch cfg.Provider {
	case config.ProviderOpenAI, config.ProviderOllama:
		p = NewBreakerProvider(p, BreakerSettings{
			MaxFailures: cfg.Breaker.MaxFailures,
			Timeout:     cfg.Breaker.Timeout,
			Interval:    cfg.Breaker.Interval,
		}, logger)
	}
	if cfg.Serialize {
		p = NewSerializedProvider(p)
	}
	if cfg.CacheSize > 0 {
		cached, err := NewCachedProvider(p, cfg.CacheSize)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p = cached
	}

	logger.Info("embedding provider ready",
		zap.String("provider", p.Name()),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", p.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize),
	)
	return p, nil
}

func newBaseProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderONNX:
		e, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:   cfg.ModelPath,
			VocabPath:   cfg.VocabPath,
			OutputName:  cfg.OutputName,
			Pooling:     cfg.Pooling,
			LibraryPath: cfg.LibraryPath,
			Dimensions:  cfg.Dimensions,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderOpenAI:
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     os.Getenv(cfg.APIKeyEnv),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderOllama:
		opts := []OllamaOption{WithOllamaModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, WithOllamaBaseURL(cfg.BaseURL))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, WithOllamaDimensions(cfg.Dimensions))
		}
		e, err := NewOllamaEmbedder(opts...)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
