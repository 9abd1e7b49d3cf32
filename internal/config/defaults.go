package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.RateLimit.RequestsPerMin > 0 && cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = cfg.Server.RateLimit.RequestsPerMin
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultModel(cfg.Embedding.Provider)
	}
	if cfg.Embedding.Provider == ProviderONNX && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/sentembed/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "auto"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case ProviderONNX, ProviderMock:
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == ProviderOllama {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Breaker.MaxFailures == 0 {
		cfg.Embedding.Breaker.MaxFailures = 5
	}
	if cfg.Embedding.Breaker.Timeout == 0 {
		cfg.Embedding.Breaker.Timeout = 30 * time.Second
	}
	if cfg.Embedding.Breaker.Interval == 0 {
		cfg.Embedding.Breaker.Interval = 60 * time.Second
	}

	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "noop"
		if cfg.Tracing.Enabled {
			cfg.Tracing.Exporter = "stdout"
		}
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "text-embedding-3-small"
	case ProviderOllama:
		return "nomic-embed-text"
	default:
		return "all-MiniLM-L6-v2"
	}
}
