package embedding

import (
	"context"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2/option"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	defaultOllamaModel   = "nomic-embed-text"

	// Ollama ignores the key but the client always sends one.
	ollamaAPIKey = "ollama"
)

var ollamaModelDims = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// OllamaOption configures the Ollama embedding provider.
type OllamaOption func(*ollamaSettings)

type ollamaSettings struct {
	model   string
	dims    int
	baseURL string
	client  *http.Client
}

// WithOllamaModel sets the embedding model.
func WithOllamaModel(model string) OllamaOption {
	return func(s *ollamaSettings) { s.model = model }
}

// WithOllamaDimensions sets the embedding dimensions reported by the model.
func WithOllamaDimensions(dims int) OllamaOption {
	return func(s *ollamaSettings) { s.dims = dims }
}

// WithOllamaBaseURL sets the server URL. Both http://host:11434 and
// http://host:11434/v1 are accepted.
func WithOllamaBaseURL(url string) OllamaOption {
	return func(s *ollamaSettings) { s.baseURL = ollamaV1URL(url) }
}

// WithOllamaClient sets a custom HTTP client.
func WithOllamaClient(client *http.Client) OllamaOption {
	return func(s *ollamaSettings) { s.client = client }
}

// OllamaEmbedder embeds text through the OpenAI-compatible /v1/embeddings
// endpoint of a local Ollama server.
type OllamaEmbedder struct {
	inner   *OpenAIEmbedder
	model   string
	baseURL string
}

// NewOllamaEmbedder creates an Ollama embedding provider. Models outside the
// built-in table need WithOllamaDimensions.
func NewOllamaEmbedder(opts ...OllamaOption) (*OllamaEmbedder, error) {
	s := ollamaSettings{model: defaultOllamaModel, baseURL: defaultOllamaBaseURL}
	for _, opt := range opts {
		opt(&s)
	}
	if s.dims <= 0 {
		s.dims = ollamaModelDims[s.model]
	}

	var extra []option.RequestOption
	if s.client != nil {
		extra = append(extra, option.WithHTTPClient(s.client))
	}
	inner, err := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:          ollamaAPIKey,
		BaseURL:         s.baseURL,
		Model:           s.model,
		Dimensions:      s.dims,
		FixedDimensions: true,
		Options:         extra,
	})
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedder{inner: inner, model: s.model, baseURL: s.baseURL}, nil
}

// Embed sends all texts in a single request.
func (p *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.inner.Embed(ctx, texts)
}

// Dimensions returns the model's embedding dimension.
func (p *OllamaEmbedder) Dimensions() int { return p.inner.Dimensions() }

// Name returns "ollama".
func (p *OllamaEmbedder) Name() string { return "ollama" }

// Close is a no-op.
func (p *OllamaEmbedder) Close() error { return nil }

func ollamaV1URL(url string) string {
	url = strings.TrimRight(url, "/")
	if url == "" {
		return defaultOllamaBaseURL
	}
	if !strings.HasSuffix(url, "/v1") {
		url += "/v1"
	}
	return url
}
